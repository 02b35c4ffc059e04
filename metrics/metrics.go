package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicgrid/vote-engine/config"
)

const (
	MetricVotesAccepted      = "votes_accepted"
	MetricVotesRejected      = "votes_rejected"
	MetricVoteSubmitDuration = "vote_submit_duration"
	MetricQueueDepth         = "queue_depth"
	MetricQueueSaturated     = "queue_saturated_count"
	MetricStorageRetries     = "storage_retry_count"
	MetricReceiptLookups     = "receipt_lookup_count"
	MetricChainAnomalies     = "chain_anomaly_count"
	MetricAuditEventsDropped = "audit_events_dropped"
)

type MetricService struct {
	MetricsMap map[string]prometheus.Metric
	queueDepth *prometheus.GaugeVec
	cfg        *config.Config
}

func NewMetricService(config *config.Config) *MetricService {
	ms := make(map[string]prometheus.Metric, 0)

	votesAcceptedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVotesAccepted,
		Help: "Votes accepted and appended to a poll chain",
	})
	ms[MetricVotesAccepted] = votesAcceptedMetric
	prometheus.MustRegister(votesAcceptedMetric)

	votesRejectedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVotesRejected,
		Help: "Votes rejected by eligibility or storage checks",
	})
	ms[MetricVotesRejected] = votesRejectedMetric
	prometheus.MustRegister(votesRejectedMetric)

	voteSubmitDurationMetric := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: MetricVoteSubmitDuration,
		Help: "Duration of one vote submission task, admission to receipt",
	})
	ms[MetricVoteSubmitDuration] = voteSubmitDurationMetric
	prometheus.MustRegister(voteSubmitDurationMetric)

	queueDepthMetric := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: MetricQueueDepth,
		Help: "Pending submissions per poll lane",
	}, []string{"poll_id"})
	prometheus.MustRegister(queueDepthMetric)

	queueSaturatedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricQueueSaturated,
		Help: "Submissions rejected because a poll lane was full",
	})
	ms[MetricQueueSaturated] = queueSaturatedMetric
	prometheus.MustRegister(queueSaturatedMetric)

	storageRetriesMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricStorageRetries,
		Help: "Transient storage errors retried inside queue tasks",
	})
	ms[MetricStorageRetries] = storageRetriesMetric
	prometheus.MustRegister(storageRetriesMetric)

	receiptLookupsMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricReceiptLookups,
		Help: "Receipt verification lookups served",
	})
	ms[MetricReceiptLookups] = receiptLookupsMetric
	prometheus.MustRegister(receiptLookupsMetric)

	chainAnomaliesMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricChainAnomalies,
		Help: "Chain audits that found a broken hash chain",
	})
	ms[MetricChainAnomalies] = chainAnomaliesMetric
	prometheus.MustRegister(chainAnomaliesMetric)

	auditDroppedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricAuditEventsDropped,
		Help: "Audit events dropped because the emitter buffer was full",
	})
	ms[MetricAuditEventsDropped] = auditDroppedMetric
	prometheus.MustRegister(auditDroppedMetric)

	return &MetricService{
		MetricsMap: ms,
		queueDepth: queueDepthMetric,
		cfg:        config,
	}
}

func (m *MetricService) Start() {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(fmt.Sprintf(":%d", m.cfg.ServerConfig.MetricsPort), nil)
	if err != nil {
		panic(err)
	}
}

func (m *MetricService) IncVotesAccepted() {
	m.MetricsMap[MetricVotesAccepted].(prometheus.Counter).Inc()
}

func (m *MetricService) IncVotesRejected() {
	m.MetricsMap[MetricVotesRejected].(prometheus.Counter).Inc()
}

func (m *MetricService) SetVoteSubmitDuration(duration time.Duration) {
	m.MetricsMap[MetricVoteSubmitDuration].(prometheus.Histogram).Observe(duration.Seconds())
}

func (m *MetricService) SetQueueDepth(pollId string, depth int) {
	m.queueDepth.WithLabelValues(pollId).Set(float64(depth))
}

func (m *MetricService) IncQueueSaturated() {
	m.MetricsMap[MetricQueueSaturated].(prometheus.Counter).Inc()
}

func (m *MetricService) IncStorageRetries() {
	m.MetricsMap[MetricStorageRetries].(prometheus.Counter).Inc()
}

func (m *MetricService) IncReceiptLookups() {
	m.MetricsMap[MetricReceiptLookups].(prometheus.Counter).Inc()
}

func (m *MetricService) IncChainAnomalies() {
	m.MetricsMap[MetricChainAnomalies].(prometheus.Counter).Inc()
}

func (m *MetricService) IncAuditEventsDropped() {
	m.MetricsMap[MetricAuditEventsDropped].(prometheus.Counter).Inc()
}
