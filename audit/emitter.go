// Package audit publishes structured events about vote processing to
// external collaborators. Emission is fire-and-forget: the vote write
// path is never blocked or failed by a slow or absent audit sink.
package audit

import (
	"time"

	"github.com/civicgrid/vote-engine/logging"
	"github.com/civicgrid/vote-engine/metrics"
)

type EventType string

const (
	EventVoteAccepted     EventType = "vote_accepted"
	EventVoteRejected     EventType = "vote_rejected"
	EventPollCreated      EventType = "poll_created"
	EventPollClosed       EventType = "poll_closed"
	EventChainAnomaly     EventType = "chain_anomaly"
	EventPollNotification EventType = "poll_notification"
)

type Event struct {
	Type      EventType
	PollId    string
	VoteHash  string
	Outcome   string
	Timestamp time.Time
}

// Sink receives events from the dispatcher. Implementations own their
// delivery semantics; errors are logged here and never retried.
type Sink interface {
	Deliver(event Event) error
}

type Emitter struct {
	events        chan Event
	sinks         []Sink
	metricService *metrics.MetricService
	done          chan struct{}
}

func NewEmitter(bufferSize int, metricService *metrics.MetricService, sinks ...Sink) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Emitter{
		events:        make(chan Event, bufferSize),
		sinks:         sinks,
		metricService: metricService,
		done:          make(chan struct{}),
	}
}

// Emit enqueues the event without blocking. When the buffer is full the
// event is dropped and counted; vote processing goes on regardless.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case e.events <- event:
	default:
		if e.metricService != nil {
			e.metricService.IncAuditEventsDropped()
		}
		logging.Logger.Errorf("audit emitter buffer full, dropped event type=%s, poll=%s", event.Type, event.PollId)
	}
}

func (e *Emitter) DispatchLoop() {
	for {
		select {
		case event := <-e.events:
			for _, sink := range e.sinks {
				if err := sink.Deliver(event); err != nil {
					logging.Logger.Errorf("audit sink delivery failed, type=%s, poll=%s, err=%s", event.Type, event.PollId, err.Error())
				}
			}
		case <-e.done:
			return
		}
	}
}

func (e *Emitter) Stop() {
	close(e.done)
}
