package audit

import (
	"fmt"

	"github.com/civicgrid/vote-engine/alert"
	"github.com/civicgrid/vote-engine/config"
	"github.com/civicgrid/vote-engine/logging"
)

// LogSink writes every event to the structured log.
type LogSink struct{}

func (LogSink) Deliver(event Event) error {
	logging.Logger.Infof("audit event type=%s, poll=%s, vote_hash=%s, outcome=%s, ts=%s",
		event.Type, event.PollId, event.VoteHash, event.Outcome, event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

// AlertSink escalates chain anomalies to the operator telegram channel
// and ignores everything else.
type AlertSink struct {
	cfg *config.AlertConfig
}

func NewAlertSink(cfg *config.AlertConfig) *AlertSink {
	return &AlertSink{cfg: cfg}
}

func (s *AlertSink) Deliver(event Event) error {
	if event.Type != EventChainAnomaly {
		return nil
	}
	msg := fmt.Sprintf("hash chain anomaly detected, poll=%s, vote_hash=%s, outcome=%s",
		event.PollId, event.VoteHash, event.Outcome)
	alert.SendTelegramMessage(s.cfg.Identity, s.cfg.TelegramBotId, s.cfg.TelegramChatId, msg)
	return nil
}
