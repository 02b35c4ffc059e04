// Package lifecycle owns poll status transitions and gates vote
// eligibility before a submission reaches the queue. Its eligibility
// answer is advisory; the authoritative duplicate and closure checks
// run inside the queue's serialized write.
package lifecycle

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/vote-engine/audit"
	"github.com/civicgrid/vote-engine/common"
	"github.com/civicgrid/vote-engine/db/model"
	"github.com/civicgrid/vote-engine/logging"
)

// LaneCloser lets the manager tear down a poll's submission lane on
// closure without depending on the queue package.
type LaneCloser interface {
	ClosePoll(pollId string)
}

type CreatePollSpec struct {
	Title               string
	Description         string
	Type                model.PollType
	AnonymousDisplay    bool
	AllowMultipleChoice bool
	StartTime           time.Time
	EndTime             time.Time
	Options             []string
	NotifyMembers       bool
}

type Eligibility struct {
	Eligible bool
	Reason   common.IneligibleReason
}

type Manager struct {
	dataProvider DataProvider
	emitter      *audit.Emitter
	laneCloser   LaneCloser
}

func NewManager(dataProvider DataProvider, emitter *audit.Emitter, laneCloser LaneCloser) *Manager {
	return &Manager{
		dataProvider: dataProvider,
		emitter:      emitter,
		laneCloser:   laneCloser,
	}
}

func (m *Manager) CreatePoll(spec CreatePollSpec) (*model.Poll, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, common.NewValidationError("poll title must not be empty")
	}
	if spec.Type != model.PollTypeInformal && spec.Type != model.PollTypeBinding {
		return nil, common.NewValidationError("unknown poll type %q", spec.Type)
	}
	if !spec.EndTime.After(spec.StartTime) {
		return nil, common.NewValidationError("poll end time must be after start time")
	}
	options := make([]string, 0, len(spec.Options))
	for _, opt := range spec.Options {
		if strings.TrimSpace(opt) == "" {
			return nil, common.NewValidationError("poll option text must not be empty")
		}
		options = append(options, opt)
	}
	if len(options) < 2 {
		return nil, common.NewValidationError("poll needs at least two options, got %d", len(options))
	}

	now := time.Now()
	status := model.Draft
	if spec.StartTime.After(now) {
		status = model.Scheduled
	}

	poll := &model.Poll{
		Id:                  uuid.NewString(),
		Title:               spec.Title,
		Description:         spec.Description,
		Type:                spec.Type,
		AnonymousDisplay:    spec.AnonymousDisplay,
		AllowMultipleChoice: spec.AllowMultipleChoice,
		StartTime:           spec.StartTime.Unix(),
		EndTime:             spec.EndTime.Unix(),
		Status:              status,
		CreatedTime:         now.Unix(),
	}
	optionRows := make([]*model.PollOption, 0, len(options))
	for i, text := range options {
		optionRows = append(optionRows, &model.PollOption{
			PollId:       poll.Id,
			DisplayOrder: i,
			Text:         text,
		})
	}

	if err := m.dataProvider.SavePollAndOptions(poll, optionRows); err != nil {
		return nil, err
	}
	logging.Logger.Infof("poll created, id=%s, title=%s, status=%s", poll.Id, poll.Title, poll.Status)

	if m.emitter != nil {
		m.emitter.Emit(audit.Event{Type: audit.EventPollCreated, PollId: poll.Id, Outcome: poll.Status.String()})
		if spec.NotifyMembers {
			m.emitter.Emit(audit.Event{Type: audit.EventPollNotification, PollId: poll.Id, Outcome: "members"})
		}
	}
	return poll, nil
}

// Transition moves a poll one step along draft -> scheduled -> active
// -> closed. Skipping steps and reopening closed polls are rejected.
func (m *Manager) Transition(pollId string, target model.PollStatus) error {
	poll, err := m.dataProvider.GetPollById(pollId)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return common.NewValidationError("poll %s does not exist", pollId)
		}
		return err
	}

	var from model.PollStatus
	switch target {
	case model.Scheduled:
		from = model.Draft
	case model.Active:
		from = model.Scheduled
	case model.Closed:
		from = model.Active
	default:
		return &common.InvalidTransitionError{PollId: pollId, From: poll.Status.String(), To: target.String()}
	}
	if poll.Status != from {
		return &common.InvalidTransitionError{PollId: pollId, From: poll.Status.String(), To: target.String()}
	}

	updated, err := m.dataProvider.UpdatePollStatus(pollId, from, target)
	if err != nil {
		return err
	}
	if !updated {
		// Lost a race with a concurrent transition.
		current, err := m.dataProvider.GetPollById(pollId)
		if err != nil {
			return err
		}
		return &common.InvalidTransitionError{PollId: pollId, From: current.Status.String(), To: target.String()}
	}
	logging.Logger.Infof("poll %s transitioned %s -> %s", pollId, from, target)

	if target == model.Closed {
		if m.laneCloser != nil {
			m.laneCloser.ClosePoll(pollId)
		}
		if m.emitter != nil {
			m.emitter.Emit(audit.Event{Type: audit.EventPollClosed, PollId: pollId, Outcome: "closed"})
		}
	}
	return nil
}

// CheckEligibility is the cheap advisory check the UI calls before
// paying queue latency. The queue re-checks authoritatively.
func (m *Manager) CheckEligibility(pollId string, voterId string) (Eligibility, error) {
	poll, err := m.dataProvider.GetPollById(pollId)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Eligibility{Reason: common.ReasonPollNotFound}, nil
		}
		return Eligibility{}, err
	}

	if reason, ok := votableNow(poll, time.Now()); !ok {
		return Eligibility{Reason: reason}, nil
	}

	voted, err := m.dataProvider.HasVoterVoted(pollId, voterId)
	if err != nil {
		return Eligibility{}, err
	}
	if voted {
		return Eligibility{Reason: common.ReasonAlreadyVoted}, nil
	}
	return Eligibility{Eligible: true}, nil
}

// votableNow checks both the status machine and the clock. A poll whose
// status lags its schedule is still reported by what the clock says.
func votableNow(poll *model.Poll, now time.Time) (common.IneligibleReason, bool) {
	switch poll.Status {
	case model.Draft:
		return common.ReasonPollNotActive, false
	case model.Scheduled:
		return common.ReasonPollNotYetOpen, false
	case model.Closed:
		return common.ReasonPollClosed, false
	}
	if now.Unix() < poll.StartTime {
		return common.ReasonPollNotYetOpen, false
	}
	if now.Unix() >= poll.EndTime {
		return common.ReasonPollClosed, false
	}
	return "", true
}

// OpenDuePolls activates scheduled polls whose start time has arrived.
func (m *Manager) OpenDuePolls(now time.Time) {
	polls, err := m.dataProvider.GetPollsByStatus(model.Scheduled)
	if err != nil {
		logging.Logger.Errorf("scheduler failed to fetch scheduled polls, err=%s", err.Error())
		return
	}
	for _, poll := range polls {
		if poll.StartTime > now.Unix() {
			continue
		}
		if err := m.Transition(poll.Id, model.Active); err != nil {
			logging.Logger.Errorf("scheduler failed to open poll %s, err=%s", poll.Id, err.Error())
		}
	}
}

// CloseDuePolls closes active polls past their end time.
func (m *Manager) CloseDuePolls(now time.Time) {
	polls, err := m.dataProvider.GetPollsByStatus(model.Active)
	if err != nil {
		logging.Logger.Errorf("scheduler failed to fetch active polls, err=%s", err.Error())
		return
	}
	for _, poll := range polls {
		if poll.EndTime > now.Unix() {
			continue
		}
		if err := m.Transition(poll.Id, model.Closed); err != nil {
			logging.Logger.Errorf("scheduler failed to close poll %s, err=%s", poll.Id, err.Error())
		}
	}
}

// SchedulerLoop drives due transitions on a fixed period.
func (m *Manager) SchedulerLoop(period time.Duration) {
	for {
		now := time.Now()
		m.OpenDuePolls(now)
		m.CloseDuePolls(now)
		time.Sleep(period)
	}
}
