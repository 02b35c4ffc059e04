// Package queue serializes vote writes. Every poll gets its own lane, a
// buffered channel consumed by a single worker goroutine, so no two
// vote writes for one poll ever overlap and arrival order is the write
// order. The lane, not storage isolation, is what keeps the hash chain
// free of forks.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"gorm.io/gorm"

	"github.com/civicgrid/vote-engine/audit"
	"github.com/civicgrid/vote-engine/chain"
	"github.com/civicgrid/vote-engine/common"
	"github.com/civicgrid/vote-engine/config"
	"github.com/civicgrid/vote-engine/db/model"
	"github.com/civicgrid/vote-engine/logging"
	"github.com/civicgrid/vote-engine/metrics"
)

type VoteRequest struct {
	PollId         string
	VoterId        string
	OptionIds      []int64
	RequestReceipt bool
}

type Receipt struct {
	VoteHash    string
	ReceiptCode string
}

type taskResult struct {
	receipt *Receipt
	err     error
}

type task struct {
	req    VoteRequest
	result chan taskResult
}

type lane struct {
	tasks  chan *task
	stop   chan struct{}
	closed bool
	halted bool
}

type Submitter struct {
	dataProvider  DataProvider
	emitter       *audit.Emitter
	metricService *metrics.MetricService
	cfg           *config.QueueConfig

	mu    sync.Mutex
	lanes map[string]*lane
}

func NewSubmitter(cfg *config.QueueConfig, dataProvider DataProvider,
	emitter *audit.Emitter, metricService *metrics.MetricService,
) *Submitter {
	return &Submitter{
		dataProvider:  dataProvider,
		emitter:       emitter,
		metricService: metricService,
		cfg:           cfg,
		lanes:         make(map[string]*lane),
	}
}

func (s *Submitter) submitTimeout() time.Duration {
	if s.cfg.SubmitTimeoutSec > 0 {
		return time.Duration(s.cfg.SubmitTimeoutSec) * time.Second
	}
	return common.DefaultSubmitTimeout
}

// Submit pushes the vote onto the poll's lane and blocks until the
// worker reports the outcome or the bounded wait elapses. On timeout
// the task keeps running to completion; the caller must treat the
// outcome as unknown and confirm via receipt lookup.
func (s *Submitter) Submit(ctx context.Context, req VoteRequest) (*Receipt, error) {
	if req.VoterId == "" {
		return nil, common.NewValidationError("voter identity must not be empty")
	}
	if len(req.OptionIds) == 0 {
		return nil, common.NewValidationError("at least one option must be selected")
	}

	t, err := s.admit(req)
	if err != nil {
		if s.metricService != nil {
			s.metricService.IncVotesRejected()
		}
		return nil, err
	}

	timer := time.NewTimer(s.submitTimeout())
	defer timer.Stop()
	select {
	case res := <-t.result:
		return res.receipt, res.err
	case <-timer.C:
		logging.Logger.Errorf("vote submission timed out, poll=%s, voter=%s", req.PollId, req.VoterId)
		return nil, common.ErrSubmitTimeout
	case <-ctx.Done():
		// Cancellation leaves the task running just like a timeout does;
		// either way the caller walked away with the outcome unknown.
		return nil, common.ErrSubmitTimeout
	}
}

// admit places the task on the poll's lane without blocking. A full
// lane means the system is backlogged; rejecting immediately bounds
// worst-case latency instead of queueing indefinitely.
func (s *Submitter) admit(req VoteRequest) (*task, error) {
	s.mu.Lock()
	l, ok := s.lanes[req.PollId]
	if !ok {
		l = &lane{
			tasks: make(chan *task, s.cfg.MaxPendingOrDefault()),
			stop:  make(chan struct{}),
		}
		s.lanes[req.PollId] = l
		go s.laneWorker(req.PollId, l)
	}
	if l.halted {
		s.mu.Unlock()
		return nil, &common.ChainIntegrityError{PollId: req.PollId}
	}
	if l.closed {
		s.mu.Unlock()
		return nil, common.NewIneligibleVoterError(common.ReasonPollClosed)
	}

	t := &task{req: req, result: make(chan taskResult, 1)}
	select {
	case l.tasks <- t:
		depth := len(l.tasks)
		s.mu.Unlock()
		if s.metricService != nil {
			s.metricService.SetQueueDepth(req.PollId, depth)
		}
		return t, nil
	default:
		s.mu.Unlock()
		if s.metricService != nil {
			s.metricService.IncQueueSaturated()
		}
		return nil, &common.QueueSaturatedError{PollId: req.PollId}
	}
}

func (s *Submitter) laneWorker(pollId string, l *lane) {
	for {
		select {
		case t := <-l.tasks:
			if s.process(pollId, l, t) && s.reapIfIdle(pollId, l) {
				return
			}
		case <-l.stop:
			// Drain queued tasks so every caller gets an answer; polls
			// closed or halted mid-flight reject them inside process.
			for {
				select {
				case t := <-l.tasks:
					s.process(pollId, l, t)
				default:
					s.removeLane(pollId, l)
					return
				}
			}
		}
	}
}

// reapIfIdle tears down the lane of a poll that turned out not to
// exist, so submissions naming arbitrary unknown poll ids cannot
// accumulate workers and map entries. Returns whether the worker
// should exit.
func (s *Submitter) reapIfIdle(pollId string, l *lane) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.halted || l.closed || len(l.tasks) > 0 || s.lanes[pollId] != l {
		return false
	}
	delete(s.lanes, pollId)
	return true
}

func (s *Submitter) removeLane(pollId string, l *lane) {
	s.mu.Lock()
	if s.lanes[pollId] == l && !l.halted {
		delete(s.lanes, pollId)
	}
	s.mu.Unlock()
	if s.metricService != nil {
		s.metricService.SetQueueDepth(pollId, 0)
	}
}

// process runs one task and reports whether it failed because the poll
// does not exist, so the worker can reap the lane.
func (s *Submitter) process(pollId string, l *lane, t *task) bool {
	startTime := time.Now()
	receipt, err := s.processTask(pollId, l, t.req)
	t.result <- taskResult{receipt: receipt, err: err}

	if s.metricService != nil {
		s.metricService.SetVoteSubmitDuration(time.Since(startTime))
		s.metricService.SetQueueDepth(pollId, len(l.tasks))
		if err != nil {
			s.metricService.IncVotesRejected()
		} else {
			s.metricService.IncVotesAccepted()
		}
	}
	if s.emitter != nil {
		if err != nil {
			s.emitter.Emit(audit.Event{Type: audit.EventVoteRejected, PollId: pollId, Outcome: err.Error()})
		} else {
			s.emitter.Emit(audit.Event{Type: audit.EventVoteAccepted, PollId: pollId, VoteHash: receipt.VoteHash, Outcome: "accepted"})
		}
	}

	var ineligibleErr *common.IneligibleVoterError
	return errors.As(err, &ineligibleErr) && ineligibleErr.Reason == common.ReasonPollNotFound
}

// processTask is the serialized task body: authoritative eligibility
// check, chain tail read, link computation, transactional write. Only
// the storage write path is retried, and each attempt re-reads the
// chain tail so a stale prev hash is never reused.
func (s *Submitter) processTask(pollId string, l *lane, req VoteRequest) (*Receipt, error) {
	if s.isHalted(l) {
		return nil, &common.ChainIntegrityError{PollId: pollId}
	}

	poll, err := s.dataProvider.GetPollById(pollId)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NewIneligibleVoterError(common.ReasonPollNotFound)
		}
		return nil, &common.StorageTransientError{Err: err}
	}

	now := time.Now()
	switch poll.Status {
	case model.Draft:
		return nil, common.NewIneligibleVoterError(common.ReasonPollNotActive)
	case model.Scheduled:
		return nil, common.NewIneligibleVoterError(common.ReasonPollNotYetOpen)
	case model.Closed:
		return nil, common.NewIneligibleVoterError(common.ReasonPollClosed)
	}
	if now.Unix() < poll.StartTime {
		return nil, common.NewIneligibleVoterError(common.ReasonPollNotYetOpen)
	}
	if now.Unix() >= poll.EndTime {
		return nil, common.NewIneligibleVoterError(common.ReasonPollClosed)
	}

	if len(req.OptionIds) > 1 && !poll.AllowMultipleChoice {
		return nil, common.NewValidationError("poll %s does not allow selecting multiple options", pollId)
	}
	canonical := chain.CanonicalOptionIds(req.OptionIds)
	for i := 1; i < len(canonical); i++ {
		if canonical[i] == canonical[i-1] {
			return nil, common.NewValidationError("option %d selected more than once", canonical[i])
		}
	}
	options, err := s.dataProvider.GetOptionsByIds(pollId, canonical)
	if err != nil {
		return nil, &common.StorageTransientError{Err: err}
	}
	if len(options) != len(canonical) {
		return nil, common.NewIneligibleVoterError(common.ReasonUnknownOption)
	}

	voted, err := s.dataProvider.HasVoterVoted(pollId, req.VoterId)
	if err != nil {
		return nil, &common.StorageTransientError{Err: err}
	}
	if voted {
		return nil, common.NewIneligibleVoterError(common.ReasonAlreadyVoted)
	}

	var link chain.Link
	err = retry.Do(func() error {
		tail, err := s.dataProvider.GetLatestVoteByPollId(pollId)
		if err != nil {
			return err
		}
		prevHash := common.GenesisHash
		if tail != nil {
			prevHash = tail.VoteHash
		}

		link = chain.ComputeLink(prevHash, req.VoterId, canonical, now)
		vote := &model.Vote{
			PollId:      pollId,
			VoterId:     req.VoterId,
			OptionIds:   model.JoinOptionIds(canonical),
			VoteHash:    link.Hash,
			PrevHash:    prevHash,
			ReceiptCode: link.ReceiptCode,
			CreatedTime: now.Unix(),
		}
		return s.dataProvider.SaveVoteAndIncrementTally(vote)
	}, retry.Context(context.Background()),
		retry.Attempts(s.cfg.RetryAttemptsOrDefault()),
		common.RetryDelay, common.RetryErr,
		retry.OnRetry(func(n uint, err error) {
			logging.Logger.Errorf("vote write retry %d for poll %s, err=%s", n, pollId, err.Error())
			if s.metricService != nil {
				s.metricService.IncStorageRetries()
			}
		}))
	if err != nil {
		logging.Logger.Errorf("vote write failed after retries, poll=%s, voter=%s, err=%s", pollId, req.VoterId, err.Error())
		return nil, &common.StorageTransientError{Err: err}
	}

	logging.Logger.Infof("vote accepted, poll=%s, hash=%s", pollId, link.Hash)
	return &Receipt{VoteHash: link.Hash, ReceiptCode: link.ReceiptCode}, nil
}

func (s *Submitter) isHalted(l *lane) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.halted
}

// HaltPoll stops all further writes for a poll after a chain integrity
// failure. There is no automatic repair; only operators un-halt by
// restarting after investigation.
func (s *Submitter) HaltPoll(pollId string) {
	s.mu.Lock()
	l, ok := s.lanes[pollId]
	if !ok {
		l = &lane{
			tasks: make(chan *task, s.cfg.MaxPendingOrDefault()),
			stop:  make(chan struct{}),
		}
		s.lanes[pollId] = l
		go s.laneWorker(pollId, l)
	}
	l.halted = true
	s.mu.Unlock()
	logging.Logger.Errorf("submission lane halted for poll %s", pollId)
}

// ClosePoll stops admission for a closed poll and lets the worker drain
// what is already queued; drained tasks are rejected by the closure
// check inside the serialized task body.
func (s *Submitter) ClosePoll(pollId string) {
	s.mu.Lock()
	l, ok := s.lanes[pollId]
	if ok && !l.closed {
		l.closed = true
		close(l.stop)
	}
	s.mu.Unlock()
}
