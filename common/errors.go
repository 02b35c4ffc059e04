package common

import (
	"errors"
	"fmt"
)

// IneligibleReason codes why a voter cannot vote on a poll right now.
type IneligibleReason string

const (
	ReasonPollNotFound   IneligibleReason = "POLL_NOT_FOUND"
	ReasonPollNotActive  IneligibleReason = "POLL_NOT_ACTIVE"
	ReasonPollNotYetOpen IneligibleReason = "POLL_NOT_YET_OPEN"
	ReasonPollClosed     IneligibleReason = "POLL_CLOSED"
	ReasonAlreadyVoted   IneligibleReason = "ALREADY_VOTED"
	ReasonUnknownOption  IneligibleReason = "UNKNOWN_OPTION"
)

var (
	// ErrSubmitTimeout means the caller stopped waiting. The underlying
	// task still runs to completion, so the outcome is unknown to the
	// caller until a receipt lookup confirms it.
	ErrSubmitTimeout = errors.New("vote submission timed out, outcome unknown")

	// ErrReceiptNotFound deliberately does not say whether the receipt
	// never existed or belongs to a different poll.
	ErrReceiptNotFound = errors.New("receipt not found")
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Msg)
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type InvalidTransitionError struct {
	PollId string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("poll %s cannot transition from %s to %s", e.PollId, e.From, e.To)
}

type IneligibleVoterError struct {
	Reason IneligibleReason
}

func (e *IneligibleVoterError) Error() string {
	return fmt.Sprintf("voter is not eligible: %s", e.Reason)
}

func NewIneligibleVoterError(reason IneligibleReason) *IneligibleVoterError {
	return &IneligibleVoterError{Reason: reason}
}

// StorageTransientError wraps a storage failure that survived the
// bounded retry inside the queue task. The vote was not recorded and
// the caller may retry the whole submission.
type StorageTransientError struct {
	Err error
}

func (e *StorageTransientError) Error() string {
	return fmt.Sprintf("storage unavailable: %s", e.Err.Error())
}

func (e *StorageTransientError) Unwrap() error {
	return e.Err
}

type QueueSaturatedError struct {
	PollId string
}

func (e *QueueSaturatedError) Error() string {
	return fmt.Sprintf("submission queue for poll %s is saturated, back off and retry", e.PollId)
}

// ChainIntegrityError is fatal for the affected poll: writes are halted
// and an operator has to investigate. It is never auto-repaired.
type ChainIntegrityError struct {
	PollId string
	VoteId int64
}

func (e *ChainIntegrityError) Error() string {
	if e.VoteId > 0 {
		return fmt.Sprintf("hash chain of poll %s is broken at vote %d", e.PollId, e.VoteId)
	}
	return fmt.Sprintf("hash chain of poll %s is broken", e.PollId)
}
