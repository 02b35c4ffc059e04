// Package api is the HTTP adapter over the vote integrity engine. The
// upstream gateway handles authentication and passes the resolved voter
// identity in the X-Voter-Id header; this layer only maps JSON requests
// onto the engine and engine errors onto status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/vote-engine/common"
	"github.com/civicgrid/vote-engine/db/model"
	"github.com/civicgrid/vote-engine/lifecycle"
	"github.com/civicgrid/vote-engine/logging"
	"github.com/civicgrid/vote-engine/queue"
	"github.com/civicgrid/vote-engine/verify"
)

const voterIdHeader = "X-Voter-Id"

type Server struct {
	manager   *lifecycle.Manager
	submitter *queue.Submitter
	verifier  *verify.Verifier
}

func NewServer(manager *lifecycle.Manager, submitter *queue.Submitter, verifier *verify.Verifier) *Server {
	return &Server{
		manager:   manager,
		submitter: submitter,
		verifier:  verifier,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/polls", s.handleCreatePoll)
	r.Post("/polls/{pollID}/transition", s.handleTransition)
	r.Post("/polls/{pollID}/votes", s.handleSubmitVote)
	r.Get("/polls/{pollID}/eligibility", s.handleCheckEligibility)
	r.Get("/polls/{pollID}/receipts/{code}", s.handleVerifyReceipt)
	return r
}

func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

type createPollRequest struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Type                string   `json:"type"`
	AnonymousDisplay    bool     `json:"anonymous_display"`
	AllowMultipleChoice bool     `json:"allow_multiple_choice"`
	StartTime           int64    `json:"start_time"`
	EndTime             int64    `json:"end_time"`
	Options             []string `json:"options"`
	NotifyMembers       bool     `json:"notify_members"`
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid json body")
		return
	}

	poll, err := s.manager.CreatePoll(lifecycle.CreatePollSpec{
		Title:               req.Title,
		Description:         req.Description,
		Type:                model.PollType(req.Type),
		AnonymousDisplay:    req.AnonymousDisplay,
		AllowMultipleChoice: req.AllowMultipleChoice,
		StartTime:           time.Unix(req.StartTime, 0),
		EndTime:             time.Unix(req.EndTime, 0),
		Options:             req.Options,
		NotifyMembers:       req.NotifyMembers,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]interface{}{
		"poll_id": poll.Id,
		"status":  poll.Status.String(),
	})
}

type transitionRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	pollId := chi.URLParam(r, "pollID")
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var target model.PollStatus
	switch req.Target {
	case "scheduled":
		target = model.Scheduled
	case "active":
		target = model.Active
	case "closed":
		target = model.Closed
	default:
		errorResponse(w, http.StatusBadRequest, "unknown target status")
		return
	}

	if err := s.manager.Transition(pollId, target); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"poll_id": pollId,
		"status":  target.String(),
	})
}

type submitVoteRequest struct {
	OptionIds      []int64 `json:"option_ids"`
	RequestReceipt bool    `json:"request_receipt"`
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	pollId := chi.URLParam(r, "pollID")
	voterId := r.Header.Get(voterIdHeader)
	if voterId == "" {
		errorResponse(w, http.StatusUnauthorized, "missing voter identity")
		return
	}

	var req submitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid json body")
		return
	}

	receipt, err := s.submitter.Submit(r.Context(), queue.VoteRequest{
		PollId:         pollId,
		VoterId:        voterId,
		OptionIds:      req.OptionIds,
		RequestReceipt: req.RequestReceipt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]interface{}{"vote_hash": receipt.VoteHash}
	if req.RequestReceipt {
		body["receipt_code"] = receipt.ReceiptCode
	}
	jsonResponse(w, http.StatusCreated, body)
}

func (s *Server) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	pollId := chi.URLParam(r, "pollID")
	voterId := r.Header.Get(voterIdHeader)
	if voterId == "" {
		errorResponse(w, http.StatusUnauthorized, "missing voter identity")
		return
	}

	eligibility, err := s.manager.CheckEligibility(pollId, voterId)
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]interface{}{"eligible": eligibility.Eligible}
	if !eligibility.Eligible {
		body["reason"] = string(eligibility.Reason)
	}
	jsonResponse(w, http.StatusOK, body)
}

func (s *Server) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	pollId := chi.URLParam(r, "pollID")
	code := chi.URLParam(r, "code")

	result, err := s.verifier.VerifyReceipt(pollId, code)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"poll_id":      result.PollId,
		"poll_title":   result.PollTitle,
		"option_texts": result.OptionTexts,
		"vote_hash":    result.VoteHash,
		"receipt_code": result.ReceiptCode,
		"cast_at":      result.CastAt.Format(time.RFC3339),
	})
}

// writeError maps the engine's error taxonomy onto HTTP status codes.
// Callers can tell "try again later" (429/503/504) apart from "you
// cannot vote" (403/409) and "this poll needs an administrator" (500
// integrity).
func writeError(w http.ResponseWriter, err error) {
	var validationErr *common.ValidationError
	var transitionErr *common.InvalidTransitionError
	var ineligibleErr *common.IneligibleVoterError
	var saturatedErr *common.QueueSaturatedError
	var transientErr *common.StorageTransientError
	var integrityErr *common.ChainIntegrityError

	switch {
	case errors.As(err, &validationErr):
		errorResponse(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &transitionErr):
		errorResponse(w, http.StatusConflict, transitionErr.Error())
	case errors.As(err, &ineligibleErr):
		errorResponse(w, http.StatusForbidden, ineligibleErr.Error())
	case errors.As(err, &saturatedErr):
		errorResponse(w, http.StatusTooManyRequests, saturatedErr.Error())
	case errors.As(err, &transientErr):
		errorResponse(w, http.StatusServiceUnavailable, transientErr.Error())
	case errors.As(err, &integrityErr):
		errorResponse(w, http.StatusInternalServerError, integrityErr.Error())
	case errors.Is(err, common.ErrSubmitTimeout):
		errorResponse(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, common.ErrReceiptNotFound):
		errorResponse(w, http.StatusNotFound, err.Error())
	default:
		logging.Logger.Errorf("unhandled api error, err=%s", err.Error())
		errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

func jsonResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Errorf("failed to encode response, err=%s", err.Error())
	}
}

func errorResponse(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}
