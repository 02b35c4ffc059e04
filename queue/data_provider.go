package queue

import (
	"github.com/civicgrid/vote-engine/db/dao"
	"github.com/civicgrid/vote-engine/db/model"
)

type DataProvider interface {
	GetPollById(pollId string) (*model.Poll, error)
	GetOptionsByIds(pollId string, optionIds []int64) ([]*model.PollOption, error)
	HasVoterVoted(pollId string, voterId string) (bool, error)
	GetLatestVoteByPollId(pollId string) (*model.Vote, error)
	SaveVoteAndIncrementTally(vote *model.Vote) error
}

type DataHandler struct {
	daoManager *dao.DaoManager
}

func NewDataHandler(daoManager *dao.DaoManager) *DataHandler {
	return &DataHandler{
		daoManager: daoManager,
	}
}

func (h *DataHandler) GetPollById(pollId string) (*model.Poll, error) {
	return h.daoManager.GetPollById(pollId)
}

func (h *DataHandler) GetOptionsByIds(pollId string, optionIds []int64) ([]*model.PollOption, error) {
	return h.daoManager.GetOptionsByIds(pollId, optionIds)
}

func (h *DataHandler) HasVoterVoted(pollId string, voterId string) (bool, error) {
	return h.daoManager.HasVoterVoted(pollId, voterId)
}

func (h *DataHandler) GetLatestVoteByPollId(pollId string) (*model.Vote, error) {
	return h.daoManager.GetLatestVoteByPollId(pollId)
}

func (h *DataHandler) SaveVoteAndIncrementTally(vote *model.Vote) error {
	return h.daoManager.SaveVoteAndIncrementTally(vote)
}
