package verify

import (
	"github.com/civicgrid/vote-engine/db/dao"
	"github.com/civicgrid/vote-engine/db/model"
)

type DataProvider interface {
	GetPollById(pollId string) (*model.Poll, error)
	GetOptionsByIds(pollId string, optionIds []int64) ([]*model.PollOption, error)
	GetVoteByHash(pollId string, voteHash string) (*model.Vote, error)
	GetVoteByReceiptCode(pollId string, receiptCode string) (*model.Vote, error)
	GetVotesByPollIdAsc(pollId string) ([]*model.Vote, error)
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

func (h *DataHandler) GetVoteByHash(pollId string, voteHash string) (*model.Vote, error) {
	return h.daoManager.GetVoteByHash(pollId, voteHash)
}

func (h *DataHandler) GetVoteByReceiptCode(pollId string, receiptCode string) (*model.Vote, error) {
	return h.daoManager.GetVoteByReceiptCode(pollId, receiptCode)
}

func (h *DataHandler) GetVotesByPollIdAsc(pollId string) ([]*model.Vote, error) {
	return h.daoManager.GetVotesByPollIdAsc(pollId)
}
