package lifecycle

import (
	"github.com/civicgrid/vote-engine/db/dao"
	"github.com/civicgrid/vote-engine/db/model"
)

type DataProvider interface {
	SavePollAndOptions(poll *model.Poll, options []*model.PollOption) error
	GetPollById(pollId string) (*model.Poll, error)
	GetPollsByStatus(status model.PollStatus) ([]*model.Poll, error)
	UpdatePollStatus(pollId string, from, to model.PollStatus) (bool, error)
	HasVoterVoted(pollId string, voterId string) (bool, error)
}

type DataHandler struct {
	daoManager *dao.DaoManager
}

func NewDataHandler(daoManager *dao.DaoManager) *DataHandler {
	return &DataHandler{
		daoManager: daoManager,
	}
}

func (h *DataHandler) SavePollAndOptions(poll *model.Poll, options []*model.PollOption) error {
	return h.daoManager.SavePollAndOptions(poll, options)
}

func (h *DataHandler) GetPollById(pollId string) (*model.Poll, error) {
	return h.daoManager.GetPollById(pollId)
}

func (h *DataHandler) GetPollsByStatus(status model.PollStatus) ([]*model.Poll, error) {
	return h.daoManager.GetPollsByStatus(status)
}

func (h *DataHandler) UpdatePollStatus(pollId string, from, to model.PollStatus) (bool, error) {
	return h.daoManager.UpdatePollStatus(pollId, from, to)
}

func (h *DataHandler) HasVoterVoted(pollId string, voterId string) (bool, error) {
	return h.daoManager.HasVoterVoted(pollId, voterId)
}
