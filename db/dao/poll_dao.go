package dao

import (
	"github.com/civicgrid/vote-engine/db/model"
	"gorm.io/gorm"
)

type PollDao struct {
	DB *gorm.DB
}

func NewPollDao(db *gorm.DB) *PollDao {
	return &PollDao{
		DB: db,
	}
}

func (d *PollDao) SavePollAndOptions(poll *model.Poll, options []*model.PollOption) error {
	return d.DB.Transaction(func(dbTx *gorm.DB) error {
		if err := dbTx.Create(poll).Error; err != nil {
			return err
		}
		if len(options) != 0 {
			if err := dbTx.Create(options).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *PollDao) GetPollById(pollId string) (*model.Poll, error) {
	var poll model.Poll
	err := d.DB.Where("id = ?", pollId).Take(&poll).Error
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (d *PollDao) GetPollsByStatus(status model.PollStatus) ([]*model.Poll, error) {
	polls := make([]*model.Poll, 0)
	err := d.DB.Where("status = ?", status).
		Order("created_time asc").
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return polls, nil
}

// UpdatePollStatus performs a guarded transition: the row is only
// touched when it is still in the expected source status. Returns
// whether a row was updated, so callers can detect a lost race.
func (d *PollDao) UpdatePollStatus(pollId string, from, to model.PollStatus) (bool, error) {
	res := d.DB.Model(&model.Poll{}).
		Where("id = ?", pollId).
		Where("status = ?", from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (d *PollDao) GetOptionsByPollId(pollId string) ([]*model.PollOption, error) {
	options := make([]*model.PollOption, 0)
	err := d.DB.Where("poll_id = ?", pollId).
		Order("display_order asc").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (d *PollDao) GetOptionsByIds(pollId string, optionIds []int64) ([]*model.PollOption, error) {
	options := make([]*model.PollOption, 0)
	err := d.DB.Where("poll_id = ?", pollId).
		Where("id in ?", optionIds).
		Order("display_order asc").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}
