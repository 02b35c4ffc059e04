package dao

import (
	"github.com/civicgrid/vote-engine/db/model"
	"gorm.io/gorm"
)

type VoteDao struct {
	DB *gorm.DB
}

func NewVoteDao(db *gorm.DB) *VoteDao {
	return &VoteDao{
		DB: db,
	}
}

// SaveVoteAndIncrementTally inserts the vote row and bumps the poll's
// derived vote counter in one transaction. The per-poll submission lane
// is what serializes callers; this transaction only keeps the row and
// the counter consistent with each other.
func (d *VoteDao) SaveVoteAndIncrementTally(vote *model.Vote) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vote).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Poll{}).
			Where("id = ?", vote.PollId).
			Update("vote_count", gorm.Expr("vote_count + 1")).Error; err != nil {
			return err
		}
		return nil
	})
}

// GetLatestVoteByPollId returns the poll's chain tail, or nil when the
// poll has no votes yet.
func (d *VoteDao) GetLatestVoteByPollId(pollId string) (*model.Vote, error) {
	var vote model.Vote
	err := d.DB.Where("poll_id = ?", pollId).Order("id desc").First(&vote).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

func (d *VoteDao) HasVoterVoted(pollId string, voterId string) (bool, error) {
	var count int64
	err := d.DB.Model(&model.Vote{}).
		Where("poll_id = ?", pollId).
		Where("voter_id = ?", voterId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *VoteDao) GetVoteByHash(pollId string, voteHash string) (*model.Vote, error) {
	var vote model.Vote
	err := d.DB.Where("poll_id = ?", pollId).
		Where("vote_hash = ?", voteHash).
		Take(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (d *VoteDao) GetVoteByReceiptCode(pollId string, receiptCode string) (*model.Vote, error) {
	var vote model.Vote
	err := d.DB.Where("poll_id = ?", pollId).
		Where("receipt_code = ?", receiptCode).
		Take(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// GetVotesByPollIdAsc returns the whole chain in insertion order, for
// audits and recounts.
func (d *VoteDao) GetVotesByPollIdAsc(pollId string) ([]*model.Vote, error) {
	votes := make([]*model.Vote, 0)
	err := d.DB.Where("poll_id = ?", pollId).
		Order("id asc").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}
