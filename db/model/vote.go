package model

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Vote rows are immutable once written: no update, no delete, ever.
// Within one poll the rows form a singly-linked hash chain, each row's
// PrevHash equal to the VoteHash of the row inserted before it.
type Vote struct {
	Id          int64  `gorm:"NOT NULL;primaryKey;autoIncrement"`
	PollId      string `gorm:"NOT NULL;size:36;index:idx_vote_poll_id;uniqueIndex:idx_vote_poll_voter,priority:1;uniqueIndex:idx_vote_poll_hash,priority:1"`
	VoterId     string `gorm:"NOT NULL;uniqueIndex:idx_vote_poll_voter,priority:2"`
	OptionIds   string `gorm:"NOT NULL"` // canonical ascending, comma-joined
	VoteHash    string `gorm:"NOT NULL;size:64;uniqueIndex:idx_vote_poll_hash,priority:2"`
	PrevHash    string `gorm:"NOT NULL;size:64"`
	ReceiptCode string `gorm:"NOT NULL;size:16;index:idx_vote_receipt_code"`
	CreatedTime int64  `gorm:"NOT NULL"`
}

func (*Vote) TableName() string {
	return "votes"
}

func InitVoteTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&Vote{}) {
		err := db.Migrator().CreateTable(&Vote{})
		if err != nil {
			panic(err)
		}
	}
}

func JoinOptionIds(optionIds []int64) string {
	parts := make([]string, 0, len(optionIds))
	for _, id := range optionIds {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func SplitOptionIds(joined string) ([]int64, error) {
	if joined == "" {
		return nil, nil
	}
	parts := strings.Split(joined, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
