package model

import (
	"gorm.io/gorm"
)

type PollStatus int

const (
	Draft     PollStatus = iota // Poll is being drafted, options still mutable
	Scheduled                   // Poll is finalized, waiting for its start time
	Active                      // Poll accepts votes
	Closed                      // Poll accepts no more votes, terminal
)

func (s PollStatus) String() string {
	switch s {
	case Draft:
		return "draft"
	case Scheduled:
		return "scheduled"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}

type PollType string

const (
	PollTypeInformal PollType = "informal"
	PollTypeBinding  PollType = "binding"
)

type Poll struct {
	Id                  string     `gorm:"NOT NULL;primaryKey;size:36"`
	Title               string     `gorm:"NOT NULL"`
	Description         string
	Type                PollType   `gorm:"NOT NULL"`
	AnonymousDisplay    bool       `gorm:"NOT NULL"` // suppresses voter identity in displays only, storage keeps it
	AllowMultipleChoice bool       `gorm:"NOT NULL"`
	StartTime           int64      `gorm:"NOT NULL"`
	EndTime             int64      `gorm:"NOT NULL"`
	Status              PollStatus `gorm:"NOT NULL;index:idx_poll_status"`
	VoteCount           int64      `gorm:"NOT NULL"`
	CreatedTime         int64      `gorm:"NOT NULL"`
}

func (*Poll) TableName() string {
	return "polls"
}

func InitPollTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&Poll{}) {
		err := db.Migrator().CreateTable(&Poll{})
		if err != nil {
			panic(err)
		}
	}
}

type PollOption struct {
	Id           int64  `gorm:"NOT NULL;primaryKey;autoIncrement"`
	PollId       string `gorm:"NOT NULL;size:36;index:idx_option_poll_id"`
	DisplayOrder int    `gorm:"NOT NULL"`
	Text         string `gorm:"NOT NULL"`
}

func (*PollOption) TableName() string {
	return "poll_options"
}

func InitPollOptionTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&PollOption{}) {
		err := db.Migrator().CreateTable(&PollOption{})
		if err != nil {
			panic(err)
		}
	}
}
