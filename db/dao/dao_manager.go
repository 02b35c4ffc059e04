package dao

type DaoManager struct {
	*PollDao
	*VoteDao
}

func NewDaoManager(pollDao *PollDao, voteDao *VoteDao) *DaoManager {
	return &DaoManager{
		PollDao: pollDao,
		VoteDao: voteDao,
	}
}
