package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/civicgrid/vote-engine/chain"
	"github.com/civicgrid/vote-engine/common"
	"github.com/civicgrid/vote-engine/db/dao"
	"github.com/civicgrid/vote-engine/db/model"
)

type haltRecorder struct {
	halted []string
}

func (h *haltRecorder) HaltPoll(pollId string) {
	h.halted = append(h.halted, pollId)
}

type verifierSuite struct {
	suite.Suite
	verifier   *Verifier
	halter     *haltRecorder
	daoManager *dao.DaoManager
	db         *dao.Database
	optionIds  []int64
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(verifierSuite))
}

func (s *verifierSuite) SetupSuite() {
	db, err := dao.RunDB(dao.GetDBName(s))
	s.Require().NoError(err)
	s.db = db
}

func (s *verifierSuite) TearDownSuite() {
	err := s.db.StopDB()
	s.Require().NoError(err)
}

func (s *verifierSuite) SetupTest() {
	model.InitPollTable(s.db.DB)
	model.InitPollOptionTable(s.db.DB)
	model.InitVoteTable(s.db.DB)

	s.daoManager = dao.NewDaoManager(dao.NewPollDao(s.db.DB), dao.NewVoteDao(s.db.DB))
	s.halter = &haltRecorder{}
	s.verifier = NewVerifier(NewDataHandler(s.daoManager), nil, s.halter, nil)
}

func (s *verifierSuite) TearDownTest() {
	err := s.db.ClearDB()
	s.Require().NoError(err)
}

func (s *verifierSuite) createPoll(pollId string) {
	poll := &model.Poll{
		Id:          pollId,
		Title:       "annual meeting date",
		Type:        model.PollTypeInformal,
		StartTime:   time.Now().Add(-time.Hour).Unix(),
		EndTime:     time.Now().Add(time.Hour).Unix(),
		Status:      model.Active,
		CreatedTime: time.Now().Unix(),
	}
	options := []*model.PollOption{
		{PollId: pollId, DisplayOrder: 0, Text: "May"},
		{PollId: pollId, DisplayOrder: 1, Text: "June"},
	}
	s.Require().NoError(s.daoManager.SavePollAndOptions(poll, options))

	stored, err := s.daoManager.GetOptionsByPollId(pollId)
	s.Require().NoError(err)
	s.optionIds = []int64{stored[0].Id, stored[1].Id}
}

// castVote appends a correctly-linked vote the way the queue worker
// does, so audits over these rows must pass.
func (s *verifierSuite) castVote(pollId, voterId string, optionIds []int64) chain.Link {
	tail, err := s.daoManager.GetLatestVoteByPollId(pollId)
	s.Require().NoError(err)
	prevHash := common.GenesisHash
	if tail != nil {
		prevHash = tail.VoteHash
	}

	now := time.Now()
	canonical := chain.CanonicalOptionIds(optionIds)
	link := chain.ComputeLink(prevHash, voterId, canonical, now)
	err = s.daoManager.SaveVoteAndIncrementTally(&model.Vote{
		PollId:      pollId,
		VoterId:     voterId,
		OptionIds:   model.JoinOptionIds(canonical),
		VoteHash:    link.Hash,
		PrevHash:    prevHash,
		ReceiptCode: link.ReceiptCode,
		CreatedTime: now.Unix(),
	})
	s.Require().NoError(err)
	return link
}

func (s *verifierSuite) TestVerifyReceiptByHashAndCode() {
	s.createPoll("poll-1")
	link := s.castVote("poll-1", "voter-a", []int64{s.optionIds[1]})

	byHash, err := s.verifier.VerifyReceipt("poll-1", link.Hash)
	s.Require().NoError(err)
	s.Require().Equal("annual meeting date", byHash.PollTitle)
	s.Require().Equal([]string{"June"}, byHash.OptionTexts)
	s.Require().Equal(link.Hash, byHash.VoteHash)
	s.Require().False(byHash.CastAt.IsZero())

	byCode, err := s.verifier.VerifyReceipt("poll-1", link.ReceiptCode)
	s.Require().NoError(err)
	s.Require().Equal(byHash.VoteHash, byCode.VoteHash)
}

func (s *verifierSuite) TestVerifyReceiptUnknownIsNotFound() {
	s.createPoll("poll-1")
	s.castVote("poll-1", "voter-a", []int64{s.optionIds[0]})

	_, err := s.verifier.VerifyReceipt("poll-1", "NEVERISSUEDCODES")
	s.Require().ErrorIs(err, common.ErrReceiptNotFound)

	fakeHash := "ab" + common.GenesisHash[2:]
	_, err = s.verifier.VerifyReceipt("poll-1", fakeHash)
	s.Require().ErrorIs(err, common.ErrReceiptNotFound)
}

// A valid receipt queried against the wrong poll must be exactly as
// not-found as one that never existed.
func (s *verifierSuite) TestVerifyReceiptDoesNotLeakAcrossPolls() {
	s.createPoll("poll-a")
	link := s.castVote("poll-a", "voter-a", []int64{s.optionIds[0]})
	s.createPoll("poll-b")

	_, err := s.verifier.VerifyReceipt("poll-b", link.Hash)
	s.Require().ErrorIs(err, common.ErrReceiptNotFound)

	_, err = s.verifier.VerifyReceipt("poll-b", link.ReceiptCode)
	s.Require().ErrorIs(err, common.ErrReceiptNotFound)
}

func (s *verifierSuite) TestAuditChainIntact() {
	s.createPoll("poll-1")
	s.castVote("poll-1", "voter-a", []int64{s.optionIds[0]})
	s.castVote("poll-1", "voter-b", []int64{s.optionIds[1]})
	s.castVote("poll-1", "voter-c", []int64{s.optionIds[0]})

	report, err := s.verifier.AuditChain("poll-1")
	s.Require().NoError(err)
	s.Require().True(report.Intact)
	s.Require().Equal(3, report.VotesChecked)
	s.Require().Empty(s.halter.halted)
}

func (s *verifierSuite) TestAuditChainEmptyPoll() {
	s.createPoll("poll-1")

	report, err := s.verifier.AuditChain("poll-1")
	s.Require().NoError(err)
	s.Require().True(report.Intact)
	s.Require().Equal(0, report.VotesChecked)
}

func (s *verifierSuite) TestAuditChainDetectsTamperedVote() {
	s.createPoll("poll-1")
	s.castVote("poll-1", "voter-a", []int64{s.optionIds[0]})
	second := s.castVote("poll-1", "voter-b", []int64{s.optionIds[1]})
	s.castVote("poll-1", "voter-c", []int64{s.optionIds[0]})

	// Flip voter-b's selection behind the chain's back.
	err := s.db.DB.Model(&model.Vote{}).
		Where("vote_hash = ?", second.Hash).
		Update("option_ids", model.JoinOptionIds([]int64{s.optionIds[0]})).Error
	s.Require().NoError(err)

	report, err := s.verifier.AuditChain("poll-1")
	var integrityErr *common.ChainIntegrityError
	s.Require().ErrorAs(err, &integrityErr)
	s.Require().True(!report.Intact)
	s.Require().NotZero(report.BrokenAtVoteId)
	s.Require().Equal([]string{"poll-1"}, s.halter.halted, "writes must be halted")
}

func (s *verifierSuite) TestAuditChainDetectsBrokenLinkage() {
	s.createPoll("poll-1")
	s.castVote("poll-1", "voter-a", []int64{s.optionIds[0]})
	s.castVote("poll-1", "voter-b", []int64{s.optionIds[1]})

	// Re-point the second vote's prev hash at genesis, forging a fork.
	err := s.db.DB.Model(&model.Vote{}).
		Where("voter_id = ?", "voter-b").
		Update("prev_hash", common.GenesisHash).Error
	s.Require().NoError(err)

	report, err := s.verifier.AuditChain("poll-1")
	var integrityErr *common.ChainIntegrityError
	s.Require().ErrorAs(err, &integrityErr)
	s.Require().True(!report.Intact)
}
