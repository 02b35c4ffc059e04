// Package verify answers receipt lookups and audits stored hash chains.
// Both paths are read-only; the voter's identity stays in storage and
// never crosses this boundary.
package verify

import (
	"time"

	"gorm.io/gorm"

	"github.com/civicgrid/vote-engine/audit"
	"github.com/civicgrid/vote-engine/chain"
	"github.com/civicgrid/vote-engine/common"
	"github.com/civicgrid/vote-engine/db/model"
	"github.com/civicgrid/vote-engine/logging"
	"github.com/civicgrid/vote-engine/metrics"
)

// LaneHalter lets the audit stop a poll's writes on a broken chain
// without importing the queue package.
type LaneHalter interface {
	HaltPoll(pollId string)
}

type VerificationResult struct {
	PollId      string
	PollTitle   string
	OptionTexts []string
	VoteHash    string
	ReceiptCode string
	CastAt      time.Time
}

type AuditReport struct {
	PollId         string
	VotesChecked   int
	Intact         bool
	BrokenAtVoteId int64
}

type Verifier struct {
	dataProvider  DataProvider
	emitter       *audit.Emitter
	laneHalter    LaneHalter
	metricService *metrics.MetricService
}

func NewVerifier(dataProvider DataProvider, emitter *audit.Emitter,
	laneHalter LaneHalter, metricService *metrics.MetricService,
) *Verifier {
	return &Verifier{
		dataProvider:  dataProvider,
		emitter:       emitter,
		laneHalter:    laneHalter,
		metricService: metricService,
	}
}

// VerifyReceipt resolves a chain hash or receipt code within one poll.
// The not-found answer never distinguishes "never existed" from
// "belongs to another poll", so receipt codes leak nothing about which
// poll they come from.
func (v *Verifier) VerifyReceipt(pollId string, receiptCodeOrHash string) (*VerificationResult, error) {
	if v.metricService != nil {
		v.metricService.IncReceiptLookups()
	}

	var vote *model.Vote
	var err error
	if chain.IsHash(receiptCodeOrHash) {
		vote, err = v.dataProvider.GetVoteByHash(pollId, receiptCodeOrHash)
	} else {
		vote, err = v.dataProvider.GetVoteByReceiptCode(pollId, receiptCodeOrHash)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.ErrReceiptNotFound
		}
		return nil, err
	}

	poll, err := v.dataProvider.GetPollById(pollId)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.ErrReceiptNotFound
		}
		return nil, err
	}

	optionIds, err := model.SplitOptionIds(vote.OptionIds)
	if err != nil {
		return nil, err
	}
	options, err := v.dataProvider.GetOptionsByIds(pollId, optionIds)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(options))
	for _, opt := range options {
		texts = append(texts, opt.Text)
	}

	return &VerificationResult{
		PollId:      poll.Id,
		PollTitle:   poll.Title,
		OptionTexts: texts,
		VoteHash:    vote.VoteHash,
		ReceiptCode: vote.ReceiptCode,
		CastAt:      time.Unix(vote.CreatedTime, 0).UTC(),
	}, nil
}

// AuditChain recomputes every link of a poll's chain from the stored
// vote fields and checks the prev-hash linkage back to genesis. A
// mismatch is fatal for the poll: the submission lane is halted and the
// anomaly escalated, never repaired in place.
func (v *Verifier) AuditChain(pollId string) (*AuditReport, error) {
	votes, err := v.dataProvider.GetVotesByPollIdAsc(pollId)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{PollId: pollId, VotesChecked: len(votes), Intact: true}
	prevHash := common.GenesisHash
	for _, vote := range votes {
		if vote.PrevHash != prevHash {
			return v.flagBroken(report, vote)
		}
		optionIds, err := model.SplitOptionIds(vote.OptionIds)
		if err != nil {
			return v.flagBroken(report, vote)
		}
		link := chain.ComputeLink(vote.PrevHash, vote.VoterId, optionIds, time.Unix(vote.CreatedTime, 0))
		if link.Hash != vote.VoteHash || link.ReceiptCode != vote.ReceiptCode {
			return v.flagBroken(report, vote)
		}
		prevHash = vote.VoteHash
	}
	return report, nil
}

func (v *Verifier) flagBroken(report *AuditReport, vote *model.Vote) (*AuditReport, error) {
	report.Intact = false
	report.BrokenAtVoteId = vote.Id
	logging.Logger.Errorf("chain audit failed, poll=%s, broken at vote id=%d", report.PollId, vote.Id)

	if v.metricService != nil {
		v.metricService.IncChainAnomalies()
	}
	if v.laneHalter != nil {
		v.laneHalter.HaltPoll(report.PollId)
	}
	if v.emitter != nil {
		v.emitter.Emit(audit.Event{
			Type:     audit.EventChainAnomaly,
			PollId:   report.PollId,
			VoteHash: vote.VoteHash,
			Outcome:  "chain broken, writes halted",
		})
	}
	return report, &common.ChainIntegrityError{PollId: report.PollId, VoteId: vote.Id}
}
