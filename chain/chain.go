// Package chain derives the per-vote hash links that make a poll's vote
// record tamper-evident. It is pure computation: given the previous
// link and a vote's canonical fields it produces the next link and the
// voter-facing receipt code. Anyone holding the stored vote fields can
// recompute a whole chain starting from the genesis hash.
package chain

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSeparator    = "|"
	receiptCodeLength = 16
)

var receiptEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Link is one entry of a poll's hash chain.
type Link struct {
	Hash        string
	ReceiptCode string
}

// CanonicalOptionIds returns a sorted copy of the selected option ids.
// Storage and verification must share this ordering or recomputed
// hashes will not match.
func CanonicalOptionIds(optionIds []int64) []int64 {
	sorted := make([]int64, len(optionIds))
	copy(sorted, optionIds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// CanonicalTimestamp is the timestamp form that gets hashed: UTC,
// RFC3339, second precision.
func CanonicalTimestamp(ts time.Time) string {
	return ts.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ComputeLink derives the next chain link for a vote. prevHash is the
// tail of the poll's chain, or common.GenesisHash for the first vote.
func ComputeLink(prevHash string, voterId string, optionIds []int64, ts time.Time) Link {
	sorted := CanonicalOptionIds(optionIds)
	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	payload := strings.Join([]string{
		voterId,
		strings.Join(parts, ","),
		CanonicalTimestamp(ts),
		prevHash,
	}, fieldSeparator)

	digest := sha256.Sum256([]byte(payload))
	return Link{
		Hash:        hex.EncodeToString(digest[:]),
		ReceiptCode: receiptEncoding.EncodeToString(digest[:])[:receiptCodeLength],
	}
}

// IsHash reports whether s has the shape of a chain hash, as opposed to
// a receipt code.
func IsHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
