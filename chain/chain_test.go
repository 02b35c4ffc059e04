package chain

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicgrid/vote-engine/common"
)

func TestGenesisHashShape(t *testing.T) {
	require.Len(t, common.GenesisHash, 64)
	require.Equal(t, strings.Repeat("0", 64), common.GenesisHash)
}

func TestComputeLinkDeterministic(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	first := ComputeLink(common.GenesisHash, "voter-a", []int64{3, 1}, ts)
	second := ComputeLink(common.GenesisHash, "voter-a", []int64{3, 1}, ts)
	require.Equal(t, first, second)

	// Option order must not matter, the canonical ordering does.
	reordered := ComputeLink(common.GenesisHash, "voter-a", []int64{1, 3}, ts)
	require.Equal(t, first.Hash, reordered.Hash)
}

func TestComputeLinkMatchesManualDigest(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	link := ComputeLink(common.GenesisHash, "voter-a", []int64{2, 7}, ts)

	payload := "voter-a|2,7|2026-03-14T10:30:00Z|" + common.GenesisHash
	digest := sha256.Sum256([]byte(payload))
	require.Equal(t, hex.EncodeToString(digest[:]), link.Hash)

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(digest[:])
	require.Equal(t, encoded[:16], link.ReceiptCode)
}

func TestComputeLinkBindsAllFields(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	base := ComputeLink(common.GenesisHash, "voter-a", []int64{1}, ts)

	require.NotEqual(t, base.Hash, ComputeLink(common.GenesisHash, "voter-b", []int64{1}, ts).Hash)
	require.NotEqual(t, base.Hash, ComputeLink(common.GenesisHash, "voter-a", []int64{2}, ts).Hash)
	require.NotEqual(t, base.Hash, ComputeLink(common.GenesisHash, "voter-a", []int64{1}, ts.Add(time.Second)).Hash)
	require.NotEqual(t, base.Hash, ComputeLink(base.Hash, "voter-a", []int64{1}, ts).Hash)
}

func TestComputeLinkChains(t *testing.T) {
	t1 := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	h1 := ComputeLink(common.GenesisHash, "voter-a", []int64{1}, t1)
	h2 := ComputeLink(h1.Hash, "voter-b", []int64{2}, t2)

	require.NotEqual(t, h1.Hash, h2.Hash)
	// Recomputing the second link from the first link's hash reproduces it.
	require.Equal(t, h2, ComputeLink(h1.Hash, "voter-b", []int64{2}, t2))
}

func TestReceiptCodeShape(t *testing.T) {
	link := ComputeLink(common.GenesisHash, "voter-a", []int64{1}, time.Now())
	require.Len(t, link.ReceiptCode, 16)
	require.NotContains(t, link.ReceiptCode, "=")
	require.False(t, IsHash(link.ReceiptCode))
	require.True(t, IsHash(link.Hash))
}

func TestCanonicalOptionIdsCopies(t *testing.T) {
	original := []int64{5, 2, 9}
	sorted := CanonicalOptionIds(original)
	require.Equal(t, []int64{2, 5, 9}, sorted)
	require.Equal(t, []int64{5, 2, 9}, original)
}

func TestCanonicalTimestampUTCSeconds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	ts := time.Date(2026, 3, 14, 13, 30, 0, 987654321, loc)
	require.Equal(t, "2026-03-14T10:30:00Z", CanonicalTimestamp(ts))
}
