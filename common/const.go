package common

import (
	"time"

	"github.com/avast/retry-go/v4"
)

var (
	RetryDelay = retry.Delay(time.Millisecond * 200)
	RetryErr   = retry.LastErrorOnly(true)
)

const (
	// GenesisHash is the well-known prev_hash of the first vote in every
	// poll. It is a fixed public constant so anyone can recompute a
	// poll's chain from nothing.
	GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

	DefaultSubmitTimeout = 5 * time.Second
)
