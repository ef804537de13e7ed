package order

import (
	"crypto/rand"
	"strconv"
	"sync"
	"time"
)

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	numMu      sync.Mutex
	lastBucket string
	usedInMs   map[string]struct{}
)

// NewNumber generates a customer-facing order number of the form
// ORD-<base36 millisecond timestamp>-<6 uppercase alphanumeric chars>.
// Suffixes are tracked per timestamp bucket so two calls landing in the same
// millisecond can never produce the same number.
func NewNumber() string {
	numMu.Lock()
	defer numMu.Unlock()

	bucket := strconv.FormatInt(time.Now().UnixMilli(), 36)
	if bucket != lastBucket {
		lastBucket = bucket
		usedInMs = make(map[string]struct{})
	}

	for {
		suffix := randomSuffix(6)
		if _, taken := usedInMs[suffix]; taken {
			continue
		}
		usedInMs[suffix] = struct{}{}
		return "ORD-" + bucket + "-" + suffix
	}
}

func randomSuffix(n int) string {
	// Rejection sampling keeps the draw uniform: 252 is the largest multiple
	// of the alphabet size below 256, so bytes past it are discarded instead
	// of wrapping onto the first few characters.
	const limit = 252
	out := make([]byte, 0, n)
	buf := make([]byte, 2*n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand does not fail on any supported platform
			panic(err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, suffixAlphabet[int(b)%len(suffixAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
