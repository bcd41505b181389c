// Package remote implements the remote-program factoring pass: it
// rewrites a program whose primitives target principals other than the
// program's own into a local program plus one sibling program per
// remote principal, joined by synthesized send/receive channels on a
// dynamically synthesized broker class, per §4.6.
package remote

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// FlowToken is the 128-bit opaque identifier correlating a remote
// send/receive pair.
type FlowToken = uuid.UUID

// tokenSource allocates FlowTokens for one factoring pass.
type tokenSource func() FlowToken

// randomTokenSource is the default: cryptographically random, backed by
// google/uuid's own generator.
func randomTokenSource() FlowToken { return uuid.New() }

// seededTokenSource draws token bytes from a math/rand.Rand seeded with
// seed, via uuid.NewRandomFromReader, so factoring is deterministic
// given a seed.
func seededTokenSource(seed int64) tokenSource {
	src := rand.New(rand.NewSource(seed))
	var mu sync.Mutex
	return func() FlowToken {
		mu.Lock()
		id, err := uuid.NewRandomFromReader(src)
		mu.Unlock()
		if err != nil {
			// rand.Rand's Read never errors; fall back defensively.
			return uuid.New()
		}
		return id
	}
}
