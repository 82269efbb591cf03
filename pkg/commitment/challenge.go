package commitment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	// ChallengePrefix starts every generated challenge.
	ChallengePrefix = "CHALLENGE_"

	// ChallengeRandomSize is the number of random bytes in a challenge.
	ChallengeRandomSize = 16
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ChallengeGenerator issues challenges of the form
// CHALLENGE_<unix-nanos>_<hex random>.
type ChallengeGenerator struct {
	clock  Clock
	random io.Reader
}

// NewChallengeGenerator creates a generator. Nil arguments select the system
// clock and crypto/rand.
func NewChallengeGenerator(clock Clock, random io.Reader) *ChallengeGenerator {
	if clock == nil {
		clock = SystemClock{}
	}
	if random == nil {
		random = rand.Reader
	}
	return &ChallengeGenerator{clock: clock, random: random}
}

// Next returns a fresh challenge.
func (g *ChallengeGenerator) Next() (string, error) {
	buf := make([]byte, ChallengeRandomSize)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("%w: challenge: %v", ErrRandom, err)
	}
	now := g.clock.Now().UnixNano()
	return ChallengePrefix + strconv.FormatInt(now, 10) + "_" + hex.EncodeToString(buf), nil
}
