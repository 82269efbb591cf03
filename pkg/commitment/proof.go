package commitment

import (
	"crypto/subtle"
	"time"
)

// Proof is the prover's response to a challenge.
type Proof struct {
	// Digest is H(secret || challenge || nonce).
	Digest []byte

	// Commitment is the prover's published commitment.
	Commitment []byte

	// Challenge is the challenge being answered.
	Challenge string

	// Timestamp is the generation time in nanoseconds since the Unix epoch.
	Timestamp uint64
}

// Time returns the proof timestamp as a time.Time.
func (p Proof) Time() time.Time {
	return time.Unix(0, int64(p.Timestamp))
}

// Entry is the verifier's record for one identity.
type Entry struct {
	Identity   string
	Commitment []byte
}

// Matches reports whether commitment equals the stored commitment.
func (e Entry) Matches(commitment []byte) bool {
	if len(e.Commitment) != len(commitment) {
		return false
	}
	return subtle.ConstantTimeCompare(e.Commitment, commitment) == 1
}

// Timestamp converts t to nanoseconds since the Unix epoch. Times before the
// epoch map to zero.
func Timestamp(t time.Time) uint64 {
	n := t.UnixNano()
	if n < 0 {
		return 0
	}
	return uint64(n)
}
