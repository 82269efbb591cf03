package commitment

import (
	"crypto"
	_ "crypto/sha256" // register digests selectable by WithHash
	_ "crypto/sha512"
	"errors"
	"fmt"
	"time"

	"github.com/bytemare/hash"
	"github.com/bytemare/ksf"
	_ "golang.org/x/crypto/sha3"
)

// Engine parameters.
const (
	// DefaultHash is the digest used when no hash is configured.
	DefaultHash = crypto.SHA256

	// DefaultFreshnessWindow is the maximum allowed distance between a proof
	// timestamp and the verifier clock. The boundary itself is accepted.
	DefaultFreshnessWindow = 5 * time.Second

	// NonceSize is the length of the prover nonce in bytes.
	NonceSize = 32
)

// Engine errors.
var (
	ErrUnsupportedHash       = errors.New("unsupported hash function")
	ErrUnsupportedHardening  = errors.New("unsupported password hardening function")
	ErrInvalidFreshness      = errors.New("invalid freshness window")
	ErrProverUninitialized   = errors.New("prover not initialized")
	ErrVerifierUninitialized = errors.New("verifier not initialized")
	ErrRandom                = errors.New("random source failure")
)

// Engine computes the digests of the handshake. An Engine is immutable after
// construction and safe for concurrent use.
type Engine struct {
	id        crypto.Hash
	hardening ksf.Identifier
	freshness time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithHash selects the digest function.
func WithHash(id crypto.Hash) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// WithPasswordHardening runs the password through a key stretching function,
// salted with the nonce, before the secret is derived. Zero disables it.
func WithPasswordHardening(id ksf.Identifier) Option {
	return func(e *Engine) {
		e.hardening = id
	}
}

// WithFreshnessWindow overrides the proof freshness window.
func WithFreshnessWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.freshness = d
	}
}

// NewEngine creates an engine with the given options applied over the
// defaults (SHA-256, no hardening, 5 second window).
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		id:        DefaultHash,
		freshness: DefaultFreshnessWindow,
	}
	for _, opt := range opts {
		opt(e)
	}

	switch e.id {
	case crypto.SHA256, crypto.SHA512, crypto.SHA3_256:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedHash, e.id)
	}
	if !e.id.Available() {
		return nil, fmt.Errorf("%w: %v not linked", ErrUnsupportedHash, e.id)
	}

	switch e.hardening {
	case 0, ksf.Argon2id, ksf.Scrypt, ksf.PBKDF2Sha512:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedHardening, e.hardening)
	}

	if e.freshness <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFreshness, e.freshness)
	}

	return e, nil
}

// DefaultEngine returns an engine with default parameters.
func DefaultEngine() *Engine {
	e, err := NewEngine()
	if err != nil {
		panic(fmt.Sprintf("default commitment engine: %v", err))
	}
	return e
}

// Hash returns the configured digest function.
func (e *Engine) Hash() crypto.Hash {
	return e.id
}

// Size returns the digest length in bytes.
func (e *Engine) Size() int {
	return e.id.Size()
}

// FreshnessWindow returns the accepted timestamp distance.
func (e *Engine) FreshnessWindow() time.Duration {
	return e.freshness
}

// digest hashes the concatenation of parts.
func (e *Engine) digest(parts ...[]byte) []byte {
	h := hash.FromCrypto(e.id).GetHashFunction()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	return h.Sum(nil)
}

// DeriveSecret computes H(identity || password || nonce). It is
// deterministic for identical inputs.
func (e *Engine) DeriveSecret(identity, password string, nonce []byte) []byte {
	pw := []byte(password)
	if e.hardening != 0 {
		pw = e.hardening.Get().Harden(pw, nonce, e.Size())
	}
	return e.digest([]byte(identity), pw, nonce)
}

// Commit computes H(secret || nonce). Both inputs must be present.
func (e *Engine) Commit(secret, nonce []byte) ([]byte, error) {
	if len(secret) == 0 || len(nonce) == 0 {
		return nil, ErrProverUninitialized
	}
	return e.digest(secret, nonce), nil
}

// BuildProof computes H(secret || challenge || nonce) and stamps the proof
// with now.
func (e *Engine) BuildProof(secret []byte, challenge string, nonce, commitment []byte, now time.Time) (Proof, error) {
	if len(secret) == 0 || len(nonce) == 0 {
		return Proof{}, ErrProverUninitialized
	}
	return Proof{
		Digest:     e.digest(secret, []byte(challenge), nonce),
		Commitment: append([]byte(nil), commitment...),
		Challenge:  challenge,
		Timestamp:  Timestamp(now),
	}, nil
}

// Verify checks a proof against a stored entry at time now.
//
// The check is structural: digest length, commitment equality and timestamp
// freshness. The digest itself is not recomputed.
func (e *Engine) Verify(entry Entry, proof Proof, now time.Time) bool {
	if len(proof.Digest) != e.Size() {
		return false
	}
	if !entry.Matches(proof.Commitment) {
		return false
	}
	return withinWindow(Timestamp(now), proof.Timestamp, e.freshness)
}

func withinWindow(now, ts uint64, window time.Duration) bool {
	var diff uint64
	if now >= ts {
		diff = now - ts
	} else {
		diff = ts - now
	}
	return diff <= uint64(window)
}
