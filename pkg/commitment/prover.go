package commitment

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// Prover holds one drone's secret material for its lifetime. It is created
// with NewProver; a zero Prover is uninitialized and every operation on it
// fails with ErrProverUninitialized.
type Prover struct {
	engine     *Engine
	identity   string
	secret     []byte
	nonce      []byte
	commitment []byte
}

// ProverOption configures NewProver.
type ProverOption func(*proverOptions)

type proverOptions struct {
	random io.Reader
	nonce  []byte
}

// WithRandom sets the entropy source for the nonce (crypto/rand by default).
func WithRandom(r io.Reader) ProverOption {
	return func(o *proverOptions) {
		o.random = r
	}
}

// WithNonce fixes the nonce instead of drawing one, for reproducible runs.
func WithNonce(nonce []byte) ProverOption {
	return func(o *proverOptions) {
		o.nonce = append([]byte(nil), nonce...)
	}
}

// NewProver derives the secret and commitment for identity.
func NewProver(engine *Engine, identity, password string, opts ...ProverOption) (*Prover, error) {
	if engine == nil {
		engine = DefaultEngine()
	}
	o := proverOptions{random: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}

	nonce := o.nonce
	if nonce == nil {
		nonce = make([]byte, NonceSize)
		if _, err := io.ReadFull(o.random, nonce); err != nil {
			return nil, fmt.Errorf("%w: nonce: %v", ErrRandom, err)
		}
	}
	if len(nonce) == 0 {
		return nil, fmt.Errorf("%w: empty nonce", ErrProverUninitialized)
	}

	secret := engine.DeriveSecret(identity, password, nonce)
	commitment, err := engine.Commit(secret, nonce)
	if err != nil {
		return nil, err
	}

	return &Prover{
		engine:     engine,
		identity:   identity,
		secret:     secret,
		nonce:      nonce,
		commitment: commitment,
	}, nil
}

// Identity returns the prover identity.
func (p *Prover) Identity() string {
	return p.identity
}

// Initialized reports whether the prover holds secret material.
func (p *Prover) Initialized() bool {
	return p != nil && p.engine != nil && len(p.secret) > 0 && len(p.nonce) > 0
}

// Commitment returns a copy of the published commitment.
func (p *Prover) Commitment() ([]byte, error) {
	if !p.Initialized() {
		return nil, ErrProverUninitialized
	}
	return append([]byte(nil), p.commitment...), nil
}

// Prove answers challenge with a proof stamped at now.
func (p *Prover) Prove(challenge string, now time.Time) (Proof, error) {
	if !p.Initialized() {
		return Proof{}, ErrProverUninitialized
	}
	return p.engine.BuildProof(p.secret, challenge, p.nonce, p.commitment, now)
}

// Destroy zeroes the secret material. The prover is uninitialized afterwards.
func (p *Prover) Destroy() {
	if p == nil {
		return
	}
	clear(p.secret)
	clear(p.nonce)
	p.secret = nil
	p.nonce = nil
}
