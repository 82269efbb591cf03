package verifier

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/droneauth/droneauth-go/pkg/commitment"
	"github.com/droneauth/droneauth-go/pkg/transport"
)

// PendingChallenge is the outstanding challenge for one identity.
type PendingChallenge struct {
	Challenge string
	IssuedAt  time.Time
}

// Registry holds the station's per-identity records. It is not safe for
// concurrent use.
type Registry struct {
	entries   map[string]commitment.Entry
	pending   map[string]PendingChallenge
	addresses map[string]transport.Addr
	failures  *FailureTracker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]commitment.Entry),
		pending:   make(map[string]PendingChallenge),
		addresses: make(map[string]transport.Addr),
		failures:  NewFailureTracker(),
	}
}

// EnsureEntry returns the entry for identity, creating it with commit if
// absent. An existing entry is returned unchanged and commit is ignored.
func (r *Registry) EnsureEntry(identity string, commit []byte) (entry commitment.Entry, created bool) {
	if e, ok := r.entries[identity]; ok {
		return e, false
	}
	e := commitment.Entry{Identity: identity, Commitment: append([]byte(nil), commit...)}
	r.entries[identity] = e
	return e, true
}

// Entry looks up the entry for identity.
func (r *Registry) Entry(identity string) (commitment.Entry, bool) {
	e, ok := r.entries[identity]
	return e, ok
}

// RemoveEntry forgets identity's entry. The next AUTH_REQUEST registers a
// new commitment.
func (r *Registry) RemoveEntry(identity string) bool {
	if _, ok := r.entries[identity]; !ok {
		return false
	}
	delete(r.entries, identity)
	return true
}

// SetPending replaces identity's pending challenge.
func (r *Registry) SetPending(identity, challenge string, at time.Time) {
	r.pending[identity] = PendingChallenge{Challenge: challenge, IssuedAt: at}
}

// Pending looks up identity's pending challenge.
func (r *Registry) Pending(identity string) (PendingChallenge, bool) {
	p, ok := r.pending[identity]
	return p, ok
}

// FindByChallenge returns the identity whose pending challenge equals
// challenge. It scans every pending challenge.
func (r *Registry) FindByChallenge(challenge string) (string, bool) {
	for identity, p := range r.pending {
		if p.Challenge == challenge {
			return identity, true
		}
	}
	return "", false
}

// RemovePending clears identity's pending challenge.
func (r *Registry) RemovePending(identity string) {
	delete(r.pending, identity)
}

// SetAddress records where identity was last seen.
func (r *Registry) SetAddress(identity string, addr transport.Addr) {
	r.addresses[identity] = addr
}

// Address returns where identity was last seen.
func (r *Registry) Address(identity string) (transport.Addr, bool) {
	a, ok := r.addresses[identity]
	return a, ok
}

// Failures returns the failure tracker.
func (r *Registry) Failures() *FailureTracker {
	return r.failures
}

// EntryInfo describes one identity in a Snapshot.
type EntryInfo struct {
	Identity            string
	Commitment          string
	Registered          bool
	PendingChallenge    string
	ChallengeIssuedAt   time.Time
	Address             string
	ConsecutiveFailures int
	TotalFailures       int
}

// Snapshot lists every identity the registry knows about, sorted.
func (r *Registry) Snapshot() []EntryInfo {
	ids := make(map[string]struct{})
	for id := range r.entries {
		ids[id] = struct{}{}
	}
	for id := range r.pending {
		ids[id] = struct{}{}
	}
	for id := range r.addresses {
		ids[id] = struct{}{}
	}

	out := make([]EntryInfo, 0, len(ids))
	for id := range ids {
		info := EntryInfo{
			Identity:            id,
			ConsecutiveFailures: r.failures.Consecutive(id),
			TotalFailures:       r.failures.Total(id),
		}
		if e, ok := r.entries[id]; ok {
			info.Registered = true
			info.Commitment = hex.EncodeToString(e.Commitment)
		}
		if p, ok := r.pending[id]; ok {
			info.PendingChallenge = p.Challenge
			info.ChallengeIssuedAt = p.IssuedAt
		}
		if a, ok := r.addresses[id]; ok {
			info.Address = a.String()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}
