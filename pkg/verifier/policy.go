package verifier

import (
	"fmt"
	"sort"
	"sync"
)

// Policy decides whether an identity may authenticate at all.
type Policy interface {
	IsAuthorized(identity string) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(identity string) bool

// IsAuthorized calls f.
func (f PolicyFunc) IsAuthorized(identity string) bool { return f(identity) }

// DefaultIdentities is the allow-list used when none is configured.
var DefaultIdentities = []string{"DRONE_001", "DRONE_002", "DRONE_003", "DRONE_004", "DRONE_005"}

// AllowList is a static set of authorized identities. It is safe for
// concurrent use so that operators can edit it while the station runs.
type AllowList struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewAllowList creates an allow-list holding ids.
func NewAllowList(ids ...string) *AllowList {
	a := &AllowList{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
	return a
}

// DefaultAllowList returns a list holding DefaultIdentities.
func DefaultAllowList() *AllowList {
	return NewAllowList(DefaultIdentities...)
}

// IsAuthorized reports whether identity is listed.
func (a *AllowList) IsAuthorized(identity string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[identity]
	return ok
}

// Add lists identity.
func (a *AllowList) Add(identity string) error {
	if identity == "" {
		return fmt.Errorf("empty identity")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids[identity] = struct{}{}
	return nil
}

// Remove unlists identity. Existing registry records are kept.
func (a *AllowList) Remove(identity string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.ids, identity)
}

// Identities returns the listed identities, sorted.
func (a *AllowList) Identities() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Compile-time interface satisfaction checks.
var (
	_ Policy = (*AllowList)(nil)
	_ Policy = PolicyFunc(nil)
)
