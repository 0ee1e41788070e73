// Package capability models the guest subsystems the daemon can drive.
//
// Providers are probed at runtime: Load discovers which action tags the
// subsystem supports on this guest, Available reflects the last probe.
// Callers negotiate by tag membership and never call a provider blindly.
package capability

import (
	"errors"
	"sort"
)

// ErrUnavailable reports a subsystem whose probe found nothing usable, or
// one that refused the specific action.
var ErrUnavailable = errors.New("capability unavailable")

// Metadata identifies a provider in listings.
type Metadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActionSet is the set of action tags a provider reported at load time.
// An empty set means the subsystem is unavailable on this guest.
type ActionSet struct {
	tags map[string]struct{}
}

func NewActionSet(tags ...string) ActionSet {
	s := ActionSet{tags: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		s.tags[t] = struct{}{}
	}
	return s
}

func (s ActionSet) Has(tag string) bool {
	_, ok := s.tags[tag]
	return ok
}

func (s ActionSet) Empty() bool { return len(s.tags) == 0 }

// Tags returns the action tags in deterministic order.
func (s ActionSet) Tags() []string {
	list := make([]string, 0, len(s.tags))
	for t := range s.tags {
		list = append(list, t)
	}
	sort.Strings(list)
	return list
}

// Provider is the probing boundary for one guest subsystem.
//
// Load must be idempotent: the first call probes, later calls return the
// cached result. Available reflects the last Load.
type Provider interface {
	Metadata() Metadata
	Load() ActionSet
	Available() bool
}
