package policy

import (
	"errors"
	"fmt"
)

// Policy names used for resolution. Resources and resource types reference
// policies by these keys.
const (
	NameCommon       = "common"
	NameHighSecurity = "high_security"
	NameMeetingRoom  = "meeting_room"
)

// DefaultName is the policy applied when neither the resource nor its type
// names one.
const DefaultName = NameCommon

// ErrUnknownPolicy indicates a resource or resource type references a policy
// name that was never registered. This is a configuration fault, not a user
// input problem.
var ErrUnknownPolicy = errors.New("policy: unknown validation policy")

// Registry holds the closed set of validation policies keyed by name.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry returns a registry populated with the built-in policy set.
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]Policy)}
	r.Register(Common())
	r.Register(HighSecurity())
	r.Register(MeetingRoom())
	return r
}

// Register adds a policy under its name, replacing any previous entry.
func (r *Registry) Register(p Policy) {
	if r == nil || p == nil {
		return
	}
	if r.policies == nil {
		r.policies = make(map[string]Policy)
	}
	r.policies[p.Name()] = p
}

// Lookup returns the policy registered under name.
func (r *Registry) Lookup(name string) (Policy, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: registry not configured", ErrUnknownPolicy)
	}
	p, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return p, nil
}

// Resolve picks the policy for a resource: the resource's own override wins,
// then its type's default, then DefaultName. Empty names are skipped; a
// non-empty name that is not registered fails rather than falling through.
func (r *Registry) Resolve(names ...string) (Policy, error) {
	for _, name := range names {
		if name == "" {
			continue
		}
		return r.Lookup(name)
	}
	return r.Lookup(DefaultName)
}
