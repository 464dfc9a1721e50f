// Package heat defines when a term's heat is incremented.
package heat

import (
	"fmt"
	"strings"
)

// Trigger names one event that may increment heat.
type Trigger string

const (
	// TriggerInsert fires on every insert or add-term call. It is always on.
	TriggerInsert Trigger = "insert"
	// TriggerExactHit fires when a lookup matches a stored term exactly.
	TriggerExactHit Trigger = "exact_hit"
	// TriggerSuggestionServed fires for each term returned by a prefix query.
	TriggerSuggestionServed Trigger = "suggestion_served"
)

// Policy is fixed for the lifetime of a service. Each request takes exactly
// one trigger path, so a term is never counted twice for the same request.
type Policy struct {
	OnExactSearchHit   bool
	OnSuggestionServed bool
}

// DefaultPolicy bumps served suggestions and leaves exact lookups alone.
func DefaultPolicy() Policy {
	return Policy{OnSuggestionServed: true}
}

// Applies reports whether t increments heat under p.
func (p Policy) Applies(t Trigger) bool {
	switch t {
	case TriggerInsert:
		return true
	case TriggerExactHit:
		return p.OnExactSearchHit
	case TriggerSuggestionServed:
		return p.OnSuggestionServed
	}
	return false
}

// Parse builds a Policy from trigger names. "insert" is accepted and implied.
// An empty list yields a policy with only the insert trigger.
func Parse(names []string) (Policy, error) {
	var p Policy
	for _, name := range names {
		switch Trigger(strings.ToLower(strings.TrimSpace(name))) {
		case TriggerInsert:
		case TriggerExactHit:
			p.OnExactSearchHit = true
		case TriggerSuggestionServed:
			p.OnSuggestionServed = true
		default:
			return Policy{}, fmt.Errorf("unknown heat trigger %q", name)
		}
	}
	return p, nil
}

// Triggers lists the enabled triggers in a stable order.
func (p Policy) Triggers() []string {
	out := []string{string(TriggerInsert)}
	if p.OnExactSearchHit {
		out = append(out, string(TriggerExactHit))
	}
	if p.OnSuggestionServed {
		out = append(out, string(TriggerSuggestionServed))
	}
	return out
}

func (p Policy) String() string {
	return strings.Join(p.Triggers(), ",")
}
