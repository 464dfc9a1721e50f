// Package suggest is the core service, owning the trie behind one lock and
// applying the heat policy to every query, lookup and add.
package suggest

// ICompleter is what the CLI, IPC and HTTP surfaces need from the index.
type ICompleter interface {
	// Query returns up to limit suggestions for prefix, ranked by heat.
	Query(prefix string, limit int) ([]Suggestion, error)

	// AddOrBump inserts term or increments its heat, returning the new heat.
	AddOrBump(term string) (int, error)

	// Lookup reports the heat of an exact term.
	Lookup(term string) (int, bool, error)

	// Snapshot returns every term ordered by heat.
	Snapshot() []Suggestion

	// Stats returns counters about the index.
	Stats() map[string]int
}

// Sink receives heats changed by the service. Implementations must not
// block; store.Batcher is the production one.
type Sink interface {
	Enqueue(term string, heat int)
}

type discardSink struct{}

func (discardSink) Enqueue(string, int) {}
