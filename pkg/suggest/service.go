package suggest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bastiangx/heatserve/internal/logger"
	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/bastiangx/heatserve/pkg/heat"
	"github.com/bastiangx/heatserve/pkg/store"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/charmbracelet/log"
)

// Suggestion is a ranked term with its heat.
type Suggestion = trie.Entry

// Option configures a Service.
type Option func(*Service)

// WithPolicy fixes the heat policy for the service's lifetime.
func WithPolicy(p heat.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithAlphabet selects the trie alphabet.
func WithAlphabet(a trie.Alphabet) Option {
	return func(s *Service) { s.alphabet = a }
}

// WithSink sends every changed heat to sink.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger replaces the default "index" logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service owns one trie. All reads and writes go through mu, so callers on
// any goroutine always see whole inserts and never a half-built trie.
type Service struct {
	mu       sync.RWMutex
	trie     *trie.Trie
	alphabet trie.Alphabet
	policy   heat.Policy
	sink     Sink
	logger   *log.Logger

	queries atomic.Int64
	adds    atomic.Int64
	lookups atomic.Int64
	bumps   atomic.Int64
}

// LoadStats summarizes a LoadFromRecords call.
type LoadStats struct {
	Loaded     int
	Skipped    int
	Duplicates int
}

// New creates a service over an empty trie.
func New(opts ...Option) *Service {
	s := &Service{
		policy: heat.DefaultPolicy(),
		sink:   discardSink{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New("index")
	}
	s.trie = trie.New(trie.WithAlphabet(s.alphabet))
	return s
}

// Policy returns the heat policy in effect.
func (s *Service) Policy() heat.Policy { return s.policy }

// Query normalizes prefix and returns up to limit terms ranked by heat, then
// term. When the suggestion-served trigger is on, every returned term gets
// one heat bump; the returned heats are the values the ranking used.
func (s *Service) Query(prefix string, limit int) ([]Suggestion, error) {
	s.queries.Add(1)
	p := utils.Normalize(prefix)
	if p == "" {
		return nil, trie.ErrEmptyInput
	}

	if !s.policy.Applies(heat.TriggerSuggestionServed) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.trie.TopKWithPrefix(p, limit)
	}

	s.mu.Lock()
	results, err := s.trie.TopKWithPrefix(p, limit)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	changed := make([]trie.Entry, 0, len(results))
	for _, r := range results {
		if h, ok := s.trie.Bump(r.Term); ok {
			changed = append(changed, trie.Entry{Term: r.Term, Heat: h})
		}
	}
	s.mu.Unlock()

	s.publish(changed...)
	return results, nil
}

// AddOrBump normalizes term and inserts it, or bumps it when already known.
func (s *Service) AddOrBump(term string) (int, error) {
	s.adds.Add(1)
	t := utils.Normalize(term)

	s.mu.Lock()
	h, err := s.trie.Insert(t)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	s.publish(trie.Entry{Term: t, Heat: h})
	return h, nil
}

// Lookup reports the heat of the exact term. With the exact-hit trigger on,
// a hit is bumped first and the bumped heat is returned.
func (s *Service) Lookup(term string) (int, bool, error) {
	s.lookups.Add(1)
	t := utils.Normalize(term)
	if err := s.validate(t); err != nil {
		return 0, false, err
	}

	if !s.policy.Applies(heat.TriggerExactHit) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		h, ok := s.trie.Lookup(t)
		return h, ok, nil
	}

	s.mu.Lock()
	h, ok := s.trie.Bump(t)
	s.mu.Unlock()
	if ok {
		s.publish(trie.Entry{Term: t, Heat: h})
	}
	return h, ok, nil
}

func (s *Service) validate(term string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trie.Validate(term)
}

func (s *Service) publish(changed ...trie.Entry) {
	if len(changed) == 0 {
		return
	}
	s.bumps.Add(int64(len(changed)))
	for _, e := range changed {
		s.sink.Enqueue(e.Term, e.Heat)
	}
}

// LoadFromRecords replaces the whole index with records. The new trie is
// built off-lock and swapped in at once. Terms that fail validation are
// skipped; duplicates after normalization keep the highest heat.
func (s *Service) LoadFromRecords(records []trie.Entry) LoadStats {
	var stats LoadStats
	next := trie.New(trie.WithAlphabet(s.alphabet))
	for _, r := range records {
		t := utils.Normalize(r.Term)
		h := r.Heat
		if prev, ok := next.Lookup(t); ok {
			stats.Duplicates++
			if prev >= h {
				continue
			}
		}
		if err := next.Set(t, h); err != nil {
			stats.Skipped++
			s.logger.Warn("skipping record", "term", r.Term, "err", err)
			continue
		}
	}
	stats.Loaded = next.Len()

	s.mu.Lock()
	s.trie = next
	s.mu.Unlock()

	s.logger.Debug("index rebuilt", "terms", stats.Loaded, "skipped", stats.Skipped, "duplicates", stats.Duplicates)
	return stats
}

// Loader is the read half of a persistence collaborator.
type Loader interface {
	LoadAll(ctx context.Context) ([]store.Record, error)
}

// LoadFrom rebuilds the index from everything src holds.
func (s *Service) LoadFrom(ctx context.Context, src Loader) (LoadStats, error) {
	recs, err := src.LoadAll(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("load records: %w", err)
	}
	entries := make([]trie.Entry, len(recs))
	for i, r := range recs {
		entries[i] = trie.Entry{Term: r.Term, Heat: r.Heat}
	}
	return s.LoadFromRecords(entries), nil
}

// Snapshot returns every term ordered by heat descending, then term.
func (s *Service) Snapshot() []Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trie.All()
}

// Terms returns every stored term in no particular order.
func (s *Service) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, s.trie.Len())
	for term := range s.trie.CollectWithPrefix("") {
		out = append(out, term)
	}
	return out
}

// Len returns the number of stored terms.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trie.Len()
}

func (s *Service) Stats() map[string]int {
	return map[string]int{
		"totalTerms": s.Len(),
		"queries":    int(s.queries.Load()),
		"adds":       int(s.adds.Load()),
		"lookups":    int(s.lookups.Load()),
		"heatBumps":  int(s.bumps.Load()),
	}
}
