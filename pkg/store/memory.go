package store

import (
	"context"
	"sync"
	"time"

	"github.com/tchap/go-patricia/v2/patricia"
)

// MemoryStore keeps records in a patricia trie keyed by term. It backs
// ephemeral runs and tests, and is the in-memory image of a FileStore.
type MemoryStore struct {
	mu     sync.RWMutex
	trie   *patricia.Trie
	count  int
	closed bool
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trie: patricia.NewTrie(),
		now:  time.Now,
	}
}

// LoadAll returns every record in term order.
func (m *MemoryStore) LoadAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	out := make([]Record, 0, m.count)
	err := m.trie.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.(Record))
		return nil
	})
	return out, err
}

func (m *MemoryStore) UpsertHeat(ctx context.Context, term string, heat int) error {
	return m.UpsertMany(ctx, []Record{{Term: term, Heat: heat}})
}

// UpsertMany stores every record, stamping UpdatedAt when it is zero.
func (m *MemoryStore) UpsertMany(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.putLocked(records)
	return nil
}

func (m *MemoryStore) putLocked(records []Record) {
	now := m.now()
	for _, r := range records {
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		key := patricia.Prefix(r.Term)
		if m.trie.Get(key) == nil {
			m.count++
		}
		m.trie.Set(key, r)
	}
}

// Get returns the record stored for term.
func (m *MemoryStore) Get(term string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item := m.trie.Get(patricia.Prefix(term))
	if item == nil {
		return Record{}, false
	}
	return item.(Record), true
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
