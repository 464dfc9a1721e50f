package suggest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/heatserve/pkg/heat"
	"github.com/bastiangx/heatserve/pkg/store"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.ErrorLevel)
	goleak.VerifyTestMain(m)
}

// recordingSink keeps the last heat per term.
type recordingSink struct {
	mu    sync.Mutex
	heats map[string]int
	calls int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{heats: make(map[string]int)}
}

func (r *recordingSink) Enqueue(term string, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heats[term] = h
	r.calls++
}

func seed(t *testing.T, s *Service, terms ...string) {
	t.Helper()
	for _, term := range terms {
		_, err := s.AddOrBump(term)
		require.NoError(t, err)
	}
}

func TestQueryRanksByHeat(t *testing.T) {
	s := New(WithPolicy(heat.Policy{}))
	seed(t, s, "react", "react", "react", "redux", "node")

	got, err := s.Query("re", 10)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Term: "react", Heat: 3}, {Term: "redux", Heat: 1}}, got)

	got, err = s.Query("xyz", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	h, ok, err := s.Lookup("react")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, h)
}

func TestQueryBumpsServedTerms(t *testing.T) {
	sink := newRecordingSink()
	s := New(WithSink(sink))
	seed(t, s, "react", "react", "redux", "node")

	got, err := s.Query("RE", 10)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Term: "react", Heat: 2}, {Term: "redux", Heat: 1}}, got, "ranked heats are returned")

	h, _, _ := s.Lookup("react")
	assert.Equal(t, 3, h)
	h, _, _ = s.Lookup("redux")
	assert.Equal(t, 2, h)
	h, _, _ = s.Lookup("node")
	assert.Equal(t, 1, h, "terms not served are untouched")

	assert.Equal(t, map[string]int{"react": 3, "redux": 2, "node": 1}, sink.heats)
}

func TestQueryBumpsOnlyReturnedTerms(t *testing.T) {
	s := New()
	seed(t, s, "docker", "docker", "django", "dart")

	got, err := s.Query("d", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "docker", got[0].Term)

	h, _, _ := s.Lookup("django")
	assert.Equal(t, 1, h)
}

func TestLookupExactHitPolicy(t *testing.T) {
	sink := newRecordingSink()
	s := New(WithPolicy(heat.Policy{OnExactSearchHit: true}), WithSink(sink))
	seed(t, s, "react", "react", "react")

	h, ok, err := s.Lookup("React")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, h)

	_, ok, err = s.Lookup("reac")
	require.NoError(t, err)
	assert.False(t, ok)

	// a query does not take the exact-hit path
	_, err = s.Query("react", 5)
	require.NoError(t, err)
	h, _, _ = s.Lookup("react")
	assert.Equal(t, 5, h)
	assert.Equal(t, 5, sink.heats["react"])
}

func TestCaseInsensitive(t *testing.T) {
	s := New()
	seed(t, s, "Docker")

	got, err := s.Query("dock", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "docker", got[0].Term)
}

func TestEmptyAndMalformedInput(t *testing.T) {
	s := New(WithAlphabet(trie.AlphabetLower))

	_, err := s.AddOrBump("   ")
	assert.ErrorIs(t, err, trie.ErrEmptyInput)

	_, err = s.Query("", 5)
	assert.ErrorIs(t, err, trie.ErrEmptyInput)

	_, _, err = s.Lookup("")
	assert.ErrorIs(t, err, trie.ErrEmptyInput)

	_, err = s.AddOrBump("google cloud")
	assert.ErrorIs(t, err, trie.ErrMalformedCharacter)

	_, err = s.Query("c++", 5)
	assert.ErrorIs(t, err, trie.ErrMalformedCharacter)

	_, _, err = s.Lookup("c#")
	assert.ErrorIs(t, err, trie.ErrMalformedCharacter)

	assert.Equal(t, 0, s.Len())
}

func TestLoadFromRecords(t *testing.T) {
	s := New(WithAlphabet(trie.AlphabetLower))
	seed(t, s, "stale")

	stats := s.LoadFromRecords([]trie.Entry{
		{Term: "React", Heat: 3},
		{Term: "react", Heat: 7},
		{Term: "redux", Heat: 0},
		{Term: "google cloud", Heat: 4},
		{Term: "", Heat: 2},
	})
	assert.Equal(t, LoadStats{Loaded: 2, Skipped: 2, Duplicates: 1}, stats)

	assert.Equal(t, []Suggestion{{Term: "react", Heat: 7}, {Term: "redux", Heat: 1}}, s.Snapshot())
	_, ok, _ := s.Lookup("stale")
	assert.False(t, ok, "load replaces the previous index")
}

func TestLoadFromMatchesIncrementalBuild(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	batcher := store.NewBatcher(mem, store.WithFlushInterval(time.Hour))

	live := New(WithSink(batcher))
	seed(t, live, "react", "react", "redux", "node", "Node")
	_, err := live.Query("re", 10)
	require.NoError(t, err)
	require.NoError(t, batcher.Close())

	rebuilt := New()
	stats, err := rebuilt.LoadFrom(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Loaded)
	assert.Equal(t, live.Snapshot(), rebuilt.Snapshot())
}

func TestConcurrentUse(t *testing.T) {
	mem := store.NewMemoryStore()
	batcher := store.NewBatcher(mem, store.WithFlushInterval(5*time.Millisecond))
	s := New(WithSink(batcher))
	for i := range 10 {
		seed(t, s, fmt.Sprintf("term%d", i))
	}

	const workers = 8
	const perWorker = 200
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				term := fmt.Sprintf("term%d", i%10)
				if _, err := s.AddOrBump(term); err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Query("term", 3); err != nil {
					t.Error(err)
					return
				}
				_, _, _ = s.Lookup(fmt.Sprintf("term%d", w))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, batcher.Close())

	// every add and every served suggestion is counted exactly once
	total := 0
	for _, sug := range s.Snapshot() {
		total += sug.Heat
	}
	assert.Equal(t, 10+workers*perWorker*(1+3), total)

	// the store caught up with the index
	for _, sug := range s.Snapshot() {
		rec, ok := mem.Get(sug.Term)
		require.True(t, ok, sug.Term)
		assert.Equal(t, sug.Heat, rec.Heat, sug.Term)
	}

	stats := s.Stats()
	assert.Equal(t, 10, stats["totalTerms"])
	assert.Equal(t, workers*perWorker, stats["queries"])
}

func TestTerms(t *testing.T) {
	s := New()
	seed(t, s, "aws", "azure")
	assert.ElementsMatch(t, []string{"aws", "azure"}, s.Terms())
}
