// Package dictionary reads seed term lists: the corpus an empty index
// starts from before any heat has been earned.
package dictionary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/bastiangx/heatserve/pkg/store"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/charmbracelet/log"
)

// defaultSeedTerms is the sample corpus used when no seed file is configured.
var defaultSeedTerms = []string{
	"react", "redux", "javascript", "typescript", "node",
	"python", "django", "flask", "fastapi", "express",
	"database", "mongodb", "postgresql", "mysql", "redis",
	"docker", "kubernetes", "aws", "azure", "google cloud",
}

// DefaultSeedTerms returns the built-in sample corpus, each with heat 1.
func DefaultSeedTerms() []trie.Entry {
	out := make([]trie.Entry, len(defaultSeedTerms))
	for i, term := range defaultSeedTerms {
		out[i] = trie.Entry{Term: term, Heat: 1}
	}
	return out
}

// ParseText reads one term per line. A line may end with a tab and a heat;
// without one it counts as a single insert. Repeated terms add up, the same
// way repeated inserts do. Blank lines and lines starting with '#' are
// skipped. Terms are normalized; output keeps first-seen order.
func ParseText(r io.Reader) ([]trie.Entry, error) {
	heats := make(map[string]int)
	var order []string

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		term, h := line, 1
		if i := strings.LastIndexByte(line, '\t'); i >= 0 {
			n, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad heat %q: %w", lineNo, line[i+1:], err)
			}
			if n < 1 {
				return nil, fmt.Errorf("line %d: heat must be at least 1, got %d", lineNo, n)
			}
			term, h = line[:i], n
		}

		term = utils.Normalize(term)
		if term == "" {
			continue
		}
		if _, seen := heats[term]; !seen {
			order = append(order, term)
		}
		heats[term] += h
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read terms: %w", err)
	}

	out := make([]trie.Entry, len(order))
	for i, term := range order {
		out[i] = trie.Entry{Term: term, Heat: heats[term]}
	}
	return out, nil
}

// LoadTextFile parses a term list from disk.
func LoadTextFile(path string) ([]trie.Entry, error) {
	if err := ValidateFileFormat(path, FormatText); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := ParseText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded %d seed terms from %s", len(entries), path)
	return entries, nil
}

// SeedIfEmpty writes entries into st only when st holds no records yet.
// It returns how many records were written.
func SeedIfEmpty(ctx context.Context, st store.Store, entries []trie.Entry) (int, error) {
	existing, err := st.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	return Seed(ctx, st, entries)
}

// Seed merges entries into st whatever it already holds. A term keeps the
// higher of its stored heat and its seed heat, so heat earned at runtime is
// never lowered. It returns how many records were written.
func Seed(ctx context.Context, st store.Store, entries []trie.Entry) (int, error) {
	existing, err := st.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	stored := make(map[string]int, len(existing))
	for _, r := range existing {
		stored[r.Term] = r.Heat
	}

	records := make([]store.Record, 0, len(entries))
	for _, e := range entries {
		heat := max(e.Heat, 1)
		if prev, ok := stored[e.Term]; ok && prev >= heat {
			continue
		}
		stored[e.Term] = heat
		records = append(records, store.Record{Term: e.Term, Heat: heat})
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := st.UpsertMany(ctx, records); err != nil {
		return 0, fmt.Errorf("seed store: %w", err)
	}
	return len(records), nil
}
