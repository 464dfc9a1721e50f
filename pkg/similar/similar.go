// Package similar ranks terms by edit-distance similarity to a query,
// independent of heat.
package similar

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/hbollon/go-edlib"
)

const (
	DefaultThreshold = 0.3
	DefaultLimit     = 10
)

// Match is a term and its similarity to the query, in [0, 1].
type Match struct {
	Term  string
	Score float64
}

// MarshalJSON renders a match as a [term, score] pair.
func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{m.Term, m.Score})
}

type Options struct {
	Algorithm string // "levenshtein", "jaro-winkler", "lcs"
	Threshold float64
	Limit     int
}

func DefaultOptions() Options {
	return Options{Algorithm: "levenshtein", Threshold: DefaultThreshold, Limit: DefaultLimit}
}

func algorithmFor(name string) (edlib.Algorithm, error) {
	switch name {
	case "", "levenshtein":
		return edlib.Levenshtein, nil
	case "jaro-winkler":
		return edlib.JaroWinkler, nil
	case "lcs":
		return edlib.Lcs, nil
	case "damerau-levenshtein":
		return edlib.DamerauLevenshtein, nil
	default:
		return 0, fmt.Errorf("unknown similarity algorithm %q", name)
	}
}

// Search scores every term against query and keeps those strictly above the
// threshold, best first. Ties are broken by term.
func Search(query string, terms []string, opts Options) ([]Match, error) {
	algo, err := algorithmFor(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	matches := []Match{}
	if query == "" {
		return matches, nil
	}

	for _, term := range terms {
		score := 1.0
		if term != query {
			s, err := edlib.StringsSimilarity(query, term, algo)
			if err != nil {
				continue
			}
			score = float64(s)
		}
		if score > opts.Threshold {
			matches = append(matches, Match{Term: term, Score: score})
		}
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}
