// Package rank selects the top-K candidates of a prefix query by heat.
package rank

import (
	"container/heap"
	"iter"
	"slices"
)

// Candidate is a term and its heat as produced by a trie traversal.
type Candidate struct {
	Term string `json:"term" msgpack:"term"`
	Heat int    `json:"heat" msgpack:"heat"`
}

// Less reports whether a ranks before b: higher heat first, then term ascending.
func Less(a, b Candidate) bool {
	if a.Heat != b.Heat {
		return a.Heat > b.Heat
	}
	return a.Term < b.Term
}

// Compare is Less in the three-way form used by slices.SortFunc.
func Compare(a, b Candidate) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	}
	return 0
}

// worstFirst keeps the lowest ranked candidate at the root so it can be
// replaced when a better one shows up.
type worstFirst []Candidate

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Less(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(Candidate))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// TopK returns the min(k, n) best candidates ordered by Less.
// It keeps a bounded heap of size k, so it runs in O(n log k).
func TopK(candidates iter.Seq2[string, int], k int) []Candidate {
	if k <= 0 {
		return []Candidate{}
	}

	h := make(worstFirst, 0, min(k, 64))
	for term, heat := range candidates {
		c := Candidate{Term: term, Heat: heat}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if Less(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]Candidate, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Candidate)
	}
	return out
}

// Seq adapts a slice of candidates to the sequence form TopK consumes.
func Seq(cs []Candidate) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, c := range cs {
			if !yield(c.Term, c.Heat) {
				return
			}
		}
	}
}

// Sort orders cs in place by Less.
func Sort(cs []Candidate) {
	slices.SortFunc(cs, Compare)
}
