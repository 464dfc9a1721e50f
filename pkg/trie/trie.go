// Package trie is the prefix index behind heatserve: every stored term ends
// at a terminal node carrying the term's heat.
//
// A Trie is not safe for concurrent use. Callers that share one across
// goroutines wrap it the way suggest.Service does, with one RWMutex around
// the whole structure.
package trie

import (
	"iter"

	"github.com/bastiangx/heatserve/pkg/rank"
)

// Entry is a stored term and its heat.
type Entry = rank.Candidate

// Option configures a Trie.
type Option func(*Trie)

// WithAlphabet selects the alphabet and, with it, the child container.
func WithAlphabet(a Alphabet) Option {
	return func(t *Trie) {
		t.alphabet = a
	}
}

// Trie indexes normalized terms by their runes.
type Trie struct {
	root     *node
	alphabet Alphabet
	size     int
}

// New creates an empty trie. The default alphabet is AlphabetOpen.
func New(opts ...Option) *Trie {
	t := &Trie{alphabet: AlphabetOpen}
	for _, opt := range opts {
		opt(t)
	}
	t.root = newNode(t.alphabet)
	return t
}

// Alphabet returns the alphabet the trie was built with.
func (t *Trie) Alphabet() Alphabet { return t.alphabet }

// Len returns the number of stored terms.
func (t *Trie) Len() int { return t.size }

// Validate checks term against the trie's alphabet without touching the trie.
func (t *Trie) Validate(term string) error {
	if term == "" {
		return ErrEmptyInput
	}
	return t.validateRunes(term)
}

func (t *Trie) validateRunes(s string) error {
	for i, r := range s {
		if !t.alphabet.accepts(r) {
			return &MalformedCharacterError{Term: s, Rune: r, Offset: i, Alphabet: t.alphabet}
		}
	}
	return nil
}

// Insert adds term or, when it is already stored, increments its heat.
// It returns the heat after the insert. The term is validated before any
// node is created, so a rejected term leaves the trie unchanged.
func (t *Trie) Insert(term string) (int, error) {
	if err := t.Validate(term); err != nil {
		return 0, err
	}
	n := t.walkCreate(term)
	if !n.terminal {
		n.terminal = true
		t.size++
	}
	n.heat++
	return n.heat, nil
}

// Set stores term with exactly the given heat, creating it when missing.
// Heats below 1 are raised to 1 so every stored term keeps heat >= 1.
func (t *Trie) Set(term string, heat int) error {
	if err := t.Validate(term); err != nil {
		return err
	}
	if heat < 1 {
		heat = 1
	}
	n := t.walkCreate(term)
	if !n.terminal {
		n.terminal = true
		t.size++
	}
	n.heat = heat
	return nil
}

func (t *Trie) walkCreate(term string) *node {
	n := t.root
	for _, r := range term {
		child := n.children.get(r)
		if child == nil {
			child = newNode(t.alphabet)
			n.children.put(r, child)
		}
		n = child
	}
	return n
}

// find follows s from the root and returns nil when any rune is missing.
func (t *Trie) find(s string) *node {
	n := t.root
	for _, r := range s {
		n = n.children.get(r)
		if n == nil {
			return nil
		}
	}
	return n
}

// Lookup returns the heat of term if it is stored. It never mutates the trie.
func (t *Trie) Lookup(term string) (int, bool) {
	if term == "" {
		return 0, false
	}
	n := t.find(term)
	if n == nil || !n.terminal {
		return 0, false
	}
	return n.heat, true
}

// Bump increments the heat of a stored term. Unknown terms are not created.
func (t *Trie) Bump(term string) (int, bool) {
	if term == "" {
		return 0, false
	}
	n := t.find(term)
	if n == nil || !n.terminal {
		return 0, false
	}
	n.heat++
	return n.heat, true
}

type frame struct {
	n    *node
	term string
}

// CollectWithPrefix yields every stored term starting with prefix together
// with its heat. The empty prefix yields the whole trie. Order is
// unspecified. Each range over the returned sequence walks the trie afresh
// with an explicit stack, so long terms never deepen the call stack.
// A prefix with runes outside the alphabet simply yields nothing.
func (t *Trie) CollectWithPrefix(prefix string) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		start := t.find(prefix)
		if start == nil {
			return
		}
		stack := []frame{{n: start, term: prefix}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if f.n.terminal && !yield(f.term, f.n.heat) {
				return
			}
			f.n.children.each(func(r rune, child *node) {
				stack = append(stack, frame{n: child, term: f.term + string(r)})
			})
		}
	}
}

// TopKWithPrefix returns at most k terms starting with prefix, ordered by
// heat descending and then by term. A prefix matching nothing is an empty
// result, not an error; a prefix outside the alphabet is rejected.
func (t *Trie) TopKWithPrefix(prefix string, k int) ([]Entry, error) {
	if err := t.validateRunes(prefix); err != nil {
		return nil, err
	}
	return rank.TopK(t.CollectWithPrefix(prefix), k), nil
}

// All returns every stored term ordered by heat descending and then by term.
func (t *Trie) All() []Entry {
	out := make([]Entry, 0, t.size)
	for term, heat := range t.CollectWithPrefix("") {
		out = append(out, Entry{Term: term, Heat: heat})
	}
	rank.Sort(out)
	return out
}
