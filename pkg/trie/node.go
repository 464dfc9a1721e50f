package trie

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Alphabet selects the child container used by every node of a trie.
type Alphabet int

const (
	// AlphabetOpen accepts any valid rune and stores children in a map.
	AlphabetOpen Alphabet = iota
	// AlphabetLower accepts only 'a'-'z' and stores children in a fixed array.
	AlphabetLower
)

const lowerSlots = 'z' - 'a' + 1

func (a Alphabet) String() string {
	switch a {
	case AlphabetOpen:
		return "open"
	case AlphabetLower:
		return "lower"
	}
	return fmt.Sprintf("Alphabet(%d)", int(a))
}

// ParseAlphabet maps a config value to an Alphabet.
func ParseAlphabet(s string) (Alphabet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return AlphabetOpen, nil
	case "lower":
		return AlphabetLower, nil
	}
	return AlphabetOpen, fmt.Errorf("unknown alphabet %q (want \"open\" or \"lower\")", s)
}

func (a Alphabet) accepts(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	if a == AlphabetLower {
		return r >= 'a' && r <= 'z'
	}
	return true
}

func (a Alphabet) newChildren() childSet {
	if a == AlphabetLower {
		return &arrayChildren{}
	}
	return &mapChildren{}
}

// childSet is the uniform child lookup contract every node uses.
type childSet interface {
	get(r rune) *node
	put(r rune, n *node)
	each(fn func(r rune, n *node))
	len() int
}

type node struct {
	children childSet
	terminal bool
	heat     int
}

func newNode(a Alphabet) *node {
	return &node{children: a.newChildren()}
}

type arrayChildren struct {
	slots [lowerSlots]*node
	n     int
}

func (c *arrayChildren) get(r rune) *node {
	i := r - 'a'
	if i < 0 || i >= lowerSlots {
		return nil
	}
	return c.slots[i]
}

// put expects r to be validated against AlphabetLower.
func (c *arrayChildren) put(r rune, n *node) {
	i := r - 'a'
	if c.slots[i] == nil {
		c.n++
	}
	c.slots[i] = n
}

func (c *arrayChildren) each(fn func(r rune, n *node)) {
	if c.n == 0 {
		return
	}
	for i, child := range c.slots {
		if child != nil {
			fn('a'+rune(i), child)
		}
	}
}

func (c *arrayChildren) len() int { return c.n }

type mapChildren struct {
	m map[rune]*node
}

func (c *mapChildren) get(r rune) *node {
	return c.m[r]
}

func (c *mapChildren) put(r rune, n *node) {
	if c.m == nil {
		c.m = make(map[rune]*node, 1)
	}
	c.m[r] = n
}

func (c *mapChildren) each(fn func(r rune, n *node)) {
	for r, child := range c.m {
		fn(r, child)
	}
}

func (c *mapChildren) len() int { return len(c.m) }
