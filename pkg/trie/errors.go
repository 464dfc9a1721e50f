package trie

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a term is empty after normalization.
	ErrEmptyInput = errors.New("empty input")

	// ErrMalformedCharacter matches every *MalformedCharacterError.
	ErrMalformedCharacter = errors.New("malformed character")
)

// MalformedCharacterError reports a rune the trie's alphabet cannot store.
type MalformedCharacterError struct {
	Term     string
	Rune     rune
	Offset   int
	Alphabet Alphabet
}

func (e *MalformedCharacterError) Error() string {
	return fmt.Sprintf("malformed character %q at byte %d of %q (alphabet %s)", e.Rune, e.Offset, e.Term, e.Alphabet)
}

func (e *MalformedCharacterError) Is(target error) bool {
	return target == ErrMalformedCharacter
}
