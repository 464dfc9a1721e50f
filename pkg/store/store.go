// Package store is the durable side of heatserve. The index rebuilds itself
// from LoadAll at start and pushes changed heats back through a Batcher, so
// no store call ever happens while the index lock is held.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Record is the durable form of a term.
type Record struct {
	Term      string    `msgpack:"t"`
	Heat      int       `msgpack:"h"`
	UpdatedAt time.Time `msgpack:"u"`
}

// Store is what the index needs from persistence: the full record set at
// start and heat upserts afterwards.
type Store interface {
	LoadAll(ctx context.Context) ([]Record, error)
	UpsertHeat(ctx context.Context, term string, heat int) error
	UpsertMany(ctx context.Context, records []Record) error
	Close() error
}

// Kind names a Store implementation in config.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
)

// Open builds the store selected by kind. path is only used by file stores.
func Open(kind, path string) (Store, error) {
	switch Kind(strings.ToLower(kind)) {
	case KindMemory, "":
		return NewMemoryStore(), nil
	case KindFile:
		if path == "" {
			return nil, fmt.Errorf("file store needs a path")
		}
		return OpenFileStore(path)
	}
	return nil, fmt.Errorf("unknown store kind %q", kind)
}
