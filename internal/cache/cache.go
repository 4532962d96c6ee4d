// Package cache keeps the raw payloads fetched from the open banking APIs for the
// rest of the calendar day they were fetched in.
//
// Entries are never updated, a new day produces a new key so yesterday's
// payloads are simply not found anymore. Prune reclaims their space.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("openbankingbr.internal.cache")

var ErrNotFound = errors.New("cache entry not found")

const (
	BackendDir    = "dir"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// DayStats is the amount of entries kept for a calendar day.
type DayStats struct {
	Day     string
	Entries int
	Bytes   int64
}

// Store is implemented by every cache backend.
type Store interface {
	// Get returns ErrNotFound when there is no entry for `key`.
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, payload []byte) error
	// Prune removes every entry that does not belong to `today`, returning how many were removed.
	Prune(ctx context.Context, today string) (int, error)
	// Stats returns the entries per day, sorted by day.
	Stats(ctx context.Context) ([]DayStats, error)
	Close() error
}

// Open creates the store of the given backend, `dir` is the root of the
// dir and badger backends.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendDir, "":
		return NewDirStore(dir)
	case BackendBadger:
		return OpenBadgerStore(dir)
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func sortedStats(byDay map[string]*DayStats) []DayStats {
	out := make([]DayStats, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day < out[j].Day
	})
	return out
}

// NopStore never keeps anything.
type NopStore struct{}

func (NopStore) Get(context.Context, Key) ([]byte, error) {
	return nil, ErrNotFound
}

func (NopStore) Put(context.Context, Key, []byte) error {
	return nil
}

func (NopStore) Prune(context.Context, string) (int, error) {
	return 0, nil
}

func (NopStore) Stats(context.Context) ([]DayStats, error) {
	return nil, nil
}

func (NopStore) Close() error {
	return nil
}
