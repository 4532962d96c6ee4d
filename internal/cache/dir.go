package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DirStore keeps one json file per key under a root directory.
type DirStore struct {
	root string
}

func NewDirStore(root string) (DirStore, error) {
	if root == "" {
		return DirStore{}, fmt.Errorf("cache directory is not set")
	}
	err := os.MkdirAll(root, 0777)
	if err != nil {
		return DirStore{}, err
	}
	return DirStore{root: root}, nil
}

// filename is <yyyymmdd>-<participant>-<xxhash(endpoint)>.json
func (s DirStore) filename(key Key) string {
	return fmt.Sprintf(
		"%s-%s-%016x.json",
		key.Day,
		safeParticipant(key.Participant),
		xxhash.Sum64String(key.Endpoint),
	)
}

func (s DirStore) path(key Key) string {
	return filepath.Join(s.root, s.filename(key))
}

func (s DirStore) Get(ctx context.Context, key Key) ([]byte, error) {
	_, span := tracer.Start(ctx, "dir:get")
	defer span.End()

	path := s.path(key)
	span.SetAttributes(attribute.String("custom.cache_file", path))

	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache file")
		return nil, err
	}
	return payload, nil
}

func (s DirStore) Put(ctx context.Context, key Key, payload []byte) error {
	_, span := tracer.Start(ctx, "dir:put")
	defer span.End()

	path := s.path(key)
	span.SetAttributes(attribute.String("custom.cache_file", path))

	// write then rename so an interrupted run never leaves a truncated entry behind
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temporary file")
		return err
	}
	_, err = tmp.Write(payload)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write temporary file")
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		os.Remove(tmp.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to move cache file")
		return err
	}
	return nil
}

// dayOf returns the day prefix of a cache file name, false if the file
// is not a cache entry.
func dayOf(name string) (string, bool) {
	if !strings.HasSuffix(name, ".json") || len(name) < 9 || name[8] != '-' {
		return "", false
	}
	day := name[:8]
	for _, r := range day {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return day, true
}

func (s DirStore) Prune(ctx context.Context, today string) (int, error) {
	_, span := tracer.Start(ctx, "dir:prune")
	defer span.End()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list cache directory")
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		day, ok := dayOf(entry.Name())
		if !ok || day == today {
			continue
		}
		err := os.Remove(filepath.Join(s.root, entry.Name()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to remove cache file")
			return removed, err
		}
		removed++
	}
	span.SetAttributes(attribute.Int("custom.removed", removed))
	return removed, nil
}

func (s DirStore) Stats(ctx context.Context) ([]DayStats, error) {
	_, span := tracer.Start(ctx, "dir:stats")
	defer span.End()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list cache directory")
		return nil, err
	}

	byDay := map[string]*DayStats{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := dayOf(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		stats, ok := byDay[day]
		if !ok {
			stats = &DayStats{Day: day}
			byDay[day] = stats
		}
		stats.Entries++
		stats.Bytes += info.Size()
	}
	return sortedStats(byDay), nil
}

func (s DirStore) Close() error {
	return nil
}
