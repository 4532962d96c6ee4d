package cache

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// stale days expire on their own even if Prune is never called
const badgerTTL = 48 * time.Hour

// BadgerStore keeps entries in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens a badger database at `dir`, an empty dir opens an in-memory database.
func OpenBadgerStore(dir string) (BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return BadgerStore{}, err
	}
	return NewBadgerStore(db), nil
}

func NewBadgerStore(db *badger.DB) BadgerStore {
	return BadgerStore{db: db}
}

func (s BadgerStore) Get(ctx context.Context, key Key) ([]byte, error) {
	_, span := tracer.Start(ctx, "badger:get")
	defer span.End()

	span.SetAttributes(attribute.String("custom.cache_key", key.String()))

	tx := s.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(key.String()))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return nil, err
	}
	payload, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return nil, err
	}
	return payload, nil
}

func (s BadgerStore) Put(ctx context.Context, key Key, payload []byte) error {
	_, span := tracer.Start(ctx, "badger:put")
	defer span.End()

	span.SetAttributes(attribute.String("custom.cache_key", key.String()))

	err := s.db.Update(func(tx *badger.Txn) error {
		entry := badger.NewEntry([]byte(key.String()), payload).WithTTL(badgerTTL)
		return tx.SetEntry(entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}

func (s BadgerStore) Prune(ctx context.Context, today string) (int, error) {
	_, span := tracer.Start(ctx, "badger:prune")
	defer span.End()

	stale := [][]byte{}
	todayPrefix := []byte(today + ":")
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.HasPrefix(key, todayPrefix) {
				continue
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list badger keys")
		return 0, err
	}

	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range stale {
		err = batch.Delete(key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete badger item")
			return 0, err
		}
	}
	err = batch.Flush()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to flush deletes")
		return 0, err
	}

	span.SetAttributes(attribute.Int("custom.removed", len(stale)))
	return len(stale), nil
}

func (s BadgerStore) Stats(ctx context.Context) ([]DayStats, error) {
	_, span := tracer.Start(ctx, "badger:stats")
	defer span.End()

	byDay := map[string]*DayStats{}
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) < 9 || key[8] != ':' {
				continue
			}
			day := string(key[:8])
			stats, ok := byDay[day]
			if !ok {
				stats = &DayStats{Day: day}
				byDay[day] = stats
			}
			stats.Entries++
			stats.Bytes += item.ValueSize()
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to iterate badger keys")
		return nil, err
	}
	return sortedStats(byDay), nil
}

func (s BadgerStore) Close() error {
	return s.db.Close()
}
