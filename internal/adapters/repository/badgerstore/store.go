// Package badgerstore keeps the game log in an embedded badger database.
//
// Keys are entity prefixed: event/<zero padded seq> and roster/<number>.
// Values are msgpack encoded domain models.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/domain/model"
)

const (
	eventPrefix  = "event/"
	rosterPrefix = "roster/"
	seqKey       = "meta/event_seq"
	seqBandwidth = 64
)

// Store persists the game log in badger.
type Store struct {
	mu  sync.Mutex
	db  *badger.DB
	seq *badger.Sequence
}

var _ repository.Store = (*Store)(nil)

// Option adjusts badger options before the database is opened.
type Option func(*badger.Options)

// WithInMemory keeps everything in memory; nothing is written to disk.
func WithInMemory() Option {
	return func(o *badger.Options) {
		*o = o.WithInMemory(true).WithDir("").WithValueDir("")
	}
}

// Open opens (creating if needed) a badger store in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	o := badger.DefaultOptions(dir).WithLogger(nil)
	for _, opt := range opts {
		opt(&o)
	}
	db, err := badger.Open(o)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lease event sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close badger: %w", err))
	}
	s.db = nil
	return errors.Join(errs...)
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db == nil {
		return repository.ErrStoreClosed
	}
	return nil
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", eventPrefix, seq))
}

func rosterKey(number int) []byte {
	return []byte(fmt.Sprintf("%s%d", rosterPrefix, number))
}

// Append writes events in a single transaction.
func (s *Store) Append(ctx context.Context, events ...model.Event) error {
	for _, e := range events {
		if err := repository.Validate(e); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}

	type row struct {
		key []byte
		val []byte
	}
	rows := make([]row, 0, len(events))
	for _, e := range events {
		n, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("next event sequence: %w", err)
		}
		// badger sequences start at zero; Seq zero means unassigned.
		e.Seq = n + 1
		buf, err := msgpack.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		rows = append(rows, row{key: eventKey(e.Seq), val: buf})
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, r := range rows {
			if err := txn.Set(r.key, r.val); err != nil {
				return err
			}
		}
		return nil
	})
}

// All returns every event in sequence order.
func (s *Store) All(ctx context.Context) ([]model.Event, error) {
	return s.listEvents(ctx, nil)
}

// PlayerEvents returns the check-in/check-out events of player.
func (s *Store) PlayerEvents(ctx context.Context, player int) ([]model.Event, error) {
	return s.listEvents(ctx, func(e model.Event) bool {
		return e.Kind.IsPresence() && e.Player == player
	})
}

// ClockEvents returns the start/stop events.
func (s *Store) ClockEvents(ctx context.Context) ([]model.Event, error) {
	return s.listEvents(ctx, func(e model.Event) bool { return e.Kind.IsClock() })
}

func (s *Store) listEvents(ctx context.Context, filterFunc func(model.Event) bool) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var eventList []model.Event
	prefix := []byte(eventPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e model.Event
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			if filterFunc != nil && !filterFunc(e) {
				continue
			}
			eventList = append(eventList, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get events list: %w", err)
	}
	return eventList, nil
}

// Reset deletes every event. The sequence keeps counting.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.deletePrefix([]byte(eventPrefix))
}

// IsEmpty reports whether no event key exists.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	empty := true
	prefix := []byte(eventPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		it.Seek(prefix)
		empty = !it.ValidForPrefix(prefix)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("probe events: %w", err)
	}
	return empty, nil
}

// SaveRoster inserts entries; any existing number aborts the transaction.
func (s *Store) SaveRoster(ctx context.Context, entries []model.RosterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			key := rosterKey(e.Number)
			_, err := txn.Get(key)
			switch {
			case err == nil:
				return repository.DuplicateNumber(e.Number)
			case !errors.Is(err, badger.ErrKeyNotFound):
				return fmt.Errorf("lookup roster entry %d: %w", e.Number, err)
			}
			buf, err := msgpack.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal roster entry: %w", err)
			}
			if err := txn.Set(key, buf); err != nil {
				return err
			}
		}
		return nil
	})
}

// Roster returns every roster entry keyed by number.
func (s *Store) Roster(ctx context.Context) (map[int]model.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	out := make(map[int]model.RosterEntry)
	prefix := []byte(rosterPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e model.RosterEntry
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			out[e.Number] = e
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	return out, nil
}

// ResetRoster deletes every roster entry.
func (s *Store) ResetRoster(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.deletePrefix([]byte(rosterPrefix))
}

func (s *Store) deletePrefix(prefix []byte) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("collect %s keys: %w", prefix, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush deletes: %w", err)
	}
	return nil
}
