package repository

import (
	"context"
	"sync"

	"github.com/okian/courttime/internal/domain/model"
)

// MemoryStore keeps the log and roster in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	seq    uint64
	events []model.Event
	roster map[int]model.RosterEntry
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{roster: make(map[int]model.RosterEntry)}
}

func (s *MemoryStore) Append(ctx context.Context, events ...model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range events {
		if err := Validate(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	for _, e := range events {
		s.seq++
		e.Seq = s.seq
		s.events = append(s.events, e)
	}
	return nil
}

func (s *MemoryStore) All(ctx context.Context) ([]model.Event, error) {
	return s.filter(ctx, func(model.Event) bool { return true })
}

func (s *MemoryStore) PlayerEvents(ctx context.Context, player int) ([]model.Event, error) {
	return s.filter(ctx, func(e model.Event) bool {
		return e.Kind.IsPresence() && e.Player == player
	})
}

func (s *MemoryStore) ClockEvents(ctx context.Context) ([]model.Event, error) {
	return s.filter(ctx, func(e model.Event) bool { return e.Kind.IsClock() })
}

func (s *MemoryStore) filter(ctx context.Context, keep func(model.Event) bool) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.events = nil
	return nil
}

func (s *MemoryStore) IsEmpty(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrStoreClosed
	}
	return len(s.events) == 0, nil
}

func (s *MemoryStore) SaveRoster(ctx context.Context, entries []model.RosterEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	batch := make(map[int]bool, len(entries))
	for _, e := range entries {
		if _, ok := s.roster[e.Number]; ok || batch[e.Number] {
			return DuplicateNumber(e.Number)
		}
		batch[e.Number] = true
	}
	for _, e := range entries {
		s.roster[e.Number] = e
	}
	return nil
}

func (s *MemoryStore) Roster(ctx context.Context) (map[int]model.RosterEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make(map[int]model.RosterEntry, len(s.roster))
	for k, v := range s.roster {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) ResetRoster(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.roster = make(map[int]model.RosterEntry)
	return nil
}

// Close releases the store. Further calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.events = nil
	return nil
}
