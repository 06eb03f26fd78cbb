// Package app provides the tracker service: the operations an operator runs
// against the game log.
//
// Every operation validates first and appends second; a rejected request
// never leaves a partial write behind. Every query rebuilds the ledger from
// the full log.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/domain/ledger"
	"github.com/okian/courttime/internal/domain/model"
	"github.com/okian/courttime/pkg/logger"
	"github.com/okian/courttime/pkg/metrics"
)

// Operation names used in logs and metrics.
const (
	opSetStarters = "set_starters"
	opStartClock  = "start_clock"
	opStopClock   = "stop_clock"
	opSubstitute  = "substitute"
	opRecompute   = "recompute"
	opReset       = "reset"
	opRoster      = "roster"
	opHistory     = "history"
)

// Service tracks one game on top of an event store.
type Service struct {
	events  repository.EventStore
	roster  repository.RosterStore
	now     func() time.Time
	logger  logger.Logger
	metrics *metrics.Manager
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now as the source of event timestamps and "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records into m instead of the global manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRoster enables the roster operations.
func WithRoster(r repository.RosterStore) Option {
	return func(s *Service) {
		s.roster = r
	}
}

// New constructs a Service over events.
func New(events repository.EventStore, opts ...Option) *Service {
	s := &Service{
		events:  events,
		now:     time.Now,
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("tracker")
	}
	return s
}

// ValidateLineup enforces the lineup rule of the command line: exactly size
// distinct, non-negative player numbers.
func ValidateLineup(players []int, size int) error {
	if len(players) != size {
		return fmt.Errorf("%w: want %d players, got %d", ErrInvalidLineup, size, len(players))
	}
	return checkPlayers(players)
}

func checkPlayers(players []int) error {
	if len(players) == 0 {
		return fmt.Errorf("%w: no players given", ErrInvalidLineup)
	}
	seen := make(map[int]bool, len(players))
	for _, p := range players {
		if p < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidPlayer, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: player %d listed twice", ErrInvalidLineup, p)
		}
		seen[p] = true
	}
	return nil
}

// SetStarters checks in the starting lineup with one shared timestamp.
// The log must be empty. The clock is not started.
func (s *Service) SetStarters(ctx context.Context, players []int) error {
	if err := checkPlayers(players); err != nil {
		return s.fail(ctx, opSetStarters, err)
	}

	empty, err := s.isEmpty(ctx)
	if err != nil {
		return s.fail(ctx, opSetStarters, err)
	}
	if !empty {
		return s.fail(ctx, opSetStarters, ErrAlreadyStarted)
	}

	at := s.now()
	events := make([]model.Event, 0, len(players))
	for _, p := range players {
		events = append(events, model.NewEvent(model.CheckIn, p, at))
	}
	if err := s.append(ctx, events...); err != nil {
		return s.fail(ctx, opSetStarters, err)
	}
	s.logger.Info(ctx, "starters checked in", logger.Any("players", players))
	return nil
}

// StartClock starts or resumes the game clock.
func (s *Service) StartClock(ctx context.Context) (ledger.State, error) {
	return s.toggleClock(ctx, opStartClock, model.Start, ErrAlreadyRunning)
}

// StopClock stops or pauses the game clock.
func (s *Service) StopClock(ctx context.Context) (ledger.State, error) {
	return s.toggleClock(ctx, opStopClock, model.Stop, ErrAlreadyStopped)
}

func (s *Service) toggleClock(ctx context.Context, op string, kind model.Kind, repeated error) (ledger.State, error) {
	clock, err := s.timed(ctx, "clock_events", s.events.ClockEvents)
	if err != nil {
		return ledger.State{}, s.fail(ctx, op, err)
	}
	// A clock that never started counts as stopped.
	current := model.Stop
	if len(clock) > 0 {
		latest := clock[0]
		for _, e := range clock[1:] {
			if latest.Before(e) {
				latest = e
			}
		}
		current = latest.Kind
	}
	if current == kind {
		return ledger.State{}, s.fail(ctx, op, repeated)
	}

	if err := s.append(ctx, model.NewEvent(kind, model.NoPlayer, s.now())); err != nil {
		return ledger.State{}, s.fail(ctx, op, err)
	}
	s.logger.Info(ctx, "clock "+string(kind))
	return s.Recompute(ctx)
}

// Substitute replaces out with in. Both events share one timestamp and are
// written together only after both checks pass.
func (s *Service) Substitute(ctx context.Context, out, in int) (ledger.State, error) {
	if out < 0 {
		return ledger.State{}, s.fail(ctx, opSubstitute, fmt.Errorf("%w: %d", ErrInvalidPlayer, out))
	}
	if in < 0 {
		return ledger.State{}, s.fail(ctx, opSubstitute, fmt.Errorf("%w: %d", ErrInvalidPlayer, in))
	}

	st, err := s.recompute(ctx)
	if err != nil {
		return ledger.State{}, s.fail(ctx, opSubstitute, err)
	}
	if !st.IsOnCourt(out) {
		return ledger.State{}, s.fail(ctx, opSubstitute, fmt.Errorf("%w: %d", ErrNotOnCourt, out))
	}
	if st.IsOnCourt(in) {
		return ledger.State{}, s.fail(ctx, opSubstitute, fmt.Errorf("%w: %d", ErrAlreadyOnCourt, in))
	}

	at := s.now()
	if err := s.append(ctx,
		model.NewEvent(model.CheckOut, out, at),
		model.NewEvent(model.CheckIn, in, at),
	); err != nil {
		return ledger.State{}, s.fail(ctx, opSubstitute, err)
	}
	s.logger.Info(ctx, "substitution", logger.Int("out", out), logger.Int("in", in))
	return s.Recompute(ctx)
}

// Recompute rebuilds the ledger from the full log as of now.
func (s *Service) Recompute(ctx context.Context) (ledger.State, error) {
	st, err := s.recompute(ctx)
	if err != nil {
		return ledger.State{}, s.fail(ctx, opRecompute, err)
	}
	return st, nil
}

func (s *Service) recompute(ctx context.Context) (ledger.State, error) {
	events, err := s.timed(ctx, "all", s.events.All)
	if err != nil {
		return ledger.State{}, err
	}

	start := time.Now()
	st, err := ledger.Compute(events, s.now())
	s.metrics.RecordRecomputeLatency(millis(time.Since(start)))
	if err != nil {
		return ledger.State{}, err
	}

	switch st.Status {
	case ledger.NotCreated:
		s.logger.Warn(ctx, "game is not created yet")
	case ledger.NotStarted:
		s.logger.Warn(ctx, "game is not started yet")
	}
	s.metrics.UpdateCourtState(len(st.OnCourt), len(st.OffCourt), st.Running)
	s.logger.Debug(ctx, "ledger recomputed",
		logger.Int("events", len(events)),
		logger.String("status", st.Status.String()),
		logger.Int("on_court", len(st.OnCourt)),
		logger.Int("off_court", len(st.OffCourt)),
	)
	return st, nil
}

// Reset deletes every event. The roster is left alone.
func (s *Service) Reset(ctx context.Context) error {
	start := time.Now()
	err := s.events.Reset(ctx)
	s.metrics.RecordStoreLatency("reset", millis(time.Since(start)))
	if err != nil {
		return s.fail(ctx, opReset, err)
	}
	s.logger.Info(ctx, "game log cleared")
	return nil
}

// History returns the check-in/check-out events of player in order.
func (s *Service) History(ctx context.Context, player int) ([]model.Event, error) {
	events, err := s.timed(ctx, "player_events", func(ctx context.Context) ([]model.Event, error) {
		return s.events.PlayerEvents(ctx, player)
	})
	if err != nil {
		return nil, s.fail(ctx, opHistory, err)
	}
	return ledger.Sorted(events), nil
}

// LoadRoster stores entries in the roster.
func (s *Service) LoadRoster(ctx context.Context, entries []model.RosterEntry) error {
	if s.roster == nil {
		return s.fail(ctx, opRoster, ErrNoRoster)
	}
	if err := s.roster.SaveRoster(ctx, entries); err != nil {
		return s.fail(ctx, opRoster, err)
	}
	s.logger.Info(ctx, "roster loaded", logger.Int("entries", len(entries)))
	return nil
}

// Roster returns the stored roster, or an empty one when none is configured.
func (s *Service) Roster(ctx context.Context) (map[int]model.RosterEntry, error) {
	if s.roster == nil {
		return map[int]model.RosterEntry{}, nil
	}
	r, err := s.roster.Roster(ctx)
	if err != nil {
		return nil, s.fail(ctx, opRoster, err)
	}
	return r, nil
}

// ResetRoster deletes every roster entry.
func (s *Service) ResetRoster(ctx context.Context) error {
	if s.roster == nil {
		return s.fail(ctx, opRoster, ErrNoRoster)
	}
	if err := s.roster.ResetRoster(ctx); err != nil {
		return s.fail(ctx, opRoster, err)
	}
	return nil
}

func (s *Service) isEmpty(ctx context.Context) (bool, error) {
	start := time.Now()
	empty, err := s.events.IsEmpty(ctx)
	s.metrics.RecordStoreLatency("is_empty", millis(time.Since(start)))
	return empty, err
}

func (s *Service) append(ctx context.Context, events ...model.Event) error {
	start := time.Now()
	err := s.events.Append(ctx, events...)
	s.metrics.RecordStoreLatency("append", millis(time.Since(start)))
	if err != nil {
		return err
	}
	for _, e := range events {
		s.metrics.RecordEventAppended(string(e.Kind))
		s.logger.Debug(ctx, "event appended",
			logger.String("kind", string(e.Kind)),
			logger.Int("player", e.Player),
			logger.Time("at", e.Time),
		)
	}
	return nil
}

func (s *Service) timed(ctx context.Context, op string, read func(context.Context) ([]model.Event, error)) ([]model.Event, error) {
	start := time.Now()
	events, err := read(ctx)
	s.metrics.RecordStoreLatency(op, millis(time.Since(start)))
	return events, err
}

// fail records a rejected operation and returns err unchanged.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	s.metrics.RecordOperationError(op, reason(err))
	s.logger.Warn(ctx, "operation rejected", logger.String("operation", op), logger.Error(err))
	return err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
