// Package memstore provides an in-memory implementation of the availability inputs and the
// override persistence, with the same version semantics as the PostgreSQL store and
// switchable failures. It is meant for tests.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

const statusCancelled = "cancelled"

// Operation names used for failure injection and call counting.
const (
	OpListSessions    = "list_sessions"
	OpSumActivePax    = "sum_active_pax"
	OpQueryOverrides  = "query_overrides"
	OpUpsertOverrides = "upsert_overrides"
)

// Booking is one booking row. An empty Status counts as active.
type Booking struct {
	Date      availability.Date
	SessionID availability.SessionID
	Pax       int
	Status    string
}

// Store is safe for concurrent use.
type Store struct {
	mu             sync.Mutex
	sessions       []availability.Session
	bookings       []Booking
	overrides      map[availability.SlotKey]availability.CalendarOverride
	versionChecked bool
	failures       map[string]error
	delays         map[string]time.Duration
	calls          map[string]int
	beforeUpsert   func()
}

// New creates a store with both sessions at the given base capacities.
func New(morningCapacity, eveningCapacity int) *Store {
	return &Store{
		sessions: []availability.Session{
			{ID: availability.MorningSession, BaseCapacity: morningCapacity},
			{ID: availability.EveningSession, BaseCapacity: eveningCapacity},
		},
		overrides: make(map[availability.SlotKey]availability.CalendarOverride),
		failures:  make(map[string]error),
		delays:    make(map[string]time.Duration),
		calls:     make(map[string]int),
	}
}

// WithVersionCheck switches UpsertOverrides to optimistic version checks.
func (s *Store) WithVersionCheck() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versionChecked = true

	return s
}

// SetSessions replaces the session catalog.
func (s *Store) SetSessions(sessions ...availability.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = sessions
}

// AddBooking adds a booking row.
func (s *Store) AddBooking(b Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings = append(s.bookings, b)
}

// PutOverride stores an override as is, bumping its version like a write would.
func (s *Store) PutOverride(o availability.CalendarOverride) availability.CalendarOverride {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.Version = s.overrides[o.Key()].Version + 1
	s.overrides[o.Key()] = o

	return o
}

// Override returns the persisted override of the cell.
func (s *Store) Override(date availability.Date, sessionID availability.SessionID) (availability.CalendarOverride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.overrides[availability.SlotKey{Date: date, SessionID: sessionID}]

	return o, ok
}

// FailOn makes every call of the operation return err until it is cleared with a nil err.
func (s *Store) FailOn(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, operation)
		return
	}

	s.failures[operation] = err
}

// DelayOn makes the operation wait for d or until its context is done.
func (s *Store) DelayOn(operation string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delays[operation] = d
}

// BeforeUpsert registers a hook that runs right before an upsert is applied,
// used to simulate a concurrent writer.
func (s *Store) BeforeUpsert(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beforeUpsert = hook
}

// Calls returns how often the operation was invoked.
func (s *Store) Calls(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[operation]
}

func (s *Store) ListSessions(ctx context.Context) ([]availability.Session, error) {
	if err := s.enter(ctx, OpListSessions); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]availability.Session(nil), s.sessions...), nil
}

func (s *Store) SumActivePax(ctx context.Context, dateRange availability.DateRange) (availability.Occupancy, error) {
	if err := s.enter(ctx, OpSumActivePax); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	occupancy := availability.Occupancy{}
	for _, b := range s.bookings {
		if b.Status == statusCancelled || !dateRange.Contains(b.Date) {
			continue
		}

		occupancy.Add(b.Date, b.SessionID, b.Pax)
	}

	return occupancy, nil
}

func (s *Store) QueryOverrides(ctx context.Context, dateRange availability.DateRange) ([]availability.CalendarOverride, error) {
	if err := s.enter(ctx, OpQueryOverrides); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	overrides := make([]availability.CalendarOverride, 0)
	for _, o := range s.overrides {
		if dateRange.Contains(o.Date) {
			overrides = append(overrides, o)
		}
	}

	availability.SortOverrides(overrides)

	return overrides, nil
}

// UpsertOverrides applies all rows or none.
func (s *Store) UpsertOverrides(ctx context.Context, rows []availability.CalendarOverride) error {
	if err := s.enter(ctx, OpUpsertOverrides); err != nil {
		return err
	}

	s.mu.Lock()
	hook := s.beforeUpsert
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return availability.ValidationError(err)
		}

		if s.versionChecked && s.overrides[row.Key()].Version != row.Version {
			return availability.ErrConcurrencyConflict
		}
	}

	for _, row := range rows {
		row.Version = s.overrides[row.Key()].Version + 1
		if !row.IsClosed {
			row.ClosureReason = ""
		}

		s.overrides[row.Key()] = row
	}

	return nil
}

func (s *Store) enter(ctx context.Context, operation string) error {
	s.mu.Lock()
	s.calls[operation]++
	failure := s.failures[operation]
	delay := s.delays[operation]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if failure != nil {
		return failure
	}

	if err := ctx.Err(); err != nil {
		return errors.Join(availability.ErrQueryingFailed, err)
	}

	return nil
}
