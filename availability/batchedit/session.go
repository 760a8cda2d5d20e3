package batchedit

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// Mode distinguishes the absolute single-day edit from the additive bulk edit.
type Mode string

const (
	ModeSingleDay Mode = "single_day"
	ModeBulk      Mode = "bulk"
)

// Phase is the lifecycle position of an EditSession.
type Phase string

const (
	PhaseViewing   Phase = "viewing"
	PhaseEditing   Phase = "editing"
	PhaseSaved     Phase = "saved"
	PhaseCancelled Phase = "cancelled"
)

// EditSessionState is the pending edit of one session (single-day) or of the shared
// scope (bulk, SessionID is empty then).
type EditSessionState struct {
	SessionID availability.SessionID
	IsClosed  bool
	Reason    string
	Seats     SeatChange
	Occupied  int
}

// EditSession is the edit buffer between reading a grid and saving overrides.
// It moves Viewing -> Editing -> Saved or Cancelled. A failed save leaves it Editing.
//
// An EditSession is not safe for concurrent use.
type EditSession struct {
	id       uuid.UUID
	mode     Mode
	phase    Phase
	dates    []availability.Date
	scope    SessionScope
	states   map[availability.SessionID]*EditSessionState
	shared   *EditSessionState
	touched  map[availability.SessionID]bool
	observed map[availability.SlotKey]availability.OverrideVersion
}

// BeginSingleDay seeds one state per session from the resolved status of the date.
//
// A closed session is seeded with the seats it would have if reopened, so toggling
// IsClosed off without touching the seats restores the previous capacity.
func BeginSingleDay(grid availability.Grid, date availability.Date) (*EditSession, error) {
	day, ok := grid.Day(date)
	if !ok {
		return nil, availability.ValidationError(fmt.Errorf("%w: %s", ErrDateNotInGrid, date))
	}

	s := newEditSession(ModeSingleDay, []availability.Date{date}, ScopeAll)

	for _, status := range day.Sessions() {
		seats := status.Seats
		if status.Status == availability.StatusClosed {
			seats = max(0, status.Capacity-status.Occupied)
		}

		s.states[status.SessionID] = &EditSessionState{
			SessionID: status.SessionID,
			IsClosed:  status.Status == availability.StatusClosed,
			Reason:    status.Reason,
			Seats:     AbsoluteSeats(seats),
			Occupied:  status.Occupied,
		}
		s.observed[availability.SlotKey{Date: date, SessionID: status.SessionID}] = status.OverrideVersion
	}

	return s, nil
}

// BeginBulk seeds one blank shared state (open, delta 0) for all dates of the selection.
// The selection is re-validated against the grid.
func BeginBulk(grid availability.Grid, selection *BulkSelection, scope SessionScope) (*EditSession, error) {
	if err := scope.Validate(); err != nil {
		return nil, availability.ValidationError(err)
	}

	dates := selection.Dates()
	if err := ValidateSelection(dates, grid); err != nil {
		return nil, err
	}

	s := newEditSession(ModeBulk, dates, scope)
	s.shared = &EditSessionState{Seats: SeatDelta(0)}

	for _, d := range dates {
		day, _ := grid.Day(d)
		for _, id := range scope.Sessions() {
			s.observed[availability.SlotKey{Date: d, SessionID: id}] = day.Session(id).OverrideVersion
		}
	}

	return s, nil
}

func newEditSession(mode Mode, dates []availability.Date, scope SessionScope) *EditSession {
	return &EditSession{
		id:       uuid.New(),
		mode:     mode,
		phase:    PhaseEditing,
		dates:    dates,
		scope:    scope,
		states:   make(map[availability.SessionID]*EditSessionState),
		touched:  make(map[availability.SessionID]bool),
		observed: make(map[availability.SlotKey]availability.OverrideVersion),
	}
}

func (s *EditSession) ID() uuid.UUID        { return s.id }
func (s *EditSession) Mode() Mode           { return s.mode }
func (s *EditSession) Phase() Phase         { return s.phase }
func (s *EditSession) Scope() SessionScope  { return s.scope }
func (s *EditSession) IsBulk() bool         { return s.mode == ModeBulk }
func (s *EditSession) IsEditing() bool      { return s.phase == PhaseEditing }
func (s *EditSession) IsTouched() bool      { return len(s.touched) > 0 }

// Dates returns a copy of the dates the edit applies to, in ascending order.
func (s *EditSession) Dates() []availability.Date {
	return append([]availability.Date(nil), s.dates...)
}

// AffectedRange returns the smallest date range covering all edited dates.
func (s *EditSession) AffectedRange() availability.DateRange {
	r, _ := availability.RangeCovering(s.dates)
	return r
}

// ObservedVersion returns the override version the edit was seeded from (0 = no override).
func (s *EditSession) ObservedVersion(date availability.Date, id availability.SessionID) availability.OverrideVersion {
	return s.observed[availability.SlotKey{Date: date, SessionID: id}]
}

// States returns a copy of the pending states: both sessions in single-day mode,
// the shared state in bulk mode.
func (s *EditSession) States() []EditSessionState {
	if s.IsBulk() {
		if s.shared == nil {
			return nil
		}

		return []EditSessionState{*s.shared}
	}

	states := make([]EditSessionState, 0, len(s.states))
	for _, id := range availability.SessionIDs() {
		if st, ok := s.states[id]; ok {
			states = append(states, *st)
		}
	}

	return states
}

// SetClosed toggles the closed flag of the target state.
func (s *EditSession) SetClosed(sessionID availability.SessionID, closed bool) error {
	return s.mutate(sessionID, func(st *EditSessionState) error {
		st.IsClosed = closed
		return nil
	})
}

// SetReason sets the closure reason. It is only persisted while the state is closed.
func (s *EditSession) SetReason(sessionID availability.SessionID, reason string) error {
	return s.mutate(sessionID, func(st *EditSessionState) error {
		st.Reason = strings.TrimSpace(reason)
		return nil
	})
}

// SetSeats sets the pending seat change. Single-day edits only accept AbsoluteSeats ≥ 0,
// bulk edits only accept SeatDelta.
func (s *EditSession) SetSeats(sessionID availability.SessionID, change SeatChange) error {
	return s.mutate(sessionID, func(st *EditSessionState) error {
		switch {
		case s.IsBulk() && !change.IsDelta():
			return fmt.Errorf("%w: bulk edit expects a delta, got %s", ErrSeatModeMismatch, change)
		case !s.IsBulk() && !change.IsAbsolute():
			return fmt.Errorf("%w: single-day edit expects absolute seats, got %s", ErrSeatModeMismatch, change)
		case change.IsAbsolute() && change.Value() < 0:
			return fmt.Errorf("%w: %d", availability.ErrNegativeSeats, change.Value())
		}

		st.Seats = change

		return nil
	})
}

// MarkSaved ends the edit after its rows were persisted.
func (s *EditSession) MarkSaved() error {
	if !s.IsEditing() {
		return fmt.Errorf("%w: save in phase %s", ErrInvalidTransition, s.phase)
	}

	s.phase = PhaseSaved

	return nil
}

// Cancel ends the edit without persisting anything. The buffer stays readable but
// can no longer be mutated or turned into rows.
func (s *EditSession) Cancel() error {
	if !s.IsEditing() {
		return fmt.Errorf("%w: cancel in phase %s", ErrInvalidTransition, s.phase)
	}

	s.phase = PhaseCancelled

	return nil
}

func (s *EditSession) mutate(sessionID availability.SessionID, apply func(*EditSessionState) error) error {
	if !s.IsEditing() {
		return availability.ValidationError(fmt.Errorf("%w: edit in phase %s", ErrInvalidTransition, s.phase))
	}

	st, key, err := s.target(sessionID)
	if err != nil {
		return availability.ValidationError(err)
	}

	if err = apply(st); err != nil {
		return availability.ValidationError(err)
	}

	s.touched[key] = true

	return nil
}

// target resolves the state an edit applies to. Bulk edits accept an empty session id
// or any id covered by the scope, they all address the shared state.
func (s *EditSession) target(sessionID availability.SessionID) (*EditSessionState, availability.SessionID, error) {
	if s.IsBulk() {
		if sessionID != "" && !s.scope.Covers(sessionID) {
			return nil, "", fmt.Errorf("%w: %s not in scope %s", ErrSessionNotInScope, sessionID, s.scope)
		}

		return s.shared, "", nil
	}

	if err := sessionID.Validate(); err != nil {
		return nil, "", err
	}

	st, ok := s.states[sessionID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrSessionNotInScope, sessionID)
	}

	return st, sessionID, nil
}
