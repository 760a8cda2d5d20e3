package batchedit

import (
	"errors"
	"fmt"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// BuildRows converts the pending edits into override write payloads, resolved against grid.
// The grid must cover the edited dates and should be freshly fetched: single-day capacity
// is seats + occupied and bulk capacity is the existing capacity + delta, both as of grid.
//
// Untouched states produce no rows, so saving an unchanged edit is a no-op. Each row carries
// the override version observed when the edit began. Rows are sorted by date and session.
func BuildRows(s *EditSession, grid availability.Grid) ([]availability.CalendarOverride, error) {
	if !s.IsEditing() {
		return nil, availability.ValidationError(fmt.Errorf("%w: build rows in phase %s", ErrInvalidTransition, s.phase))
	}

	var rows []availability.CalendarOverride
	var err error

	if s.IsBulk() {
		rows, err = s.bulkRows(grid)
	} else {
		rows, err = s.singleDayRows(grid)
	}

	if err != nil {
		return nil, availability.ValidationError(err)
	}

	availability.SortOverrides(rows)

	return rows, nil
}

func (s *EditSession) singleDayRows(grid availability.Grid) ([]availability.CalendarOverride, error) {
	date := s.dates[0]

	day, ok := grid.Day(date)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDateNotInGrid, date)
	}

	var rows []availability.CalendarOverride
	var errs []error

	for _, id := range availability.SessionIDs() {
		if !s.touched[id] {
			continue
		}

		st := s.states[id]
		occupied := day.Session(id).Occupied

		row, err := s.buildRow(date, id, st, func() int { return st.Seats.Value() + occupied })
		if err != nil {
			errs = append(errs, err)
			continue
		}

		rows = append(rows, row)
	}

	return rows, errors.Join(errs...)
}

func (s *EditSession) bulkRows(grid availability.Grid) ([]availability.CalendarOverride, error) {
	if !s.IsTouched() {
		return nil, nil
	}

	rows := make([]availability.CalendarOverride, 0, len(s.dates)*len(s.scope.Sessions()))
	var errs []error

	for _, date := range s.dates {
		day, ok := grid.Day(date)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDateNotInGrid, date))
			continue
		}

		for _, id := range s.scope.Sessions() {
			existing := day.Session(id).Capacity

			row, err := s.buildRow(date, id, s.shared, func() int { return existing + s.shared.Seats.Value() })
			if err != nil {
				errs = append(errs, err)
				continue
			}

			rows = append(rows, row)
		}
	}

	return rows, errors.Join(errs...)
}

func (s *EditSession) buildRow(
	date availability.Date,
	id availability.SessionID,
	st *EditSessionState,
	capacity func() int,
) (availability.CalendarOverride, error) {
	version := s.ObservedVersion(date, id)

	if st.IsClosed {
		row, err := availability.BuildClosedOverride(date, id, st.Reason)
		if err != nil {
			return availability.CalendarOverride{}, err
		}

		return row.WithVersion(version), nil
	}

	row, err := availability.BuildCapacityOverride(date, id, capacity())
	if err != nil {
		return availability.CalendarOverride{}, err
	}

	return row.WithVersion(version), nil
}
