package batchedit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// BulkSelection is the owned set of dates a bulk edit applies to.
// Dates with bookings in either session are rejected on Add.
type BulkSelection struct {
	grid  availability.Grid
	dates map[availability.Date]struct{}
}

// NewBulkSelection creates an empty selection that validates against the given grid.
func NewBulkSelection(grid availability.Grid) *BulkSelection {
	return &BulkSelection{
		grid:  grid,
		dates: make(map[availability.Date]struct{}),
	}
}

// Add puts the date into the selection. Adding a date twice is a no-op.
func (s *BulkSelection) Add(date availability.Date) error {
	if err := checkSelectable(date, s.grid); err != nil {
		return availability.ValidationError(err)
	}

	s.dates[date] = struct{}{}

	return nil
}

// Remove takes the date out of the selection. Removing an unselected date is a no-op.
func (s *BulkSelection) Remove(date availability.Date) {
	delete(s.dates, date)
}

func (s *BulkSelection) Contains(date availability.Date) bool {
	_, ok := s.dates[date]
	return ok
}

func (s *BulkSelection) Len() int {
	return len(s.dates)
}

// Dates returns the selected dates in ascending order.
func (s *BulkSelection) Dates() []availability.Date {
	dates := make([]availability.Date, 0, len(s.dates))
	for d := range s.dates {
		dates = append(dates, d)
	}

	sortDates(dates)

	return dates
}

// ValidateSelection re-checks a selection against a (fresh) grid: it must not be empty and
// every date must be part of the grid and free of bookings. All offending dates are reported.
func ValidateSelection(dates []availability.Date, grid availability.Grid) error {
	if len(dates) == 0 {
		return availability.ValidationError(ErrEmptySelection)
	}

	var errs []error
	for _, d := range dates {
		if err := checkSelectable(d, grid); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return availability.ValidationError(errors.Join(errs...))
	}

	return nil
}

func checkSelectable(date availability.Date, grid availability.Grid) error {
	day, ok := grid.Day(date)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDateNotInGrid, date)
	}

	if day.HasBookings {
		return fmt.Errorf("%w: %s", ErrSelectionHasBookings, date)
	}

	return nil
}

func sortDates(dates []availability.Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
