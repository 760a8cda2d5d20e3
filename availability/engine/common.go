package engine

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

var ErrNilDependency = errors.New("engine dependency must not be nil")

// SessionCatalogReader reads the externally configured session catalog.
type SessionCatalogReader interface {
	ListSessions(ctx context.Context) ([]availability.Session, error)
}

// BookingAggregator sums the guest counts of active bookings per date and session.
type BookingAggregator interface {
	SumActivePax(ctx context.Context, dateRange availability.DateRange) (availability.Occupancy, error)
}

// OverrideStore reads and persists calendar overrides.
// UpsertOverrides must apply a batch completely or not at all.
type OverrideStore interface {
	QueryOverrides(ctx context.Context, dateRange availability.DateRange) ([]availability.CalendarOverride, error)
	UpsertOverrides(ctx context.Context, rows []availability.CalendarOverride) error
}
