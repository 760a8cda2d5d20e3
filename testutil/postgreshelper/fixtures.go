package postgreshelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// GivenSessions inserts both sessions of the catalog.
func GivenSessions(t testing.TB, wrapper Wrapper, morningCapacity, eveningCapacity int) {
	t.Helper()

	for _, session := range []struct {
		id       availability.SessionID
		capacity int
		price    string
	}{
		{availability.MorningSession, morningCapacity, "45.00"},
		{availability.EveningSession, eveningCapacity, "55.00"},
	} {
		err := wrapper.Exec(
			context.Background(),
			"INSERT INTO class_sessions (id, base_capacity, price) VALUES ($1, $2, $3)",
			string(session.id), session.capacity, session.price,
		)
		require.NoError(t, err, "error in arranging test data")
	}
}

// GivenBooking inserts one booking. An empty status is stored as NULL.
func GivenBooking(t testing.TB, wrapper Wrapper, date availability.Date, sessionID availability.SessionID, pax int, status string) {
	t.Helper()

	bookingID, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	var statusValue any
	if status != "" {
		statusValue = status
	}

	err = wrapper.Exec(
		context.Background(),
		"INSERT INTO bookings (id, booking_date, session_id, pax_count, status) VALUES ($1, $2, $3, $4, $5)",
		bookingID.String(), date.String(), string(sessionID), pax, statusValue,
	)
	require.NoError(t, err, "error in arranging test data")
}

// GivenOverride inserts an override row with the given version, bypassing the store.
func GivenOverride(t testing.TB, wrapper Wrapper, override availability.CalendarOverride, version availability.OverrideVersion) {
	t.Helper()

	var reason, capacity any
	if override.ClosureReason != "" {
		reason = override.ClosureReason
	}

	if override.CustomCapacity != nil {
		capacity = *override.CustomCapacity
	}

	err := wrapper.Exec(
		context.Background(),
		`INSERT INTO calendar_overrides (date, session_id, is_closed, closure_reason, custom_capacity, version)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		override.Date.String(), string(override.SessionID), override.IsClosed, reason, capacity, int64(version),
	)
	require.NoError(t, err, "error in arranging test data")
}
