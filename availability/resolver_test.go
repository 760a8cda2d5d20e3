package availability_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

func Test_Resolve_SeatsAndStatus_ForAllCapacityOccupancyPairs(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")

	for capacity := 0; capacity <= 15; capacity++ {
		for occupied := 0; occupied <= 20; occupied++ {
			// act
			status := availability.Resolve(date, availability.MorningSession, capacity, occupied, nil)

			// assert
			expectedSeats := max(0, capacity-occupied)
			assert.Equal(t, expectedSeats, status.Seats, "capacity=%d occupied=%d", capacity, occupied)

			if expectedSeats > 0 {
				assert.Equal(t, availability.StatusOpen, status.Status)
			} else {
				assert.Equal(t, availability.StatusFull, status.Status)
			}
		}
	}
}

func Test_Resolve_ClosedOverride_ForcesClosedWithZeroSeats(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")
	closed, err := availability.BuildClosedOverride(date, availability.EveningSession, "Private Event")
	require.NoError(t, err)

	for _, occupied := range []int{0, 3, 12, 40} {
		// act
		status := availability.Resolve(date, availability.EveningSession, 12, occupied, &closed)

		// assert
		assert.Equal(t, availability.StatusClosed, status.Status)
		assert.Equal(t, 0, status.Seats)
		assert.Equal(t, 12, status.Capacity, "capacity is still reported while closed")
		assert.Equal(t, "Private Event", status.Reason)
	}
}

func Test_Resolve_ClosedOverride_ReportsCustomCapacity_WhenRowCarriesOne(t *testing.T) {
	// arrange - legacy row that violates the exclusion invariant, still displayed
	date := availability.MustParseDate("2026-10-20")
	capacity := 20
	legacy := availability.CalendarOverride{
		Date:           date,
		SessionID:      availability.MorningSession,
		IsClosed:       true,
		ClosureReason:  "Holiday",
		CustomCapacity: &capacity,
	}

	// act
	status := availability.Resolve(date, availability.MorningSession, 12, 0, &legacy)

	// assert
	assert.Equal(t, availability.StatusClosed, status.Status)
	assert.Equal(t, 20, status.Capacity)
}

func Test_Resolve_OverBooked_FloorsSeatsAtZero(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")
	reduced, err := availability.BuildCapacityOverride(date, availability.MorningSession, 5)
	require.NoError(t, err)

	// act
	status := availability.Resolve(date, availability.MorningSession, 12, 9, &reduced)

	// assert
	assert.Equal(t, availability.StatusFull, status.Status)
	assert.Equal(t, 0, status.Seats)
	assert.Equal(t, 5, status.Capacity)
	assert.Equal(t, 9, status.Occupied)
}

func Test_Resolve_NegativeInputs_NeverShowExtraSeats(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")
	negative := -4
	broken := availability.CalendarOverride{Date: date, SessionID: availability.MorningSession, CustomCapacity: &negative}

	// act
	status := availability.Resolve(date, availability.MorningSession, 12, -3, &broken)

	// assert
	assert.Equal(t, 0, status.Capacity)
	assert.Equal(t, 0, status.Occupied)
	assert.Equal(t, 0, status.Seats)
	assert.Equal(t, availability.StatusFull, status.Status)
}

func Test_Resolve_NoOverride_NoBookings_DefaultsToBaseCapacityOpen(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")

	// act
	status := availability.Resolve(date, availability.EveningSession, 14, 0, nil)

	// assert
	assert.Equal(t, availability.StatusOpen, status.Status)
	assert.Equal(t, 14, status.Seats)
	assert.Equal(t, 14, status.Capacity)
	assert.False(t, status.HasOverride())
}

func Test_Resolve_Scenario_BaseCapacityTwelve(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")

	// base capacity 12, occupied 9
	status := availability.Resolve(date, availability.MorningSession, 12, 9, nil)
	assert.Equal(t, 3, status.Seats)
	assert.Equal(t, availability.StatusOpen, status.Status)

	// custom capacity 9 with occupied 9
	custom, err := availability.BuildCapacityOverride(date, availability.MorningSession, 9)
	require.NoError(t, err)
	status = availability.Resolve(date, availability.MorningSession, 12, 9, &custom)
	assert.Equal(t, 0, status.Seats)
	assert.Equal(t, availability.StatusFull, status.Status)

	// closed for a holiday
	closed, err := availability.BuildClosedOverride(date, availability.MorningSession, "Holiday")
	require.NoError(t, err)
	status = availability.Resolve(date, availability.MorningSession, 12, 9, &closed)
	assert.Equal(t, availability.StatusClosed, status.Status)
	assert.Equal(t, 0, status.Seats)
	assert.Equal(t, 12, status.Capacity)
	assert.Equal(t, "Holiday", status.Reason)
}

func Test_ResolveDay_SessionsNeverInteract(t *testing.T) {
	// arrange
	date := availability.MustParseDate("2026-10-20")
	closedMorning, err := availability.BuildClosedOverride(date, availability.MorningSession, "Maintenance")
	require.NoError(t, err)

	snapshot := givenSnapshot(t, 12, 14,
		availability.Occupancy{{Date: date, SessionID: availability.EveningSession}: 4},
		closedMorning,
	)

	// act
	day := availability.ResolveDay(date, snapshot, availability.DefaultLockPolicy(), farPast())

	// assert
	assert.Equal(t, availability.StatusClosed, day.Morning.Status)
	assert.Equal(t, availability.StatusOpen, day.Evening.Status)
	assert.Equal(t, 10, day.Evening.Seats)
	assert.Equal(t, 14, day.Evening.Capacity)
	assert.True(t, day.HasBookings)
}

func Test_ResolveDay_HasBookings_IsFalse_WithoutOccupancy(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")
	snapshot := givenSnapshot(t, 12, 14, availability.Occupancy{})

	// act
	day := availability.ResolveDay(date, snapshot, availability.DefaultLockPolicy(), farPast())

	// assert
	assert.False(t, day.HasBookings)
}

func Test_ResolveDay_HasBookings_OnlyCountsThatDate(t *testing.T) {
	// arrange
	date := availability.MustParseDate("2026-10-20")
	nextDay := date.AddDays(1)
	occupancy := availability.Occupancy{{Date: nextDay, SessionID: availability.MorningSession}: 2}
	snapshot := givenSnapshot(t, 12, 14, occupancy)

	// act
	day := availability.ResolveDay(date, snapshot, availability.DefaultLockPolicy(), farPast())
	next := availability.ResolveDay(nextDay, snapshot, availability.DefaultLockPolicy(), farPast())

	// assert
	assert.False(t, day.HasBookings)
	assert.True(t, next.HasBookings)
	assert.Equal(t, occupancy.HasBookings(nextDay), next.HasBookings)
}

func Test_ResolveGrid_IsIdempotent(t *testing.T) {
	// arrange
	dateRange := availability.GridWindow(2026, time.October)
	d1 := availability.MustParseDate("2026-10-05")
	d2 := availability.MustParseDate("2026-10-06")
	custom, err := availability.BuildCapacityOverride(d1, availability.EveningSession, 20)
	require.NoError(t, err)
	closed, err := availability.BuildClosedOverride(d2, availability.MorningSession, "Private Event")
	require.NoError(t, err)

	snapshot := givenSnapshot(t, 12, 14,
		availability.Occupancy{
			{Date: d1, SessionID: availability.MorningSession}: 7,
			{Date: d2, SessionID: availability.EveningSession}: 14,
		},
		custom, closed,
	)
	now := time.Date(2026, 10, 6, 11, 0, 0, 0, time.UTC)

	// act
	first := availability.ResolveGrid(dateRange, snapshot, availability.DefaultLockPolicy(), now)
	second := availability.ResolveGrid(dateRange, snapshot, availability.DefaultLockPolicy(), now)

	// assert
	assert.Equal(t, first, second)
	assert.Len(t, first.Days, 42)
	assert.Equal(t, dateRange.Dates(), first.Dates())

	day2, ok := first.Day(d2)
	require.True(t, ok)
	assert.Equal(t, availability.StatusClosed, day2.Morning.Status)
	assert.True(t, day2.Morning.IsLocked, "today after the morning cutoff")
	assert.False(t, day2.Evening.IsLocked, "today before the evening cutoff")
	assert.Equal(t, availability.StatusFull, day2.Evening.Status)
}

func Test_BuildSnapshot_RejectsIncompleteCatalog(t *testing.T) {
	// act
	_, err := availability.BuildSnapshot(
		[]availability.Session{{ID: availability.MorningSession, BaseCapacity: 12}},
		nil,
		nil,
	)

	// assert
	assert.ErrorIs(t, err, availability.ErrSessionMissingFromCatalog)
}

func Test_BuildSnapshot_RejectsDuplicateOverrides(t *testing.T) {
	date := availability.MustParseDate("2026-10-20")
	a, err := availability.BuildCapacityOverride(date, availability.MorningSession, 3)
	require.NoError(t, err)
	b, err := availability.BuildClosedOverride(date, availability.MorningSession, "x")
	require.NoError(t, err)

	// act
	_, err = availability.BuildSnapshot(givenSessions(12, 14), nil, []availability.CalendarOverride{a, b})

	// assert
	assert.ErrorIs(t, err, availability.ErrDuplicateOverride)
}

func givenSessions(morningCapacity, eveningCapacity int) []availability.Session {
	return []availability.Session{
		{ID: availability.MorningSession, BaseCapacity: morningCapacity, Price: decimal.RequireFromString("45.00")},
		{ID: availability.EveningSession, BaseCapacity: eveningCapacity, Price: decimal.RequireFromString("55.00")},
	}
}

func givenSnapshot(
	t *testing.T,
	morningCapacity, eveningCapacity int,
	occupancy availability.Occupancy,
	overrides ...availability.CalendarOverride,
) availability.Snapshot {
	t.Helper()

	snapshot, err := availability.BuildSnapshot(givenSessions(morningCapacity, eveningCapacity), occupancy, overrides)
	require.NoError(t, err, "building the snapshot failed")

	return snapshot
}

func farPast() time.Time {
	return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
}
