package postgresengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

func Test_BuildSumActivePaxQuery_FiltersCancelledAndGroups(t *testing.T) {
	// arrange
	s := newStore(nil)
	dateRange, err := availability.BuildDateRange(
		availability.MustParseDate("2026-11-01"),
		availability.MustParseDate("2026-11-30"),
	)
	require.NoError(t, err)

	// act
	sqlQuery, err := s.buildSumActivePaxQuery(dateRange)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `FROM "bookings"`)
	assert.Contains(t, sqlQuery, `("booking_date" BETWEEN '2026-11-01' AND '2026-11-30')`)
	assert.Contains(t, sqlQuery, `("status" IS NULL) OR ("status" != 'cancelled')`)
	assert.Contains(t, sqlQuery, `GROUP BY "booking_date", "session_id"`)
	assert.Contains(t, sqlQuery, `SUM("pax_count")`)
}

func Test_BuildSelectOverridesQuery_IsRangeScanOnDate(t *testing.T) {
	// arrange
	s := newStore(nil)
	s.overridesTableName = "my_overrides"

	// act
	sqlQuery, err := s.buildSelectOverridesQuery(availability.SingleDay(availability.MustParseDate("2026-11-02")))

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `FROM "my_overrides"`)
	assert.Contains(t, sqlQuery, `("date" BETWEEN '2026-11-02' AND '2026-11-02')`)
	assert.Contains(t, sqlQuery, `ORDER BY "date" ASC, "session_id" ASC`)
}

func Test_BuildUpsertOverridesQuery_LastWriteWins(t *testing.T) {
	// arrange
	s := newStore(nil)
	s.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	rows := givenUpsertRows(t)

	// act
	sqlQuery, err := s.buildUpsertOverridesQuery(rows)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `INSERT INTO "calendar_overrides"`)
	assert.Contains(t, sqlQuery, `ON CONFLICT (date, session_id) DO UPDATE SET`)
	assert.Contains(t, sqlQuery, `"version"="calendar_overrides"."version" + 1`)
	assert.Contains(t, sqlQuery, `'2026-11-02'`)
	assert.Contains(t, sqlQuery, `'Private Event'`)
	assert.Contains(t, sqlQuery, "NULL", "closed rows carry no capacity, open rows no reason")
	assert.NotContains(t, sqlQuery, "EXCLUDED.version - 1")
}

func Test_BuildUpsertOverridesQuery_VersionChecked(t *testing.T) {
	// arrange
	s := newStore(nil)
	s.writePolicy = VersionChecked

	// act
	sqlQuery, err := s.buildUpsertOverridesQuery(givenUpsertRows(t))

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, "WHERE")
	assert.Contains(t, sqlQuery, `("calendar_overrides"."version" = EXCLUDED.version - 1)`)
}

func Test_BuildUpsertOverridesQuery_QuotesCustomTableNameLikeTheInsertTarget(t *testing.T) {
	testCases := []struct {
		name      string
		tableName string
		target    string
	}{
		{name: "mixed case", tableName: "CalendarOverrides", target: `"CalendarOverrides"`},
		{name: "schema qualified", tableName: "booking.calendar_overrides", target: `"booking"."calendar_overrides"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			s := newStore(nil)
			require.NoError(t, WithOverridesTableName(tc.tableName)(s))
			s.writePolicy = VersionChecked

			// act
			sqlQuery, err := s.buildUpsertOverridesQuery(givenUpsertRows(t))

			// assert
			require.NoError(t, err)
			assert.Contains(t, sqlQuery, "INSERT INTO "+tc.target)
			assert.Contains(t, sqlQuery, `"version"=`+tc.target+`."version" + 1`)
			assert.Contains(t, sqlQuery, "("+tc.target+`."version" = EXCLUDED.version - 1)`)
			assert.NotContains(t, sqlQuery, tc.tableName+".version")
		})
	}
}

func Test_WritePolicy_RoundTripsThroughString(t *testing.T) {
	for _, policy := range []WritePolicy{LastWriteWins, VersionChecked} {
		parsed, err := ParseWritePolicy(policy.String())
		require.NoError(t, err)
		assert.Equal(t, policy, parsed)
	}

	_, err := ParseWritePolicy("first_write_wins")
	assert.ErrorIs(t, err, availability.ErrInvalidWritePolicy)
}

func Test_OverrideRow_ToOverride(t *testing.T) {
	reason := "Holiday"
	capacity := int64(9)

	closed, ok, err := overrideRow{
		date:          time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		sessionID:     "evening_class",
		isClosed:      true,
		closureReason: &reason,
		version:       3,
	}.toOverride()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Holiday", closed.ClosureReason)
	assert.Equal(t, uint64(3), closed.Version)
	assert.Equal(t, "2026-11-02", closed.Date.String())

	custom, ok, err := overrideRow{sessionID: "morning_class", customCapacity: &capacity, version: 1}.toOverride()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, *custom.CustomCapacity)

	_, ok, err = overrideRow{sessionID: "lunch_class"}.toOverride()
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = overrideRow{sessionID: "morning_class", version: -1}.toOverride()
	assert.ErrorIs(t, err, availability.ErrInvalidStoredValue)
}

func givenUpsertRows(t *testing.T) []availability.CalendarOverride {
	t.Helper()

	date := availability.MustParseDate("2026-11-02")

	capacity, err := availability.BuildCapacityOverride(date, availability.MorningSession, 9)
	require.NoError(t, err)

	closed, err := availability.BuildClosedOverride(date, availability.EveningSession, "Private Event")
	require.NoError(t, err)

	return []availability.CalendarOverride{capacity, closed.WithVersion(2)}
}
