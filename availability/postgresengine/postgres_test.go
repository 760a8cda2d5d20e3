package postgresengine_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine"
	"github.com/AntonStoeckl/session-availability-go/testutil/observability"
	"github.com/AntonStoeckl/session-availability-go/testutil/postgreshelper"
)

var (
	day1 = availability.MustParseDate("2026-11-02")
	day2 = availability.MustParseDate("2026-11-03")
	day3 = availability.MustParseDate("2026-11-04")
)

func Test_ListSessions_ReturnsTheCatalog(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)

	// arrange
	postgreshelper.GivenSessions(t, wrapper, 12, 14)

	// act
	sessions, err := wrapper.Store().ListSessions(context.Background())

	// assert
	require.NoError(t, err)
	catalog, err := availability.BuildSessionCatalog(sessions)
	require.NoError(t, err)
	assert.Equal(t, 12, catalog.BaseCapacity(availability.MorningSession))
	assert.Equal(t, 14, catalog.BaseCapacity(availability.EveningSession))

	evening, ok := catalog.Session(availability.EveningSession)
	require.True(t, ok)
	assert.Equal(t, "55", evening.Price.String())
}

func Test_SumActivePax_SumsActiveBookingsPerCell(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)

	// arrange
	postgreshelper.GivenBooking(t, wrapper, day1, availability.MorningSession, 3, "confirmed")
	postgreshelper.GivenBooking(t, wrapper, day1, availability.MorningSession, 4, "pending")
	postgreshelper.GivenBooking(t, wrapper, day1, availability.MorningSession, 2, "")
	postgreshelper.GivenBooking(t, wrapper, day1, availability.MorningSession, 5, "cancelled")
	postgreshelper.GivenBooking(t, wrapper, day1, availability.EveningSession, 6, "confirmed")
	postgreshelper.GivenBooking(t, wrapper, day3, availability.EveningSession, 1, "confirmed")
	postgreshelper.GivenBooking(t, wrapper, day3.AddDays(1), availability.MorningSession, 8, "confirmed")

	dateRange, err := availability.BuildDateRange(day1, day3)
	require.NoError(t, err)

	// act
	occupancy, err := wrapper.Store().SumActivePax(context.Background(), dateRange)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 9, occupancy.Occupied(day1, availability.MorningSession), "cancelled bookings do not count, NULL status does")
	assert.Equal(t, 6, occupancy.Occupied(day1, availability.EveningSession))
	assert.Equal(t, 0, occupancy.Occupied(day2, availability.MorningSession))
	assert.Equal(t, 1, occupancy.Occupied(day3, availability.EveningSession))
	assert.Len(t, occupancy, 3, "bookings outside the range are not read")
}

func Test_SumActivePax_SkipsUnknownSessions_WithWarning(t *testing.T) {
	// setup
	logger, logSpy := observability.NewLogger()
	wrapper := postgreshelper.CreateWrapper(t, postgresengine.WithLogger(logger))
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)

	// arrange
	postgreshelper.GivenBooking(t, wrapper, day1, "lunch_class", 3, "confirmed")
	postgreshelper.GivenBooking(t, wrapper, day1, availability.MorningSession, 2, "confirmed")

	// act
	occupancy, err := wrapper.Store().SumActivePax(context.Background(), availability.SingleDay(day1))

	// assert
	require.NoError(t, err)
	assert.Len(t, occupancy, 1)
	assert.True(t, logSpy.HasWarnLog("skipped row of unknown session").WithAttr("session_id", "lunch_class").Assert())
}

func Test_QueryOverrides_ScansTheRange(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)

	// arrange
	closed, err := availability.BuildClosedOverride(day2, availability.EveningSession, "Private Event")
	require.NoError(t, err)
	custom, err := availability.BuildCapacityOverride(day2, availability.MorningSession, 20)
	require.NoError(t, err)
	outside, err := availability.BuildCapacityOverride(day3.AddDays(1), availability.MorningSession, 3)
	require.NoError(t, err)

	postgreshelper.GivenOverride(t, wrapper, closed, 3)
	postgreshelper.GivenOverride(t, wrapper, custom, 1)
	postgreshelper.GivenOverride(t, wrapper, outside, 1)

	dateRange, err := availability.BuildDateRange(day1, day3)
	require.NoError(t, err)

	// act
	overrides, err := wrapper.Store().QueryOverrides(context.Background(), dateRange)

	// assert
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	assert.Equal(t, availability.MorningSession, overrides[0].SessionID)
	require.NotNil(t, overrides[0].CustomCapacity)
	assert.Equal(t, 20, *overrides[0].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(1), overrides[0].Version)

	assert.Equal(t, day2, overrides[1].Date)
	assert.True(t, overrides[1].IsClosed)
	assert.Equal(t, "Private Event", overrides[1].ClosureReason)
	assert.Nil(t, overrides[1].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(3), overrides[1].Version)
}

func Test_UpsertOverrides_InsertsAndUpdates_WithLastWriteWins(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)
	store := wrapper.Store()
	ctx := context.Background()

	// arrange
	custom, err := availability.BuildCapacityOverride(day1, availability.MorningSession, 8)
	require.NoError(t, err)
	postgreshelper.GivenOverride(t, wrapper, custom, 4)

	closed, err := availability.BuildClosedOverride(day1, availability.MorningSession, "Holiday")
	require.NoError(t, err)
	fresh, err := availability.BuildCapacityOverride(day1, availability.EveningSession, 16)
	require.NoError(t, err)

	// act
	err = store.UpsertOverrides(ctx, []availability.CalendarOverride{closed.WithVersion(1), fresh})

	// assert
	require.NoError(t, err, "a stale version is ignored with last write wins")

	overrides, err := store.QueryOverrides(ctx, availability.SingleDay(day1))
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	assert.True(t, overrides[0].IsClosed)
	assert.Nil(t, overrides[0].CustomCapacity, "closing clears the custom capacity")
	assert.Equal(t, availability.OverrideVersion(5), overrides[0].Version)

	require.NotNil(t, overrides[1].CustomCapacity)
	assert.Equal(t, 16, *overrides[1].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(1), overrides[1].Version)
}

func Test_UpsertOverrides_WritesBatch_WhenVersionsMatch(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t, postgresengine.WithWritePolicy(postgresengine.VersionChecked))
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)
	store := wrapper.Store()
	ctx := context.Background()

	// arrange
	existing, err := availability.BuildCapacityOverride(day2, availability.MorningSession, 12)
	require.NoError(t, err)
	postgreshelper.GivenOverride(t, wrapper, existing, 4)

	rows := givenCapacityRows(t, map[availability.Date]int{day1: 8, day2: 10, day3: 12})
	rows[0] = rows[0].WithVersion(0)
	rows[1] = rows[1].WithVersion(4)
	rows[2] = rows[2].WithVersion(0)

	// act
	err = store.UpsertOverrides(ctx, rows)

	// assert
	require.NoError(t, err)

	dateRange, err := availability.BuildDateRange(day1, day3)
	require.NoError(t, err)
	overrides, err := store.QueryOverrides(ctx, dateRange)
	require.NoError(t, err)
	require.Len(t, overrides, 3)

	assert.Equal(t, 8, *overrides[0].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(1), overrides[0].Version)
	assert.Equal(t, 10, *overrides[1].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(5), overrides[1].Version)
	assert.Equal(t, 12, *overrides[2].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(1), overrides[2].Version)
}

func Test_UpsertOverrides_RollsBackWholeBatch_OnStaleVersion(t *testing.T) {
	// setup
	logger, logSpy := observability.NewLogger()
	metricsSpy := observability.NewMetricsCollectorSpy()
	tracingSpy := observability.NewTracingCollectorSpy()
	wrapper := postgreshelper.CreateWrapper(t,
		postgresengine.WithWritePolicy(postgresengine.VersionChecked),
		postgresengine.WithLogger(logger),
		postgresengine.WithMetrics(metricsSpy),
		postgresengine.WithTracing(tracingSpy),
	)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)
	store := wrapper.Store()
	ctx := context.Background()

	// arrange - someone else saved day2 after our edit began at version 4
	existing, err := availability.BuildCapacityOverride(day2, availability.MorningSession, 12)
	require.NoError(t, err)
	postgreshelper.GivenOverride(t, wrapper, existing, 5)

	rows := givenCapacityRows(t, map[availability.Date]int{day1: 8, day2: 10, day3: 12})
	rows[1] = rows[1].WithVersion(4)

	// act
	err = store.UpsertOverrides(ctx, rows)

	// assert
	assert.ErrorIs(t, err, availability.ErrConcurrencyConflict)

	dateRange, err := availability.BuildDateRange(day1, day3)
	require.NoError(t, err)
	overrides, err := store.QueryOverrides(ctx, dateRange)
	require.NoError(t, err)
	require.Len(t, overrides, 1, "no row of the batch was committed")
	assert.Equal(t, 12, *overrides[0].CustomCapacity)
	assert.Equal(t, availability.OverrideVersion(5), overrides[0].Version)

	assert.True(t, logSpy.HasInfoLog("availability store operation: concurrency conflict detected").WithAttr("write_policy", "version_checked").Assert())
	assert.True(t, metricsSpy.HasCounterRecord("availability_store_concurrency_conflicts_total").
		WithOperation("upsert_overrides").Assert())
	assert.True(t, tracingSpy.HasSpan("availability.store.upsert_overrides").WithStatus("error").
		WithEndAttribute("error_type", "conflict").Assert())
}

func Test_UpsertOverrides_RejectsNewRow_WhenSomeoneElseCreatedIt(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t, postgresengine.WithWritePolicy(postgresengine.VersionChecked))
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)

	// arrange
	existing, err := availability.BuildClosedOverride(day1, availability.EveningSession, "Private Event")
	require.NoError(t, err)
	postgreshelper.GivenOverride(t, wrapper, existing, 1)

	mine, err := availability.BuildCapacityOverride(day1, availability.EveningSession, 10)
	require.NoError(t, err)

	// act
	err = wrapper.Store().UpsertOverrides(context.Background(), []availability.CalendarOverride{mine})

	// assert
	assert.ErrorIs(t, err, availability.ErrConcurrencyConflict)
}

func Test_UpsertOverrides_RejectsInvalidPayload_WithoutWriting(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)
	ctx := context.Background()

	// arrange
	capacity := 4
	invalid := availability.CalendarOverride{
		Date:           day1,
		SessionID:      availability.MorningSession,
		IsClosed:       true,
		CustomCapacity: &capacity,
	}
	valid, err := availability.BuildCapacityOverride(day1, availability.EveningSession, 10)
	require.NoError(t, err)

	// act
	err = wrapper.Store().UpsertOverrides(ctx, []availability.CalendarOverride{valid, invalid})

	// assert
	assert.ErrorIs(t, err, availability.ErrValidationFailed)
	assert.ErrorIs(t, err, availability.ErrClosedOverrideWithCap)

	overrides, err := wrapper.Store().QueryOverrides(ctx, availability.SingleDay(day1))
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func Test_UpsertOverrides_EmptyBatch_IsANoOp(t *testing.T) {
	// setup
	wrapper := postgreshelper.CreateWrapper(t)
	defer wrapper.Close()

	// act
	err := wrapper.Store().UpsertOverrides(context.Background(), nil)

	// assert
	assert.NoError(t, err)
}

func Test_Store_Observability_RecordsReads(t *testing.T) {
	// setup
	metricsSpy := observability.NewMetricsCollectorSpy()
	tracingSpy := observability.NewTracingCollectorSpy()
	logger, logSpy := observability.NewLogger()
	wrapper := postgreshelper.CreateWrapper(t,
		postgresengine.WithMetrics(metricsSpy),
		postgresengine.WithTracing(tracingSpy),
		postgresengine.WithContextualLogger(logger),
	)
	defer wrapper.Close()
	postgreshelper.CleanUp(t, wrapper)

	// arrange
	postgreshelper.GivenSessions(t, wrapper, 12, 14)

	// act
	_, err := wrapper.Store().ListSessions(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, metricsSpy.HasDurationRecord("availability_store_operation_duration_seconds").
		WithOperation("list_sessions").WithStatus("success").Assert())
	assert.True(t, metricsSpy.HasValueRecord("availability_store_rows").WithOperation("list_sessions").Assert())
	assert.Positive(t, metricsSpy.ContextCallCount())
	assert.True(t, tracingSpy.HasSpan("availability.store.list_sessions").WithStatus("success").
		WithEndAttribute("row_count", "2").Assert())
	assert.Equal(t, 0, tracingSpy.OpenSpanCount())
	assert.True(t, logSpy.HasDebugLog("executed sql for: list_sessions").WithDurationMS().Assert())
}

func givenCapacityRows(t *testing.T, capacities map[availability.Date]int) []availability.CalendarOverride {
	t.Helper()

	rows := make([]availability.CalendarOverride, 0, len(capacities))
	for date, capacity := range capacities {
		row, err := availability.BuildCapacityOverride(date, availability.MorningSession, capacity)
		require.NoError(t, err, "error in arranging test data")

		rows = append(rows, row)
	}

	availability.SortOverrides(rows)

	return rows
}

func Test_NewStore_RejectsInvalidConfiguration(t *testing.T) {
	// arrange
	db := givenUnconnectedSQLDB(t)

	// act
	_, nilErr := postgresengine.NewStoreFromSQLDB(nil)
	_, tableErr := postgresengine.NewStoreFromSQLDB(db, postgresengine.WithOverridesTableName(""))
	_, policyErr := postgresengine.NewStoreFromSQLDB(db, postgresengine.WithWritePolicy(postgresengine.WritePolicy(7)))
	store, okErr := postgresengine.NewStoreFromSQLDB(db, postgresengine.WithClock(func() time.Time { return time.Time{} }))

	// assert
	assert.ErrorIs(t, nilErr, availability.ErrNilDatabaseConnection)
	assert.ErrorIs(t, tableErr, availability.ErrEmptyTableNameSupplied)
	assert.ErrorIs(t, policyErr, availability.ErrInvalidWritePolicy)
	require.NoError(t, okErr)
	assert.Equal(t, postgresengine.LastWriteWins, store.WritePolicy())
}

// givenUnconnectedSQLDB returns a *sql.DB that was never connected, sql.Open does not dial.
func givenUnconnectedSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}
