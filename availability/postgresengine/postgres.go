package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/postgresengine/internal/adapters"
)

const (
	defaultSessionsTableName  = "class_sessions"
	defaultBookingsTableName  = "bookings"
	defaultOverridesTableName = "calendar_overrides"
)

// Store reads the session catalog, the booking aggregate, and calendar overrides from
// PostgreSQL and persists override batches.
type Store struct {
	db                 adapters.DBAdapter
	primaryPool        *pgxpool.Pool
	sessionsTableName  string
	bookingsTableName  string
	overridesTableName string
	writePolicy        WritePolicy
	now                func() time.Time
	logger             availability.Logger
	contextualLogger   availability.ContextualLogger
	metricsCollector   availability.MetricsCollector
	tracingCollector   availability.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, availability.ErrNilDatabaseConnection
	}

	s := newStore(adapters.NewPGXAdapter(db))
	s.primaryPool = db

	return s.apply(options)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, availability.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db)).apply(options)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, availability.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db)).apply(options)
}

func newStore(db adapters.DBAdapter) *Store {
	return &Store{
		db:                 db,
		sessionsTableName:  defaultSessionsTableName,
		bookingsTableName:  defaultBookingsTableName,
		overridesTableName: defaultOverridesTableName,
		writePolicy:        LastWriteWins,
		now:                time.Now,
	}
}

func (s *Store) apply(options []Option) (*Store, error) {
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// WritePolicy returns the configured write policy.
func (s *Store) WritePolicy() WritePolicy {
	return s.writePolicy
}

// ListSessions returns all rows of the session catalog. Validation of the catalog as a whole
// (both sessions present, no duplicates) is left to availability.BuildSessionCatalog.
func (s *Store) ListSessions(ctx context.Context) ([]availability.Session, error) {
	obs, ctx := s.startObservation(ctx, operationListSessions, nil)

	sqlQuery, err := s.buildSelectSessionsQuery()
	if err != nil {
		obs.finishError(errorTypeBuildQuery, err)
		return nil, err
	}

	var sessions []availability.Session

	duration, err := s.query(ctx, sqlQuery, operationListSessions, func(rows adapters.DBRows) error {
		var (
			id           string
			baseCapacity int64
			price        string
		)

		if scanErr := rows.Scan(&id, &baseCapacity, &price); scanErr != nil {
			return errors.Join(availability.ErrScanningDBRowFailed, scanErr)
		}

		parsedPrice, parseErr := decimal.NewFromString(price)
		if parseErr != nil {
			return errors.Join(availability.ErrInvalidStoredValue, fmt.Errorf("price of %s: %w", id, parseErr))
		}

		sessions = append(sessions, availability.Session{
			ID:           availability.SessionID(id),
			BaseCapacity: int(baseCapacity),
			Price:        parsedPrice,
		})

		return nil
	})

	if err != nil {
		obs.finishError(errorTypeFromErr(err), err)
		return nil, err
	}

	obs.finishSuccess(len(sessions), duration)

	return sessions, nil
}

// SumActivePax returns the sum of pax_count of all bookings in the date range whose status
// is not cancelled, grouped by date and session. A NULL status counts as active.
// Rows of unknown sessions are skipped.
func (s *Store) SumActivePax(ctx context.Context, dateRange availability.DateRange) (availability.Occupancy, error) {
	obs, ctx := s.startObservation(ctx, operationSumActivePax, rangeAttrs(dateRange))

	sqlQuery, err := s.buildSumActivePaxQuery(dateRange)
	if err != nil {
		obs.finishError(errorTypeBuildQuery, err)
		return nil, err
	}

	occupancy := availability.Occupancy{}

	duration, err := s.query(ctx, sqlQuery, operationSumActivePax, func(rows adapters.DBRows) error {
		var (
			date      time.Time
			sessionID string
			pax       int64
		)

		if scanErr := rows.Scan(&date, &sessionID, &pax); scanErr != nil {
			return errors.Join(availability.ErrScanningDBRowFailed, scanErr)
		}

		id := availability.SessionID(sessionID)
		if id.Validate() != nil {
			s.logWarnContext(ctx, logMsgSkippedUnknownSession, logAttrSessionID, sessionID, logAttrTable, s.bookingsTableName)
			return nil
		}

		occupancy.Add(availability.NewDate(date.Date()), id, int(pax))

		return nil
	})

	if err != nil {
		obs.finishError(errorTypeFromErr(err), err)
		return nil, err
	}

	obs.finishSuccess(len(occupancy), duration)

	return occupancy, nil
}

// QueryOverrides returns all overrides whose date lies within the range, ordered by date
// and session. Rows of unknown sessions are skipped.
func (s *Store) QueryOverrides(ctx context.Context, dateRange availability.DateRange) ([]availability.CalendarOverride, error) {
	obs, ctx := s.startObservation(ctx, operationQueryOverrides, rangeAttrs(dateRange))

	sqlQuery, err := s.buildSelectOverridesQuery(dateRange)
	if err != nil {
		obs.finishError(errorTypeBuildQuery, err)
		return nil, err
	}

	overrides := make([]availability.CalendarOverride, 0)

	duration, err := s.query(ctx, sqlQuery, operationQueryOverrides, func(rows adapters.DBRows) error {
		var row overrideRow

		if scanErr := rows.Scan(
			&row.date,
			&row.sessionID,
			&row.isClosed,
			&row.closureReason,
			&row.customCapacity,
			&row.version,
		); scanErr != nil {
			return errors.Join(availability.ErrScanningDBRowFailed, scanErr)
		}

		override, ok, convErr := row.toOverride()
		if convErr != nil {
			return convErr
		}

		if !ok {
			s.logWarnContext(ctx, logMsgSkippedUnknownSession, logAttrSessionID, row.sessionID, logAttrTable, s.overridesTableName)
			return nil
		}

		overrides = append(overrides, override)

		return nil
	})

	if err != nil {
		obs.finishError(errorTypeFromErr(err), err)
		return nil, err
	}

	availability.SortOverrides(overrides)
	obs.finishSuccess(len(overrides), duration)

	return overrides, nil
}

// UpsertOverrides writes all rows in one INSERT ... ON CONFLICT (date, session_id) DO UPDATE
// statement inside one transaction. Each written row gets its version incremented.
//
// With VersionChecked, a row only updates if its persisted version equals row.Version
// (0 meaning "did not exist"). If any row is stale the transaction is rolled back and
// availability.ErrConcurrencyConflict is returned. Nothing is written in that case.
func (s *Store) UpsertOverrides(ctx context.Context, rows []availability.CalendarOverride) error {
	if len(rows) == 0 {
		return nil
	}

	obs, ctx := s.startObservation(ctx, operationUpsertOverrides, map[string]string{
		spanAttrRowCount:    fmt.Sprintf("%d", len(rows)),
		spanAttrWritePolicy: s.writePolicy.String(),
	})

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			obs.finishError(errorTypeInvalidPayload, err)
			return availability.ValidationError(err)
		}
	}

	sqlQuery, err := s.buildUpsertOverridesQuery(rows)
	if err != nil {
		obs.finishError(errorTypeBuildQuery, err)
		return err
	}

	var rowsAffected int64

	start := time.Now()
	err = s.db.ExecInTx(ctx, sqlQuery, func(result adapters.DBResult) error {
		var raErr error

		rowsAffected, raErr = result.RowsAffected()
		if raErr != nil {
			return errors.Join(availability.ErrGettingRowsAffectedFailed, raErr)
		}

		if rowsAffected < int64(len(rows)) {
			return availability.ErrConcurrencyConflict
		}

		return nil
	})
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, operationUpsertOverrides, duration)

	switch {
	case errors.Is(err, availability.ErrConcurrencyConflict):
		s.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrExpectedRows, len(rows),
			logAttrRowsAffected, rowsAffected,
			logAttrWritePolicy, s.writePolicy.String(),
		)
		obs.finishConflict(duration)

		return err

	case errors.Is(err, availability.ErrGettingRowsAffectedFailed):
		obs.finishError(errorTypeRowsAffected, err)
		return err

	case err != nil:
		obs.finishError(errorTypeDatabaseExec, err)
		return errors.Join(availability.ErrWritingOverridesFailed, err)
	}

	s.logOperation(ctx, logMsgOverridesUpserted,
		logAttrRowCount, len(rows),
		logAttrDurationMS, toMilliseconds(duration),
	)
	obs.finishSuccess(len(rows), duration)

	return nil
}

// query executes sqlQuery, hands every row to scan, and closes the rows.
func (s *Store) query(
	ctx context.Context,
	sqlQuery string,
	action string,
	scan func(adapters.DBRows) error,
) (time.Duration, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return duration, errors.Join(availability.ErrQueryingFailed, err)
	}
	defer s.closeRows(ctx, rows)

	for rows.Next() {
		if scanErr := scan(rows); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr)
			return duration, scanErr
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlQuery)
		return duration, errors.Join(availability.ErrQueryingFailed, rowsErr)
	}

	return time.Since(start), nil
}

// closeRows closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarnContext(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

type overrideRow struct {
	date           time.Time
	sessionID      string
	isClosed       bool
	closureReason  *string
	customCapacity *int64
	version        int64
}

// toOverride returns false for rows of unknown sessions. Negative values are kept as they
// are, the resolver clamps them.
func (r overrideRow) toOverride() (availability.CalendarOverride, bool, error) {
	id := availability.SessionID(r.sessionID)
	if id.Validate() != nil {
		return availability.CalendarOverride{}, false, nil
	}

	if r.version < 0 {
		return availability.CalendarOverride{}, false, errors.Join(
			availability.ErrInvalidStoredValue,
			fmt.Errorf("negative version %d for %s %s", r.version, r.date.Format(time.DateOnly), r.sessionID),
		)
	}

	o := availability.CalendarOverride{
		Date:      availability.NewDate(r.date.Date()),
		SessionID: id,
		IsClosed:  r.isClosed,
		Version:   availability.OverrideVersion(r.version),
	}

	if r.closureReason != nil {
		o.ClosureReason = *r.closureReason
	}

	if r.customCapacity != nil {
		capacity := int(*r.customCapacity)
		o.CustomCapacity = &capacity
	}

	return o, true, nil
}

func rangeAttrs(r availability.DateRange) map[string]string {
	return map[string]string{
		spanAttrFrom: r.From.String(),
		spanAttrTo:   r.To.String(),
	}
}
