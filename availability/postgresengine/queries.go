package postgresengine

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

const (
	dialectPostgres = "postgres"

	colID             = "id"
	colBaseCapacity   = "base_capacity"
	colPrice          = "price"
	colBookingDate    = "booking_date"
	colSessionID      = "session_id"
	colPaxCount       = "pax_count"
	colStatus         = "status"
	colDate           = "date"
	colIsClosed       = "is_closed"
	colClosureReason  = "closure_reason"
	colCustomCapacity = "custom_capacity"
	colVersion        = "version"
	colUpdatedAt      = "updated_at"

	aliasOccupied = "occupied"

	statusCancelled = "cancelled"
	conflictTarget  = colDate + ", " + colSessionID
	castText        = "TEXT"
	castBigint      = "BIGINT"
)

func (s *Store) buildSelectSessionsQuery() (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.sessionsTableName).
		Select(
			goqu.C(colID),
			goqu.C(colBaseCapacity),
			goqu.Cast(goqu.C(colPrice), castText).As(colPrice),
		).
		Order(goqu.C(colID).Asc())

	return toSQL(selectStmt)
}

func (s *Store) buildSumActivePaxQuery(dateRange availability.DateRange) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.bookingsTableName).
		Select(
			goqu.C(colBookingDate),
			goqu.C(colSessionID),
			goqu.Cast(goqu.COALESCE(goqu.SUM(colPaxCount), 0), castBigint).As(aliasOccupied),
		).
		Where(
			goqu.C(colBookingDate).Between(goqu.Range(dateRange.From.String(), dateRange.To.String())),
			goqu.Or(
				goqu.C(colStatus).IsNull(),
				goqu.C(colStatus).Neq(statusCancelled),
			),
		).
		GroupBy(goqu.C(colBookingDate), goqu.C(colSessionID)).
		Order(goqu.C(colBookingDate).Asc(), goqu.C(colSessionID).Asc())

	return toSQL(selectStmt)
}

func (s *Store) buildSelectOverridesQuery(dateRange availability.DateRange) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.overridesTableName).
		Select(
			goqu.C(colDate),
			goqu.C(colSessionID),
			goqu.C(colIsClosed),
			goqu.C(colClosureReason),
			goqu.C(colCustomCapacity),
			goqu.C(colVersion),
		).
		Where(goqu.C(colDate).Between(goqu.Range(dateRange.From.String(), dateRange.To.String()))).
		Order(goqu.C(colDate).Asc(), goqu.C(colSessionID).Asc())

	return toSQL(selectStmt)
}

// buildUpsertOverridesQuery builds one multi-row upsert. The inserted version is the
// expected version + 1, so for VersionChecked the conflict branch can compare the
// persisted version against EXCLUDED.version - 1.
func (s *Store) buildUpsertOverridesQuery(rows []availability.CalendarOverride) (string, error) {
	updatedAt := s.now().UTC()

	records := make([]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, goqu.Record{
			colDate:           row.Date.String(),
			colSessionID:      string(row.SessionID),
			colIsClosed:       row.IsClosed,
			colClosureReason:  closureReasonValue(row),
			colCustomCapacity: customCapacityValue(row),
			colVersion:        row.Version + 1,
			colUpdatedAt:      updatedAt,
		})
	}

	update := goqu.DoUpdate(conflictTarget, goqu.Record{
		colIsClosed:       goqu.L(excluded(colIsClosed)),
		colClosureReason:  goqu.L(excluded(colClosureReason)),
		colCustomCapacity: goqu.L(excluded(colCustomCapacity)),
		colUpdatedAt:      goqu.L(excluded(colUpdatedAt)),
		colVersion:        goqu.L("? + 1", s.overridesColumn(colVersion)),
	})

	if s.writePolicy == VersionChecked {
		update = update.Where(
			s.overridesColumn(colVersion).Eq(goqu.L(excluded(colVersion) + " - 1")),
		)
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.overridesTableName).
		Rows(records...).
		OnConflict(update)

	return toSQL(insertStmt)
}

func toSQL(stmt interface{ ToSQL() (string, []any, error) }) (string, error) {
	sqlQuery, _, err := stmt.ToSQL()
	if err != nil {
		return "", errors.Join(availability.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// overridesColumn references a column of the persisted row in the conflict branch. It is parsed
// the same way as the insert target, so a schema-qualified table name stays schema-qualified.
func (s *Store) overridesColumn(col string) exp.IdentifierExpression {
	return goqu.I(s.overridesTableName + "." + col)
}

func excluded(col string) string {
	return "EXCLUDED." + col
}

// closureReasonValue stores the reason only for closed rows, NULL otherwise.
func closureReasonValue(row availability.CalendarOverride) any {
	if !row.IsClosed {
		return nil
	}

	return row.ClosureReason
}

func customCapacityValue(row availability.CalendarOverride) any {
	if row.CustomCapacity == nil {
		return nil
	}

	return *row.CustomCapacity
}
