package adapters

import (
	"context"
	"database/sql"
)

// DBAdapter defines the interface for database operations needed by the availability store.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)

	// ExecInTx runs query in its own transaction and hands the result to verify.
	// The transaction is committed only if verify returns nil, otherwise it is rolled back
	// and verify's error is returned.
	ExecInTx(ctx context.Context, query string, verify func(DBResult) error) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface.
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// stdTx is the part of *sql.Tx and *sqlx.Tx the std adapters need.
type stdTx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

func execInStdTx(ctx context.Context, tx stdTx, query string, verify func(DBResult) error) error {
	defer func() {
		_ = tx.Rollback() // no-op after a successful commit
	}()

	result, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}

	if err = verify(&stdResult{result: result}); err != nil {
		return err
	}

	return tx.Commit()
}
