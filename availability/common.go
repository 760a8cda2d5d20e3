package availability

import (
	"errors"
)

// Error categories. Specific errors are joined with one of these, so callers can check
// the category and the concrete reason with errors.Is.
var (
	// ErrFetchFailed is returned when any of the three inputs could not be read.
	ErrFetchFailed = errors.New("fetching availability inputs failed")

	// ErrValidationFailed is returned when an edit is rejected before reaching persistence.
	ErrValidationFailed = errors.New("validation failed")

	// ErrPersistenceFailed is returned when saving override rows failed. Nothing was committed.
	ErrPersistenceFailed = errors.New("persisting overrides failed")

	// ErrConcurrencyConflict is returned when an override row was changed by someone else
	// since it was read.
	ErrConcurrencyConflict = errors.New("concurrency conflict, override was modified concurrently")
)

var (
	ErrUnknownSession            = errors.New("unknown session id")
	ErrDuplicateSession          = errors.New("duplicate session in catalog")
	ErrSessionMissingFromCatalog = errors.New("session missing from catalog")
	ErrNegativeBaseCapacity      = errors.New("base capacity must not be negative")
	ErrNegativeCapacity          = errors.New("capacity must not be negative")
	ErrNegativeSeats             = errors.New("seat count must not be negative")
	ErrClosedOverrideWithCap     = errors.New("closed override must not carry a custom capacity")
	ErrDuplicateOverride         = errors.New("duplicate override for date and session")
	ErrInvalidDate               = errors.New("invalid calendar date")
	ErrInvalidDateRange          = errors.New("date range end is before its start")
	ErrDateRangeTooLong          = errors.New("date range must not exceed one year")
	ErrInvalidCutoff             = errors.New("lock cutoff must be within one day")
	ErrNilLocation               = errors.New("location must not be nil")
	ErrInvalidLockEnforcement    = errors.New("invalid lock enforcement")
	ErrSlotLocked                = errors.New("session is past its edit cutoff")
)

// ValidationError joins err with ErrValidationFailed.
func ValidationError(err error) error {
	return errors.Join(ErrValidationFailed, err)
}

// Storage errors, returned by the storage engines and joined with their cause.
var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTableNameSupplied    = errors.New("empty table name supplied")
	ErrInvalidWritePolicy        = errors.New("invalid write policy")
	ErrBuildingQueryFailed       = errors.New("building query failed")
	ErrQueryingFailed            = errors.New("querying the database failed")
	ErrScanningDBRowFailed       = errors.New("scanning db row failed")
	ErrInvalidStoredValue        = errors.New("stored value is invalid")
	ErrWritingOverridesFailed    = errors.New("writing overrides failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
)
