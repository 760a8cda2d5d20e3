package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/batchedit"
)

// Engine resolves availability grids and saves edit sessions.
type Engine struct {
	catalog          SessionCatalogReader
	bookings         BookingAggregator
	overrides        OverrideStore
	lockPolicy       availability.LockPolicy
	lockEnforcement  availability.LockEnforcement
	now              func() time.Time
	logger           availability.Logger
	contextualLogger availability.ContextualLogger
	metricsCollector availability.MetricsCollector
	tracingCollector availability.TracingCollector
}

// NewEngine creates an Engine. The postgres Store implements all three dependencies.
func NewEngine(
	catalog SessionCatalogReader,
	bookings BookingAggregator,
	overrides OverrideStore,
	options ...Option,
) (*Engine, error) {
	if catalog == nil || bookings == nil || overrides == nil {
		return nil, ErrNilDependency
	}

	e := &Engine{
		catalog:         catalog,
		bookings:        bookings,
		overrides:       overrides,
		lockPolicy:      availability.DefaultLockPolicy(),
		lockEnforcement: availability.LockAdvisory,
		now:             time.Now,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// LockPolicy returns the configured lock policy.
func (e *Engine) LockPolicy() availability.LockPolicy {
	return e.lockPolicy
}

// GetMonthGrid resolves the six-week window displayed for the month.
func (e *Engine) GetMonthGrid(ctx context.Context, year int, month time.Month) (availability.Grid, error) {
	return e.GetGrid(ctx, availability.GridWindow(year, month))
}

// GetGrid fetches the three inputs of the range concurrently and resolves them.
// Reads honor the consistency level of ctx.
func (e *Engine) GetGrid(ctx context.Context, dateRange availability.DateRange) (availability.Grid, error) {
	obs, ctx := e.startObservation(ctx, operationGetGrid, rangeAttrs(dateRange))

	grid, err := e.resolve(ctx, dateRange)
	if err != nil {
		obs.finishError(errorTypeFetch, err)
		return availability.Grid{}, err
	}

	e.logInfo(ctx, logMsgGridResolved,
		logAttrFrom, dateRange.From.String(),
		logAttrTo, dateRange.To.String(),
		logAttrDays, len(grid.Days),
		logAttrDurationMS, toMilliseconds(time.Since(obs.start)),
	)
	obs.finishSuccess()

	return grid, nil
}

// BeginSingleDayEdit opens an absolute edit of both sessions of the date.
func (e *Engine) BeginSingleDayEdit(
	ctx context.Context,
	grid availability.Grid,
	date availability.Date,
) (*batchedit.EditSession, error) {
	edit, err := batchedit.BeginSingleDay(grid, date)
	if err != nil {
		return nil, err
	}

	e.logInfo(ctx, logMsgEditBegun,
		logAttrEditID, edit.ID().String(),
		logAttrMode, string(edit.Mode()),
		logAttrDates, 1,
	)

	return edit, nil
}

// BeginBulkEdit opens an additive edit of the scoped sessions on all dates except the excluded ones.
// Every remaining date with bookings is rejected, all offending dates are reported at once.
// Excluded dates never cause a rejection.
func (e *Engine) BeginBulkEdit(
	ctx context.Context,
	grid availability.Grid,
	dates []availability.Date,
	scope batchedit.SessionScope,
	excluded ...availability.Date,
) (*batchedit.EditSession, error) {
	selection := batchedit.NewBulkSelection(grid)

	skip := make(map[availability.Date]struct{}, len(excluded))
	for _, d := range excluded {
		skip[d] = struct{}{}
	}

	var errs []error
	for _, d := range dates {
		if err := selection.Add(d); err != nil {
			if _, ok := skip[d]; !ok {
				errs = append(errs, err)
			}
		}
	}

	for _, d := range excluded {
		selection.Remove(d)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	edit, err := batchedit.BeginBulk(grid, selection, scope)
	if err != nil {
		return nil, err
	}

	e.logInfo(ctx, logMsgEditBegun,
		logAttrEditID, edit.ID().String(),
		logAttrMode, string(edit.Mode()),
		logAttrDates, len(edit.Dates()),
		logAttrScope, string(edit.Scope()),
	)

	return edit, nil
}

// SaveEdit persists the pending values of the edit and returns the re-resolved grid of the
// affected range.
//
// The affected range is re-read with strong consistency first: bulk selections are
// re-validated against fresh bookings, and capacities are computed from fresh values.
// On any failure before the write commits, the edit stays Editing and nothing is written.
// Saving an untouched edit writes nothing and still marks it Saved.
func (e *Engine) SaveEdit(ctx context.Context, edit *batchedit.EditSession) (availability.Grid, error) {
	if !edit.IsEditing() {
		return availability.Grid{}, availability.ValidationError(
			fmt.Errorf("%w: save in phase %s", batchedit.ErrInvalidTransition, edit.Phase()),
		)
	}

	affected := edit.AffectedRange()
	ctx = availability.WithStrongConsistency(ctx)

	obs, ctx := e.startObservation(ctx, operationSaveEdit, map[string]string{
		spanAttrEditID: edit.ID().String(),
		spanAttrMode:   string(edit.Mode()),
		spanAttrFrom:   affected.From.String(),
		spanAttrTo:     affected.To.String(),
	})

	fresh, err := e.resolve(ctx, affected)
	if err != nil {
		obs.finishError(errorTypeFetch, err)
		return availability.Grid{}, err
	}

	rows, err := e.buildRows(ctx, edit, fresh)
	if err != nil {
		obs.finishError(errorTypeValidation, err)
		return availability.Grid{}, err
	}

	if len(rows) > 0 {
		if upsertErr := e.overrides.UpsertOverrides(ctx, rows); upsertErr != nil {
			err = persistenceError(upsertErr)
			obs.finishError(errorTypeFromPersistence(err), err)

			return availability.Grid{}, err
		}
	}

	if err = edit.MarkSaved(); err != nil {
		obs.finishError(errorTypeValidation, err)
		return availability.Grid{}, availability.ValidationError(err)
	}

	e.logInfo(ctx, logMsgEditSaved,
		logAttrEditID, edit.ID().String(),
		logAttrMode, string(edit.Mode()),
		logAttrRowCount, len(rows),
	)

	saved, err := e.resolve(ctx, affected)
	if err != nil {
		obs.finishError(errorTypeFetch, err)
		return availability.Grid{}, err
	}

	obs.finishSuccess()

	return saved, nil
}

// CancelEdit discards the pending values. Nothing is written.
func (e *Engine) CancelEdit(ctx context.Context, edit *batchedit.EditSession) error {
	if err := edit.Cancel(); err != nil {
		return availability.ValidationError(err)
	}

	e.logInfo(ctx, logMsgEditCancelled, logAttrEditID, edit.ID().String())

	return nil
}

// buildRows re-validates the edit against the fresh grid and applies the lock enforcement.
func (e *Engine) buildRows(
	ctx context.Context,
	edit *batchedit.EditSession,
	fresh availability.Grid,
) ([]availability.CalendarOverride, error) {
	if edit.IsBulk() {
		if err := batchedit.ValidateSelection(edit.Dates(), fresh); err != nil {
			return nil, err
		}
	}

	rows, err := batchedit.BuildRows(edit, fresh)
	if err != nil {
		return nil, err
	}

	now := e.now()

	var locked []error
	for _, row := range rows {
		if !e.lockPolicy.IsLocked(row.Date, row.SessionID, now) {
			continue
		}

		if e.lockEnforcement == availability.LockBlocking {
			locked = append(locked, fmt.Errorf("%w: %s %s", availability.ErrSlotLocked, row.Date, row.SessionID))
			continue
		}

		e.logWarn(ctx, logMsgLockedSlotSaved,
			logAttrEditID, edit.ID().String(),
			logAttrDate, row.Date.String(),
			logAttrSessionID, string(row.SessionID),
		)
		e.incrementCounter(ctx, metricLockedWrites, map[string]string{labelSessionID: string(row.SessionID)})
	}

	if len(locked) > 0 {
		return nil, availability.ValidationError(errors.Join(locked...))
	}

	return rows, nil
}

// resolve fetches the inputs of the range concurrently. If one read fails the others are
// cancelled and no grid is produced.
func (e *Engine) resolve(ctx context.Context, dateRange availability.DateRange) (availability.Grid, error) {
	var (
		sessions  []availability.Session
		occupancy availability.Occupancy
		overrides []availability.CalendarOverride
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var err error
		sessions, err = e.catalog.ListSessions(groupCtx)
		return err
	})

	group.Go(func() error {
		var err error
		occupancy, err = e.bookings.SumActivePax(groupCtx, dateRange)
		return err
	})

	group.Go(func() error {
		var err error
		overrides, err = e.overrides.QueryOverrides(groupCtx, dateRange)
		return err
	})

	if err := group.Wait(); err != nil {
		e.logError(ctx, logMsgFetchFailed, err, logAttrFrom, dateRange.From.String(), logAttrTo, dateRange.To.String())
		return availability.Grid{}, errors.Join(availability.ErrFetchFailed, err)
	}

	snapshot, err := availability.BuildSnapshot(sessions, occupancy, overrides)
	if err != nil {
		e.logError(ctx, logMsgFetchFailed, err)
		return availability.Grid{}, errors.Join(availability.ErrFetchFailed, err)
	}

	return availability.ResolveGrid(dateRange, snapshot, e.lockPolicy, e.now()), nil
}

// persistenceError keeps validation failures as they are and marks everything else,
// conflicts included, as a persistence failure.
func persistenceError(err error) error {
	if errors.Is(err, availability.ErrValidationFailed) || errors.Is(err, availability.ErrPersistenceFailed) {
		return err
	}

	return errors.Join(availability.ErrPersistenceFailed, err)
}
