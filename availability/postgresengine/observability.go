package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

const (
	logMsgDBQueryFailed         = "database query execution failed"
	logMsgCloseRowsFailed       = "failed to close database rows"
	logMsgScanRowFailed         = "failed to scan database row"
	logMsgSkippedUnknownSession = "skipped row of unknown session"
	logMsgOverridesUpserted     = "overrides upserted"
	logMsgConcurrencyConflict   = "concurrency conflict detected"
	logMsgOperationFailed       = "availability store operation failed: "
	logMsgSQLExecuted           = "executed sql for: "
	logMsgOperation             = "availability store operation: "

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrTable        = "table"
	logAttrSessionID    = "session_id"
	logAttrRowCount     = "row_count"
	logAttrDurationMS   = "duration_ms"
	logAttrExpectedRows = "expected_rows"
	logAttrRowsAffected = "rows_affected"
	logAttrWritePolicy  = "write_policy"
	logAttrErrorType    = "error_type"

	operationListSessions    = "list_sessions"
	operationSumActivePax    = "sum_active_pax"
	operationQueryOverrides  = "query_overrides"
	operationUpsertOverrides = "upsert_overrides"

	spanNamePrefix      = "availability.store."
	spanAttrOperation   = "operation"
	spanAttrFrom        = "date_from"
	spanAttrTo          = "date_to"
	spanAttrRowCount    = "row_count"
	spanAttrWritePolicy = "write_policy"
	spanAttrErrorType   = "error_type"
	spanAttrDurationMS  = "duration_ms"

	metricOperationDuration    = "availability_store_operation_duration_seconds"
	metricRowsProcessed        = "availability_store_rows"
	metricDatabaseErrors       = "availability_store_errors_total"
	metricConcurrencyConflicts = "availability_store_concurrency_conflicts_total"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "conflict"

	errorTypeBuildQuery     = "build_query"
	errorTypeDatabaseQuery  = "database_query"
	errorTypeDatabaseExec   = "database_exec"
	errorTypeRowScan        = "row_scan"
	errorTypeInvalidValue   = "invalid_stored_value"
	errorTypeRowsAffected   = "rows_affected"
	errorTypeInvalidPayload = "invalid_payload"
)

// errorTypeFromErr maps a read error to its metric/span label.
func errorTypeFromErr(err error) string {
	switch {
	case errors.Is(err, availability.ErrScanningDBRowFailed):
		return errorTypeRowScan
	case errors.Is(err, availability.ErrInvalidStoredValue):
		return errorTypeInvalidValue
	default:
		return errorTypeDatabaseQuery
	}
}

// observation bundles the span and metrics of one store operation.
type observation struct {
	s         *Store
	ctx       context.Context
	operation string
	span      availability.SpanContext
	start     time.Time
}

// startObservation starts a tracing span (if tracing is configured) and the timer for metrics.
func (s *Store) startObservation(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (*observation, context.Context) {
	obs := &observation{s: s, operation: operation, start: time.Now()}

	if s.tracingCollector != nil {
		spanAttrs := map[string]string{spanAttrOperation: operation}
		for k, v := range attrs {
			spanAttrs[k] = v
		}

		ctx, obs.span = s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, spanAttrs)
	}

	obs.ctx = ctx

	return obs, ctx
}

func (o *observation) finishSuccess(rowCount int, duration time.Duration) {
	o.s.recordDuration(o.ctx, duration, o.operation, statusSuccess)
	o.s.recordValue(o.ctx, metricRowsProcessed, float64(rowCount), o.operation, statusSuccess)

	o.finishSpan(statusSuccess, map[string]string{
		spanAttrRowCount:   fmt.Sprintf("%d", rowCount),
		spanAttrDurationMS: formatMilliseconds(duration),
	})
}

func (o *observation) finishError(errorType string, err error) {
	duration := time.Since(o.start)

	o.s.logError(o.ctx, logMsgOperationFailed+o.operation, err, logAttrErrorType, errorType)
	o.s.recordDuration(o.ctx, duration, o.operation, statusError)
	o.s.incrementCounter(o.ctx, metricDatabaseErrors, map[string]string{
		labelOperation: o.operation,
		labelStatus:    statusError,
		labelErrorType: errorType,
	})

	o.finishSpan(statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: formatMilliseconds(duration),
	})
}

func (o *observation) finishConflict(duration time.Duration) {
	o.s.recordDuration(o.ctx, duration, o.operation, statusConflict)
	o.s.incrementCounter(o.ctx, metricConcurrencyConflicts, map[string]string{
		labelOperation: o.operation,
		labelStatus:    statusConflict,
	})

	o.finishSpan(statusError, map[string]string{
		spanAttrErrorType:  statusConflict,
		spanAttrDurationMS: formatMilliseconds(duration),
	})
}

func (o *observation) finishSpan(status string, attrs map[string]string) {
	if o.s.tracingCollector == nil || o.span == nil {
		return
	}

	o.span.SetStatus(status)
	for k, v := range attrs {
		o.span.AddAttribute(k, v)
	}

	o.s.tracingCollector.FinishSpan(o.span, status, attrs)
}

// recordDuration uses the context-aware method if the collector supports it.
func (s *Store) recordDuration(ctx context.Context, duration time.Duration, operation, status string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: status}

	if contextual, ok := s.metricsCollector.(availability.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (s *Store) recordValue(ctx context.Context, metric string, value float64, operation, status string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: status}

	if contextual, ok := s.metricsCollector.(availability.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metric, value, labels)
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextual, ok := s.metricsCollector.(availability.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (s *Store) logOperation(ctx context.Context, action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (s *Store) logWarnContext(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

func (s *Store) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.logger != nil {
		s.logger.Error(msg, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}
