package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

const (
	logMsgGridResolved    = "availability grid resolved"
	logMsgEditBegun       = "edit session begun"
	logMsgEditSaved       = "edit session saved"
	logMsgEditCancelled   = "edit session cancelled"
	logMsgLockedSlotSaved = "saving a session past its cutoff"
	logMsgFetchFailed     = "fetching availability inputs failed"
	logMsgOperationFailed = "availability engine operation failed: "

	logAttrError      = "error"
	logAttrErrorType  = "error_type"
	logAttrFrom       = "date_from"
	logAttrTo         = "date_to"
	logAttrDate       = "date"
	logAttrDays       = "days"
	logAttrDates      = "dates"
	logAttrSessionID  = "session_id"
	logAttrEditID     = "edit_id"
	logAttrMode       = "mode"
	logAttrScope      = "scope"
	logAttrRowCount   = "row_count"
	logAttrDurationMS = "duration_ms"

	operationGetGrid  = "get_grid"
	operationSaveEdit = "save_edit"

	spanNamePrefix     = "availability.engine."
	spanAttrOperation  = "operation"
	spanAttrFrom       = "date_from"
	spanAttrTo         = "date_to"
	spanAttrEditID     = "edit_id"
	spanAttrMode       = "mode"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"

	metricOperationDuration = "availability_engine_operation_duration_seconds"
	metricOperationErrors   = "availability_engine_errors_total"
	metricLockedWrites      = "availability_engine_locked_writes_total"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"
	labelSessionID = "session_id"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeFetch       = "fetch"
	errorTypeValidation  = "validation"
	errorTypeConflict    = "conflict"
	errorTypePersistence = "persistence"
)

func errorTypeFromPersistence(err error) string {
	switch {
	case errors.Is(err, availability.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, availability.ErrValidationFailed):
		return errorTypeValidation
	default:
		return errorTypePersistence
	}
}

type observation struct {
	e         *Engine
	ctx       context.Context
	operation string
	span      availability.SpanContext
	start     time.Time
}

func (e *Engine) startObservation(ctx context.Context, operation string, attrs map[string]string) (*observation, context.Context) {
	obs := &observation{e: e, operation: operation, start: time.Now()}

	if e.tracingCollector != nil {
		spanAttrs := map[string]string{spanAttrOperation: operation}
		for k, v := range attrs {
			spanAttrs[k] = v
		}

		ctx, obs.span = e.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, spanAttrs)
	}

	obs.ctx = ctx

	return obs, ctx
}

func (o *observation) finishSuccess() {
	duration := time.Since(o.start)
	o.e.recordDuration(o.ctx, duration, o.operation, statusSuccess)
	o.finishSpan(statusSuccess, map[string]string{spanAttrDurationMS: formatMilliseconds(duration)})
}

func (o *observation) finishError(errorType string, err error) {
	duration := time.Since(o.start)

	if errorType == errorTypeValidation {
		o.e.logWarn(o.ctx, logMsgOperationFailed+o.operation, logAttrError, err.Error(), logAttrErrorType, errorType)
	} else {
		o.e.logError(o.ctx, logMsgOperationFailed+o.operation, err, logAttrErrorType, errorType)
	}
	o.e.recordDuration(o.ctx, duration, o.operation, statusError)
	o.e.incrementCounter(o.ctx, metricOperationErrors, map[string]string{
		labelOperation: o.operation,
		labelStatus:    statusError,
		labelErrorType: errorType,
	})

	o.finishSpan(statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: formatMilliseconds(duration),
	})
}

func (o *observation) finishSpan(status string, attrs map[string]string) {
	if o.e.tracingCollector == nil || o.span == nil {
		return
	}

	o.span.SetStatus(status)
	for k, v := range attrs {
		o.span.AddAttribute(k, v)
	}

	o.e.tracingCollector.FinishSpan(o.span, status, attrs)
}

func (e *Engine) recordDuration(ctx context.Context, duration time.Duration, operation, status string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation, labelStatus: status}

	if contextual, ok := e.metricsCollector.(availability.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (e *Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(availability.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if e.logger != nil {
		e.logger.Error(msg, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

func rangeAttrs(r availability.DateRange) map[string]string {
	return map[string]string{
		spanAttrFrom: r.From.String(),
		spanAttrTo:   r.To.String(),
	}
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}
