package core

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	statusSuccess  = "success"
	statusFailure  = "failure"
	statusRejected = "rejected"
)

// observeOperation emits one log line plus a counter and a duration histogram
// for every public orchestrator operation. Calls turned away by the pending
// gate or the login check are "rejected" and log at warn.
func (o *Orchestrator) observeOperation(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if o == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := operationStatus(err)
	elapsed := o.now().Sub(startedAt)

	logFields := cloneFields(fields)
	logFields["event_type"] = operation
	logFields["status"] = status
	logFields["duration_ms"] = elapsed.Milliseconds()
	tags := map[string]string{"operation": operation, "status": status}
	if err != nil {
		logFields["error"] = err.Error()
		if code := ErrorCode(err); code != "" {
			logFields["error_code"] = code
			tags["error_code"] = code
		}
	}

	o.recordCounter(ctx, "wallet."+operation+".total", 1, tags)
	o.recordHistogram(ctx, "wallet."+operation+".duration_ms", float64(elapsed.Milliseconds()), tags)

	switch status {
	case statusRejected:
		o.log(ctx, "warn", operation+" rejected", logFields)
	case statusFailure:
		o.log(ctx, "error", operation+" failed", logFields)
	default:
		o.log(ctx, "info", operation+" succeeded", logFields)
	}
}

func operationStatus(err error) string {
	switch {
	case err == nil:
		return statusSuccess
	case errors.Is(err, ErrOperationInProgress), errors.Is(err, ErrNotAuthenticated):
		return statusRejected
	default:
		return statusFailure
	}
}

func (o *Orchestrator) log(ctx context.Context, level string, message string, fields map[string]any) {
	if o == nil || o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (o *Orchestrator) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if o == nil || o.metricsRecorder == nil {
		return
	}
	o.metricsRecorder.IncCounter(ctx, name, value, maps.Clone(tags))
}

func (o *Orchestrator) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if o == nil || o.metricsRecorder == nil {
		return
	}
	o.metricsRecorder.ObserveHistogram(ctx, name, value, maps.Clone(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

// flattenFields turns fields into sorted key/value pairs for loggers without
// WithFields support.
func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(operation)))
}
