package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", service),
	}
}

// LogOperation records the outcome of one service call. The level follows the
// error class: caller mistakes are warnings, missing resources are info.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, resourceID, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	switch {
	case err == nil:
	case IsValidation(err) || IsBusinessRule(err):
		level, status = slog.LevelWarn, "validation_error"
	case IsUnauthorized(err) || IsForbidden(err):
		level, status = slog.LevelWarn, "denied"
	case IsNotFound(err):
		level, status = slog.LevelInfo, "not_found"
	case IsConflict(err):
		level, status = slog.LevelWarn, "conflict"
	case errors.Is(err, context.Canceled):
		level, status = slog.LevelInfo, "cancelled"
	default:
		level, status = slog.LevelError, "error"
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErrs ValidationErrors
		var businessErr *BusinessRuleError
		var permErr *PermissionError
		switch {
		case errors.As(err, &validationErrs):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErrs)))
		case errors.As(err, &businessErr):
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		case errors.As(err, &permErr):
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

// Track returns a function that logs the operation when called with its error.
//
//	defer func() { done(err) }()
func (l *ServiceLogger) Track(ctx context.Context, operation, userID, resourceID, resourceType string) func(error) {
	start := time.Now()
	return func(err error) {
		l.LogOperation(ctx, operation, userID, resourceID, resourceType, time.Since(start), err)
	}
}
