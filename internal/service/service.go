package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/companyhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/companyhub/internal/storage"
)

// Collection names shared by every storage backend
const (
	CompaniesCollection = "companies"
	UsersCollection     = "users"
)

// Clock returns the current time
type Clock func() time.Time

// SystemClock is the wall clock in UTC
func SystemClock() time.Time {
	return time.Now().UTC()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// storageFailure wraps an unexpected storage error so the HTTP layer maps it to 500
func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}

// resultLabel classifies err for metrics
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAuthFailed), errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

// stamp records the modification time of an update on set. A nil actor leaves
// the stored updated_by untouched.
func stamp(set storage.Document, now time.Time, updatedBy *string) {
	set["updated_at"] = now
	if updatedBy != nil {
		set["updated_by"] = updatedBy
	}
}

// observe ends span and counts the directory call
func observe(span trace.Span, entity, op string, err error) {
	tracing.End(span, err)
	metrics.ObserveDirectoryOperation(entity, op, resultLabel(err))
}
