package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context passed to repository")
	ErrStreamUnsupported  = errors.New("provider does not support streaming")
)

// ValidationError marks client input that failed shape or length checks.
// Detected before any job record is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// QuotaExceededError carries enough detail for the client to present an
// upgrade path: current usage, the plan limit, and the plan tier.
type QuotaExceededError struct {
	Feature      string
	PlanTier     string
	CurrentUsage int64
	Limit        int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d of %d used on plan %q", e.Feature, e.CurrentUsage, e.Limit, e.PlanTier)
}

// ModelUnavailableError is returned when the requested or assigned model is
// absent from the registry or marked inactive.
type ModelUnavailableError struct {
	ModelName string
	Reason    string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %q not available: %s", e.ModelName, e.Reason)
}

// ProviderUnavailableError means no adapter is registered for the model's
// provider (typically missing credentials at startup).
type ProviderUnavailableError struct {
	Provider string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("no adapter registered for provider %q", e.Provider)
}

// ProviderExecutionError wraps a backend call failure. Possibly transient;
// this layer records it on the job and re-raises without retrying.
type ProviderExecutionError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderExecutionError) Error() string {
	return fmt.Sprintf("provider %s failed for model %s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderExecutionError) Unwrap() error { return e.Err }

// StorageError wraps persistence layer failures so callers can map them to a
// server-fault response kind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
