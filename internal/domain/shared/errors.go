// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrLimitReached    = errors.New("limit reached")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Internal and external service errors
	ErrInternal           = errors.New("internal error")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "mastery", "streak"
	Op      string // Operation that failed, e.g., "AddXP", "Advance"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrUserNotFound        = NewDomainError("progress", "Find", ErrNotFound, "user progress not found")
	ErrProgressExists      = NewDomainError("progress", "Create", ErrAlreadyExists, "user progress already exists")
	ErrInvalidXPAmount     = NewDomainError("progress", "Validate", ErrValueOutOfRange, "XP amount must be positive")
	ErrInvalidXPSource     = NewDomainError("progress", "Validate", ErrInvalidInput, "unknown XP source")
	ErrTransactionNotFound = NewDomainError("progress", "FindTransaction", ErrNotFound, "XP transaction not found")
)

// Mastery domain errors
var (
	ErrMasteryNotFound      = NewDomainError("mastery", "Find", ErrNotFound, "character mastery not found")
	ErrInvalidAccuracy      = NewDomainError("mastery", "Validate", ErrValueOutOfRange, "accuracy must be between 0 and 100")
	ErrInvalidStrokes       = NewDomainError("mastery", "Validate", ErrInvalidInput, "stroke counts are inconsistent")
	ErrInvalidCharacterType = NewDomainError("mastery", "Validate", ErrInvalidInput, "invalid character type")
	ErrSessionNotFound      = NewDomainError("mastery", "FindSession", ErrNotFound, "practice session not found")
)

// Streak domain errors
var (
	ErrStreakNotFound     = NewDomainError("streak", "Find", ErrNotFound, "streak not found")
	ErrFreezeLimitReached = NewDomainError("streak", "Freeze", ErrLimitReached, "streak freeze limit reached")
	ErrInvalidStreakType  = NewDomainError("streak", "Validate", ErrInvalidInput, "invalid streak type")
)

// Leaderboard domain errors
var (
	ErrLeaderboardNotFound = NewDomainError("leaderboard", "Find", ErrNotFound, "leaderboard not found")
	ErrInvalidPeriod       = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid leaderboard period")
	ErrInvalidRank         = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "invalid rank")
	ErrRankNotFound        = NewDomainError("leaderboard", "FindRank", ErrNotFound, "user has no rank for this period")
)

// Analytics domain errors
var (
	ErrAnalyticsNotFound = NewDomainError("analytics", "Find", ErrNotFound, "analytics row not found")
	ErrEmptyWindow       = NewDomainError("analytics", "Validate", ErrInvalidInput, "analytics window is empty")
)

// External service errors
var (
	ErrDirectoryUnavailable     = NewDomainError("directory", "Request", ErrServiceUnavailable, "user directory is unavailable")
	ErrDirectoryRateLimited     = NewDomainError("directory", "Request", ErrRateLimited, "user directory rate limit exceeded")
	ErrDirectoryTimeout         = NewDomainError("directory", "Request", ErrTimeout, "user directory request timeout")
	ErrDirectoryInvalidResponse = NewDomainError("directory", "Parse", ErrInvalidFormat, "invalid response from user directory")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsLimitReached checks if the error is a "limit reached" error.
func IsLimitReached(err error) bool {
	return errors.Is(err, ErrLimitReached)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
