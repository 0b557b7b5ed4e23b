// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format), owned by the
// upstream identity directory. The engine never mints user IDs itself.
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// CharacterID identifies a single character being learned (e.g. "あ", "漢",
// or a catalog key like "kanji-0x6f22"). Free-form but never empty.
type CharacterID string

// IsValid checks if the character ID is non-empty.
func (c CharacterID) IsValid() bool {
	return strings.TrimSpace(string(c)) != ""
}

// String returns the string representation.
func (c CharacterID) String() string {
	return string(c)
}

// NewCharacterID creates a new CharacterID with validation.
func NewCharacterID(id string) (CharacterID, error) {
	cid := CharacterID(strings.TrimSpace(id))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCharacterID", ErrEmptyValue, "character ID cannot be empty")
	}
	return cid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user.
type XP int

const (
	// MinXP is the lower bound for any XP total.
	MinXP XP = 0
)

// IsValid checks if the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add returns the sum of two XP values, floored at zero.
func (x XP) Add(delta XP) XP {
	sum := x + delta
	if sum < MinXP {
		return MinXP
	}
	return sum
}

// String returns the string representation.
func (x XP) String() string {
	return fmt.Sprintf("%d XP", int(x))
}

// ═══════════════════════════════════════════════════════════════════════════
// Accuracy Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Accuracy is a percentage score in [0, 100].
type Accuracy float64

// IsValid checks if the accuracy is within range.
func (a Accuracy) IsValid() bool {
	return a >= 0 && a <= 100
}

// Float64 returns the underlying float value.
func (a Accuracy) Float64() float64 {
	return float64(a)
}

// NewAccuracy creates an Accuracy with range validation.
func NewAccuracy(value float64) (Accuracy, error) {
	a := Accuracy(value)
	if !a.IsValid() {
		return 0, NewDomainError("shared", "NewAccuracy", ErrValueOutOfRange, "accuracy must be between 0 and 100")
	}
	return a, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

// Pagination holds limit/offset parameters for list queries.
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPagination returns the standard page size.
func DefaultPagination() Pagination {
	return Pagination{Limit: 20, Offset: 0}
}

// Normalize clamps the pagination to sane bounds.
func (p Pagination) Normalize(maxLimit int) Pagination {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Validate checks the pagination parameters.
func (p Pagination) Validate() error {
	if p.Limit < 0 {
		return NewDomainError("shared", "Pagination", ErrNegativeValue, "limit cannot be negative")
	}
	if p.Offset < 0 {
		return NewDomainError("shared", "Pagination", ErrNegativeValue, "offset cannot be negative")
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// DateRange
// ═══════════════════════════════════════════════════════════════════════════

// DateRange is a half-open time window [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks that the range is ordered.
func (r DateRange) IsValid() bool {
	return !r.To.Before(r.From)
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Duration returns the window length.
func (r DateRange) Duration() time.Duration {
	return r.To.Sub(r.From)
}
