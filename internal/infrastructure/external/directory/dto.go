package directory

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse is the standard envelope returned by the directory service.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileDTO is a user profile as returned by the directory service.
// The progress engine stores only user IDs; display data lives here.
type ProfileDTO struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	// Locale is a BCP 47 tag, e.g. "ja-JP" or "en-US".
	Locale string `json:"locale,omitempty"`

	// Timezone is an IANA zone name, e.g. "Asia/Tokyo".
	Timezone string `json:"timezone,omitempty"`

	// Cohort groups users who started together.
	Cohort string `json:"cohort,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Name returns the best available display string for the profile.
func (p *ProfileDTO) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}

// ProfilesRequestDTO contains filters for listing profiles.
type ProfilesRequestDTO struct {
	// UserIDs limits the result to the given users.
	UserIDs []string

	// Cohort filters by cohort.
	Cohort string

	// Page and PerPage control pagination.
	Page    int
	PerPage int
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO is an error payload returned by the directory service.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("directory api error %s: %s", e.Code, e.Message)
}
