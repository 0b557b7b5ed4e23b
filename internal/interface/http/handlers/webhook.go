package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE INGESTION TYPES
// ══════════════════════════════════════════════════════════════════════════════

// PracticeEventDTO is a single practice attempt delivered via webhook.
// Clients that practice offline accumulate these and flush them in a batch
// once connectivity returns.
type PracticeEventDTO struct {
	UserID           string    `json:"user_id"`
	CharacterID      string    `json:"character_id"`
	CharacterType    string    `json:"character_type"`
	Accuracy         float64   `json:"accuracy"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	IsPerfect        bool      `json:"is_perfect"`
	StrokesCorrect   int       `json:"strokes_correct"`
	StrokesTotal     int       `json:"strokes_total"`
	Timestamp        time.Time `json:"timestamp"`
}

// PracticeBatchDTO is the webhook payload: an ordered list of attempts.
type PracticeBatchDTO struct {
	// Source identifies the submitting client, e.g. "mobile-app".
	Source string `json:"source,omitempty"`

	// Events are applied in order. Timestamps matter for streak accounting.
	Events []PracticeEventDTO `json:"events"`
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK HANDLER INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// WebhookHandler defines the interface for handling practice batch webhooks.
type WebhookHandler interface {
	// HandlePracticeBatch processes a batch of practice events.
	HandlePracticeBatch(ctx context.Context, payload []byte) error
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE WEBHOOK HANDLER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RecordFunc applies a single practice event.
type RecordFunc func(ctx context.Context, event PracticeEventDTO) error

// PracticeWebhookHandler implements WebhookHandler by applying each event
// through a registered record function. A failing event does not abort the
// batch; the remaining events are still applied and all failures reported.
type PracticeWebhookHandler struct {
	mu           sync.RWMutex
	recordFunc   RecordFunc
	errorHandler func(error)
	maxBatchSize int
}

// NewPracticeWebhookHandler creates a new practice webhook handler.
func NewPracticeWebhookHandler(record RecordFunc) *PracticeWebhookHandler {
	return &PracticeWebhookHandler{
		recordFunc:   record,
		maxBatchSize: 500,
	}
}

// SetMaxBatchSize overrides the maximum accepted batch size.
func (h *PracticeWebhookHandler) SetMaxBatchSize(size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxBatchSize = size
}

// SetErrorHandler sets a callback invoked for each failed event.
func (h *PracticeWebhookHandler) SetErrorHandler(handler func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorHandler = handler
}

// HandlePracticeBatch parses the payload and applies every event.
func (h *PracticeWebhookHandler) HandlePracticeBatch(ctx context.Context, payload []byte) error {
	var batch PracticeBatchDTO
	if err := json.Unmarshal(payload, &batch); err != nil {
		return fmt.Errorf("failed to parse practice batch: %w", err)
	}

	h.mu.RLock()
	record := h.recordFunc
	errorHandler := h.errorHandler
	maxSize := h.maxBatchSize
	h.mu.RUnlock()

	if record == nil {
		return errors.New("no record function registered")
	}
	if len(batch.Events) == 0 {
		return nil
	}
	if maxSize > 0 && len(batch.Events) > maxSize {
		return fmt.Errorf("batch of %d events exceeds limit of %d", len(batch.Events), maxSize)
	}

	var failures []error
	for i, event := range batch.Events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := record(ctx, event); err != nil {
			err = fmt.Errorf("event %d (user %s, character %s): %w", i, event.UserID, event.CharacterID, err)
			if errorHandler != nil {
				errorHandler(err)
			}
			failures = append(failures, err)
		}
	}

	return errors.Join(failures...)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOOP IMPLEMENTATION (for testing/default)
// ══════════════════════════════════════════════════════════════════════════════

// NoopWebhookHandler discards all webhooks.
type NoopWebhookHandler struct{}

// NewNoopWebhookHandler creates a new noop webhook handler.
func NewNoopWebhookHandler() *NoopWebhookHandler {
	return &NoopWebhookHandler{}
}

// HandlePracticeBatch is a no-op.
func (n *NoopWebhookHandler) HandlePracticeBatch(ctx context.Context, payload []byte) error {
	return nil
}
