// Package services – ReplayService
//
// This file implements webhook replay: re-driving a previously failed
// webhook's business effect from the persisted raw payload, never from a
// re-fetch. Replay calls the same OrderService.ApplyEvent transformation
// the live handler uses, so running a replay once or many times lands on
// the same end state.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/repo"
	"github.com/tbourn/go-order-backend/internal/webhook"
)

// ReplayService drives the WebhookLog state machine:
// RECEIVED → RETRYING → {PROCESSED | FAILED}.
type ReplayService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Orders applies the event; shared with the live webhook path.
	Orders *OrderService
}

// NewReplayService constructs a ReplayService.
func NewReplayService(db *gorm.DB, orders *OrderService) *ReplayService {
	return &ReplayService{DB: db, Orders: orders}
}

// Replay runs one attempt for the given log entry:
//
//   - loads the entry and parses the persisted raw payload;
//   - increments the attempt counter;
//   - re-runs ApplyEvent;
//   - on success marks PROCESSED and clears the error message;
//   - on failure records the error, leaves the entry RETRYING, and
//     returns the error so the queue's retry policy decides what's next.
//
// An entry already PROCESSED is a no-op, which makes double-enqueued
// replays harmless.
func (s *ReplayService) Replay(ctx context.Context, logID string) error {
	rec, err := repo.GetWebhookLog(ctx, s.DB, logID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrWebhookLogNotFound
	}
	if err != nil {
		return err
	}
	if rec.Status == domain.WebhookProcessed {
		return nil
	}

	ev, err := webhook.ParseEvent(webhook.Topic(rec.Topic), rec.Payload)
	if err != nil {
		return s.recordFailure(ctx, rec, err)
	}

	if _, err := s.Orders.ApplyEvent(ctx, ev); err != nil {
		return s.recordFailure(ctx, rec, err)
	}

	if err := repo.RecordWebhookAttempt(ctx, s.DB, rec.ID, domain.WebhookProcessed, ""); err != nil {
		return err
	}
	log.Info().
		Str("webhook_id", rec.WebhookID).
		Str("topic", rec.Topic).
		Int("attempts", rec.Attempts+1).
		Msg("webhook replay processed")
	return nil
}

// recordFailure stamps a failed attempt on the log entry and returns the
// original processing error (log payloads are never logged, only the
// topic and ids).
func (s *ReplayService) recordFailure(ctx context.Context, rec *domain.WebhookLog, cause error) error {
	if err := repo.RecordWebhookAttempt(ctx, s.DB, rec.ID, domain.WebhookRetrying, cause.Error()); err != nil {
		return fmt.Errorf("record attempt: %w (while handling: %v)", err, cause)
	}
	log.Warn().
		Err(cause).
		Str("webhook_id", rec.WebhookID).
		Str("topic", rec.Topic).
		Msg("webhook replay attempt failed")
	return cause
}

// MarkFailed transitions a log entry to terminal FAILED. The replay
// queue calls this when a job exhausts its attempt budget; the entry
// stays inspectable through the admin surface.
func (s *ReplayService) MarkFailed(ctx context.Context, logID string) error {
	err := repo.SetWebhookStatus(ctx, s.DB, logID, domain.WebhookFailed)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrWebhookLogNotFound
	}
	return err
}
