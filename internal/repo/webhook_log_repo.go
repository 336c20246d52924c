// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the WebhookLog
// model that backs the replay worker.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-backend/internal/domain"
)

// CreateWebhookLog inserts a log row for a fresh delivery. WebhookID is
// unique, so a duplicate delivery of the same webhook maps onto the row
// created by the first one; in that case the existing row is returned and
// created is false.
func CreateWebhookLog(ctx context.Context, db *gorm.DB, webhookID string, topic string, payload []byte) (rec *domain.WebhookLog, created bool, err error) {
	rec = &domain.WebhookLog{
		ID:        uuid.NewString(),
		WebhookID: webhookID,
		Topic:     topic,
		Payload:   payload,
		Status:    domain.WebhookReceived,
		CreatedAt: time.Now().UTC(),
	}
	if err = db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			rec, err = GetWebhookLogByWebhookID(ctx, db, webhookID)
			return rec, false, err
		}
		return nil, false, err
	}
	return rec, true, nil
}

// GetWebhookLog fetches a log row by primary key, or ErrNotFound.
func GetWebhookLog(ctx context.Context, db *gorm.DB, id string) (*domain.WebhookLog, error) {
	var rec domain.WebhookLog
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetWebhookLogByWebhookID fetches a log row by the platform delivery id.
func GetWebhookLogByWebhookID(ctx context.Context, db *gorm.DB, webhookID string) (*domain.WebhookLog, error) {
	var rec domain.WebhookLog
	if err := db.WithContext(ctx).Where("webhook_id = ?", webhookID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordWebhookAttempt increments the attempt counter, stamps the attempt
// time, and moves the row to the given status. A non-empty errMsg records
// the failure reason; success passes "" and clears any prior message.
func RecordWebhookAttempt(ctx context.Context, db *gorm.DB, id string, status domain.WebhookLogStatus, errMsg string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.WebhookLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"status":          status,
			"last_attempt_at": now,
			"error_message":   errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetWebhookStatus moves a log row to the given terminal or intermediate
// status without touching the attempt counter.
func SetWebhookStatus(ctx context.Context, db *gorm.DB, id string, status domain.WebhookLogStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.WebhookLog{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountWebhookLogs returns the number of log rows, optionally filtered by
// status ("" means all).
func CountWebhookLogs(ctx context.Context, db *gorm.DB, status domain.WebhookLogStatus) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.WebhookLog{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListWebhookLogsPage returns a page of log rows ordered by creation time
// descending, optionally filtered by status ("" means all). Payloads are
// included; callers deciding what to expose must not log them.
func ListWebhookLogsPage(ctx context.Context, db *gorm.DB, status domain.WebhookLogStatus, offset, limit int) ([]domain.WebhookLog, error) {
	q := db.WithContext(ctx).Model(&domain.WebhookLog{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.WebhookLog
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
