// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order
// model and its append-only status timeline.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The idempotent-upsert business rules
// live in services.OrderService, which composes these functions inside one
// transaction per webhook event.
//
// Error semantics:
//   - When an order is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Re-appending an already-recorded status transition is not an error:
//     AppendStatusEntry reports appended=false and the caller treats the
//     event as a duplicate delivery.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations,
// so the check falls back to message sniffing.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreateOrder inserts a new Order row. The caller supplies the encrypted
// contact fields and the public id; ID and CreatedAt are assigned here.
// On a unique violation of external_order_id (concurrent first delivery),
// it returns the already-persisted row instead of an error, so the caller
// can continue as if the order had existed all along.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) (*domain.Order, error) {
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		if isUniqueViolation(err) {
			return GetOrderByExternalID(ctx, db, o.ExternalOrderID)
		}
		return nil, err
	}
	return o, nil
}

// GetOrderByExternalID fetches an order by the platform-assigned id, or
// ErrNotFound if missing.
func GetOrderByExternalID(ctx context.Context, db *gorm.DB, externalOrderID string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Where("external_order_id = ?", externalOrderID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindOrderForLookup fetches an order by the customer-facing pair
// (order number, email hash), preloading the timeline ordered by append
// position. Both a wrong order number and a wrong email surface as the
// same ErrNotFound so callers cannot enumerate valid order numbers.
func FindOrderForLookup(ctx context.Context, db *gorm.DB, orderNumber, emailHash string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("StatusHistory", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("seq asc")
		}).
		Where("external_order_number = ? AND contact_email_hash = ?", orderNumber, emailHash).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListStatusEntries returns an order's timeline ordered by append position.
func ListStatusEntries(ctx context.Context, db *gorm.DB, orderID string) ([]domain.OrderStatusEntry, error) {
	var out []domain.OrderStatusEntry
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("seq asc").
		Find(&out).Error
	return out, err
}

// AppendStatusEntry appends one timeline entry with the next Seq value.
// The unique index on (order_id, status, occurred_at) turns a duplicate
// delivery of the same source event into appended=false with a nil error;
// existing entries are never updated, reordered, or deleted.
//
// Call this inside the same transaction that updates the order head so the
// timeline and the current status cannot diverge.
func AppendStatusEntry(ctx context.Context, db *gorm.DB, orderID string, status domain.OrderStatus, description string, occurredAt time.Time, isComplete bool) (bool, error) {
	var maxSeq int
	err := db.WithContext(ctx).
		Model(&domain.OrderStatusEntry{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return false, err
	}

	e := &domain.OrderStatusEntry{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Seq:         maxSeq + 1,
		Status:      status,
		Description: description,
		OccurredAt:  occurredAt.UTC(),
		IsComplete:  isComplete,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ShippingUpdate carries the fulfillment fields applied to an order head.
type ShippingUpdate struct {
	Carrier        string
	TrackingNumber string
	TrackingURL    string
}

// UpdateOrderHead sets the order's current status and, when shipping is
// non-nil, the fulfillment fields. If no rows are affected (order missing),
// it returns ErrNotFound.
func UpdateOrderHead(ctx context.Context, db *gorm.DB, orderID string, status domain.OrderStatus, shipping *ShippingUpdate) error {
	updates := map[string]any{"status": status}
	if shipping != nil {
		updates["carrier_name"] = shipping.Carrier
		updates["tracking_number"] = shipping.TrackingNumber
		updates["tracking_url"] = shipping.TrackingURL
	}
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
