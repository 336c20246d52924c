// Package domain defines the persistence models for orders, their
// status timelines, and inbound webhook logs. These types are mapped
// with GORM and form the core data layer of the order event pipeline.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus enumerates the lifecycle states of an order. The main
// progression is PENDING → CONFIRMED → IN_PRODUCTION → QUALITY_CHECK →
// SHIPPED → DELIVERED, with RETURNED and CANCELLED as side branches.
type OrderStatus string

// Order lifecycle states.
const (
	StatusPending      OrderStatus = "PENDING"
	StatusConfirmed    OrderStatus = "CONFIRMED"
	StatusInProduction OrderStatus = "IN_PRODUCTION"
	StatusQualityCheck OrderStatus = "QUALITY_CHECK"
	StatusShipped      OrderStatus = "SHIPPED"
	StatusDelivered    OrderStatus = "DELIVERED"
	StatusReturned     OrderStatus = "RETURNED"
	StatusCancelled    OrderStatus = "CANCELLED"
)

// Order represents one commerce-platform order tracked by the pipeline.
// Contact identity is never stored in plaintext: the email is held as an
// AES-256-GCM ciphertext plus a deterministic hash used as the only
// queryable identity key.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - ExternalOrderID: platform-assigned order id; globally unique and the
//     idempotent-upsert key for webhook processing.
//   - ExternalOrderNumber: human-facing order number used for customer lookup.
//   - ContactEmailEncrypted: opaque ciphertext blob; never logged or returned.
//   - ContactEmailHash: SHA-256 over the normalized email; indexed together
//     with the order number for the public lookup path.
//   - PublicID: short, non-guessable display id independent of internal keys.
//   - Status: current lifecycle state; kept consistent with the last
//     timeline entry after every write.
//   - CarrierName / TrackingNumber / TrackingURL: set once a fulfillment
//     event arrives; nil before that.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Order struct {
	ID                    string         `json:"id"                    gorm:"type:char(36);primaryKey"`
	ExternalOrderID       string         `json:"external_order_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_orders_external_id"`
	ExternalOrderNumber   string         `json:"external_order_number" gorm:"type:varchar(64);not null;index:idx_orders_lookup,priority:1"`
	ContactEmailEncrypted string         `json:"-"                     gorm:"type:text;not null"`
	ContactEmailHash      string         `json:"-"                     gorm:"type:char(64);not null;index:idx_orders_lookup,priority:2"`
	PublicID              string         `json:"public_id"             gorm:"type:varchar(20);not null;uniqueIndex:ux_orders_public_id"`
	Status                OrderStatus    `json:"status"                gorm:"type:varchar(20);not null;default:'PENDING'"`
	CarrierName           *string        `json:"carrier_name,omitempty"    gorm:"type:varchar(64)"`
	TrackingNumber        *string        `json:"tracking_number,omitempty" gorm:"type:varchar(64)"`
	TrackingURL           *string        `json:"tracking_url,omitempty"    gorm:"type:varchar(512)"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"-"                     gorm:"index"`

	// StatusHistory is the append-only timeline. Entries are ordered by Seq
	// and are never updated or deleted once written.
	StatusHistory []OrderStatusEntry `json:"status_history,omitempty" gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderStatusEntry is a single element of an order's status timeline.
// The timeline is append-only: new entries get the next Seq value and
// existing rows are immutable. The unique index on (order_id, status,
// occurred_at) makes re-applying the same source event a no-op, which is
// what keeps duplicate webhook deliveries from duplicating history.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - OrderID: foreign key to the owning order (indexed).
//   - Seq: 1-based append position within the order's timeline.
//   - Status: the lifecycle state this entry records.
//   - Description: human-readable explanation shown in the public timeline.
//   - OccurredAt: UTC timestamp of the source event (not of processing).
//   - IsComplete: whether this step is finished from the customer's view.
type OrderStatusEntry struct {
	ID          string      `json:"-"           gorm:"type:char(36);primaryKey"`
	OrderID     string      `json:"-"           gorm:"type:char(36);not null;index:idx_entries_order;uniqueIndex:ux_entries_event,priority:1"`
	Seq         int         `json:"seq"         gorm:"not null"`
	Status      OrderStatus `json:"status"      gorm:"type:varchar(20);not null;uniqueIndex:ux_entries_event,priority:2"`
	Description string      `json:"description" gorm:"type:varchar(255);not null"`
	OccurredAt  time.Time   `json:"occurred_at" gorm:"not null;uniqueIndex:ux_entries_event,priority:3"`
	IsComplete  bool        `json:"is_complete" gorm:"not null"`
	CreatedAt   time.Time   `json:"-"`

	// Order is the parent order. Entries are cascade-deleted if the order
	// row is ever removed.
	Order Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderStatusEntry.
func (OrderStatusEntry) TableName() string { return "order_status_entries" }

// WebhookLogStatus enumerates the replay state machine of a webhook log:
// RECEIVED → RETRYING → {PROCESSED | FAILED}.
type WebhookLogStatus string

// Webhook log states.
const (
	WebhookReceived  WebhookLogStatus = "RECEIVED"
	WebhookRetrying  WebhookLogStatus = "RETRYING"
	WebhookProcessed WebhookLogStatus = "PROCESSED"
	WebhookFailed    WebhookLogStatus = "FAILED"
)

// WebhookLog records every inbound webhook attempt so a failed delivery can
// be replayed from the persisted raw payload instead of a re-fetch from the
// source platform. A log entry is terminal at PROCESSED, or at FAILED after
// the retry budget is exhausted; FAILED entries are retained for manual
// intervention, never silently dropped.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - WebhookID: platform-assigned delivery id; unique so duplicate
//     deliveries map onto one log row.
//   - Topic: webhook topic, e.g. "orders/create".
//   - Payload: the raw request body exactly as received.
//   - Attempts: number of processing attempts so far (live + replays).
//   - Status: current replay state.
//   - LastAttemptAt: time of the most recent attempt; nil before the first.
//   - ErrorMessage: last failure reason; cleared on success.
type WebhookLog struct {
	ID            string           `json:"id"              gorm:"type:char(36);primaryKey"`
	WebhookID     string           `json:"webhook_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_webhook_logs_webhook_id"`
	Topic         string           `json:"topic"           gorm:"type:varchar(64);not null;index"`
	Payload       []byte           `json:"-"               gorm:"type:blob;not null"`
	Attempts      int              `json:"attempts"        gorm:"not null;default:0"`
	Status        WebhookLogStatus `json:"status"          gorm:"type:varchar(16);not null;default:'RECEIVED';index"`
	LastAttemptAt *time.Time       `json:"last_attempt_at,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName returns the database table name for WebhookLog.
func (WebhookLog) TableName() string { return "webhook_logs" }
