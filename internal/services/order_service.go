// Package services – OrderService
//
// This file implements the OrderService, the single business
// transformation from a verified webhook event to the order store. Both
// the live webhook handler and the replay worker call ApplyEvent, so a
// replayed delivery runs exactly the code a fresh one would; idempotence
// is structural, not a special replay mode.
//
// The customer-facing lookup path also lives here: it re-derives the
// public status view from the stored record, keyed by the order number
// and the email hash, and never needs decryption capability.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/pii"
	"github.com/tbourn/go-order-backend/internal/repo"
	"github.com/tbourn/go-order-backend/internal/webhook"
)

// OrderService applies order events idempotently and serves the public
// lookup view. It is safe for concurrent use.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Codec encrypts contact fields before they reach storage.
	Codec *pii.Codec
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, codec *pii.Codec) *OrderService {
	return &OrderService{DB: db, Codec: codec}
}

// ApplyResult reports what an event application actually changed, so the
// caller can decide which side effects to enqueue. A duplicate delivery
// yields Appended == false and triggers no side effects.
type ApplyResult struct {
	// Order is the order row after the event was applied.
	Order *domain.Order
	// Created is true when this event caused the order row to be created.
	Created bool
	// Appended is true when a new timeline entry was written.
	Appended bool
}

// transition describes the timeline entry and head update an event maps to.
type transition struct {
	status      domain.OrderStatus
	description string
	occurredAt  time.Time
	isComplete  bool
	shipping    *repo.ShippingUpdate
}

// ApplyEvent applies one verified, parsed webhook event to the order
// store inside a single transaction. The upsert is keyed on the
// platform's order id:
//
//   - no row yet: the order is created from the event (also for
//     out-of-order fulfillments and cancellations arriving first);
//   - row exists: a timeline entry is appended and the head status (and
//     shipping info, when applicable) updated.
//
// Re-applying the same event is a no-op: the timeline's unique event
// constraint reports the entry as already recorded and nothing changes.
// Database failures propagate so the webhook response reflects them and
// the source platform retries.
func (s *OrderService) ApplyEvent(ctx context.Context, ev *webhook.Event) (*ApplyResult, error) {
	tr, err := transitionFor(ev)
	if err != nil {
		return nil, err
	}

	res := &ApplyResult{}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repo.GetOrderByExternalID(ctx, tx, ev.ExternalOrderID())
		if errors.Is(err, repo.ErrNotFound) {
			order, err = s.createFromEvent(ctx, tx, ev)
			if err != nil {
				return err
			}
			res.Created = true
		} else if err != nil {
			return err
		}

		appended, err := repo.AppendStatusEntry(ctx, tx, order.ID, tr.status, tr.description, tr.occurredAt, tr.isComplete)
		if err != nil {
			return err
		}
		if appended {
			if err := repo.UpdateOrderHead(ctx, tx, order.ID, tr.status, tr.shipping); err != nil {
				return err
			}
			order.Status = tr.status
		}
		res.Order = order
		res.Appended = appended
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// createFromEvent inserts the order row for a first-seen external id.
// Contact identity goes through the PII layer; events without an email
// (a cancellation arriving before creation) produce a row with no
// queryable identity, which the lookup path reports as not found.
func (s *OrderService) createFromEvent(ctx context.Context, tx *gorm.DB, ev *webhook.Event) (*domain.Order, error) {
	var orderNumber, email string
	switch ev.Topic {
	case webhook.TopicOrderCreated:
		orderNumber = ev.OrderCreated.OrderNumber
		email = ev.OrderCreated.Email
	case webhook.TopicOrderFulfilled:
		orderNumber = ev.OrderFulfilled.OrderNumber
		email = ev.OrderFulfilled.Email
	}

	var encrypted, hash string
	if email != "" {
		var err error
		encrypted, err = s.Codec.Encrypt(pii.NormalizeEmail(email))
		if err != nil {
			return nil, err
		}
		hash = pii.HashEmail(email)
	}

	publicID, err := pii.NewPublicID()
	if err != nil {
		return nil, err
	}

	return repo.CreateOrder(ctx, tx, &domain.Order{
		ExternalOrderID:       ev.ExternalOrderID(),
		ExternalOrderNumber:   orderNumber,
		ContactEmailEncrypted: encrypted,
		ContactEmailHash:      hash,
		PublicID:              publicID,
		Status:                domain.StatusPending,
	})
}

// transitionFor maps a topic to its timeline transition.
func transitionFor(ev *webhook.Event) (transition, error) {
	switch ev.Topic {
	case webhook.TopicOrderCreated:
		return transition{
			status:      domain.StatusConfirmed,
			description: "Order confirmed",
			occurredAt:  ev.OrderCreated.CreatedAt,
			isComplete:  true,
		}, nil
	case webhook.TopicOrderFulfilled:
		f := ev.OrderFulfilled
		return transition{
			status:      domain.StatusShipped,
			description: fmt.Sprintf("Shipped via %s", orDefault(f.Carrier, "carrier")),
			occurredAt:  f.FulfilledAt,
			isComplete:  true,
			shipping: &repo.ShippingUpdate{
				Carrier:        f.Carrier,
				TrackingNumber: f.TrackingNumber,
				TrackingURL:    f.TrackingURL,
			},
		}, nil
	case webhook.TopicOrderCancelled:
		desc := "Order cancelled"
		if r := strings.TrimSpace(ev.OrderCancelled.Reason); r != "" {
			desc = "Order cancelled: " + r
		}
		return transition{
			status:      domain.StatusCancelled,
			description: desc,
			occurredAt:  ev.OrderCancelled.CancelledAt,
			isComplete:  true,
		}, nil
	}
	return transition{}, fmt.Errorf("%w: %q", webhook.ErrUnknownTopic, ev.Topic)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

//
// Public lookup view
//

// emailRE is a permissive shape check; real validation is the hash match.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// TimelineStep is one public timeline element.
type TimelineStep struct {
	Status      domain.OrderStatus `json:"status"`
	Description string             `json:"description"`
	Timestamp   time.Time          `json:"timestamp"`
	IsComplete  bool               `json:"is_complete"`
}

// ShippingView is the public shipment block, present once fulfilled.
type ShippingView struct {
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url,omitempty"`
}

// PublicOrderStatus is the customer-facing order view. Email echoes the
// caller-supplied value; nothing in this struct comes from decryption.
type PublicOrderStatus struct {
	PublicID    string             `json:"public_id"`
	OrderNumber string             `json:"order_number"`
	Email       string             `json:"email"`
	Status      domain.OrderStatus `json:"status"`
	Timeline    []TimelineStep     `json:"timeline"`
	Shipping    *ShippingView      `json:"shipping,omitempty"`
}

// GetOrderStatus resolves the public status view for an (order number,
// email) pair. The email is normalized and hashed exactly as the storage
// layer does it; a miss on either component returns ErrOrderNotFound with
// no further detail.
func (s *OrderService) GetOrderStatus(ctx context.Context, orderNumber, email string) (*PublicOrderStatus, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, ErrInvalidOrderNumber
	}
	if !emailRE.MatchString(strings.TrimSpace(email)) {
		return nil, ErrInvalidEmail
	}

	order, err := repo.FindOrderForLookup(ctx, s.DB, orderNumber, pii.HashEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	view := &PublicOrderStatus{
		PublicID:    order.PublicID,
		OrderNumber: order.ExternalOrderNumber,
		Email:       strings.TrimSpace(email),
		Status:      order.Status,
		Timeline:    make([]TimelineStep, 0, len(order.StatusHistory)),
	}
	for _, e := range order.StatusHistory {
		view.Timeline = append(view.Timeline, TimelineStep{
			Status:      e.Status,
			Description: e.Description,
			Timestamp:   e.OccurredAt,
			IsComplete:  e.IsComplete,
		})
	}
	if order.TrackingNumber != nil && *order.TrackingNumber != "" {
		view.Shipping = &ShippingView{TrackingNumber: *order.TrackingNumber}
		if order.CarrierName != nil {
			view.Shipping.Carrier = *order.CarrierName
		}
		if order.TrackingURL != nil {
			view.Shipping.TrackingURL = *order.TrackingURL
		}
	}
	return view, nil
}
