package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Topic identifies the business meaning of a webhook delivery. It arrives
// in the X-Topic request header, mirroring the source platform's topic
// naming.
type Topic string

// Supported webhook topics.
const (
	TopicOrderCreated   Topic = "orders/create"
	TopicOrderFulfilled Topic = "orders/fulfilled"
	TopicOrderCancelled Topic = "orders/cancelled"
)

// HeaderTopic and HeaderWebhookID carry the topic and the platform's
// delivery id alongside the signed body.
const (
	HeaderTopic     = "X-Topic"
	HeaderWebhookID = "X-Webhook-ID"
)

// Parse errors.
var (
	// ErrUnknownTopic indicates a topic this pipeline does not handle.
	ErrUnknownTopic = errors.New("webhook: unknown topic")

	// ErrMalformedPayload indicates the body failed JSON decoding or field
	// validation for its topic.
	ErrMalformedPayload = errors.New("webhook: malformed payload")
)

// OrderCreatedEvent is the validated form of an orders/create delivery.
type OrderCreatedEvent struct {
	ExternalOrderID string
	OrderNumber     string
	Email           string
	CreatedAt       time.Time
}

// OrderFulfilledEvent is the validated form of an orders/fulfilled
// delivery. Email may be empty when the platform omits contact details on
// fulfillment; the order is then created without a queryable identity if
// it did not already exist.
type OrderFulfilledEvent struct {
	ExternalOrderID string
	OrderNumber     string
	Email           string
	Carrier         string
	TrackingNumber  string
	TrackingURL     string
	FulfilledAt     time.Time
}

// OrderCancelledEvent is the validated form of an orders/cancelled
// delivery.
type OrderCancelledEvent struct {
	ExternalOrderID string
	Reason          string
	CancelledAt     time.Time
}

// Event is a tagged union over the per-topic payload schemas. Exactly one
// of the pointer fields is non-nil, selected by Topic. Handlers and the
// replay worker both consume this type, so live and replayed deliveries
// flow through identical validation.
type Event struct {
	Topic Topic

	OrderCreated   *OrderCreatedEvent
	OrderFulfilled *OrderFulfilledEvent
	OrderCancelled *OrderCancelledEvent
}

// ExternalOrderID returns the platform order id regardless of topic.
func (e *Event) ExternalOrderID() string {
	switch e.Topic {
	case TopicOrderCreated:
		return e.OrderCreated.ExternalOrderID
	case TopicOrderFulfilled:
		return e.OrderFulfilled.ExternalOrderID
	case TopicOrderCancelled:
		return e.OrderCancelled.ExternalOrderID
	}
	return ""
}

// OccurredAt returns the UTC timestamp of the source event. Timeline
// entries record this, not the processing time.
func (e *Event) OccurredAt() time.Time {
	switch e.Topic {
	case TopicOrderCreated:
		return e.OrderCreated.CreatedAt
	case TopicOrderFulfilled:
		return e.OrderFulfilled.FulfilledAt
	case TopicOrderCancelled:
		return e.OrderCancelled.CancelledAt
	}
	return time.Time{}
}

// Wire shapes, decoded after signature verification only.

type orderCreatedWire struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

type orderFulfilledWire struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Email       string `json:"email"`
	Fulfillment struct {
		TrackingCompany string    `json:"tracking_company"`
		TrackingNumber  string    `json:"tracking_number"`
		TrackingURL     string    `json:"tracking_url"`
		CreatedAt       time.Time `json:"created_at"`
	} `json:"fulfillment"`
}

type orderCancelledWire struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// ParseEvent decodes and validates a raw body for the given topic. The
// caller must have verified the signature first. Unknown topics return
// ErrUnknownTopic; decode or validation failures return errors wrapping
// ErrMalformedPayload so the handler can map them to HTTP 400.
func ParseEvent(topic Topic, body []byte) (*Event, error) {
	switch topic {
	case TopicOrderCreated:
		var w orderCreatedWire
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.OrderNumber) == "" {
			return nil, fmt.Errorf("%w: id and order_number are required", ErrMalformedPayload)
		}
		if strings.TrimSpace(w.Email) == "" {
			return nil, fmt.Errorf("%w: email is required on %s", ErrMalformedPayload, topic)
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = time.Now()
		}
		return &Event{Topic: topic, OrderCreated: &OrderCreatedEvent{
			ExternalOrderID: w.ID,
			OrderNumber:     w.OrderNumber,
			Email:           w.Email,
			CreatedAt:       w.CreatedAt.UTC(),
		}}, nil

	case TopicOrderFulfilled:
		var w orderFulfilledWire
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if strings.TrimSpace(w.ID) == "" {
			return nil, fmt.Errorf("%w: id is required", ErrMalformedPayload)
		}
		if strings.TrimSpace(w.Fulfillment.TrackingNumber) == "" {
			return nil, fmt.Errorf("%w: fulfillment.tracking_number is required", ErrMalformedPayload)
		}
		if w.Fulfillment.CreatedAt.IsZero() {
			w.Fulfillment.CreatedAt = time.Now()
		}
		return &Event{Topic: topic, OrderFulfilled: &OrderFulfilledEvent{
			ExternalOrderID: w.ID,
			OrderNumber:     w.OrderNumber,
			Email:           w.Email,
			Carrier:         w.Fulfillment.TrackingCompany,
			TrackingNumber:  w.Fulfillment.TrackingNumber,
			TrackingURL:     w.Fulfillment.TrackingURL,
			FulfilledAt:     w.Fulfillment.CreatedAt.UTC(),
		}}, nil

	case TopicOrderCancelled:
		var w orderCancelledWire
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if strings.TrimSpace(w.ID) == "" {
			return nil, fmt.Errorf("%w: id is required", ErrMalformedPayload)
		}
		if w.CancelledAt.IsZero() {
			w.CancelledAt = time.Now()
		}
		return &Event{Topic: topic, OrderCancelled: &OrderCancelledEvent{
			ExternalOrderID: w.ID,
			Reason:          w.Reason,
			CancelledAt:     w.CancelledAt.UTC(),
		}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
}
