// Package services defines the business logic of the order event
// pipeline: applying webhook events to the order store, the customer
// lookup view, and webhook replay. This file centralizes common
// service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrOrderNotFound is the uniform outcome for a lookup that matches no
	// (order number, email) pair. It deliberately does not distinguish a
	// wrong order number from a wrong email, so valid order numbers cannot
	// be enumerated.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidEmail is returned when a lookup email fails basic format
	// validation before any database work happens.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidOrderNumber is returned when a lookup order number is empty
	// or malformed.
	ErrInvalidOrderNumber = errors.New("invalid order number")

	// ErrWebhookLogNotFound indicates a replay was requested for a log
	// entry that does not exist.
	ErrWebhookLogNotFound = errors.New("webhook log not found")
)
