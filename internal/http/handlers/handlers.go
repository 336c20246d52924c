// Order pipeline HTTP handlers.
//
// This file wires the handler set and its service contracts. Endpoints:
//   - POST /webhooks/orders                      (signed event intake)
//   - GET  /orders/{orderNumber}/status          (public status lookup)
//   - GET  /orders/preview/{publicID}            (rendered status snapshot)
//   - GET  /webhooks, /webhooks/{id}, /replay    (operator surface)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-order-backend/internal/preview"
	"github.com/tbourn/go-order-backend/internal/queue"
	"github.com/tbourn/go-order-backend/internal/services"
	"github.com/tbourn/go-order-backend/internal/utils"
	"github.com/tbourn/go-order-backend/internal/webhook"

	"github.com/gin-gonic/gin"
)

// Queue job names enqueued by the HTTP layer. The matching handlers are
// registered on the queues at startup.
const (
	// JobWebhookReplay re-drives a persisted webhook payload; the job
	// payload is the WebhookLog row id.
	JobWebhookReplay = "webhook-replay"
)

//
// Service contracts (context-aware)
//

// OrderService defines the order operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OrderService interface {
	// ApplyEvent applies one verified webhook event to the order store.
	ApplyEvent(ctx context.Context, ev *webhook.Event) (*services.ApplyResult, error)
	// GetOrderStatus resolves the public view for an order number + email pair.
	GetOrderStatus(ctx context.Context, orderNumber, email string) (*services.PublicOrderStatus, error)
}

// Enqueuer is the slice of the queue API the handlers need.
type Enqueuer interface {
	// Enqueue accepts a job and returns its id.
	Enqueue(jobName string, payload any) (string, error)
	// DeadLetters returns the retained exhausted jobs.
	DeadLetters() []queue.DeadJob
	// Name returns the queue name.
	Name() string
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the order pipeline. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic; the DB handle is used only for webhook log bookkeeping.
type Handlers struct {
	db       *gorm.DB
	secret   string
	orders   OrderService
	previews *preview.Renderer

	replayQ Enqueuer
	notifyQ Enqueuer
	prevQ   Enqueuer
}

// New constructs a Handlers instance bound to the given dependencies.
// secret is the shared HMAC key for webhook verification.
func New(db *gorm.DB, secret string, orders OrderService, previews *preview.Renderer, replayQ, notifyQ, prevQ Enqueuer) *Handlers {
	return &Handlers{
		db:       db,
		secret:   secret,
		orders:   orders,
		previews: previews,
		replayQ:  replayQ,
		notifyQ:  notifyQ,
		prevQ:    prevQ,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
