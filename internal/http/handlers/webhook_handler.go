// Webhook intake endpoint.
//
// This file implements POST /webhooks/orders, the only write path into the
// order store. The raw body is read before any parsing so the HMAC check
// covers the exact bytes the platform signed; parsing happens only after
// the signature verifies. Every verified delivery is persisted to the
// webhook log before processing, so a failed delivery can be replayed
// from storage later.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/http/middleware"
	"github.com/tbourn/go-order-backend/internal/notify"
	"github.com/tbourn/go-order-backend/internal/pii"
	"github.com/tbourn/go-order-backend/internal/preview"
	"github.com/tbourn/go-order-backend/internal/repo"
	"github.com/tbourn/go-order-backend/internal/services"
	"github.com/tbourn/go-order-backend/internal/webhook"
)

// WebhookAck is the success body returned to the source platform.
type WebhookAck struct {
	Received bool `json:"received" example:"true"`
}

// ReceiveWebhook godoc
// @ID          receiveWebhook
// @Summary     Receive a signed order event
// @Description Verifies the HMAC signature over the raw body, persists the delivery, and applies it to the order store. Unverified requests are rejected before any parsing.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Signature   header  string  true  "Base64 HMAC-SHA256 of the raw body"
// @Param       X-Topic       header  string  true  "Event topic"  Enums(orders/create, orders/fulfilled, orders/cancelled)
// @Param       X-Webhook-ID  header  string  true  "Delivery id assigned by the platform"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown topic or malformed payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid signature"
// @Failure     500  {object}  handlers.ErrorResponse  "Processing failed; delivery queued for replay"
// @Router      /webhooks/orders [post]
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	if err := webhook.Verify(body, c.GetHeader(webhook.HeaderSignature), h.secret); err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeInvalidSignature, "signature verification failed")
		return
	}

	topic := webhook.Topic(c.GetHeader(webhook.HeaderTopic))
	webhookID := strings.TrimSpace(c.GetHeader(webhook.HeaderWebhookID))
	if webhookID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing "+webhook.HeaderWebhookID+" header")
		return
	}

	rec, created, err := repo.CreateWebhookLog(ctx, h.db, webhookID, string(topic), body)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "persisting delivery failed")
		return
	}
	// The platform redelivered something we already processed: acknowledge
	// without touching the order store again.
	if !created && rec.Status == domain.WebhookProcessed {
		ok(c, http.StatusOK, WebhookAck{Received: true})
		return
	}

	ev, err := webhook.ParseEvent(topic, body)
	if err != nil {
		_ = repo.RecordWebhookAttempt(ctx, h.db, rec.ID, domain.WebhookRetrying, err.Error())
		if errors.Is(err, webhook.ErrUnknownTopic) {
			fail(c, http.StatusBadRequest, ErrCodeUnknownTopic, err.Error())
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeMalformedPayload, "payload does not match topic schema")
		return
	}

	res, err := h.orders.ApplyEvent(ctx, ev)
	if err != nil {
		// Keep the delivery replayable: record the failure, queue a replay,
		// and fail the request so the platform retries too.
		_ = repo.RecordWebhookAttempt(ctx, h.db, rec.ID, domain.WebhookRetrying, err.Error())
		if _, qerr := h.replayQ.Enqueue(JobWebhookReplay, rec.ID); qerr != nil {
			middleware.LoggerFrom(c).Warn().Err(qerr).Str("webhook_id", webhookID).Msg("replay enqueue failed")
		}
		fail(c, http.StatusInternalServerError, ErrCodeProcessingFailed, "event processing failed")
		return
	}

	if err := repo.RecordWebhookAttempt(ctx, h.db, rec.ID, domain.WebhookProcessed, ""); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("webhook_id", webhookID).Msg("marking delivery processed failed")
	}
	if res.Appended {
		h.enqueueSideEffects(c, ev, res)
	}

	ok(c, http.StatusOK, WebhookAck{Received: true})
}

// enqueueSideEffects schedules the notification and preview work a state
// change produces. Failures here are logged and dropped: the order state
// is already committed and the request must still succeed.
func (h *Handlers) enqueueSideEffects(c *gin.Context, ev *webhook.Event, res *services.ApplyResult) {
	lg := middleware.LoggerFrom(c)

	if job, payload, want := notificationFor(ev, res); want {
		if _, err := h.notifyQ.Enqueue(job, payload); err != nil {
			lg.Warn().Err(err).Str("job", job).Msg("notification enqueue failed")
		}
	}

	entries, err := repo.ListStatusEntries(c.Request.Context(), h.db, res.Order.ID)
	if err != nil {
		lg.Warn().Err(err).Msg("loading timeline for preview failed")
		return
	}
	render := preview.RenderJob{
		PublicID:    res.Order.PublicID,
		OrderNumber: res.Order.ExternalOrderNumber,
		Status:      res.Order.Status,
		Timeline:    make([]preview.TimelineItem, 0, len(entries)),
	}
	for _, e := range entries {
		render.Timeline = append(render.Timeline, preview.TimelineItem{
			Status:      e.Status,
			Description: e.Description,
			Timestamp:   e.OccurredAt,
			IsComplete:  e.IsComplete,
		})
	}
	if _, err := h.prevQ.Enqueue(preview.JobRender, render); err != nil {
		lg.Warn().Err(err).Msg("preview enqueue failed")
	}
}

// notificationFor maps an applied event to the email job it should send.
// Cancellations and events without a contact address produce none.
func notificationFor(ev *webhook.Event, res *services.ApplyResult) (job string, payload notify.OrderEmail, want bool) {
	var email string
	switch ev.Topic {
	case webhook.TopicOrderCreated:
		job = notify.JobOrderConfirmation
		email = ev.OrderCreated.Email
	case webhook.TopicOrderFulfilled:
		job = notify.JobOrderShipped
		email = ev.OrderFulfilled.Email
	default:
		return "", notify.OrderEmail{}, false
	}
	if strings.TrimSpace(email) == "" {
		return "", notify.OrderEmail{}, false
	}

	payload = notify.OrderEmail{
		To:          pii.NormalizeEmail(email),
		OrderNumber: res.Order.ExternalOrderNumber,
		PublicID:    res.Order.PublicID,
	}
	if ev.Topic == webhook.TopicOrderFulfilled {
		payload.Carrier = ev.OrderFulfilled.Carrier
		payload.TrackingNumber = ev.OrderFulfilled.TrackingNumber
		payload.TrackingURL = ev.OrderFulfilled.TrackingURL
	}
	return job, payload, true
}
