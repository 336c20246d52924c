// Operator endpoints for the webhook log and queues.
//
// These routes expose the persisted delivery history (paginated, with an
// optional status filter), single-entry inspection, manual replay, and
// the dead-letter rings of the work queues. Raw payloads are returned
// only from the single-entry endpoint; list responses stay metadata-only.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/queue"
	"github.com/tbourn/go-order-backend/internal/repo"
)

// WebhookLogSummary is the list-view projection of a delivery: everything
// except the raw payload.
type WebhookLogSummary struct {
	ID            string                  `json:"id"`
	WebhookID     string                  `json:"webhook_id"`
	Topic         string                  `json:"topic"`
	Status        domain.WebhookLogStatus `json:"status"`
	Attempts      int                     `json:"attempts"`
	LastAttemptAt *time.Time              `json:"last_attempt_at,omitempty"`
	ErrorMessage  string                  `json:"error_message,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// ListWebhookLogsResponse wraps a page of deliveries and pagination info.
type ListWebhookLogsResponse struct {
	Webhooks   []WebhookLogSummary `json:"webhooks"`
	Pagination Pagination          `json:"pagination"`
}

// WebhookLogDetail is the single-entry projection: the summary plus the
// raw payload, returned as a string for inspection.
type WebhookLogDetail struct {
	WebhookLogSummary
	Payload string `json:"payload"`
}

// ReplayAccepted reports the queued replay job.
type ReplayAccepted struct {
	JobID string `json:"job_id"`
}

func summarize(rec domain.WebhookLog) WebhookLogSummary {
	return WebhookLogSummary{
		ID:            rec.ID,
		WebhookID:     rec.WebhookID,
		Topic:         rec.Topic,
		Status:        rec.Status,
		Attempts:      rec.Attempts,
		LastAttemptAt: rec.LastAttemptAt,
		ErrorMessage:  rec.ErrorMessage,
		CreatedAt:     rec.CreatedAt,
	}
}

// ListWebhookLogs godoc
// @ID          listWebhookLogs
// @Summary     List webhook deliveries (paginated)
// @Description Returns a page of persisted webhook deliveries, newest first, optionally filtered by status. Payloads are omitted.
// @Tags        Admin
// @Produce     json
//
// @Param       status     query  string  false "Filter by status"  Enums(RECEIVED, RETRYING, PROCESSED, FAILED)
// @Param       page       query  int     false "Page number"       minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListWebhookLogsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /webhooks [get]
func (h *Handlers) ListWebhookLogs(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	status := domain.WebhookLogStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))

	total, err := repo.CountWebhookLogs(ctx, h.db, status)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListWebhookLogsPage(ctx, h.db, status, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	resp := ListWebhookLogsResponse{Webhooks: make([]WebhookLogSummary, 0, len(items))}
	for _, rec := range items {
		resp.Webhooks = append(resp.Webhooks, summarize(rec))
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp.Pagination = Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
	ok(c, http.StatusOK, resp)
}

// GetWebhookLog godoc
// @ID          getWebhookLog
// @Summary     Inspect one webhook delivery
// @Description Returns a single persisted delivery including its raw payload.
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  string  true  "Webhook log id"
//
// @Success     200  {object}  handlers.WebhookLogDetail
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /webhooks/{id} [get]
func (h *Handlers) GetWebhookLog(c *gin.Context) {
	rec, err := repo.GetWebhookLog(c.Request.Context(), h.db, c.Param("id"))
	if errors.Is(err, repo.ErrNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "webhook log not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, WebhookLogDetail{
		WebhookLogSummary: summarize(*rec),
		Payload:           string(rec.Payload),
	})
}

// ReplayWebhook godoc
// @ID          replayWebhook
// @Summary     Queue a webhook replay
// @Description Enqueues a replay of the persisted payload for the given delivery. Replaying an already processed delivery is a harmless no-op.
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  string  true  "Webhook log id"
//
// @Success     202  {object}  handlers.ReplayAccepted
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown id"
// @Failure     500  {object}  handlers.ErrorResponse  "Queue rejected the job"
// @Router      /webhooks/{id}/replay [post]
func (h *Handlers) ReplayWebhook(c *gin.Context) {
	id := c.Param("id")
	if _, err := repo.GetWebhookLog(c.Request.Context(), h.db, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "webhook log not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	jobID, err := h.replayQ.Enqueue(JobWebhookReplay, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReplayFailed, err.Error())
		return
	}
	ok(c, http.StatusAccepted, ReplayAccepted{JobID: jobID})
}

// ListDeadLetters godoc
// @ID          listDeadLetters
// @Summary     List dead-lettered jobs
// @Description Returns the retained jobs that exhausted their retry budget on the named queue.
// @Tags        Admin
// @Produce     json
//
// @Param       name  path  string  true  "Queue name"  Enums(webhook-replay, notifications, previews)
//
// @Success     200  {array}   queue.DeadJob
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown queue"
// @Router      /queues/{name}/dead [get]
func (h *Handlers) ListDeadLetters(c *gin.Context) {
	name := c.Param("name")
	for _, q := range []Enqueuer{h.replayQ, h.notifyQ, h.prevQ} {
		if q != nil && q.Name() == name {
			dead := q.DeadLetters()
			if dead == nil {
				dead = []queue.DeadJob{}
			}
			ok(c, http.StatusOK, dead)
			return
		}
	}
	fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown queue")
}
