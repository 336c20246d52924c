package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/queue"
	"github.com/tbourn/go-order-backend/internal/repo"
)

func seedWebhookLogs(t *testing.T, env *testEnv, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec, _, err := repo.CreateWebhookLog(context.Background(), env.db,
			fmt.Sprintf("wh-%d", i), "orders/create", []byte(`{}`))
		if err != nil {
			t.Fatalf("seed log %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

func adminGet(env *testEnv, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestListWebhookLogs_Pagination(t *testing.T) {
	env := newTestEnv(t, nil)
	seedWebhookLogs(t, env, 5)

	w := adminGet(env, "/admin/v1/webhooks?page=1&page_size=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ListWebhookLogsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(resp.Webhooks) != 2 || resp.Pagination.Total != 5 || resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", resp)
	}
	// List entries never include the payload.
	if raw := w.Body.String(); json.Valid([]byte(raw)) && containsField(raw, "payload") {
		t.Fatalf("list response leaked payloads: %s", raw)
	}
}

func containsField(body, field string) bool {
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return false
	}
	hooks, _ := m["webhooks"].([]any)
	for _, h := range hooks {
		if entry, ok := h.(map[string]any); ok {
			if _, has := entry[field]; has {
				return true
			}
		}
	}
	return false
}

func TestListWebhookLogs_StatusFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	ids := seedWebhookLogs(t, env, 3)
	if err := repo.SetWebhookStatus(context.Background(), env.db, ids[0], domain.WebhookFailed); err != nil {
		t.Fatalf("set status: %v", err)
	}

	w := adminGet(env, "/admin/v1/webhooks?status=failed")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListWebhookLogsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(resp.Webhooks) != 1 || resp.Webhooks[0].Status != domain.WebhookFailed {
		t.Fatalf("filter failed: %+v", resp.Webhooks)
	}
}

func TestGetWebhookLog_IncludesPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	ids := seedWebhookLogs(t, env, 1)

	w := adminGet(env, "/admin/v1/webhooks/"+ids[0])
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var detail WebhookLogDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if detail.ID != ids[0] || detail.Payload != `{}` {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if w := adminGet(env, "/admin/v1/webhooks/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("missing id: status = %d, want 404", w.Code)
	}
}

func TestReplayWebhook_Enqueues(t *testing.T) {
	env := newTestEnv(t, nil)
	ids := seedWebhookLogs(t, env, 1)

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/webhooks/"+ids[0]+"/replay", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ReplayAccepted
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.JobID == "" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	jobs := env.replayQ.enqueued()
	if len(jobs) != 1 || jobs[0].name != JobWebhookReplay || jobs[0].payload != ids[0] {
		t.Fatalf("unexpected replay jobs: %+v", jobs)
	}
}

func TestReplayWebhook_UnknownID(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/webhooks/nope/replay", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if len(env.replayQ.enqueued()) != 0 {
		t.Fatal("unknown id must not enqueue")
	}
}

func TestListDeadLetters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.replayQ.dead = []queue.DeadJob{{
		Job:      queue.Job{ID: "j1", Name: JobWebhookReplay, Payload: "log-1", Attempt: 5},
		Error:    "db unavailable",
		FailedAt: time.Now().UTC(),
	}}

	w := adminGet(env, "/admin/v1/queues/webhook-replay/dead")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var dead []queue.DeadJob
	if err := json.Unmarshal(w.Body.Bytes(), &dead); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(dead) != 1 || dead[0].Job.ID != "j1" || dead[0].Error != "db unavailable" {
		t.Fatalf("unexpected dead letters: %+v", dead)
	}

	// Empty ring serializes as [], not null.
	w = adminGet(env, "/admin/v1/queues/notifications/dead")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("empty ring: status = %d, body = %q", w.Code, w.Body.String())
	}

	if w := adminGet(env, "/admin/v1/queues/mystery/dead"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown queue: status = %d, want 404", w.Code)
	}
}
