package preview

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/queue"
)

func renderJob() RenderJob {
	return RenderJob{
		PublicID:    "ord_abcdef123456",
		OrderNumber: "1001",
		Status:      domain.StatusShipped,
		Timeline: []TimelineItem{
			{Status: domain.StatusConfirmed, Description: "Order confirmed", Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), IsComplete: true},
			{Status: domain.StatusShipped, Description: "Shipped via DHL", Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), IsComplete: true},
		},
	}
}

func TestHandleJob_RendersSnapshot(t *testing.T) {
	r := NewRenderer()
	if err := r.HandleJob(context.Background(), queue.Job{Name: JobRender, Payload: renderJob()}); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	page, ok := r.Get("ord_abcdef123456")
	if !ok {
		t.Fatal("snapshot not cached")
	}
	for _, want := range []string{"Order 1001", "SHIPPED", "Shipped via DHL", "ord_abcdef123456"} {
		if !bytes.Contains(page, []byte(want)) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}
}

func TestHandleJob_EscapesMarkup(t *testing.T) {
	r := NewRenderer()
	job := renderJob()
	job.Timeline[0].Description = `<script>alert("x")</script>`
	if err := r.HandleJob(context.Background(), queue.Job{Name: JobRender, Payload: job}); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	page, _ := r.Get(job.PublicID)
	if bytes.Contains(page, []byte("<script>")) {
		t.Fatal("description rendered unescaped")
	}
}

func TestHandleJob_ReplacesEarlierSnapshot(t *testing.T) {
	r := NewRenderer()
	ctx := context.Background()

	first := renderJob()
	first.Status = domain.StatusConfirmed
	first.Timeline = first.Timeline[:1]
	if err := r.HandleJob(ctx, queue.Job{Name: JobRender, Payload: first}); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if err := r.HandleJob(ctx, queue.Job{Name: JobRender, Payload: renderJob()}); err != nil {
		t.Fatalf("second render: %v", err)
	}

	if r.Len() != 1 {
		t.Fatalf("expected one snapshot, got %d", r.Len())
	}
	page, _ := r.Get("ord_abcdef123456")
	if !bytes.Contains(page, []byte("SHIPPED")) {
		t.Fatal("snapshot not replaced by the newer render")
	}
}

func TestHandleJob_RejectsBadPayload(t *testing.T) {
	r := NewRenderer()
	ctx := context.Background()

	if err := r.HandleJob(ctx, queue.Job{Name: JobRender, Payload: 42}); err == nil {
		t.Fatal("expected payload type error")
	}
	if err := r.HandleJob(ctx, queue.Job{Name: JobRender, Payload: RenderJob{}}); err == nil {
		t.Fatal("expected missing public id error")
	}
	if _, ok := r.Get(""); ok {
		t.Fatal("bad payload must not cache a snapshot")
	}
}
