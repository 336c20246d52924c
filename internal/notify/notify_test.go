package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-order-backend/internal/queue"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
	err  error
}

type capturedMail struct {
	to, subject, body string
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func TestHandleJob_Confirmation(t *testing.T) {
	m := &captureMailer{}
	n := NewNotifier(m)

	job := queue.Job{Name: JobOrderConfirmation, Payload: OrderEmail{
		To:          "customer@example.com",
		OrderNumber: "1001",
		PublicID:    "ord_abcdef123456",
	}}
	if err := n.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	if len(m.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(m.sent))
	}
	got := m.sent[0]
	if got.to != "customer@example.com" {
		t.Fatalf("to = %q", got.to)
	}
	if got.subject != "Order 1001 confirmed" {
		t.Fatalf("subject = %q", got.subject)
	}
	if !strings.Contains(got.body, "order 1001") || !strings.Contains(got.body, "ord_abcdef123456") {
		t.Fatalf("body missing order details:\n%s", got.body)
	}
}

func TestHandleJob_ShippedIncludesTracking(t *testing.T) {
	m := &captureMailer{}
	n := NewNotifier(m)

	job := queue.Job{Name: JobOrderShipped, Payload: OrderEmail{
		To:             "customer@example.com",
		OrderNumber:    "1001",
		PublicID:       "ord_abcdef123456",
		Carrier:        "DHL",
		TrackingNumber: "JD0146",
		TrackingURL:    "https://dhl.example/JD0146",
	}}
	if err := n.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	body := m.sent[0].body
	for _, want := range []string{"via DHL", "JD0146", "https://dhl.example/JD0146"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestHandleJob_ShippedWithoutCarrier(t *testing.T) {
	m := &captureMailer{}
	n := NewNotifier(m)

	job := queue.Job{Name: JobOrderShipped, Payload: OrderEmail{
		To:             "customer@example.com",
		OrderNumber:    "1001",
		PublicID:       "ord_abcdef123456",
		TrackingNumber: "JD0146",
	}}
	if err := n.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if strings.Contains(m.sent[0].body, "via ") {
		t.Fatalf("body mentions a carrier that was not provided:\n%s", m.sent[0].body)
	}
}

func TestHandleJob_Errors(t *testing.T) {
	n := NewNotifier(&captureMailer{})
	ctx := context.Background()

	if err := n.HandleJob(ctx, queue.Job{Name: JobOrderConfirmation, Payload: "nope"}); err == nil {
		t.Fatal("expected payload type error")
	}
	if err := n.HandleJob(ctx, queue.Job{Name: "mystery", Payload: OrderEmail{To: "a@b.com"}}); err == nil {
		t.Fatal("expected unknown job error")
	}
	if err := n.HandleJob(ctx, queue.Job{Name: JobOrderConfirmation, Payload: OrderEmail{}}); err == nil {
		t.Fatal("expected missing recipient error")
	}

	sendErr := errors.New("smtp: connection refused")
	failing := NewNotifier(&captureMailer{err: sendErr})
	job := queue.Job{Name: JobOrderConfirmation, Payload: OrderEmail{To: "a@b.com", OrderNumber: "1"}}
	if err := failing.HandleJob(ctx, job); !errors.Is(err, sendErr) {
		t.Fatalf("transport error not propagated: %v", err)
	}
}

func TestLogMailer(t *testing.T) {
	if err := (LogMailer{}).Send(context.Background(), "customer@example.com", "s", "b"); err != nil {
		t.Fatalf("LogMailer.Send: %v", err)
	}
}
