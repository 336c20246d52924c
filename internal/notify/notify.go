package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/tbourn/go-order-backend/internal/queue"
)

// Job names handled by the notifier. Registered on the notifications
// queue at startup.
const (
	JobOrderConfirmation = "order-confirmation"
	JobOrderShipped      = "order-shipped"
)

// OrderEmail is the payload of a notification job. The recipient address
// is carried in memory only for the lifetime of the job; it is taken
// from the triggering event, not decrypted from storage.
type OrderEmail struct {
	To          string
	OrderNumber string
	PublicID    string

	// Shipping fields, set for order-shipped jobs.
	Carrier        string
	TrackingNumber string
	TrackingURL    string
}

var confirmationTmpl = template.Must(template.New("order-confirmation").Parse(
	`Hi,

Thanks for your order! We've received order {{.OrderNumber}} and it is
now confirmed. You can check its progress any time with your order
number and email address.

Reference: {{.PublicID}}
`))

var shippedTmpl = template.Must(template.New("order-shipped").Parse(
	`Hi,

Good news! Your order {{.OrderNumber}} has shipped{{if .Carrier}} via {{.Carrier}}{{end}}.
{{if .TrackingNumber}}
Tracking number: {{.TrackingNumber}}
{{- end}}
{{- if .TrackingURL}}
Track it here: {{.TrackingURL}}
{{- end}}

Reference: {{.PublicID}}
`))

// Notifier turns queued OrderEmail payloads into rendered messages on
// its Mailer. Wire HandleJob to the notifications queue.
type Notifier struct {
	Mailer Mailer
}

// NewNotifier constructs a Notifier over the given transport.
func NewNotifier(m Mailer) *Notifier {
	return &Notifier{Mailer: m}
}

// HandleJob renders and sends the message for one notification job.
// Unknown job names and payload type mismatches are permanent errors;
// transport errors are returned as-is so the queue retries them.
func (n *Notifier) HandleJob(ctx context.Context, job queue.Job) error {
	p, ok := job.Payload.(OrderEmail)
	if !ok {
		return fmt.Errorf("notify: job %s carries %T, want OrderEmail", job.Name, job.Payload)
	}
	if strings.TrimSpace(p.To) == "" {
		return fmt.Errorf("notify: job %s has no recipient", job.Name)
	}

	var (
		tmpl    *template.Template
		subject string
	)
	switch job.Name {
	case JobOrderConfirmation:
		tmpl = confirmationTmpl
		subject = fmt.Sprintf("Order %s confirmed", p.OrderNumber)
	case JobOrderShipped:
		tmpl = shippedTmpl
		subject = fmt.Sprintf("Order %s has shipped", p.OrderNumber)
	default:
		return fmt.Errorf("notify: unknown job %q", job.Name)
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, p); err != nil {
		return fmt.Errorf("notify: render %s: %w", job.Name, err)
	}
	return n.Mailer.Send(ctx, p.To, subject, body.String())
}
