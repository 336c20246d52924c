// Package preview renders static HTML status snapshots for orders. The
// render runs as a queue job after each timeline change, so the webhook
// path never pays the templating cost; the latest snapshot per order is
// kept in memory and served read-only.
package preview

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/queue"
)

// JobRender is the job name registered on the previews queue.
const JobRender = "render-status-page"

// TimelineItem is one rendered timeline row.
type TimelineItem struct {
	Status      domain.OrderStatus
	Description string
	Timestamp   time.Time
	IsComplete  bool
}

// RenderJob is the payload of a preview render job. It carries only
// public, non-identifying fields.
type RenderJob struct {
	PublicID    string
	OrderNumber string
	Status      domain.OrderStatus
	Timeline    []TimelineItem
}

var pageTmpl = template.Must(template.New("status-page").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Order {{.OrderNumber}}</title>
</head>
<body>
  <h1>Order {{.OrderNumber}}</h1>
  <p>Current status: <strong>{{.Status}}</strong></p>
  <ol>
  {{- range .Timeline}}
    <li{{if .IsComplete}} class="done"{{end}}>
      {{.Status}} &mdash; {{.Description}}
      <time datetime="{{.Timestamp.Format "2006-01-02T15:04:05Z07:00"}}">{{.Timestamp.Format "Jan 2, 2006 15:04 MST"}}</time>
    </li>
  {{- end}}
  </ol>
  <footer>Reference: {{.PublicID}}</footer>
</body>
</html>
`))

// Renderer renders and caches status snapshots. Safe for concurrent use.
type Renderer struct {
	mu    sync.RWMutex
	pages map[string][]byte
}

// NewRenderer constructs an empty Renderer.
func NewRenderer() *Renderer {
	return &Renderer{pages: make(map[string][]byte)}
}

// HandleJob renders the snapshot for one order and replaces any earlier
// one under the same public id. Re-rendering the same payload lands on
// identical output, so retried jobs are harmless.
func (r *Renderer) HandleJob(_ context.Context, job queue.Job) error {
	p, ok := job.Payload.(RenderJob)
	if !ok {
		return fmt.Errorf("preview: job %s carries %T, want RenderJob", job.Name, job.Payload)
	}
	if strings.TrimSpace(p.PublicID) == "" {
		return fmt.Errorf("preview: job %s has no public id", job.Name)
	}

	var buf strings.Builder
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return fmt.Errorf("preview: render %s: %w", p.PublicID, err)
	}

	r.mu.Lock()
	r.pages[p.PublicID] = []byte(buf.String())
	r.mu.Unlock()
	return nil
}

// Get returns the latest snapshot for a public id, or false when none
// has been rendered yet.
func (r *Renderer) Get(publicID string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page, ok := r.pages[publicID]
	return page, ok
}

// Len reports how many snapshots are cached.
func (r *Renderer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}
