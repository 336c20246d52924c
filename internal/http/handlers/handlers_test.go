package handlers

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-order-backend/internal/domain"
	"github.com/tbourn/go-order-backend/internal/pii"
	"github.com/tbourn/go-order-backend/internal/preview"
	"github.com/tbourn/go-order-backend/internal/queue"
	"github.com/tbourn/go-order-backend/internal/services"
)

const testSecret = "test-webhook-secret"

// fakeQueue records enqueues in place of a running queue.
type fakeQueue struct {
	name string

	mu   sync.Mutex
	jobs []fakeJob
	err  error
	dead []queue.DeadJob
}

type fakeJob struct {
	name    string
	payload any
}

func (f *fakeQueue) Enqueue(jobName string, payload any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, fakeJob{name: jobName, payload: payload})
	return fmt.Sprintf("job-%d", len(f.jobs)), nil
}

func (f *fakeQueue) DeadLetters() []queue.DeadJob { return f.dead }

func (f *fakeQueue) Name() string { return f.name }

func (f *fakeQueue) enqueued() []fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeJob, len(f.jobs))
	copy(out, f.jobs)
	return out
}

// testEnv bundles a router with real services over an in-memory DB and
// fake queues.
type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	renderer *preview.Renderer
	orders   *services.OrderService

	replayQ *fakeQueue
	notifyQ *fakeQueue
	prevQ   *fakeQueue
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.Order{}, &domain.OrderStatusEntry{}, &domain.WebhookLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newTestEnv builds the routes with the given OrderService; pass nil to
// use a real service over the test DB.
func newTestEnv(t *testing.T, orders OrderService) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	codec, err := pii.NewCodec(bytes.Repeat([]byte{0x11}, pii.KeySize))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	realSvc := services.NewOrderService(db, codec)
	if orders == nil {
		orders = realSvc
	}

	env := &testEnv{
		db:       db,
		renderer: preview.NewRenderer(),
		orders:   realSvc,
		replayQ:  &fakeQueue{name: "webhook-replay"},
		notifyQ:  &fakeQueue{name: "notifications"},
		prevQ:    &fakeQueue{name: "previews"},
	}

	h := New(db, testSecret, orders, env.renderer, env.replayQ, env.notifyQ, env.prevQ)

	r := gin.New()
	r.POST("/webhooks/orders", h.ReceiveWebhook)
	api := r.Group("/api/v1")
	api.GET("/orders/:orderNumber/status", h.GetOrderStatus)
	api.GET("/orders/preview/:publicID", h.GetOrderPreview)
	admin := r.Group("/admin/v1")
	admin.GET("/webhooks", h.ListWebhookLogs)
	admin.GET("/webhooks/:id", h.GetWebhookLog)
	admin.POST("/webhooks/:id/replay", h.ReplayWebhook)
	admin.GET("/queues/:name/dead", h.ListDeadLetters)

	env.router = r
	return env
}
