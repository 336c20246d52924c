// Command server runs the order event pipeline: the signed webhook
// intake, the background queues (replay, notifications, previews), and
// the public status lookup API, all in one process.
//
//	@title          Order Event Pipeline API
//	@version        1.0
//	@description    Receives signed commerce-platform webhooks, tracks order status timelines, and serves customer-facing status lookups.
//	@BasePath       /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-order-backend/docs"
	"github.com/tbourn/go-order-backend/internal/config"
	httpapi "github.com/tbourn/go-order-backend/internal/http"
	"github.com/tbourn/go-order-backend/internal/http/handlers"
	"github.com/tbourn/go-order-backend/internal/notify"
	"github.com/tbourn/go-order-backend/internal/observability"
	"github.com/tbourn/go-order-backend/internal/pii"
	"github.com/tbourn/go-order-backend/internal/preview"
	"github.com/tbourn/go-order-backend/internal/queue"
	"github.com/tbourn/go-order-backend/internal/repo"
	"github.com/tbourn/go-order-backend/internal/services"
	"github.com/tbourn/go-order-backend/internal/sysutil"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating database failed")
	}

	codec, err := pii.NewCodecHex(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("encryption key rejected")
	}

	ctx := context.Background()
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Services.
	orderSvc := services.NewOrderService(db, codec)
	replaySvc := services.NewReplayService(db, orderSvc)

	// Mail transport: real SMTP when configured, logging otherwise.
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTP.Addr != "" {
		mailer = &notify.SMTPMailer{Addr: cfg.SMTP.Addr, From: cfg.SMTP.From}
	}
	notifier := notify.NewNotifier(mailer)
	renderer := preview.NewRenderer()

	// Queues. All share the retry policy; the replay queue additionally
	// marks a log entry FAILED once its attempt budget is spent.
	baseOpts := queue.Options{
		Workers:       cfg.Queue.Workers,
		MaxAttempts:   cfg.Queue.MaxAttempts,
		BackoffBase:   cfg.Queue.BackoffBase,
		BackoffMax:    cfg.Queue.BackoffMax,
		DeadLetterMax: cfg.Queue.DeadLetterMax,
	}

	replayOpts := baseOpts
	replayOpts.OnExhausted = func(job queue.Job, err error) {
		id, ok := job.Payload.(string)
		if !ok {
			return
		}
		if merr := replaySvc.MarkFailed(context.Background(), id); merr != nil {
			log.Error().Err(merr).Str("log_id", id).Msg("marking webhook log failed errored")
		}
	}
	replayQ := queue.New("webhook-replay", replayOpts)
	replayQ.Handle(handlers.JobWebhookReplay, func(ctx context.Context, job queue.Job) error {
		id, ok := job.Payload.(string)
		if !ok {
			return errors.New("replay job payload is not a log id")
		}
		return replaySvc.Replay(ctx, id)
	})

	notifyQ := queue.New("notifications", baseOpts)
	notifyQ.Handle(notify.JobOrderConfirmation, notifier.HandleJob)
	notifyQ.Handle(notify.JobOrderShipped, notifier.HandleJob)

	prevQ := queue.New("previews", baseOpts)
	prevQ.Handle(preview.JobRender, renderer.HandleJob)

	replayQ.Start()
	notifyQ.Start()
	prevQ.Start()

	// HTTP server.
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, httpapi.Deps{
		Codec:       codec,
		Renderer:    renderer,
		ReplayQueue: replayQ,
		NotifyQueue: notifyQ,
		PrevQueue:   prevQ,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Block until a shutdown signal, then drain: stop accepting HTTP,
	// finish queued work, flush traces.
	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	<-stop.Done()
	cancel()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer done()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown incomplete")
	}
	for _, q := range []*queue.Queue{replayQ, notifyQ, prevQ} {
		if err := q.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Str("queue", q.Name()).Msg("queue drain incomplete")
		}
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown incomplete")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
