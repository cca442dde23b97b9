package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"signup/internal/platform/config"
	"signup/internal/platform/httpserver"
	"signup/internal/platform/logger"
	"signup/internal/platform/middleware"
	"signup/internal/signup/handler"
	"signup/internal/signup/metrics"
	"signup/internal/signup/orchestrator"
	"signup/internal/signup/session"
	auditpublisher "signup/pkg/platform/audit/publisher"
	"signup/pkg/platform/audit/sink"
	"signup/pkg/platform/httputil"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/signup.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("signup server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()

	auditStore, closeAudit, err := openAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	guarded := sink.New(auditStore,
		sink.WithSampleRate(cfg.Audit.OpsSampleRate),
		sink.WithBreaker(cfg.Audit.BreakerThreshold, cfg.Audit.BreakerCooldown),
		sink.WithMetrics(sink.NewMetrics(prometheus.DefaultRegisterer)),
		sink.WithLogger(log),
	)
	publisher := auditpublisher.NewPublisher(guarded,
		auditpublisher.WithAsyncBuffer(cfg.Audit.Buffer),
		auditpublisher.WithLogger(log),
	)

	m := metrics.New()
	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(m),
		orchestrator.WithAuditPublisher(publisher),
	}
	if cfg.StrictCommit {
		orchOpts = append(orchOpts, orchestrator.WithStrictCommit())
	}
	registry := session.NewRegistry(backend.store,
		session.WithTTL(cfg.Session.TTL),
		session.WithCleanupInterval(cfg.Session.CleanupInterval),
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithAuditPublisher(publisher),
		session.WithOrchestratorOptions(orchOpts...),
	)

	srv := httpserver.New(cfg.Addr, newRouter(registry, log, backend.ping))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting signup server", "addr", cfg.Addr, "store", cfg.Store, "strict_commit", cfg.StrictCommit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		publisher.Close()
		if dropped := publisher.Dropped(); dropped > 0 {
			log.Warn("audit events dropped", "count", dropped)
		}
		return err
	})
	return g.Wait()
}

func newRouter(sessions handler.Sessions, log *slog.Logger, ping func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(chimw.Recoverer)
	handler.New(sessions, log).Register(r)
	r.Get("/healthz", healthz(ping))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func healthz(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
