package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"biorempp/internal/admin"
	"biorempp/internal/analysis"
	analysishandler "biorempp/internal/analysis/handler"
	"biorempp/internal/audit"
	"biorempp/internal/events"
	httpapi "biorempp/internal/http"
	jwttoken "biorempp/internal/jwt_token"
	"biorempp/internal/pipeline"
	"biorempp/internal/pipeline/store/resultcache"
	"biorempp/internal/platform/config"
	"biorempp/internal/platform/httpserver"
	"biorempp/internal/platform/logger"
	"biorempp/internal/platform/metrics"
	"biorempp/internal/platform/middleware"
	platformredis "biorempp/internal/platform/redis"
	"biorempp/internal/progress"
	"biorempp/internal/reftable"
)

const shutdownTimeout = 15 * time.Second

// main wires the dependency graph and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.Config{Format: cfg.Server.LogFormat, Level: cfg.Server.LogLevel})

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reference tables.
	catalog, err := reftable.NewCatalog(ctx, cfg.Tables.CatalogConfig(), log)
	if err != nil {
		return fmt.Errorf("build table catalog: %w", err)
	}
	if cfg.Pipeline.WarmTables {
		if err := catalog.WarmUp(ctx); err != nil {
			return fmt.Errorf("warm reference tables: %w", err)
		}
	}

	// Result cache: Redis when configured, in-memory otherwise.
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var cache resultcache.ResultCache
	if redisClient != nil {
		defer redisClient.Close()
		cache = resultcache.NewRedis(redisClient.Client)
		log.Info("result cache backend: redis")
	} else {
		cache = resultcache.NewMemory(resultcache.WithMaxEntries(cfg.Pipeline.CacheMaxEntries))
		log.Info("result cache backend: memory", "max_entries", cfg.Pipeline.CacheMaxEntries)
	}

	// Progress registry and merge pipeline.
	trackers := progress.NewRegistry(progress.WithMaxTrackers(cfg.Sessions.MaxSessions))
	orch, err := pipeline.New(catalog, cache, cfg.Pipeline.OrchestratorConfig(),
		pipeline.WithLogger(log),
		pipeline.WithRegistry(trackers),
	)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	// Audit trail: Postgres when configured, in-memory otherwise.
	var auditStore audit.Store
	if dsn := cfg.Audit.PostgresDSN; dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping audit database: %w", err)
		}
		pg := audit.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		auditStore = pg
		log.Info("audit store backend: postgres")
	} else {
		auditStore = audit.NewMemoryStore()
		log.Info("audit store backend: memory")
	}
	auditPublisher := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.Audit.BufferSize),
		audit.WithPublisherLogger(log),
	)

	// Analysis lifecycle events: Kafka when brokers are configured.
	var eventPublisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic,
			events.WithLogger(log),
		)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		eventPublisher = kafkaPublisher
		log.Info("event stream backend: kafka", "topic", cfg.Kafka.Topic)
	}

	// Session tokens, session store, analysis service.
	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	sessions := analysis.NewMemoryStore(
		analysis.WithTTL(cfg.Sessions.TTL),
		analysis.WithMaxSessions(cfg.Sessions.MaxSessions),
	)
	analysisService, err := analysis.New(orch, tokens, sessions, trackers,
		analysis.Config{
			Limits:            cfg.Limits.ParserLimits(),
			MaxContentBytes:   cfg.Limits.MaxContentBytes,
			MaxConcurrentRuns: cfg.Pipeline.MaxConcurrentRuns,
		},
		analysis.WithLogger(log),
		analysis.WithAuditPublisher(auditPublisher),
		analysis.WithEventPublisher(eventPublisher),
	)
	if err != nil {
		return fmt.Errorf("build analysis service: %w", err)
	}

	adminService, err := admin.New(cache, catalog, orch,
		admin.WithLogger(log),
		admin.WithAuditPublisher(auditPublisher),
		admin.WithAuditReader(auditPublisher),
	)
	if err != nil {
		return fmt.Errorf("build admin service: %w", err)
	}

	// HTTP surface. The body cap leaves headroom over the content limit so
	// that oversized submissions reach the precheck and get its error shape.
	maxBody := int64(cfg.Limits.MaxContentBytes) + 1<<20
	sessionAuth := middleware.RequireSession(tokens, log)
	adminAuth := middleware.RequireAdminKey(cfg.Auth.AdminKeyHash, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Handlers: []httpapi.Registrar{
			analysishandler.New(analysisService, log, sessionAuth, maxBody),
			admin.NewHandler(adminService, log, adminAuth),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("biorempp server listening", "addr", cfg.Server.Addr, "tables", catalog.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	// Restore default signal handling so a second interrupt kills the
	// process even if shutdown hangs.
	stop()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	// Drain in dependency order: running analyses emit events and audit
	// records, so the service closes before its publishers.
	if err := analysisService.Close(shutdownCtx); err != nil {
		log.Warn("analysis runs cancelled during shutdown", "error", err)
	}
	if err := eventPublisher.Close(shutdownCtx); err != nil {
		log.Warn("event publisher close failed", "error", err)
	}
	auditPublisher.Close()

	log.Info("shutdown complete")
	return nil
}
