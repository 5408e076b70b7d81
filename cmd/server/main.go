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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"ascent/internal/access"
	compliancecache "ascent/internal/compliance/cache"
	complianceservice "ascent/internal/compliance/service"
	compliancestore "ascent/internal/compliance/store"
	"ascent/internal/eventlog"
	"ascent/internal/eventlog/outbox"
	"ascent/internal/maintenance"
	"ascent/internal/platform/config"
	"ascent/internal/platform/httpserver"
	"ascent/internal/platform/kafka"
	"ascent/internal/platform/logger"
	"ascent/internal/platform/metrics"
	"ascent/internal/platform/middleware"
	"ascent/internal/platform/postgres"
	platformredis "ascent/internal/platform/redis"
	progressionservice "ascent/internal/progression/service"
	progressionstore "ascent/internal/progression/store"
	"ascent/internal/registry"
	"ascent/internal/snapshot"
	httptransport "ascent/internal/transport/http"
	"ascent/pkg/platform/httputil"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ascent: %v\n", err)
		os.Exit(1)
	}
}

// infra holds the optional backing services. A nil field selects the
// in-memory implementation for the concerns it serves.
type infra struct {
	db    *sql.DB
	redis *platformredis.Client
	kafka *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// app is the wired engine.
type app struct {
	handler *httptransport.Handler
	job     *maintenance.Job
	relay   *outbox.Relay
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	m := metrics.New()

	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	a, err := buildApp(cfg, log, m, catalog, deps)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Logger(log, m),
		chimw.Timeout(cfg.RequestTimeout),
		middleware.ContentTypeJSON,
	)
	router.Get("/healthz", healthHandler(deps))
	router.Handle("/metrics", promhttp.Handler())
	a.handler.Register(router)

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ascent", "addr", cfg.Addr, "domains", len(catalog.DomainIDs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if a.job != nil {
		g.Go(func() error { return a.job.Run(gctx) })
	}
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadCatalog(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.LoadFile(path)
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	ok := false
	defer func() {
		if !ok {
			deps.close()
		}
	}()

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		deps.db = db
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		log.Info("postgres stores enabled", "driver", cfg.Database.Driver)
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		deps.redis = rc
		log.Info("redis snapshot store and gate cache enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		if deps.db == nil {
			log.Warn("kafka brokers configured without a database; event relay disabled")
		} else {
			client, err := kafka.NewClient(cfg.Kafka)
			if err != nil {
				return nil, err
			}
			deps.kafka = client
			if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
				return nil, err
			}
			log.Info("event relay enabled", "topic", cfg.Kafka.Topic)
		}
	}

	ok = true
	return deps, nil
}

func buildApp(cfg config.Server, log *slog.Logger, m *metrics.Metrics, catalog *registry.Registry, deps *infra) (*app, error) {
	progressionOpts := []progressionservice.Option{
		progressionservice.WithLogger(log),
		progressionservice.WithMetrics(m),
		progressionservice.WithCascadeDepth(cfg.CascadeDepth),
	}
	complianceOpts := []complianceservice.Option{
		complianceservice.WithLogger(log),
		complianceservice.WithMetrics(m),
	}

	var (
		states progressionservice.StateStore
		gates  complianceservice.GateStore
		events eventlog.Store
	)
	if deps.db != nil {
		pgStates := progressionstore.NewPostgres(deps.db)
		pgGates := compliancestore.NewPostgres(deps.db)
		pgEvents := eventlog.NewPostgresStore(deps.db)
		states, gates, events = pgStates, pgGates, pgEvents
		progressionOpts = append(progressionOpts, progressionservice.WithTx(
			newProgressionPostgresTx(deps.db, pgStates, pgEvents, cfg.Database.TxTimeout)))
		complianceOpts = append(complianceOpts, complianceservice.WithTx(
			newCompliancePostgresTx(deps.db, pgGates, pgEvents, cfg.Database.TxTimeout)))
	} else {
		memEvents := eventlog.NewInMemoryStore()
		states, gates, events = progressionstore.NewInMemory(), compliancestore.NewInMemory(), memEvents
	}

	var snapshots interface {
		httptransport.Snapshots
		maintenance.SnapshotSource
	}
	if deps.redis != nil {
		snapshots = snapshot.NewRedis(deps.redis.Client)
		complianceOpts = append(complianceOpts, complianceservice.WithCache(
			compliancecache.NewRedis(deps.redis.Client, compliancecache.WithTTL(cfg.Redis.GateCacheTTL))))
	} else {
		snapshots = snapshot.NewInMemory()
	}

	progression, err := progressionservice.New(catalog, states, events, progressionOpts...)
	if err != nil {
		return nil, fmt.Errorf("progression service: %w", err)
	}
	compliance, err := complianceservice.New(catalog, gates, events, complianceOpts...)
	if err != nil {
		return nil, fmt.Errorf("compliance service: %w", err)
	}
	facade, err := access.New(catalog, progression, compliance, access.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("access facade: %w", err)
	}

	a := &app{}
	if cfg.Maintenance.Enabled {
		a.job, err = maintenance.New(progression, compliance, snapshots,
			maintenance.WithLogger(log),
			maintenance.WithMetrics(m),
			maintenance.WithInterval(cfg.Maintenance.Interval),
			maintenance.WithConcurrency(cfg.Maintenance.Concurrency),
			maintenance.WithRetry(cfg.Maintenance.MaxAttempts, cfg.Maintenance.Backoff),
		)
		if err != nil {
			return nil, fmt.Errorf("maintenance job: %w", err)
		}
	}
	if deps.kafka != nil {
		a.relay, err = outbox.New(
			outbox.NewPostgresSource(deps.db),
			outbox.NewKafkaPublisher(deps.kafka, cfg.Kafka.Topic),
			outbox.WithLogger(log),
			outbox.WithMetrics(m),
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
		)
		if err != nil {
			return nil, fmt.Errorf("outbox relay: %w", err)
		}
	}

	svc := httptransport.Services{
		Progression: progression,
		Gates:       compliance,
		Access:      facade,
		Snapshots:   snapshots,
		Catalog:     catalog,
	}
	if a.job != nil {
		svc.Maintenance = a.job
	}
	a.handler, err = httptransport.New(svc, log, httptransport.WithOperatorToken(cfg.OperatorToken))
	if err != nil {
		return nil, fmt.Errorf("http handler: %w", err)
	}
	return a, nil
}

func healthHandler(deps *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = "ok"
		}
		if deps.db != nil {
			record("postgres", deps.db.PingContext(ctx))
		}
		if deps.redis != nil {
			record("redis", deps.redis.Health(ctx))
		}
		if deps.kafka != nil {
			record("kafka", kafka.Health(ctx, deps.kafka))
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
	}
}
