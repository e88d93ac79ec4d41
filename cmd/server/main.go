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

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"stratum/internal/audit"
	auditkafka "stratum/internal/audit/kafka"
	"stratum/internal/isolation"
	isolationmetrics "stratum/internal/isolation/metrics"
	"stratum/internal/isolation/registry"
	jwttoken "stratum/internal/jwt_token"
	notificationhandler "stratum/internal/notification/handler"
	notificationservice "stratum/internal/notification/service"
	notificationstore "stratum/internal/notification/store"
	orghandler "stratum/internal/org/handler"
	orgservice "stratum/internal/org/service"
	orgstore "stratum/internal/org/store"
	"stratum/internal/platform/config"
	"stratum/internal/platform/httpserver"
	"stratum/internal/platform/logger"
	platformredis "stratum/internal/platform/redis"
	tenanthandler "stratum/internal/tenant/handler"
	tenantmetrics "stratum/internal/tenant/metrics"
	tenantservice "stratum/internal/tenant/service"
	tenantstore "stratum/internal/tenant/store"
	httptransport "stratum/internal/transport/http"
	userhandler "stratum/internal/user/handler"
	userservice "stratum/internal/user/service"
	userstore "stratum/internal/user/store"
)

// tenantTables are the tenant-scoped tables the RLS manager guards under the
// table_level and schema_level strategies.
var tenantTables = []string{"users", "organizations", "notifications"}

// main wires the platform: configuration, the isolation layer, the control
// plane, and the HTTP surface. Business logic lives in internal services.
func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The strategy is resolved exactly once; everything below snapshots it.
	resolver, err := isolation.NewPolicyResolver(cfg.Isolation.Strategy)
	if err != nil {
		return err
	}
	strategy := resolver.Resolve()

	shared, err := openShared(cfg.Postgres)
	if err != nil {
		return err
	}
	defer shared.Close()
	if err := shared.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	rls := isolation.NewRLSManager(shared, log)
	if strategy.UsesRLS() {
		if err := rls.InstallPolicies(ctx, tenantTables); err != nil {
			return fmt.Errorf("install row security policies: %w", err)
		}
		if err := rls.VerifyPolicies(ctx, tenantTables); err != nil {
			return err
		}
	}

	// Control-plane registry with a descriptor cache in front. Redis when
	// configured, in-process otherwise.
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open registry pool: %w", err)
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		targets     isolation.Registry
		invalidator tenantservice.TargetInvalidator
	)
	pgTargets := registry.NewPostgres(pool)
	if redisClient != nil {
		cached := registry.NewRedisCached(pgTargets, redisClient.Client, time.Minute)
		targets, invalidator = cached, cached
	} else {
		cached := registry.NewCached(pgTargets, time.Minute)
		targets, invalidator = cached, cached
	}

	// Audit pipeline: durable store, async Kafka fan-out when configured.
	auditStore := audit.NewPostgresStore(shared)
	var inbox chan audit.Event
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.NewSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect audit sink: %w", err)
		}
		defer sink.Close()
		inbox = make(chan audit.Event, 256)
		worker := audit.NewWorker(sink, inbox, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}
	auditor := audit.NewPublisher(auditStore, inbox)

	isoMetrics := isolationmetrics.New()
	factory := isolation.NewFactory(strategy, targets, shared, rls,
		isolation.FactoryConfig{
			MaxAdapters:    cfg.Isolation.MaxAdapters,
			IdleTTL:        cfg.Isolation.IdleTTL,
			SweepInterval:  cfg.Isolation.SweepInterval,
			AcquireTimeout: cfg.Isolation.AcquireTimeout,
		},
		isolation.WithFactoryLogger(log),
		isolation.WithFactoryMetrics(isoMetrics),
		isolation.WithDBOpener(tenantDBOpener(cfg.Postgres)),
	)
	defer factory.Close()
	go func() {
		if err := factory.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("adapter sweeper stopped", "error", err)
		}
	}()

	guard := isolation.NewScopeGuard(resolver,
		isolation.WithGuardLogger(log),
		isolation.WithGuardAuditor(auditor),
	)

	// Control plane.
	tenants := tenantservice.New(
		tenantstore.NewPostgres(shared),
		pgTargets,
		factory,
		strategy,
		tenantservice.WithLogger(log),
		tenantservice.WithAuditPublisher(auditor),
		tenantservice.WithMetrics(tenantmetrics.New()),
		tenantservice.WithInvalidator(invalidator),
	)

	// Tenant-scoped data plane, all through the isolation repository.
	users := userservice.New(
		isolation.NewRepository(factory, userstore.NewMapper(),
			isolation.WithRepositoryLogger(log),
			isolation.WithRepositoryAuditor(auditor),
			isolation.WithRepositoryMetrics(isoMetrics),
		),
		userservice.WithLogger(log),
	)
	orgs := orgservice.New(
		isolation.NewRepository(factory, orgstore.NewMapper(),
			isolation.WithRepositoryLogger(log),
			isolation.WithRepositoryAuditor(auditor),
			isolation.WithRepositoryMetrics(isoMetrics),
		),
		orgservice.WithLogger(log),
	)
	notifications := notificationservice.New(
		isolation.NewRepository(factory, notificationstore.NewMapper(),
			isolation.WithRepositoryLogger(log),
			isolation.WithRepositoryAuditor(auditor),
			isolation.WithRepositoryMetrics(isoMetrics),
		),
		notificationservice.WithLogger(log),
	)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "stratum", "stratum")

	health := []httptransport.HealthChecker{factory}
	if redisClient != nil {
		health = append(health, healthFunc(redisClient.Health))
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		AdminTokenHash: cfg.Server.AdminTokenHash,
		TokenValidator: jwtService,
		ScopeGuard:     guard,
		AdminHandlers: []httptransport.Registrar{
			tenanthandler.New(tenants, log),
		},
		ScopedHandlers: []httptransport.Registrar{
			userhandler.New(users, log),
			orghandler.New(orgs, log),
			notificationhandler.New(notifications, log),
		},
		Factory: factory,
		Health:  health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting stratum",
		"addr", cfg.Server.Addr,
		"strategy", strategy.String(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openShared(cfg config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	return db, nil
}

// tenantDBOpener builds per-tenant pools for the database_level strategy
// from the configured DSN template.
func tenantDBOpener(cfg config.Postgres) isolation.DBOpener {
	return func(descriptor isolation.TargetDescriptor) (*sql.DB, error) {
		if cfg.TenantDSNTemplate == "" {
			return nil, fmt.Errorf("POSTGRES_TENANT_DSN_TEMPLATE is required for the database_level strategy")
		}
		db, err := sql.Open("postgres", fmt.Sprintf(cfg.TenantDSNTemplate, descriptor.DatabaseName))
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		return db, nil
	}
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
