package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"freightdesk/internal/access"
	audithandler "freightdesk/internal/audit/handler"
	auditmetrics "freightdesk/internal/audit/metrics"
	"freightdesk/internal/audit/outbox"
	auditservice "freightdesk/internal/audit/service"
	auditstore "freightdesk/internal/audit/store"
	"freightdesk/internal/identity"
	"freightdesk/internal/identity/revocation"
	maintenancehandler "freightdesk/internal/maintenance/handler"
	maintenanceservice "freightdesk/internal/maintenance/service"
	orghandler "freightdesk/internal/organization/handler"
	orgmetrics "freightdesk/internal/organization/metrics"
	orgservice "freightdesk/internal/organization/service"
	orgstore "freightdesk/internal/organization/store"
	"freightdesk/internal/platform/config"
	"freightdesk/internal/platform/database"
	"freightdesk/internal/platform/httpserver"
	"freightdesk/internal/platform/kafka"
	"freightdesk/internal/platform/logger"
	"freightdesk/internal/platform/metrics"
	platformredis "freightdesk/internal/platform/redis"
	httptransport "freightdesk/internal/transport/http"
	userhandler "freightdesk/internal/user/handler"
	usermetrics "freightdesk/internal/user/metrics"
	userservice "freightdesk/internal/user/service"
	userstore "freightdesk/internal/user/store"
	"freightdesk/internal/webhook"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when Kafka is configured, the audit outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			log, closer := logger.New(cfg.Log)
			defer closer.Close()
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := buildApp(cfg, db, rc, reg, log)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server, httptransport.NewRouter(a.deps))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})

	if cfg.Kafka.Enabled() {
		if err := kafka.EnsureTopic(ctx, cfg.Kafka); err != nil {
			return err
		}
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()

		relay := outbox.NewRelay(a.outbox, producer,
			outbox.WithInterval(cfg.Kafka.PollInterval),
			outbox.WithBatchSize(cfg.Kafka.BatchSize),
			outbox.WithLogger(log),
			outbox.WithMetrics(a.auditMetrics),
		)
		g.Go(func() error { return relay.Run(gctx) })
	}

	log.Info("freightdesk started",
		"addr", cfg.Server.Addr,
		"database", cfg.Database.Driver,
		"redis", rc != nil,
		"kafka", cfg.Kafka.Enabled(),
		"maintenance", cfg.Maintenance.Enabled,
	)
	return g.Wait()
}

type app struct {
	deps         httptransport.Deps
	outbox       *auditstore.Outbox
	auditMetrics *auditmetrics.Metrics
}

// buildApp assembles stores, services and handlers over an open database.
// rc may be nil, in which case revocations and webhook dedupe stay in memory.
func buildApp(cfg *config.Config, db *sqlx.DB, rc *platformredis.Client, reg *prometheus.Registry, log *slog.Logger) (*app, error) {
	verifier, err := identity.NewVerifier(verifierConfig(cfg.Auth))
	if err != nil {
		return nil, err
	}

	var (
		revocations httptransport.Revocations = revocation.NewMemoryList()
		deduper     webhook.Deduper           = webhook.NewMemoryDeduper()
	)
	if rc != nil {
		revocations = revocation.NewRedisList(rc.Client)
		deduper = webhook.NewRedisDeduper(rc.Client)
	}

	users := userstore.New(db)
	tx := database.NewTxRunner(db, cfg.Database.TxTimeout)
	gate := access.NewGate(users,
		access.WithLogger(log),
		access.WithMetrics(access.NewMetrics(reg)),
	)
	exec := access.NewExecutor(gate, tx)

	a := &app{auditMetrics: auditmetrics.New(reg)}
	auditOpts := []auditservice.Option{
		auditservice.WithLogger(log),
		auditservice.WithMetrics(a.auditMetrics),
	}
	if cfg.Kafka.Enabled() {
		a.outbox = auditstore.NewOutbox(db)
		auditOpts = append(auditOpts, auditservice.WithOutbox(a.outbox))
	}
	audit := auditservice.New(auditstore.New(db), tx, gate, auditOpts...)

	userSvc := userservice.New(users, exec, audit,
		userservice.WithLogger(log),
		userservice.WithMetrics(usermetrics.New(reg)),
	)
	orgSvc := orgservice.New(orgstore.New(db), exec, audit,
		orgservice.WithLogger(log),
		orgservice.WithMetrics(orgmetrics.New(reg)),
	)

	a.deps = httptransport.Deps{
		Logger:         log,
		Resolver:       verifier,
		Revocations:    revocations,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		Audit:          audithandler.New(audit, log),
		Organizations:  orghandler.New(orgSvc, log),
		Users:          userhandler.New(userSvc, log),
		CORSOrigins:    cfg.Server.CORSOrigins,
		ServiceKeyHash: cfg.Internal.ServiceKeyHash,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Ready: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			if rc != nil {
				return rc.Health(ctx)
			}
			return nil
		},
	}

	if cfg.Webhook.SigningSecret != "" {
		hv, err := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
		if err != nil {
			return nil, err
		}
		a.deps.Webhooks = webhook.New(hv, userSvc, orgSvc,
			webhook.WithDeduper(deduper),
			webhook.WithLogger(log),
			webhook.WithMetrics(webhook.NewMetrics(reg)),
		)
	} else {
		log.Warn("webhook signing secret not set, provider sync is disabled")
	}

	if cfg.Maintenance.Enabled {
		a.deps.Maintenance = maintenancehandler.New(maintenanceservice.New(exec, audit, log), log)
	}
	return a, nil
}

func verifierConfig(c config.AuthConfig) identity.VerifierConfig {
	return identity.VerifierConfig{
		HS256Secret:       c.HS256Secret,
		RS256PublicKeyPEM: c.RS256PublicKeyPEM,
		Issuer:            c.Issuer,
		Audience:          c.Audience,
		OrgClaim:          c.OrgClaim,
		Leeway:            c.Leeway,
	}
}
