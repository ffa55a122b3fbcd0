// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustcheck/internal/audit"
	"trustcheck/internal/fusion/metrics"
	fusionservice "trustcheck/internal/fusion/service"
	"trustcheck/internal/fusion/sources"
	"trustcheck/internal/fusion/store"
	"trustcheck/internal/platform/config"
	"trustcheck/internal/platform/httpserver"
	"trustcheck/internal/platform/kafka/producer"
	"trustcheck/internal/platform/logger"
	"trustcheck/internal/platform/postgres"
	platformredis "trustcheck/internal/platform/redis"
	"trustcheck/internal/resilience"
	"trustcheck/internal/risk"
	httptransport "trustcheck/internal/transport/http"
	"trustcheck/pkg/domain"
)

// instrumentedScorer counts assessments by level around the pure engine.
type instrumentedScorer struct {
	engine  *risk.Engine
	metrics *metrics.Metrics
}

func (s instrumentedScorer) Score(signals risk.Signals) risk.Assessment {
	assessment := s.engine.Score(signals)
	s.metrics.RecordRiskLevel(string(assessment.Level))
	return assessment
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}

	// Cache store: postgres when configured, redis as the shared-cache
	// option, in-memory otherwise.
	var cache store.Cache
	switch {
	case cfg.PostgresDSN != "":
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := store.NewPostgresCache(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		cache = pg
		checks["postgres"] = db.PingContext
		log.Info("using postgres cache store")
	case cfg.RedisURL != "":
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		cache = store.NewRedisCache(client.Client)
		checks["redis"] = client.Health
		log.Info("using redis cache store")
	default:
		cache = store.NewInMemoryCache()
		log.Warn("using in-memory cache store; entries do not survive restarts")
	}

	registry := sources.NewRegistry()
	for _, adapter := range []sources.Adapter{
		sources.NewCompaniesRegistry(nil, cfg.Sources[domain.SourceCompaniesRegistry].BaseURL),
		sources.NewCourtSearch(nil, cfg.Sources[domain.SourceCourtSearch].BaseURL),
		sources.NewEnforcementAuthority(nil, cfg.Sources[domain.SourceEnforcementAuthority].BaseURL),
		sources.NewVATDealerRegistry(nil, cfg.Sources[domain.SourceVATDealerRegistry].BaseURL),
		sources.NewBankRestrictions(nil, cfg.Sources[domain.SourceBankRestrictions].BaseURL),
	} {
		if err := registry.Register(adapter); err != nil {
			log.Error("adapter registration failed", "error", err)
			os.Exit(1)
		}
	}

	intervals := make(map[domain.Source]time.Duration, len(cfg.Sources))
	for source, sc := range cfg.Sources {
		intervals[source] = sc.MinInterval
	}
	limiters := resilience.NewLimiterRegistry(intervals)

	// Audit trail: Kafka-backed when brokers are configured, log-only
	// otherwise. Either way resolution latency is never coupled to it.
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		p, err := producer.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		sink = audit.NewKafkaSink(p)
		log.Info("audit trail publishing to kafka", "topic", cfg.AuditTopic)
	}
	trail := audit.NewTrail(sink, audit.WithTrailLogger(log))
	go func() {
		if err := trail.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit trail stopped", "error", err)
		}
	}()

	m := metrics.New()
	resolver := fusionservice.New(
		cache, registry, limiters, cfg.Sources, cfg.Retry,
		fusionservice.WithLogger(log),
		fusionservice.WithMetrics(m),
		fusionservice.WithAuditTrail(trail),
	)
	scorer := instrumentedScorer{
		engine:  risk.NewEngine(risk.DefaultWeights()),
		metrics: m,
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Profiles:     httptransport.NewProfileHandler(resolver, scorer, log),
		Risk:         httptransport.NewRiskHandler(scorer, log),
		Admin:        httptransport.NewAdminHandler(resolver, log),
		AdminJWTKey:  cfg.AdminJWTKey,
		HealthChecks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting trustcheck", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
