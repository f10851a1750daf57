package main

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stampd/internal/admin"
	"stampd/internal/ethrpc"
	"stampd/internal/fees"
	"stampd/internal/identity"
	"stampd/internal/platform/config"
	"stampd/internal/platform/database"
	"stampd/internal/platform/health"
	"stampd/internal/platform/httpserver"
	kafkaproducer "stampd/internal/platform/kafka/producer"
	"stampd/internal/platform/logger"
	"stampd/internal/platform/middleware"
	platformredis "stampd/internal/platform/redis"
	"stampd/internal/providers"
	"stampd/internal/ratelimit"
	"stampd/internal/signer/local"
	"stampd/internal/verification"
	"stampd/internal/verification/handler"
	"stampd/internal/verification/metrics"
	"stampd/pkg/platform/audit"
	"stampd/pkg/platform/audit/publisher"
	auditkafka "stampd/pkg/platform/audit/store/kafka"
	auditmemory "stampd/pkg/platform/audit/store/memory"
	auditpostgres "stampd/pkg/platform/audit/store/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"

// defaultBalanceThreshold is 0.01 ETH in wei.
var defaultBalanceThreshold = big.NewInt(10_000_000_000_000_000)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.IssuerKey == "" {
		if cfg.Environment == "production" {
			log.Error("STAMPD_ISSUER_KEY is required in production")
			os.Exit(1)
		}
		cfg.IssuerKey = "dev-issuer-key"
		log.Warn("no issuer key configured, using the development key")
	}

	log.Info("initializing stampd",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"signature_type", cfg.SignatureType,
	)

	backend := local.New(cfg.IssuerKey)
	issuer, err := identity.NewIssuer(backend, cfg.IssuerKey,
		identity.WithChallengeTTL(cfg.ChallengeTTL),
		identity.WithStampTTL(cfg.StampTTL),
	)
	if err != nil {
		log.Error("issuer init failed", "error", err)
		os.Exit(1)
	}
	verifier := identity.NewVerifier(backend)

	registry := buildRegistry(cfg, log)

	healthHandler := health.New(cfg.Environment)

	auditor, closeAudit := buildAuditor(cfg, log, healthHandler)
	defer closeAudit()

	pipelineMetrics := metrics.New(prometheus.DefaultRegisterer)
	service := verification.NewService(issuer, verifier, registry, local.NewSignatureVerifier(),
		verification.WithAuditor(auditor),
		verification.WithMetrics(pipelineMetrics),
		verification.WithLogger(log),
		verification.WithDefaultSignatureType(cfg.SignatureType),
	)

	priceURL := cfg.EthPriceURL
	if priceURL == "" {
		priceURL = defaultPriceURL
	}
	prices := fees.NewPriceLoader(fees.NewHTTPPriceFetcher(priceURL),
		fees.WithRefreshPeriod(cfg.EthPricePeriod),
		fees.WithPriceLogger(log),
	)

	limiter := buildLimiter(cfg, log, healthHandler)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.ClientMetadata)

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, log, ratelimit.WithAuditor(auditor)))
		handler.New(service, log).Register(r)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireOpsToken(cfg.JWTSigningKey, log))
		admin.New(registry, prices, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// buildRegistry registers the static providers plus the on-chain ones when an
// RPC node is configured.
func buildRegistry(cfg config.Server, log *slog.Logger) *providers.Registry {
	registry := providers.NewRegistry(providers.WithLogger(log))

	mustRegister := func(p providers.Provider) {
		if err := registry.Register(p); err != nil {
			log.Error("provider registration failed", "error", err)
			os.Exit(1)
		}
	}

	mustRegister(providers.NewSimpleProvider())
	mustRegister(providers.NewSignerProvider())

	if cfg.RPCURL != "" {
		rpc := ethrpc.New(cfg.RPCURL)
		mustRegister(providers.NewEVMBalanceProvider(rpc, defaultBalanceThreshold))

		if registryAddr := os.Getenv("HANDLE_REGISTRY_ADDR"); registryAddr != "" {
			resolver := ethrpc.NewHandleContract(rpc, registryAddr)
			mustRegister(providers.NewHandlePremiumProvider(resolver))
			mustRegister(providers.NewHandlePaidProvider(resolver))
		}
	}

	return registry
}

// buildAuditor fans audit events out to every configured store. With neither
// Postgres nor Kafka configured, events stay in process memory.
func buildAuditor(cfg config.Server, log *slog.Logger, healthHandler *health.Handler) (*publisher.Publisher, func()) {
	var stores audit.Fanout
	var closers []func()

	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	pool, err := database.New(dbConfig)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		stores = append(stores, auditpostgres.New(pool.DB()))
		closers = append(closers, func() { pool.Close() })
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	if cfg.KafkaBrokers != "" {
		prod, err := kafkaproducer.New(kafkaproducer.Config{
			Brokers: cfg.KafkaBrokers,
			Retries: 3,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		stores = append(stores, auditkafka.New(prod, cfg.AuditTopic))
		closers = append(closers, func() { prod.Close() })
	}

	if len(stores) == 0 {
		log.Warn("no audit sink configured, keeping events in memory")
		stores = append(stores, auditmemory.New())
	}

	auditor := publisher.New(stores,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)

	return auditor, func() {
		auditor.Close()
		for _, close := range closers {
			close()
		}
	}
}

// buildLimiter prefers Redis so the limit holds across replicas, falling back
// to a per-process window.
func buildLimiter(cfg config.Server, log *slog.Logger, healthHandler *health.Handler) *ratelimit.Limiter {
	var store ratelimit.Store = ratelimit.NewMemoryStore()

	client, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if client != nil {
		store = ratelimit.NewRedisStore(client.Client, "stampd:ratelimit")
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Health(ctx)
		})
	}

	return ratelimit.New(store, cfg.RateLimit, cfg.RateLimitWindow)
}
