// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"chartsight/core/orchestrator/breaker"
	"chartsight/core/orchestrator/cost"
	"chartsight/core/orchestrator/faults"
	"chartsight/core/orchestrator/imaging"
	"chartsight/core/orchestrator/llm"
	"chartsight/core/orchestrator/monitor"
	"chartsight/core/shared/logger"
)

// Run is the exported entry point for the orchestrator service.
//
// It wires every component from environment configuration, registers
// the HTTP routes, and blocks serving until the process exits.
//
// Environment variables used:
//   - PORT: HTTP server port (default: 8082)
//   - VISION_API_ENDPOINT: inference backend base URL (required)
//   - VISION_API_KEY: inference backend credential (required)
//   - VISION_MODEL / VISION_FALLBACK_MODEL: model selection
//   - REDIS_ADDR: shared budget store (optional; in-process default)
//   - DATABASE_URL: usage record persistence (optional)
//   - PRICING_FILE: JSON pricing override file (optional)
//   - CHARTSIGHT_CONFIG_FILE: YAML config file (optional)
func Run() {
	log.Println("Starting ChartSight Orchestrator...")

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	svc, err := BuildService(cfg)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	svc.monitor.Start()
	defer svc.monitor.Stop()

	r := mux.NewRouter()
	NewHandlers(svc).Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Printf("ChartSight Orchestrator listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, c.Handler(r)))
}

// BuildService constructs the full component graph from configuration.
func BuildService(cfg Config) (*Service, error) {
	appLog := logger.New("orchestrator")

	mon := monitor.New(logger.New("monitor"))
	handler := faults.NewHandler(mon, logger.New("faults"))

	cb := breaker.New(breaker.DefaultConfig())
	pipeline := imaging.New(imaging.DefaultConfig(), logger.New("imaging"))

	pricing := cost.NewPricingConfig()
	if cfg.PricingFile != "" {
		loaded, err := cost.LoadPricingFromFile(cfg.PricingFile)
		if err != nil {
			return nil, err
		}
		pricing = loaded
		log.Printf("Pricing overrides loaded from %s", cfg.PricingFile)
	}
	calc := cost.NewCalculator(pricing)

	// Budget store: Redis when configured so horizontally-scaled
	// instances share per-user spend, in-process otherwise.
	var store cost.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rs := cost.NewRedisStore(client)
		if err := rs.Ping(context.Background()); err != nil {
			log.Printf("Warning: Redis unreachable (%v), using in-process budget store", err)
		} else {
			store = rs
			log.Println("Budget ledger backed by Redis")
		}
	}

	// Usage records: Postgres when configured.
	var repo cost.Repository
	if cfg.DatabaseURL != "" {
		pg, err := cost.OpenPostgresRepository(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: usage database unavailable (%v), usage records disabled", err)
		} else {
			repo = pg
			log.Println("Usage records persisted to Postgres")
		}
	}
	ledger := cost.NewLedger(cost.DefaultLedgerConfig(), store, repo, logger.New("cost-ledger"))

	client, err := llm.NewClient(llm.ClientConfig{
		Backend: llm.Config{
			Endpoint: cfg.BackendEndpoint,
			APIKey:   cfg.BackendAPIKey,
			Timeout:  cfg.BackendTimeout,
		},
		DefaultModel:  cfg.Model,
		FallbackModel: cfg.FallbackModel,
	}, logger.New("llm-client"))
	if err != nil {
		return nil, err
	}

	return NewService(cfg, cb, pipeline, calc, ledger, client, handler, mon, appLog), nil
}
