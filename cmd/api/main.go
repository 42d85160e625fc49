// Package main implements the vinlab API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vinlab/vinlab/engine/decode"
	"github.com/vinlab/vinlab/engine/events"
	"github.com/vinlab/vinlab/engine/graph"
	"github.com/vinlab/vinlab/engine/store"
	"github.com/vinlab/vinlab/engine/vindata"
	"github.com/vinlab/vinlab/engine/vpic"
	"github.com/vinlab/vinlab/pkg/metrics"
	"github.com/vinlab/vinlab/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	VPICBaseURL   string
	VPICRatePerS  float64
	VinDataURL    string
	VinDataAPIKey string
	NATSURL       string
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPass     string
	HistoryPath   string
	HistoryMax    int
	CacheTTL      time.Duration
	CORSOrigin    string
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		VPICBaseURL:   envOr("VPIC_BASE_URL", vpic.DefaultBaseURL),
		VPICRatePerS:  envFloat("VPIC_RPS", 5),
		VinDataURL:    envOr("VINDATA_URL", ""),
		VinDataAPIKey: envOr("VINDATA_API_KEY", ""),
		NATSURL:       envOr("NATS_URL", ""),
		Neo4jURL:      envOr("NEO4J_URL", ""),
		Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:     envOr("NEO4J_PASS", "password"),
		HistoryPath:   envOr("HISTORY_PATH", "data/history.db"),
		HistoryMax:    envInt("HISTORY_MAX", store.DefaultHistoryMax),
		CacheTTL:      envDuration("CACHE_TTL", store.DefaultCacheTTL),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Decode history (sqlite) ---
	history, err := store.OpenHistory(cfg.HistoryPath, cfg.HistoryMax, logger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer history.Close()

	// --- Upstream clients ---
	primary := vpic.New(vpic.Config{
		BaseURL:           cfg.VPICBaseURL,
		RequestsPerSecond: cfg.VPICRatePerS,
	})
	fallback := vindata.New(vindata.Config{
		BaseURL: cfg.VinDataURL,
		APIKey:  cfg.VinDataAPIKey,
	})
	if !fallback.Configured() {
		logger.Info("paid fallback decoder not configured; primary-only mode")
	}

	// --- Optional NATS wiring ---
	var publisher *events.Publisher
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		publisher = events.NewPublisher(nc)
	}

	// --- Optional Neo4j graph: query surface plus a sink fed by decode events ---
	var vg vehicleGraph
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)

		store := graph.New(driver)
		vg = store
		if nc != nil {
			sink := graph.NewSink(store, logger)
			if err := sink.Start(nc); err != nil {
				return fmt.Errorf("graph sink: %w", err)
			}
			defer sink.Stop()
		}
	}

	// --- Decode orchestrator ---
	deps := decode.Deps{
		Primary:   primary,
		Secondary: primary,
		Fallback:  fallback,
		Cache:     store.NewCache(cfg.CacheTTL),
		History:   history,
		Metrics:   reg,
		Logger:    logger,
	}
	if publisher != nil {
		deps.Events = publisher
	}
	orch := decode.New(deps)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", handleHealth)
	mux.HandleFunc("GET /api/v1/validate", handleValidate)
	mux.HandleFunc("GET /api/v1/brands", handleBrands)
	mux.HandleFunc("POST /api/v1/decode", handleDecode(orch, logger))
	mux.HandleFunc("GET /api/v1/export/{vin}", handleExport(orch, logger))
	mux.HandleFunc("GET /api/v1/history", handleHistoryList(history, logger))
	mux.HandleFunc("DELETE /api/v1/history", handleHistoryClear(history, logger))
	mux.HandleFunc("POST /api/v1/proxy/decode", handleProxyDecode(fallback, logger))
	mux.HandleFunc("GET /api/v1/vehicles", handleVehiclesByMake(vg, logger))
	mux.HandleFunc("GET /api/v1/vehicles/{vin}/similar", handleSimilarVehicles(vg, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.MaxBody(1<<16),
		mid.OTel("vinlab-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
