// The logistic service exposes the order-creation supervisor: one HTTP
// endpoint that drives a group-chat broadcast across the logistics peers
// until the order is delivered.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/api"
	"github.com/cafemesh/cafemesh/api/handlers"
	"github.com/cafemesh/cafemesh/buildinfo"
	"github.com/cafemesh/cafemesh/config"
	"github.com/cafemesh/cafemesh/graph"
	"github.com/cafemesh/cafemesh/internal/logging"
	"github.com/cafemesh/cafemesh/internal/metrics"
	"github.com/cafemesh/cafemesh/internal/server"
	"github.com/cafemesh/cafemesh/internal/telemetry"
	"github.com/cafemesh/cafemesh/llm"
	"github.com/cafemesh/cafemesh/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "logistic: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, "logistic")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer providers.Shutdown(context.Background())

	collector := metrics.NewCollector("cafemesh", logger)

	t, err := transport.NewRedisTransport(transport.RedisConfig{
		Addr:     cfg.Transport.Redis.Addr,
		Password: cfg.Transport.Redis.Password,
		DB:       cfg.Transport.Redis.DB,
		PoolSize: cfg.Transport.Redis.PoolSize,
	}, logger)
	if err != nil {
		return err
	}
	defer t.Close()

	provider := llm.Instrument(llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger), collector.RecordLLMRequest)

	broker := graph.NewOrderBroker(t, logger, collector)
	supervisor := graph.NewLogisticGraph(provider, broker, logger, collector)

	promptHandler := handlers.NewPromptHandler(supervisor, cfg.Server.RequestTimeout, logger)
	healthHandler := handlers.NewHealthHandler(logger)
	healthHandler.RegisterCheck(handlers.NewPingCheck("redis", t.Ping))
	versionHandler := handlers.NewVersionHandler(buildinfo.NewProvider())
	transportHandler := handlers.NewTransportHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/agent/prompt", promptHandler.HandlePrompt)
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReady)
	mux.HandleFunc("/version", versionHandler.HandleVersion)
	mux.HandleFunc("/transport/config", transportHandler.HandleTransportConfig)

	handler := api.Chain(mux,
		api.Recovery(logger),
		api.RequestID(),
		api.RequestLogger(logger),
		api.OTelTracing(),
		api.MetricsMiddleware(collector),
		api.RateLimiter(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst),
	)

	mgr := server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     server.DefaultConfig().IdleTimeout,
		MaxHeaderBytes:  server.DefaultConfig().MaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	if err := mgr.Start(); err != nil {
		return err
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMgr := server.NewManager(metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     server.DefaultConfig().IdleTimeout,
		MaxHeaderBytes:  server.DefaultConfig().MaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger.With(zap.String("listener", "metrics")))
	if err := metricsMgr.Start(); err != nil {
		return err
	}
	defer metricsMgr.Shutdown(context.Background())

	mgr.WaitForShutdown()
	return nil
}
