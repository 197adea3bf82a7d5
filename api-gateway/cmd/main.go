package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaronwang/auction-platform/api-gateway/internal/archive"
	"github.com/aaronwang/auction-platform/api-gateway/internal/clients"
	"github.com/aaronwang/auction-platform/api-gateway/internal/events"
	"github.com/aaronwang/auction-platform/api-gateway/internal/handlers"
	redisMirror "github.com/aaronwang/auction-platform/api-gateway/internal/redis"
	"github.com/aaronwang/auction-platform/api-gateway/internal/relay"
	"github.com/aaronwang/auction-platform/api-gateway/internal/service"
	"github.com/aaronwang/auction-platform/shared/config"
	"github.com/aaronwang/auction-platform/shared/logging"
)

func main() {
	log := logging.New("api-gateway")
	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Warn("Failed to load .env file")
	}
	cfg := loadConfig()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bus := events.NewBus()

	// Optional sinks fed by the relay
	var sinks []relay.Sink
	if cfg.RedisAddr != "" {
		mirror, err := redisMirror.NewMirror(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer mirror.Close()
		sinks = append(sinks, mirror)
		log.WithField("addr", cfg.RedisAddr).Info("Mirroring updates to Redis")
	}
	if cfg.NatsURL != "" {
		arch, nc, err := archive.Connect(ctx, cfg.NatsURL, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to set up NATS")
		}
		defer nc.Close()
		sinks = append(sinks, arch)
		log.WithField("url", cfg.NatsURL).Info("Archiving history to JetStream")
	}
	go relay.New(bus, log, sinks...).Run(ctx)

	orchestrator := service.NewOrchestrator(
		clients.NewAuctionClient(cfg.AuctionServiceURL, cfg.UpstreamTimeout),
		clients.NewValidatorClient(cfg.BiddingServiceURL, cfg.UpstreamTimeout),
		clients.NewHistoryClient(cfg.HistoryServiceURL, cfg.UpstreamTimeout),
		bus,
		log,
	)

	handler := handlers.NewHandler(orchestrator, bus, handlers.Options{
		KeepAlive:      cfg.StreamKeepAlive,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, log)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("API Gateway listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server stopped gracefully")
}

// Config holds application configuration
type Config struct {
	ServerAddr        string
	AuctionServiceURL string
	BiddingServiceURL string
	HistoryServiceURL string
	UpstreamTimeout   time.Duration
	StreamKeepAlive   time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	NatsURL           string
	RateLimitRPS      float64
	RateLimitBurst    int
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:        config.GetEnv("SERVER_ADDR", ":8000"),
		AuctionServiceURL: config.GetEnv("AUCTION_SERVICE_URL", "http://localhost:8001"),
		BiddingServiceURL: config.GetEnv("BIDDING_SERVICE_URL", "http://localhost:8002"),
		HistoryServiceURL: config.GetEnv("HISTORY_SERVICE_URL", "http://localhost:8003"),
		UpstreamTimeout:   config.GetEnvDuration("UPSTREAM_TIMEOUT", 0),
		StreamKeepAlive:   config.GetEnvDuration("STREAM_KEEPALIVE", handlers.DefaultKeepAlive),
		RedisAddr:         config.GetEnv("REDIS_ADDR", ""),
		RedisPassword:     config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:           config.GetEnvInt("REDIS_DB", 0),
		NatsURL:           config.GetEnv("NATS_URL", ""),
		RateLimitRPS:      config.GetEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:    config.GetEnvInt("RATE_LIMIT_BURST", 0),
	}
}
