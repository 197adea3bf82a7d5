package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaronwang/auction-platform/frontend/internal/proxy"
	"github.com/aaronwang/auction-platform/shared/config"
	"github.com/aaronwang/auction-platform/shared/logging"
)

func main() {
	log := logging.New("frontend")
	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Warn("Failed to load .env file")
	}
	cfg := loadConfig()

	gateway, err := url.Parse(cfg.GatewayURL)
	if err != nil {
		log.WithError(err).Fatal("Invalid GATEWAY_URL")
	}

	handler := proxy.NewHandler(gateway, cfg.StaticDir, log)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Frontend listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server stopped gracefully")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	GatewayURL string
	StaticDir  string
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr: config.GetEnv("SERVER_ADDR", ":8080"),
		GatewayURL: config.GetEnv("GATEWAY_URL", "http://localhost:8000"),
		StaticDir:  config.GetEnv("STATIC_DIR", "frontend/static"),
	}
}
