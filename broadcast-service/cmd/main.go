package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/aaronwang/auction-platform/broadcast-service/internal/redis"
	wsHandler "github.com/aaronwang/auction-platform/broadcast-service/internal/websocket"
	"github.com/aaronwang/auction-platform/shared/config"
	"github.com/aaronwang/auction-platform/shared/logging"
)

func main() {
	log := logging.New("broadcast-service")
	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Warn("Failed to load .env file")
	}
	cfg := loadConfig()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	subscriber, err := redisClient.NewSubscriber(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer subscriber.Close()

	if err := subscriber.SubscribeToUpdates(ctx); err != nil {
		log.WithError(err).Fatal("Failed to subscribe to Redis channels")
	}
	log.WithField("addr", cfg.RedisAddr).Info("Subscribed to auction updates")

	wsManager := wsHandler.NewManager(log)
	go wsManager.Run(ctx)

	messages := make(chan *redisClient.Message, 256)
	go func() {
		if err := subscriber.Listen(ctx, messages); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Redis listener stopped")
		}
	}()

	// Redis Pub/Sub -> WebSocket clients
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-messages:
				wsManager.Broadcast(msg.AuctionID, []byte(msg.Payload))
			}
		}
	}()

	handler := wsHandler.NewHandler(wsManager, subscriber.Latest, log)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Broadcast Service listening on %s", cfg.ServerAddr)
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
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8081"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
	}
}
