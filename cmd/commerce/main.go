package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/auth"
	"github.com/novamart/novamart-commerce-service/internal/config"
	"github.com/novamart/novamart-commerce-service/internal/events"
	"github.com/novamart/novamart-commerce-service/internal/handlers"
	"github.com/novamart/novamart-commerce-service/internal/metrics"
	"github.com/novamart/novamart-commerce-service/internal/repository"
	"github.com/novamart/novamart-commerce-service/internal/server"
	"github.com/novamart/novamart-commerce-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting commerce-service", zap.Int("port", cfg.Server.Port))

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	store := repository.NewPostgresStore(db, logger)

	var cache repository.OrderCache = repository.NopOrderCache{}
	if cfg.Features.EnableOrderCaching {
		cache = repository.NewRedisOrderCache(redisClient, cfg.Redis.CacheTTL, logger)
	}

	var publisher events.Publisher = events.NewMemoryPublisher()
	if cfg.Features.EnableOrderEvents {
		publisher = events.NewKafkaPublisher(cfg.Kafka, logger)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	orderService := service.NewOrderService(store, cache, publisher, m, cfg, logger)

	tokenStore := auth.NewSessionTokenStore(
		auth.NewRedisKV(redisClient),
		cfg.Auth.RefreshTokenTTLDays,
		logger,
	)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	tokenStore.StartSweeper(sweepCtx, cfg.Auth.SweepInterval)

	h := handlers.New(orderService, tokenStore, store.Products(), m, cfg, logger)

	srv := server.New(h, m, registry, cfg)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}
