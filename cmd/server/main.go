package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agrobazaar/marketplace/internal/adapter/handler"
	"github.com/agrobazaar/marketplace/internal/adapter/storage"
	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/core/service"
	"github.com/agrobazaar/marketplace/internal/port"
)

const (
	defaultHTTPAddr  = ":8080"
	defaultMySQLDSN  = "root:root@tcp(localhost:3306)/agrobazaar?parseTime=true"
	defaultRedisAddr = "localhost:6379"

	auditWorkerCount = 4
	auditQueueSize   = 1024
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment")
	}

	// MySQL
	db, err := sql.Open("mysql", envOr("MYSQL_DSN", defaultMySQLDSN))
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(envIntOr("MYSQL_MAX_OPEN_CONNS", 50))
	db.SetMaxIdleConns(envIntOr("MYSQL_MAX_IDLE_CONNS", 25))
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", defaultRedisAddr),
		PoolSize: envIntOr("REDIS_POOL_SIZE", 100),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters and services
	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisAdapter(rdb)
	audit := service.NewAuditQueue(auditQueueSize)

	cartService := service.NewCartService(store, logger.Named("cart"))
	checkoutService := service.NewCheckoutService(store, cache, audit, logger.Named("checkout"))
	orderService := service.NewOrderService(store, audit, logger.Named("order"))
	ratingService := service.NewRatingService(store, cache, logger.Named("rating"))

	// Audit workers drain order events into the store outside request
	// transactions.
	var wg sync.WaitGroup
	for i := 0; i < auditWorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			auditWorkerLoop(id, audit.Events(), store, logger.Named("audit"))
		}(i)
	}
	logger.Info("started audit workers", zap.Int("count", auditWorkerCount))

	// HTTP server
	httpHandler := handler.NewHTTPHandler(cartService, checkoutService, orderService, ratingService, logger.Named("http"))
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpAddr := envOr("HTTP_ADDR", defaultHTTPAddr)
	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	audit.Close()
	wg.Wait()
	logger.Info("audit workers stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func auditWorkerLoop(id int, events <-chan domain.OrderEvent, repo port.OrderRepository, logger *zap.Logger) {
	for event := range events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := repo.RecordOrderEvent(ctx, event); err != nil {
			logger.Error("failed to record order event",
				zap.Int("worker", id),
				zap.Int64("order_id", event.OrderID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}

		cancel()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
