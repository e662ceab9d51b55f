// Package main is the entry point for the florist background worker.
// Its single job is the reservation sweep: releasing holds abandoned by
// orders that never progressed toward assembly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"florist/internal/domain/reservation"
	"florist/internal/infrastructure/storage/postgres"
	"florist/internal/infrastructure/storage/postgres/catalog_repo"
	"florist/internal/infrastructure/storage/postgres/order_repo"
	"florist/internal/infrastructure/storage/postgres/reservation_repo"
	"florist/internal/infrastructure/storage/postgres/warehouse_repo"
	"florist/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting florist worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	reservationRepo := reservation_repo.NewReservationRepo(txManager)
	itemRepo := warehouse_repo.NewItemRepo(txManager)
	operationRepo := warehouse_repo.NewOperationRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	recipeRepo := catalog_repo.NewRecipeRepo(txManager)
	orderRepo := order_repo.NewOrderRepo(txManager)

	manager := reservation.NewManager(
		reservationRepo, itemRepo, operationRepo,
		productRepo, recipeRepo, orderRepo,
		txManager, auditService,
	)
	sweeper := reservation.NewSweeper(manager, reservationRepo, nil)

	interval := getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)
	maxAge := getEnvDuration("RESERVATION_MAX_AGE", 2*time.Hour)

	log.Infow("sweeper configured", "interval", interval, "max_age", maxAge)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweepLoop(ctx, log, sweeper, interval, maxAge)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// runSweepLoop sweeps immediately on startup, then on every tick.
func runSweepLoop(
	ctx context.Context,
	log *logger.Logger,
	sweeper *reservation.Sweeper,
	interval, maxAge time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweepOnce(ctx, log, sweeper, maxAge)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, log, sweeper, maxAge)
		}
	}
}

func sweepOnce(ctx context.Context, log *logger.Logger, sweeper *reservation.Sweeper, maxAge time.Duration) {
	result, err := sweeper.Sweep(ctx, maxAge, false)
	if err != nil {
		log.Errorw("sweep failed", "error", err)
		return
	}

	if result.ReleasedCount > 0 {
		log.Infow("sweep released stale reservations",
			"orders", result.ReleasedCount,
			"order_ids", result.AffectedOrderIDs,
		)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
