package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/httpapi"
)

func main() {
	cfg := config.LoadServer()
	logger := log.New(os.Stdout, "[cartstore] ", log.LstdFlags|log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- storage ---
	var (
		repo    backend.Repository
		seqRepo events.SequenceRepository
	)
	if cfg.DatabaseDSN == "" {
		logger.Printf("DATABASE_DSN not set, keeping data in memory")
		repo = backend.NewMemoryRepository()
		seqRepo = events.NewMemorySequenceRepository()
	} else {
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				logger.Fatalf("db migrate: %v", err)
			}
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Fatalf("db connect: %v", err)
		}
		defer pool.Close()

		repo = backend.NewPostgresRepository(pool)
		seqRepo = events.NewPostgresSequenceRepository(pool)
	}

	// --- AMQP ---
	var publisher backend.EventPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatalf("connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		p, err := events.NewRabbitPublisher(conn, seqRepo, "cartstore")
		if err != nil {
			logger.Fatalf("create event publisher: %v", err)
		}
		defer func() {
			if err := p.Close(); err != nil {
				logger.Printf("publisher close error: %v", err)
			}
		}()
		publisher = p
	} else {
		logger.Printf("RABBITMQ_URL not set, events disabled")
	}

	svc := backend.NewService(repo, publisher, logger).WithCouponLifetime(cfg.CouponLifetime)
	if cfg.SeedProducts {
		if err := svc.SeedProducts(ctx, backend.DefaultProducts); err != nil {
			logger.Fatalf("seed products: %v", err)
		}
	}

	// --- HTTP ---
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Logger:           logger,
			Service:          svc,
			CORSAllowOrigins: cfg.CORSAllowOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("cartstore listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown error: %v", err)
	}
	logger.Printf("shutdown complete")
}
