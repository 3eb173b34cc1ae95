package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"brewhub/internal/auth"
	"brewhub/internal/config"
	"brewhub/internal/database/migrations"
	"brewhub/internal/kafka"
	"brewhub/internal/logger"
	"brewhub/internal/order"
	orderdb "brewhub/internal/order/db"
	orderkafka "brewhub/internal/order/kafka"
	"brewhub/internal/order/order_api"
	"brewhub/internal/pickup"
	"brewhub/internal/tracking"
	trackingdb "brewhub/internal/tracking/db"
	"brewhub/internal/tracking/tracking_api"
)

func connectDatabase(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	maxRetries := 5
	var err error
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		if err = sqldb.Ping(); err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Order Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectDatabase(cfg.Database, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		log.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.OrderCreated,
			cfg.Kafka.Topics.OrderStatus,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, order and status events will not be published")
	}

	trackingService := tracking.NewTrackingService(
		&trackingdb.DB{Bun: bunDB},
		kafkaOrNil(producer),
		cfg.Kafka.Topics.OrderStatus,
		log,
	)
	publisher := tracking.NewLiveStatusPublisher(trackingService, cfg.Tracking.PollInterval, log)

	var orderPublisher order.OrderPublisher
	if producer != nil {
		orderPublisher = orderkafka.NewProducer(producer, cfg.Kafka.Topics.OrderCreated)
	}
	orderService := order.NewOrderService(&orderdb.DB{Bun: bunDB}, orderPublisher, log)

	qrGenerator := pickup.NewQRGenerator(cfg.Pickup.QRSecret)

	orderHandler := order_api.NewHandler(orderService, trackingService, qrGenerator, log)
	trackingHandler := tracking_api.NewHandler(trackingService, publisher, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	registerRoutes := func(r chi.Router) {
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Post("/", orderHandler.PlaceOrder)
			r.Get("/{orderId}", orderHandler.GetOrder)
			r.Get("/{orderId}/pickup-qr", orderHandler.GetPickupQR)

			r.Route("/{orderId}/tracking", func(r chi.Router) {
				r.Get("/", trackingHandler.GetTrackingSnapshot)
				r.Get("/stream", trackingHandler.StreamTracking)
				r.Post("/advance", trackingHandler.AdvanceTracking)
			})
		})
	}

	if cfg.Auth.OIDCIssuer != "" {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
			registerRoutes(r)
		})
		log.Info("AUTH", "OIDC middleware applied to API routes")
	} else {
		registerRoutes(r)
		log.Warn("AUTH", "OIDC_ISSUER not set, running without token verification")
	}
	log.Info("ROUTER", "Order and tracking routes registered under /api/v1/orders")

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		// no WriteTimeout: tracking streams stay open until pickup
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Order Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Order Service shutdown complete")
	}
}

// kafkaOrNil avoids handing the tracking service a typed-nil interface
// when Kafka is disabled.
func kafkaOrNil(p *kafka.Producer) tracking.KafkaPublisher {
	if p == nil {
		return nil
	}
	return p
}
