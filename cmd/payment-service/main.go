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

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"brewhub/internal/config"
	"brewhub/internal/kafka"
	"brewhub/internal/logger"
	"brewhub/internal/order"
	orderdb "brewhub/internal/order/db"
	"brewhub/internal/payment/handler"
	paymentredis "brewhub/internal/payment/redis"
	"brewhub/internal/payment/services"
	"brewhub/internal/payment/storage"
	"brewhub/internal/tracking"
	trackingdb "brewhub/internal/tracking/db"
)

// webhookDedupTTL is how long a Stripe event id is remembered. Stripe
// retries deliveries for up to a day.
const webhookDedupTTL = 24 * time.Hour

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Payment Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()
	log.Info("DATABASE", "PostgreSQL connection successful")

	paymentStore, err := storage.NewPostgreSQLStore(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to initialize payment store: %v", err))
	}
	defer paymentStore.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	deduper := paymentredis.NewDeduper(redisClient, webhookDedupTTL)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Warn("KAFKA", "Kafka disabled, status events will not be published")
	}

	trackingService := tracking.NewTrackingService(
		&trackingdb.DB{Bun: bunDB},
		kafkaOrNil(producer),
		cfg.Kafka.Topics.OrderStatus,
		log,
	)
	orderService := order.NewOrderService(&orderdb.DB{Bun: bunDB}, nil, log)

	stripeService, err := services.NewStripeService(cfg.Stripe, log)
	if err != nil {
		log.Fatal("STRIPE", fmt.Sprintf("Failed to initialize Stripe: %v", err))
	}

	stripeHandler := handler.NewStripeHandler(stripeService, paymentStore, deduper, orderService, trackingService, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1/payments")
	{
		api.POST("/checkout-session", stripeHandler.CreateCheckoutSession)
		api.POST("/webhook", stripeHandler.Webhook)
	}
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	log.Info("ROUTER", "Payment routes registered under /api/v1/payments")

	port := cfg.Server.Port
	if env := os.Getenv("PAYMENT_PORT"); env != "" {
		port = env
	}

	server := &http.Server{
		Addr:         port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Payment Service running on %s", port))
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
		log.Info("HTTP", "Payment Service shutdown complete")
	}
}

func kafkaOrNil(p *kafka.Producer) tracking.KafkaPublisher {
	if p == nil {
		return nil
	}
	return p
}
