package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stripe-sync-service/config"
	"stripe-sync-service/internal/api"
	"stripe-sync-service/internal/broker"
	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/redisclient"
	"stripe-sync-service/internal/service"
	"stripe-sync-service/internal/store"
	"stripe-sync-service/internal/stripeclient"
	"stripe-sync-service/internal/util"
	"stripe-sync-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting stripe sync service")

	tp, err := util.InitTracer("stripe-sync-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	syncProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncEvents)
	defer syncProducer.Close()
	stripeProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStripeEvents)
	defer stripeProducer.Close()
	log.Println("Kafka producers initialized")

	syncPublisher := broker.NewEventPublisher(syncProducer)
	stripePublisher := broker.NewEventPublisher(stripeProducer)

	clientFactory := stripeclient.NewFactory()
	webhookService := service.NewWebhookService(db)
	syncService := service.NewSyncService(db, clientFactory, syncPublisher, service.PlatformWinsPolicy{})
	tokenService := service.NewTokenService(db, syncPublisher, cfg.Stripe.OAuthTokenURL, map[models.Environment]string{
		models.EnvironmentTest:       cfg.Stripe.TestClientSecret,
		models.EnvironmentProduction: cfg.Stripe.LiveClientSecret,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	stripeConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStripeEvents, cfg.Kafka.ConsumerGroup)
	webhookWorker := worker.NewWebhookWorker(stripeConsumer, webhookService, redisClient)
	go func() {
		if err := webhookWorker.Start(workerCtx); err != nil {
			log.Printf("Webhook worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(syncService, tokenService, stripePublisher, redisClient, cfg.Stripe.WebhookSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	webhookWorker.Stop()

	log.Println("Server exited")
}
