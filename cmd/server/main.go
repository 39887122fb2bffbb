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

	"lifecycle-service/config"
	"lifecycle-service/internal/api"
	"lifecycle-service/internal/broker"
	"lifecycle-service/internal/redisclient"
	"lifecycle-service/internal/service"
	"lifecycle-service/internal/store"
	"lifecycle-service/internal/util"
	"lifecycle-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting lifecycle service")

	tp, err := util.InitTracer("lifecycle-service", cfg.Observ.JaegerEndpoint)
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

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	eventsProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer eventsProducer.Close()
	alertsProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertsProducer.Close()
	auditProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAudit)
	defer auditProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(eventsProducer, alertsProducer, auditProducer)

	notifier := service.NewKafkaOperatorNotifier(eventPublisher)
	auditRecorder := service.NewKafkaAuditRecorder(eventPublisher)
	gateway := service.NewMockPaymentGateway(cfg.Payment)
	permissions := service.NewRolePermissions()

	compensator := service.NewCompensator(
		notifier,
		auditRecorder,
		redisClient,
		cfg.Alerts.OperatorTarget,
		cfg.Alerts.DedupeTTL,
	)

	executor := service.NewExecutor(
		service.ExecutorConfig{PaymentTimeout: cfg.Payment.Timeout},
		db,
		gateway,
		permissions,
		compensator,
		eventPublisher,
		redisClient,
		auditRecorder,
	)

	entityService := service.NewEntityService(db, redisClient, gateway, auditRecorder, cfg.Payment.Timeout)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	transitionConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTransitions, cfg.Kafka.ConsumerGroup)
	transitionWorker := worker.NewTransitionWorker(transitionConsumer, executor)
	go func() {
		if err := transitionWorker.Start(workerCtx); err != nil {
			log.Printf("Transition worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(executor, entityService)
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
	transitionWorker.Stop()

	log.Println("Server exited")
}
