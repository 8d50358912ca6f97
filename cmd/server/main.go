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

	"sav-service/config"
	"sav-service/internal/api"
	"sav-service/internal/broker"
	"sav-service/internal/email"
	"sav-service/internal/gateway"
	"sav-service/internal/redisclient"
	"sav-service/internal/service"
	"sav-service/internal/store"
	"sav-service/internal/util"
	"sav-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting SAV service")

	tp, err := util.InitTracer("sav-service", cfg.Observ.JaegerEndpoint)
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
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	lifecycleProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIntervention)
	defer lifecycleProducer.Close()
	notificationProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
	defer notificationProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(lifecycleProducer, notificationProducer)

	collabTimeout := time.Duration(cfg.Collab.RequestTimeoutSec) * time.Second
	inventoryClient := gateway.NewInventoryClient(cfg.Collab.InventoryURL, collabTimeout, logger)
	reclamationClient := gateway.NewReclamationClient(cfg.Collab.ReclamationURL, collabTimeout, logger)
	directoryClient := gateway.NewDirectoryClient(cfg.Collab.ClientsURL, collabTimeout, logger)
	notificationClient := gateway.NewNotificationClient(cfg.Collab.NotificationsURL, collabTimeout, logger)
	pdfClient := gateway.NewPDFClient(cfg.Collab.PDFRendererURL, collabTimeout, logger)

	smtpSender := email.NewSMTPSender(
		cfg.SMTP.Host, cfg.SMTP.Port,
		cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.FromEmail, cfg.SMTP.FromName,
	)

	dispatcher := service.NewDispatcher(eventPublisher, directoryClient, cfg.Business.AdminUserIDs)

	lockTTL := time.Duration(cfg.Business.LockTTLSec) * time.Second
	interventionService := service.NewInterventionService(db, reclamationClient, directoryClient, eventPublisher, dispatcher, redisClient, lockTTL)
	partsLedger := service.NewPartsLedger(db, db, inventoryClient, eventPublisher, redisClient, lockTTL)
	laborLedger := service.NewLaborLedger(db, redisClient, lockTTL)
	invoiceService := service.NewInvoiceService(db, db, reclamationClient, pdfClient, eventPublisher, dispatcher, redisClient, lockTTL, cfg.Business.InvoicePDFDir)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, notificationClient, smtpSender)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	retrier := worker.NewCompensationRetrier(
		db,
		inventoryClient,
		redisClient,
		time.Duration(cfg.Compensation.RetryIntervalSec)*time.Second,
		cfg.Compensation.MaxAttempts,
	)
	go func() {
		if err := retrier.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Compensation retrier error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(interventionService, partsLedger, laborLedger, invoiceService, db)
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
	notificationWorker.Stop()

	log.Println("Server exited")
}
