package main

import (
	"log"
	"strings"
	"time"

	"order-webhook-service/cache"
	"order-webhook-service/config"
	"order-webhook-service/controllers"
	"order-webhook-service/database"
	"order-webhook-service/kafka"
	"order-webhook-service/middleware"
	"order-webhook-service/repository"
	"order-webhook-service/routes"
	"order-webhook-service/sender"
	"order-webhook-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// confirmationDedupWindow bounds duplicate confirmation sends from a single
// instance. The order-items unique index remains the real guarantee.
const confirmationDedupWindow = 5 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[OrderWebhookService] Failed to load config:", err)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("[OrderWebhookService] Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := database.Connect(cfg.DSN(), logger); err != nil {
		log.Fatal("[OrderWebhookService] Failed to connect to DB:", err)
	}
	defer database.Close()

	orderRepo := repository.NewGormOrderRepo(database.DB)
	stockRepo := repository.NewGormStockRepo(database.DB)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	stockSvc := services.NewStockService(orderRepo, stockRepo, logger)

	seen := cache.NewTTLCache(confirmationDedupWindow)
	defer seen.Stop()

	// Email and Kafka are optional collaborators: webhook correctness never
	// depends on either, so misconfiguration degrades instead of failing.
	var confirmation sender.ConfirmationSender
	smtpSender, err := sender.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	if err != nil {
		logger.Warn("Confirmation emails disabled", zap.Error(err))
	} else {
		confirmation = smtpSender
	}

	var events services.EventPublisher
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewOrderEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic)
		defer producer.Close()
		events = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order event publishing disabled")
	}

	reconciler := services.NewReconciler(stripeSvc, orderRepo, stockSvc, confirmation, seen, events, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	wc := &controllers.WebhookController{
		Stripe:     stripeSvc,
		Reconciler: reconciler,
		Logger:     logger,
	}
	oc := &controllers.OrderController{
		Orders: orderRepo,
		Logger: logger,
	}
	routes.RegisterRoutes(r, wc, oc)

	logger.Info("Order webhook service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[OrderWebhookService] Server failed:", err)
	}
}
