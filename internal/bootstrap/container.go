package bootstrap

import (
	"context"
	"log"
	"time"

	"heartlink-be/internal/config"
	"heartlink-be/internal/controller"
	"heartlink-be/internal/pkg/logger"
	"heartlink-be/internal/pkg/mailer"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/internal/repository/unitofwork"
	"heartlink-be/internal/service"

	pkgNats "heartlink-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	PlanController         controller.IPlanController
	SubscriptionController controller.ISubscriptionController
	WebhookController      controller.IWebhookController

	// Background Services (Exposed for main.go to run)
	ReceiptConsumerService service.IReceiptConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Payment gateway
	gateway := paymentgw.NewStripeGateway(paymentgw.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		Timeout:       time.Duration(cfg.Stripe.TimeoutSeconds) * time.Second,
	})

	planCache := gocache.New(5*time.Minute, 10*time.Minute)

	// 3. Services
	planService := service.NewPlanService(uowFactory, gateway, sysLogger, planCache, natsPub)
	subscriptionService := service.NewSubscriptionService(
		uowFactory,
		gateway,
		sysLogger,
		natsPub,
		pubSub,
		rdb,
	)
	receiptConsumer := service.NewReceiptConsumerService(
		pubSub,
		service.ReceiptTopic,
		emailService,
		sysLogger,
	)

	// 4. Controllers
	return &Container{
		PlanController:         controller.NewPlanController(planService),
		SubscriptionController: controller.NewSubscriptionController(subscriptionService),
		WebhookController:      controller.NewWebhookController(gateway, subscriptionService, sysLogger),

		ReceiptConsumerService: receiptConsumer,
		Logger:                 sysLogger,
	}
}
