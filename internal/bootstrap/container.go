package bootstrap

import (
	"context"
	"log"

	"meal-subscription-be/internal/config"
	"meal-subscription-be/internal/controller"
	"meal-subscription-be/internal/handler"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/lock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/internal/repository/implementation"
	"meal-subscription-be/internal/repository/memory"
	"meal-subscription-be/internal/repository/unitofwork"
	"meal-subscription-be/internal/service"
	"meal-subscription-be/internal/websocket"
	"meal-subscription-be/pkg/events"

	pktNats "meal-subscription-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SubscriptionController controller.ISubscriptionController
	DeliveryController     controller.IDeliveryController

	// Background Services (Exposed for main.go to run)
	AckService          service.AckService
	ResyncWorker        *service.ResyncWorker
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService
	PromptDispatcher    *service.PromptDispatcher
	Gateway             gateway.SubscriptionGateway

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	loc := cfg.Location()
	clk := clock.NewReal(loc)

	c := &Container{}

	// 2. Infrastructure
	// Redis (locks + websocket fan-out). Optional.
	var rdb redis.UniversalClient
	var locker lock.Locker = lock.NopLocker{}
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		client := redis.NewClient(opt)
		if _, err := client.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		rdb = client
		locker = lock.NewRedisLocker(client, "meal")
		c.closers = append(c.closers, func() { _ = client.Close() })
	} else {
		log.Printf("[INFO] REDIS_URL not set, subscription locks are process-local no-ops")
	}

	// NATS
	var publisher events.Publisher = events.Discard
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	var subscriber service.EventSubscriber
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		subscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// In-process bus between delivery completion and the ack protocol
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256, Persistent: false},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Persistence gateway
	local := memory.NewSubscriptionStore(cfg.Cache.SubscriptionTTL)
	subscriptionRepo := implementation.NewSubscriptionRepository(db)
	gw := gateway.NewSubscriptionGateway(subscriptionRepo, local, clk, sysLogger)
	mutator := service.NewSubscriptionMutator(gw, locker, cfg.Lock.TTL, sysLogger)

	// 4. Services
	dispatcher, err := service.NewPromptDispatcher(publisher, clk, sysLogger, service.PromptDispatcherConfig{
		Workers:       cfg.Scheduler.PromptWorkers,
		QueueSize:     cfg.Scheduler.PromptQueueSize,
		RatePerSecond: cfg.Scheduler.PromptRatePerSecond,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize prompt dispatcher: %v", err)
	}

	cutoffService := service.NewCutoffService(uowFactory, clk, loc, sysLogger)
	walletService := service.NewWalletService(uowFactory, clk)
	subscriptionService := service.NewSubscriptionService(uowFactory, gw, cutoffService, clk, loc, cfg.App.MaxCalendarRangeDays, sysLogger)
	skipService := service.NewSkipService(gw, mutator, cutoffService, publisher, clk, sysLogger)
	addOnService := service.NewAddOnService(uowFactory, gw, mutator, cutoffService, walletService, publisher, clk, sysLogger)
	deliveryService := service.NewDeliveryService(gw, mutator, pubSub, publisher, clk, sysLogger)
	ackService := service.NewAckService(uowFactory, gw, mutator, dispatcher, publisher, clk, service.AckServiceConfig{
		SweepInterval:  cfg.Scheduler.AckSweepInterval,
		PromptInterval: cfg.Scheduler.AckPromptInterval,
		BatchSize:      cfg.Scheduler.AckSweepBatchSize,
	}, sysLogger)
	consumerService := service.NewConsumerService(pubSub, service.TopicDeliveryCompleted, ackService, sysLogger)
	resyncWorker := service.NewResyncWorker(gw, cfg.Scheduler.GatewayResyncInterval, sysLogger)

	// 5. Notification System
	wsLogger := logger.NewIsolatedLogger(cfg.App.NotificationLogPath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, subscriber, wsHub, clk, wsLogger)
	notifHandler := handler.NewNotificationHandler(notifService, wsHub, cfg.App.JwtSecret, wsLogger)

	// 6. Controllers
	c.SubscriptionController = controller.NewSubscriptionController(subscriptionService, skipService, addOnService, ackService, cfg.App.JwtSecret)
	c.DeliveryController = controller.NewDeliveryController(subscriptionService, deliveryService, cfg.App.JwtSecret)
	c.AckService = ackService
	c.ResyncWorker = resyncWorker
	c.ConsumerService = consumerService
	c.NotificationService = notifService
	c.PromptDispatcher = dispatcher
	c.Gateway = gw
	c.NotificationHandler = notifHandler
	c.WebSocketHub = wsHub
	return c
}

// Close releases the bus and cache connections, newest first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
