package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/configs"
	"castrelay/internal/infrastructure/events"
	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/messaging"
	"castrelay/internal/infrastructure/ratelimiter"
	"castrelay/internal/infrastructure/registry"
	"castrelay/internal/infrastructure/relay"
	"castrelay/internal/infrastructure/tracing"
	"castrelay/internal/persistence/db"
	"castrelay/internal/persistence/repository"
	"castrelay/internal/presentation/api"
	"castrelay/internal/presentation/handler/health"
	"castrelay/internal/presentation/handler/rooms"
)

const (
	serviceName = "castrelay"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	var notifier relay.LifecycleNotifier
	var publisher *events.RoomPublisher
	var rabbitmq *messaging.RabbitMQ

	if cfg.AMQP.Enabled {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.AMQP.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		publisher = events.NewRoomPublisher(rabbitmq)
		notifier = publisher

		logger.Info(logging.RabbitMQ, logging.Startup, "rabbitmq connected", nil)
	}

	var auditRepository domain.RoomAuditRepository

	if cfg.Mongo.Enabled {
		mongoCfg := &db.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		}

		mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			log.Fatal(err)
		}
		defer db.DisconnectMongo(context.Background(), mongoClient)

		auditRepository = repository.NewRoomAuditLogRepository(db.GetDatabase(mongoClient, mongoCfg))
		if err := auditRepository.EnsureIndexes(ctx); err != nil {
			log.Fatal(err)
		}

		sweeper := repository.NewRetentionSweeper(auditRepository, logger, cfg.Mongo.AuditRetention)
		go sweeper.Run(ctx)

		logger.Info(logging.Mongo, logging.Startup, "mongo connected", nil)
	}

	if rabbitmq != nil {
		roomConsumer := events.NewRoomConsumer(rabbitmq, auditRepository)
		go roomConsumer.Listen()
	}

	reg := registry.New(registry.Options{
		Capacity:       cfg.Registry.Capacity,
		IdleRoomExpiry: cfg.Registry.IdleRoomExpiry,
		OnDelete: func(roomID, reason string) {
			if publisher != nil {
				publisher.RoomDeleted(roomID, reason)
			}
		},
	})

	hub := relay.NewHub()
	dispatcher := relay.NewDispatcher(reg, hub, logger, notifier)
	validator := relay.NewStaticKeyValidator(cfg.Auth.APIKey)

	socketHandler := relay.NewHandler(hub, dispatcher, validator, logger, relay.HandlerOptions{
		HandshakeTimeout: cfg.Socket.HandshakeTimeout,
		SendBuffer:       cfg.Socket.SendBuffer,
		PingInterval:     cfg.Socket.PingInterval,
		PongWait:         cfg.Socket.PongWait,
		MaxFrameSize:     cfg.Socket.MaxFrameSize,
	})

	roomHandler := rooms.NewHandler(reg, notifier, auditRepository, logger)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, roomHandler, healthHandler, socketHandler, logger, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("sessions", expvar.Func(func() any {
		return hub.SessionCount()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
