package main

import (
	"stayd/internal/intents/events"
	"stayd/internal/intents/handler"
	"stayd/internal/intents/repository"
	"stayd/internal/intents/service"
	"stayd/internal/intents/validator"
	"stayd/pkg/app"
	"stayd/pkg/client"
	"stayd/pkg/config"
	"stayd/pkg/kafka"
	kafkaconfig "stayd/pkg/kafka/config"
	kafkamiddleware "stayd/pkg/kafka/middleware"
)

const ServiceName = "intents"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Intents service")

	publisher := initPublisher(cfg)
	intentService, availabilityService, sweeper := initServices(cfg, publisher)

	if err := sweeper.Start(); err != nil {
		cfg.Log.Fatal("Failed to start expiry sweeper", "error", err, "schedule", cfg.SweepSchedule)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewIntentHandler(intentService, availabilityService, sweeper, cfg.Log))
	serverApp.OnShutdown(func() {
		sweeper.Stop()
		if err := publisher.Close(); err != nil {
			cfg.Log.Warn("Failed to close event publisher", "error", err)
		}
		cfg.GracefulShutdown()
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) (service.IntentService, service.AvailabilityService, *service.Sweeper) {
	intentValidator := validator.NewIntentValidator(cfg.Log)
	lockRepo := repository.NewMongoLockRepository(cfg)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	intentRepo := repository.NewMongoIntentRepository(cfg, lockRepo, bookingRepo)

	var listings *client.ListingClient
	if cfg.ListingServiceURL != "" {
		listings = client.NewListingClient(cfg.ListingServiceURL)
	}

	intentService := service.NewIntentService(intentRepo, lockRepo, bookingRepo, intentValidator, publisher, cfg)
	availabilityService := service.NewAvailabilityService(intentRepo, bookingRepo, listings, cfg)

	// One sweeper serves both the cron schedule and the manual
	// release-expired endpoint.
	sweeper := service.NewSweeper(intentRepo, lockRepo, publisher, cfg)

	cfg.Log.Info("Intent services initialized", "database", cfg.MongoDatabaseName)
	return intentService, availabilityService, sweeper
}

func initPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafkaconfig.Load()
	if kafkaCfg == nil {
		cfg.Log.Info("Kafka brokers not configured, intent events disabled")
		return events.NoopPublisher{}
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.IntentEventsTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafkamiddleware.MetricsProducerMiddleware())

	return events.NewKafkaPublisher(producer, cfg.Log)
}
