package main

import (
	"os"
	"os/signal"
	"syscall"

	"stayd/internal/intents/events"
	"stayd/internal/intents/repository"
	"stayd/internal/intents/service"
	"stayd/pkg/config"
	"stayd/pkg/kafka"
	kafkaconfig "stayd/pkg/kafka/config"
	kafkamiddleware "stayd/pkg/kafka/middleware"
)

const ServiceName = "sweeper"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.SetMongo()

	cfg.Log.Info("Starting Expiry Sweeper service")

	publisher := initPublisher(cfg)
	lockRepo := repository.NewMongoLockRepository(cfg)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	intentRepo := repository.NewMongoIntentRepository(cfg, lockRepo, bookingRepo)

	sweeper := service.NewSweeper(intentRepo, lockRepo, publisher, cfg)
	if err := sweeper.Start(); err != nil {
		cfg.Log.Fatal("Failed to start sweeper", "error", err, "schedule", cfg.SweepSchedule)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	cfg.Log.Info("Shutdown signal received", "signal", sig)
	sweeper.Stop()
	if err := publisher.Close(); err != nil {
		cfg.Log.Warn("Failed to close event publisher", "error", err)
	}
	cfg.GracefulShutdown()
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
