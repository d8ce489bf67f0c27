package kafka_middleware

import (
	"context"
	"time"

	"stayd/pkg/kafka"
	"stayd/pkg/logger"
)

// LoggingProducerMiddleware logs message publishing operations
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		duration := time.Since(start)

		if err != nil {
			log.Error("Failed to publish event",
				"event_type", msg.GetEventType(),
				"event_id", msg.GetEventID(),
				"key", msg.Key,
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
			return err
		}

		log.Debug("Event published",
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"key", msg.Key,
			"duration_ms", duration.Milliseconds(),
		)
		return nil
	}
}
