package kafka_middleware

import (
	"context"
	"time"

	"stayd/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayd",
			Name:      "kafka_events_published_total",
			Help:      "Lifecycle events published, by event type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stayd",
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// MetricsProducerMiddleware counts publishes and records latency
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		publishDuration.Observe(time.Since(start).Seconds())

		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		eventsPublished.WithLabelValues(msg.GetEventType(), outcome).Inc()

		return err
	}
}
