package events

import (
	"context"
	"stayd/pkg/kafka"
	"stayd/pkg/logger"
	"stayd/pkg/model"
	"time"
)

const (
	EventIntentCreated   = "booking_intent.created"
	EventIntentExtended  = "booking_intent.extended"
	EventIntentCancelled = "booking_intent.cancelled"
	EventIntentExpired   = "booking_intent.expired"
	EventIntentConfirmed = "booking_intent.confirmed"

	schemaVersion = "1.0"
	source        = "stayd-intents"
)

// Publisher emits lifecycle notifications for booking intents. Publishing is
// fire-and-forget: a broker outage must never fail the state transition that
// already committed.
type Publisher interface {
	IntentCreated(ctx context.Context, intent *model.BookingIntent)
	IntentExtended(ctx context.Context, intent *model.BookingIntent)
	IntentCancelled(ctx context.Context, intent *model.BookingIntent)
	IntentExpired(ctx context.Context, intent *model.BookingIntent)
	IntentConfirmed(ctx context.Context, intent *model.BookingIntent, booking *model.Booking)
	Close() error
}

// IntentEvent is the wire payload shared by all lifecycle events.
type IntentEvent struct {
	IntentID       string            `json:"intent_id"`
	CustomerID     string            `json:"customer_id"`
	HostID         string            `json:"host_id"`
	ListingID      string            `json:"listing_id"`
	BookingType    model.BookingType `json:"booking_type"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	State          model.IntentState `json:"state"`
	ExtensionCount int               `json:"extension_count,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	BookingID      string            `json:"booking_id,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		logger:   log,
	}
}

func (p *kafkaPublisher) IntentCreated(ctx context.Context, intent *model.BookingIntent) {
	p.publish(ctx, EventIntentCreated, intentEvent(intent), intent.ListingID)
}

func (p *kafkaPublisher) IntentExtended(ctx context.Context, intent *model.BookingIntent) {
	p.publish(ctx, EventIntentExtended, intentEvent(intent), intent.ListingID)
}

func (p *kafkaPublisher) IntentCancelled(ctx context.Context, intent *model.BookingIntent) {
	p.publish(ctx, EventIntentCancelled, intentEvent(intent), intent.ListingID)
}

func (p *kafkaPublisher) IntentExpired(ctx context.Context, intent *model.BookingIntent) {
	p.publish(ctx, EventIntentExpired, intentEvent(intent), intent.ListingID)
}

func (p *kafkaPublisher) IntentConfirmed(ctx context.Context, intent *model.BookingIntent, booking *model.Booking) {
	event := intentEvent(intent)
	event.BookingID = booking.ID
	p.publish(ctx, EventIntentConfirmed, event, intent.ListingID)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// publish keys messages by listing so consumers see one listing's lifecycle
// in order.
func (p *kafkaPublisher) publish(ctx context.Context, eventType string, event *IntentEvent, listingID string) {
	msg := kafka.NewMessage().
		WithKey(listingID).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(schemaVersion).
		WithSource(source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Error("Failed to publish intent event",
			"event_type", eventType,
			"intent_id", event.IntentID,
			"error", err,
		)
	}
}

func intentEvent(intent *model.BookingIntent) *IntentEvent {
	return &IntentEvent{
		IntentID:       intent.ID,
		CustomerID:     intent.CustomerID,
		HostID:         intent.HostID,
		ListingID:      intent.ListingID,
		BookingType:    intent.BookingType,
		StartDate:      intent.StartDate.Format(model.DateLayout),
		EndDate:        intent.EndDate.Format(model.DateLayout),
		State:          intent.State,
		ExtensionCount: intent.ExtensionCount,
		CancelReason:   intent.CancelReason,
		ExpiresAt:      intent.ExpiresAt,
		OccurredAt:     time.Now().UTC(),
	}
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) IntentCreated(context.Context, *model.BookingIntent)                   {}
func (NoopPublisher) IntentExtended(context.Context, *model.BookingIntent)                  {}
func (NoopPublisher) IntentCancelled(context.Context, *model.BookingIntent)                 {}
func (NoopPublisher) IntentExpired(context.Context, *model.BookingIntent)                   {}
func (NoopPublisher) IntentConfirmed(context.Context, *model.BookingIntent, *model.Booking) {}
func (NoopPublisher) Close() error                                                          { return nil }
