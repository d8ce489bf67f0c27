package model

import "time"

// Booking is the durable record materialized from a confirmed intent. It is
// immutable once written; the IntentID back-reference makes materialization
// idempotent (unique index, one booking per intent).
type Booking struct {
	ID            string      `json:"id" bson:"_id"`
	IntentID      string      `json:"intent_id" bson:"intent_id"`
	CustomerID    string      `json:"customer_id" bson:"customer_id"`
	HostID        string      `json:"host_id" bson:"host_id"`
	ListingID     string      `json:"listing_id" bson:"listing_id"`
	BookingType   BookingType `json:"booking_type" bson:"booking_type"`
	StartDate     time.Time   `json:"start_date" bson:"start_date"`
	EndDate       time.Time   `json:"end_date" bson:"end_date"`
	Pricing       Pricing     `json:"pricing" bson:"pricing"`
	TransactionID string      `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
}

func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// IntentLock is one per-night reservation bucket. Its document ID is the
// canonical "<listing_id>:<YYYY-MM-DD>" key, so the storage layer's unique
// constraint on _id serializes concurrent acquisitions of the same night.
type IntentLock struct {
	ID         string    `json:"id" bson:"_id"`
	IntentID   string    `json:"intent_id" bson:"intent_id"`
	ListingID  string    `json:"listing_id" bson:"listing_id"`
	CustomerID string    `json:"customer_id" bson:"customer_id"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// LockBucketID builds the canonical per-night lock key.
func LockBucketID(listingID string, night time.Time) string {
	return listingID + ":" + night.UTC().Format(DateLayout)
}

type UnavailableReason string

const (
	ReasonLockedByOther   UnavailableReason = "locked_by_other"
	ReasonExistingBooking UnavailableReason = "existing_booking"
)

// Availability is the read-path answer for a (listing, range) query.
type Availability struct {
	Available         bool              `json:"available"`
	Reason            UnavailableReason `json:"reason,omitempty"`
	RetryAfterSeconds int               `json:"retry_after_seconds,omitempty"`
	NightlyPrice      float64           `json:"nightly_price,omitempty"`
	TotalPrice        float64           `json:"total_price,omitempty"`
}

// Listing is the read-only projection of the external listing service used
// for pricing quotes. The rest of the listing document is not this service's
// concern.
type Listing struct {
	ID                 string  `json:"id"`
	HostID             string  `json:"host_id"`
	Price              float64 `json:"price"`
	CancellationPolicy string  `json:"cancellation_policy,omitempty"`
}
