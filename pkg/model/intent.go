package model

import (
	"time"
)

type IntentState string

const (
	IntentActive    IntentState = "active"
	IntentConfirmed IntentState = "confirmed"
	IntentCancelled IntentState = "cancelled"
	IntentExpired   IntentState = "expired"
)

// Terminal reports whether the state is absorbing: no further transitions.
func (s IntentState) Terminal() bool {
	return s == IntentConfirmed || s == IntentCancelled || s == IntentExpired
}

type BookingType string

const (
	BookingEntirePlace BookingType = "entire_place"
	BookingRoom        BookingType = "room"
	BookingSharedRoom  BookingType = "shared_room"
)

type PaymentType string

const (
	PaymentFull    PaymentType = "full"
	PaymentDeposit PaymentType = "deposit"
)

type Pricing struct {
	TotalPrice        float64     `json:"total_price" bson:"total_price" validate:"required,gt=0"`
	PaymentMethod     string      `json:"payment_method" bson:"payment_method" validate:"required,oneof=card transfer cash"`
	PaymentType       PaymentType `json:"payment_type" bson:"payment_type" validate:"required,oneof=full deposit"`
	PaymentAmount     float64     `json:"payment_amount" bson:"payment_amount" validate:"gte=0"`
	DepositPercentage float64     `json:"deposit_percentage,omitempty" bson:"deposit_percentage,omitempty" validate:"gte=0,lte=100"`
	DepositAmount     float64     `json:"deposit_amount,omitempty" bson:"deposit_amount,omitempty" validate:"gte=0"`
	RemainingAmount   float64     `json:"remaining_amount,omitempty" bson:"remaining_amount,omitempty" validate:"gte=0"`
}

// BookingIntent is a time-boxed exclusive claim on a listing's date range,
// held while a customer completes payment. An active intent excludes every
// other customer from overlapping dates until it is confirmed, cancelled or
// its lease expires.
type BookingIntent struct {
	ID             string      `json:"id" bson:"_id"`
	CustomerID     string      `json:"customer_id" bson:"customer_id" validate:"required"`
	HostID         string      `json:"host_id" bson:"host_id" validate:"required"`
	ListingID      string      `json:"listing_id" bson:"listing_id" validate:"required"`
	BookingType    BookingType `json:"booking_type" bson:"booking_type" validate:"required,oneof=entire_place room shared_room"`
	StartDate      time.Time   `json:"start_date" bson:"start_date" validate:"required"`
	EndDate        time.Time   `json:"end_date" bson:"end_date" validate:"required"`
	Pricing        Pricing     `json:"pricing" bson:"pricing"`
	State          IntentState `json:"state" bson:"state"`
	ExtensionCount int         `json:"extension_count" bson:"extension_count"`
	CancelReason   string      `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	TransactionID  string      `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updated_at"`
	ExpiresAt      time.Time   `json:"expires_at" bson:"expires_at"`
}

func (i *BookingIntent) Range() DateRange {
	return DateRange{Start: i.StartDate, End: i.EndDate}
}

// ExpiredAt reports whether the lease has lapsed at the given instant. An
// active-but-lapsed intent no longer holds its lock, even before the sweeper
// has flipped its state.
func (i *BookingIntent) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// HoldsLockAt reports whether the intent excludes other customers right now.
func (i *BookingIntent) HoldsLockAt(now time.Time) bool {
	return i.State == IntentActive && !i.ExpiredAt(now)
}

// RemainingSeconds is the whole number of seconds left on the lease, never
// negative. Used for client countdowns and retry-after hints.
func (i *BookingIntent) RemainingSeconds(now time.Time) int {
	remaining := i.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds())
}
