package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Terminal reports whether the status allows no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

type Tour struct {
	ID             int64
	Title          string
	Description    string
	Location       string
	PriceCents     int64
	AvailableSeats int
	IsActive       bool
	// Provider-side identifiers. A tour cannot be sold through a provider
	// whose identifiers are missing.
	StripePriceID string
	LsProductID   string
	LsVariantID   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Booking struct {
	ID              int64
	UserID          int64
	TourID          int64
	NumberOfPeople  int
	TotalCents      int64 // tour.PriceCents * NumberOfPeople, frozen at creation
	Status          BookingStatus
	IsPaid          bool
	PaymentID       string // external provider reference, empty until paid
	ContactEmail    string
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WebhookEvent is one inbound provider callback. Rows are created before any
// dispatch and are never deleted.
type WebhookEvent struct {
	ID              uuid.UUID
	Provider        string
	EventName       string
	Processed       bool
	Body            []byte // jsonb raw
	ProcessingError string
	CreatedAt       time.Time
}

type SubscriptionPlan struct {
	ID            uuid.UUID
	ProductID     int64
	ProductName   string
	VariantID     int64
	Name          string
	Description   string
	Price         string
	IsUsageBased  bool
	Interval      string
	IntervalCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type UserSubscription struct {
	ID                 uuid.UUID
	LsSubscriptionID   string
	OrderID            int64
	UserID             int64
	PlanID             uuid.UUID
	Name               string
	Email              string
	Status             string
	StatusFormatted    string
	RenewsAt           string
	EndsAt             string
	TrialEndsAt        string
	Price              string
	IsUsageBased       bool
	IsPaused           bool
	SubscriptionItemID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
