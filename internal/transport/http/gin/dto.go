package httpgin

import (
	"time"

	"github.com/kirinyoku/tour-go/internal/domain"
)

type CreateBookingRequest struct {
	TourID          int64  `json:"tour_id" binding:"required"`
	NumberOfPeople  int    `json:"number_of_people" binding:"required,gte=1"`
	ContactEmail    string `json:"contact_email" binding:"omitempty,email"`
	SpecialRequests string `json:"special_requests"`
}

type UpdateBookingRequest struct {
	NumberOfPeople  *int    `json:"number_of_people" binding:"omitempty,gte=1"`
	Status          *string `json:"status" binding:"omitempty,oneof=cancelled completed"`
	ContactEmail    *string `json:"contact_email" binding:"omitempty,email"`
	SpecialRequests *string `json:"special_requests"`
}

type CreateTourRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	PriceCents     int64  `json:"price_cents" binding:"required,gt=0"`
	AvailableSeats int    `json:"available_seats" binding:"gte=0"`
	StripePriceID  string `json:"stripe_price_id"`
	LsProductID    string `json:"ls_product_id" binding:"required"`
	LsVariantID    string `json:"ls_variant_id" binding:"required"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

type CheckoutSessionRequest struct {
	SuccessURL string `json:"success_url" binding:"omitempty,url"`
	CancelURL  string `json:"cancel_url" binding:"omitempty,url"`
}

type LsCheckoutRequest struct {
	SuccessURL string `json:"success_url" binding:"omitempty,url"`
}

type LsVerifyPaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type BookingResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TourID          int64     `json:"tour_id"`
	NumberOfPeople  int       `json:"number_of_people"`
	TotalCents      int64     `json:"total_cents"`
	Status          string    `json:"status"`
	IsPaid          bool      `json:"is_paid"`
	PaymentID       string    `json:"payment_id,omitempty"`
	ContactEmail    string    `json:"contact_email,omitempty"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		TourID:          b.TourID,
		NumberOfPeople:  b.NumberOfPeople,
		TotalCents:      b.TotalCents,
		Status:          string(b.Status),
		IsPaid:          b.IsPaid,
		PaymentID:       b.PaymentID,
		ContactEmail:    b.ContactEmail,
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toBookingResponses(bs []domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBookingResponse(&bs[i]))
	}
	return out
}

type TourResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	PriceCents     int64     `json:"price_cents"`
	AvailableSeats int       `json:"available_seats"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toTourResponse(t *domain.Tour) TourResponse {
	return TourResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Location:       t.Location,
		PriceCents:     t.PriceCents,
		AvailableSeats: t.AvailableSeats,
		IsActive:       t.IsActive,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func toTourResponses(ts []domain.Tour) []TourResponse {
	out := make([]TourResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTourResponse(&ts[i]))
	}
	return out
}

type CreateTourResponse struct {
	TourID int64 `json:"tour_id"`
}

type IntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url"`
}

type InvoiceResponse struct {
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}

type WebhookAckResponse struct {
	Message string `json:"message"`
}
