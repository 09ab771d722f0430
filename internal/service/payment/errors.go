package payment

import "errors"

var (
	ErrMissingStripePrice  = errors.New("tour is not configured for stripe checkout")
	ErrMissingContactEmail = errors.New("booking has no contact email for invoicing")
	ErrPaymentProcessing   = errors.New("payment is still processing")
	ErrPaymentNotCompleted = errors.New("payment has not completed")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMissingBookingRef   = errors.New("webhook payload carries no booking reference")
)
