package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirinyoku/tour-go/internal/domain"
	"github.com/kirinyoku/tour-go/internal/metrics"
	"github.com/kirinyoku/tour-go/internal/stripe"
)

const provider = "stripe"

// BookingLedger is the slice of the booking service the adapter needs:
// reading a booking and confirming its payment. Seat counters are never
// touched from here.
type BookingLedger interface {
	FindOne(ctx context.Context, id int64) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, id int64, paymentID string) (*domain.Booking, error)
}

type TourFinder interface {
	Get(ctx context.Context, id int64) (*domain.Tour, error)
}

// StripeAPI abstracts the provider client for tests.
type StripeAPI interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error)
	CreateInvoiceItem(ctx context.Context, customerID string, amountCents int64, currency, description string) (*stripe.InvoiceItem, error)
	CreateInvoice(ctx context.Context, customerID string, daysUntilDue int) (*stripe.Invoice, error)
	FinalizeInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)
	SendInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)
}

// EventLog records inbound webhook deliveries before they are dispatched.
type EventLog interface {
	Record(ctx context.Context, provider, eventName string, body []byte) (uuid.UUID, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error
}

type Config struct {
	WebhookSecret  string
	Currency       string
	SuccessURL     string
	CancelURL      string
	InvoiceDueDays int
}

// Service is the Stripe payment adapter. It creates intents and checkout
// sessions for bookings, verifies provider-side status, and turns verified
// webhook deliveries into booking confirmations.
type Service struct {
	api    StripeAPI
	ledger BookingLedger
	tours  TourFinder
	events EventLog
	cfg    Config
}

func New(api StripeAPI, ledger BookingLedger, tours TourFinder, events EventLog, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.InvoiceDueDays <= 0 {
		cfg.InvoiceDueDays = 7
	}

	return &Service{
		api:    api,
		ledger: ledger,
		tours:  tours,
		events: events,
		cfg:    cfg,
	}
}

type Intent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
}

// CreateIntent creates a payment intent for the booking's frozen total. The
// booking itself is not mutated; confirmation happens on verify or webhook.
func (s *Service) CreateIntent(ctx context.Context, bookingID int64) (*Intent, error) {
	const op = "service.payment.CreateIntent"

	b, err := s.ledger.FindOne(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	pi, err := s.api.CreatePaymentIntent(ctx, b.TotalCents, s.cfg.Currency, map[string]string{
		"booking_id": strconv.FormatInt(b.ID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Intent{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		AmountCents:     pi.Amount,
		Currency:        pi.Currency,
	}, nil
}

// Verify asks the provider for the intent's authoritative status and, when it
// is succeeded, confirms the booking.
//
// Returns:
//   - error: payment.ErrPaymentProcessing while the charge is in flight
//     (the caller may retry).
//   - error: payment.ErrPaymentNotCompleted for terminal non-paid statuses,
//     wrapped with the provider's status string.
func (s *Service) Verify(ctx context.Context, bookingID int64, paymentIntentID string) (*domain.Booking, error) {
	const op = "service.payment.Verify"

	if _, err := s.ledger.FindOne(ctx, bookingID); err != nil {
		return nil, err
	}

	pi, err := s.api.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch pi.Status {
	case "succeeded":
		return s.ledger.ConfirmPayment(ctx, bookingID, pi.ID)
	case "processing":
		return nil, fmt.Errorf("%s: provider status %q:%w", op, pi.Status, ErrPaymentProcessing)
	default:
		// requires_payment_method, requires_action, canceled and the rest
		// are terminal from the caller's point of view.
		return nil, fmt.Errorf("%s: provider status %q:%w", op, pi.Status, ErrPaymentNotCompleted)
	}
}

type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckoutSession builds a hosted checkout for the booking. The tour
// must carry a Stripe price id; success and cancel URLs fall back to the
// configured defaults and always carry the booking id.
func (s *Service) CreateCheckoutSession(ctx context.Context, bookingID int64, successURL, cancelURL string) (*Checkout, error) {
	const op = "service.payment.CreateCheckoutSession"

	b, err := s.ledger.FindOne(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	tour, err := s.tours.Get(ctx, b.TourID)
	if err != nil {
		return nil, err
	}

	if tour.StripePriceID == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrMissingStripePrice)
	}

	if successURL == "" {
		successURL = s.cfg.SuccessURL
	}
	if cancelURL == "" {
		cancelURL = s.cfg.CancelURL
	}

	sess, err := s.api.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		PriceID:    tour.StripePriceID,
		Quantity:   b.NumberOfPeople,
		SuccessURL: withBookingID(successURL, b.ID),
		CancelURL:  withBookingID(cancelURL, b.ID),
		Metadata: map[string]string{
			"booking_id": strconv.FormatInt(b.ID, 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

// GenerateInvoice creates, finalizes and sends a Stripe invoice for the
// booking's total to its contact email, returning the hosted invoice URL.
func (s *Service) GenerateInvoice(ctx context.Context, bookingID int64) (string, error) {
	const op = "service.payment.GenerateInvoice"

	b, err := s.ledger.FindOne(ctx, bookingID)
	if err != nil {
		return "", err
	}

	if b.ContactEmail == "" {
		return "", fmt.Errorf("%s:%w", op, ErrMissingContactEmail)
	}

	cust, err := s.api.CreateCustomer(ctx, b.ContactEmail, map[string]string{
		"booking_id": strconv.FormatInt(b.ID, 10),
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	desc := fmt.Sprintf("Tour booking #%d (%d people)", b.ID, b.NumberOfPeople)
	if _, err := s.api.CreateInvoiceItem(ctx, cust.ID, b.TotalCents, s.cfg.Currency, desc); err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	inv, err := s.api.CreateInvoice(ctx, cust.ID, s.cfg.InvoiceDueDays)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	fin, err := s.api.FinalizeInvoice(ctx, inv.ID)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	sent, err := s.api.SendInvoice(ctx, inv.ID)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if sent.HostedInvoiceURL != "" {
		return sent.HostedInvoiceURL, nil
	}

	return fin.HostedInvoiceURL, nil
}

// HandleWebhook verifies the delivery's signature, records the event, and
// dispatches it. An unverified payload is rejected before anything is
// persisted and can never confirm a payment.
//
// checkout.session.completed confirms the booking named in the session
// metadata, using the session's payment intent as the payment reference.
// Other event types are recorded and marked processed with no effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	const op = "service.payment.HandleWebhook"

	timer := prometheus.NewTimer(metrics.WebhookHandlingTime.WithLabelValues(provider))
	defer timer.ObserveDuration()

	metrics.WebhooksReceived.WithLabelValues(provider).Inc()

	if err := stripe.VerifySignature(payload, sigHeader, s.cfg.WebhookSecret, stripe.DefaultTolerance); err != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s: %v:%w", op, err, ErrInvalidSignature)
	}

	ev, err := stripe.ParseEvent(payload)
	if err != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, err)
	}

	eventID, err := s.events.Record(ctx, provider, ev.Type, payload)
	if err != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, err)
	}

	handleErr := s.dispatch(ctx, ev)

	errMsg := ""
	if handleErr != nil {
		errMsg = handleErr.Error()
	}
	if err := s.events.MarkProcessed(ctx, eventID, errMsg); err != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, err)
	}

	if handleErr != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, handleErr)
	}

	return nil
}

func (s *Service) dispatch(ctx context.Context, ev *stripe.Event) error {
	switch ev.Type {
	case "checkout.session.completed":
		raw, ok := ev.Data.Object.Metadata["booking_id"]
		if !ok || raw == "" {
			return ErrMissingBookingRef
		}

		bookingID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("bad booking_id %q: %w", raw, ErrMissingBookingRef)
		}

		paymentID := ev.Data.Object.PaymentIntent
		if paymentID == "" {
			paymentID = ev.Data.Object.ID
		}

		_, err = s.ledger.ConfirmPayment(ctx, bookingID, paymentID)
		return err
	default:
		return nil
	}
}

func withBookingID(base string, bookingID int64) string {
	sep := "?"
	for _, r := range base {
		if r == '?' {
			sep = "&"
			break
		}
	}
	return fmt.Sprintf("%s%sbookingId=%d", base, sep, bookingID)
}
