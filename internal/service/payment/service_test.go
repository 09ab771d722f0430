package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tour-go/internal/domain"
	"github.com/kirinyoku/tour-go/internal/service/booking"
	"github.com/kirinyoku/tour-go/internal/stripe"
)

// --- fakes ---

type confirmCall struct {
	bookingID int64
	paymentID string
}

type fakeLedger struct {
	bookings  map[int64]*domain.Booking
	confirmed []confirmCall
}

func (f *fakeLedger) FindOne(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeLedger) ConfirmPayment(_ context.Context, id int64, paymentID string) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	f.confirmed = append(f.confirmed, confirmCall{bookingID: id, paymentID: paymentID})
	b.IsPaid = true
	b.Status = domain.BookingConfirmed
	b.PaymentID = paymentID
	return b, nil
}

type fakeTours struct {
	tours map[int64]*domain.Tour
}

func (f *fakeTours) Get(_ context.Context, id int64) (*domain.Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return nil, booking.ErrTourNotFound
	}
	return t, nil
}

type fakeStripe struct {
	intentStatus string
	lastIntent   struct {
		amount   int64
		currency string
		metadata map[string]string
	}
	lastCheckout stripe.CheckoutSessionParams
	invoiceItems int
}

func (f *fakeStripe) CreatePaymentIntent(_ context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	f.lastIntent.amount = amountCents
	f.lastIntent.currency = currency
	f.lastIntent.metadata = metadata
	return &stripe.PaymentIntent{
		ID:           "pi_new",
		Amount:       amountCents,
		Currency:     currency,
		Status:       "requires_payment_method",
		ClientSecret: "pi_new_secret",
		Metadata:     metadata,
	}, nil
}

func (f *fakeStripe) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: id, Status: f.intentStatus}, nil
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastCheckout = p
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
}

func (f *fakeStripe) CreateCustomer(_ context.Context, email string, _ map[string]string) (*stripe.Customer, error) {
	return &stripe.Customer{ID: "cus_1", Email: email}, nil
}

func (f *fakeStripe) CreateInvoiceItem(_ context.Context, customerID string, _ int64, _, _ string) (*stripe.InvoiceItem, error) {
	f.invoiceItems++
	return &stripe.InvoiceItem{ID: "ii_1", Customer: customerID}, nil
}

func (f *fakeStripe) CreateInvoice(_ context.Context, customerID string, _ int) (*stripe.Invoice, error) {
	return &stripe.Invoice{ID: "in_1", Status: "draft"}, nil
}

func (f *fakeStripe) FinalizeInvoice(_ context.Context, invoiceID string) (*stripe.Invoice, error) {
	return &stripe.Invoice{ID: invoiceID, Status: "open", HostedInvoiceURL: "https://invoice.stripe.com/i/in_1"}, nil
}

func (f *fakeStripe) SendInvoice(_ context.Context, invoiceID string) (*stripe.Invoice, error) {
	return &stripe.Invoice{ID: invoiceID, Status: "open", HostedInvoiceURL: "https://invoice.stripe.com/i/in_1"}, nil
}

type fakeEvents struct {
	recorded []string
	marked   map[uuid.UUID]string
}

func (f *fakeEvents) Record(_ context.Context, _, eventName string, _ []byte) (uuid.UUID, error) {
	f.recorded = append(f.recorded, eventName)
	return uuid.New(), nil
}

func (f *fakeEvents) MarkProcessed(_ context.Context, id uuid.UUID, processingError string) error {
	if f.marked == nil {
		f.marked = map[uuid.UUID]string{}
	}
	f.marked[id] = processingError
	return nil
}

// --- helpers ---

const webhookSecret = "whsec_test"

func newTestService(ledger *fakeLedger, tours *fakeTours, api *fakeStripe, events *fakeEvents) *Service {
	return New(api, ledger, tours, events, Config{
		WebhookSecret: webhookSecret,
		SuccessURL:    "https://example.com/success",
		CancelURL:     "https://example.com/cancel",
	})
}

func pendingBooking(id int64) *domain.Booking {
	return &domain.Booking{
		ID:             id,
		UserID:         7,
		TourID:         3,
		NumberOfPeople: 2,
		TotalCents:     19800,
		Status:         domain.BookingPending,
		ContactEmail:   "tourist@example.com",
	}
}

func signedHeader(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// --- tests ---

func TestCreateIntent(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeStripe{}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{})

	in, err := svc.CreateIntent(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(19800), api.lastIntent.amount)
	assert.Equal(t, "usd", api.lastIntent.currency)
	assert.Equal(t, "42", api.lastIntent.metadata["booking_id"])
	assert.Equal(t, "pi_new_secret", in.ClientSecret)
}

func TestCreateIntent_BookingNotFound(t *testing.T) {
	svc := newTestService(&fakeLedger{}, &fakeTours{}, &fakeStripe{}, &fakeEvents{})

	_, err := svc.CreateIntent(context.Background(), 99)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestVerify_Succeeded(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeStripe{intentStatus: "succeeded"}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{})

	b, err := svc.Verify(context.Background(), 42, "pi_9")
	require.NoError(t, err)

	assert.True(t, b.IsPaid)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	require.Len(t, ledger.confirmed, 1)
	assert.Equal(t, confirmCall{bookingID: 42, paymentID: "pi_9"}, ledger.confirmed[0])
}

func TestVerify_Processing(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeStripe{intentStatus: "processing"}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{})

	_, err := svc.Verify(context.Background(), 42, "pi_9")
	assert.ErrorIs(t, err, ErrPaymentProcessing)
	assert.Contains(t, err.Error(), "processing")
	assert.Empty(t, ledger.confirmed)
}

func TestVerify_RequiresPaymentMethod(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeStripe{intentStatus: "requires_payment_method"}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{})

	_, err := svc.Verify(context.Background(), 42, "pi_9")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Contains(t, err.Error(), "requires_payment_method")
	assert.Empty(t, ledger.confirmed)
}

func TestCreateCheckoutSession(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	tours := &fakeTours{tours: map[int64]*domain.Tour{3: {ID: 3, StripePriceID: "price_1"}}}
	api := &fakeStripe{}
	svc := newTestService(ledger, tours, api, &fakeEvents{})

	out, err := svc.CreateCheckoutSession(context.Background(), 42, "", "")
	require.NoError(t, err)

	assert.Equal(t, "cs_1", out.SessionID)
	assert.Equal(t, "price_1", api.lastCheckout.PriceID)
	assert.Equal(t, 2, api.lastCheckout.Quantity)
	assert.Equal(t, "https://example.com/success?bookingId=42", api.lastCheckout.SuccessURL)
	assert.Equal(t, "42", api.lastCheckout.Metadata["booking_id"])
}

func TestCreateCheckoutSession_MissingPrice(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	tours := &fakeTours{tours: map[int64]*domain.Tour{3: {ID: 3}}}
	svc := newTestService(ledger, tours, &fakeStripe{}, &fakeEvents{})

	_, err := svc.CreateCheckoutSession(context.Background(), 42, "", "")
	assert.ErrorIs(t, err, ErrMissingStripePrice)
}

func TestGenerateInvoice(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeStripe{}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{})

	url, err := svc.GenerateInvoice(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "https://invoice.stripe.com/i/in_1", url)
	assert.Equal(t, 1, api.invoiceItems)
}

func TestGenerateInvoice_NoContactEmail(t *testing.T) {
	b := pendingBooking(42)
	b.ContactEmail = ""
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: b}}
	svc := newTestService(ledger, &fakeTours{}, &fakeStripe{}, &fakeEvents{})

	_, err := svc.GenerateInvoice(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMissingContactEmail)
}

func TestHandleWebhook_ConfirmsBooking(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	events := &fakeEvents{}
	svc := newTestService(ledger, &fakeTours{}, &fakeStripe{}, events)

	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "payment_intent": "pi_77", "metadata": {"booking_id": "42"}}}
	}`)

	err := svc.HandleWebhook(context.Background(), payload, signedHeader(payload))
	require.NoError(t, err)

	require.Len(t, ledger.confirmed, 1)
	assert.Equal(t, confirmCall{bookingID: 42, paymentID: "pi_77"}, ledger.confirmed[0])
	assert.Equal(t, []string{"checkout.session.completed"}, events.recorded)
	for _, msg := range events.marked {
		assert.Empty(t, msg)
	}
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	events := &fakeEvents{}
	svc := newTestService(ledger, &fakeTours{}, &fakeStripe{}, events)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	err := svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, ledger.confirmed)
	assert.Empty(t, events.recorded)
}

func TestHandleWebhook_UnknownEventType(t *testing.T) {
	events := &fakeEvents{}
	ledger := &fakeLedger{}
	svc := newTestService(ledger, &fakeTours{}, &fakeStripe{}, events)

	payload := []byte(`{"id":"evt_2","type":"invoice.paid"}`)

	err := svc.HandleWebhook(context.Background(), payload, signedHeader(payload))
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice.paid"}, events.recorded)
	assert.Empty(t, ledger.confirmed)
}

func TestHandleWebhook_MissingBookingRef(t *testing.T) {
	events := &fakeEvents{}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, &fakeStripe{}, events)

	payload := []byte(`{
		"id": "evt_3",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "metadata": {}}}
	}`)

	err := svc.HandleWebhook(context.Background(), payload, signedHeader(payload))
	assert.ErrorIs(t, err, ErrMissingBookingRef)

	// event is still recorded with the failure stamped onto it
	require.Len(t, events.recorded, 1)
	for _, msg := range events.marked {
		assert.NotEmpty(t, msg)
	}
}
