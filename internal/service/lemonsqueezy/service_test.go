package lemonsqueezy

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tour-go/internal/domain"
	ls "github.com/kirinyoku/tour-go/internal/lemonsqueezy"
	"github.com/kirinyoku/tour-go/internal/repository"
	"github.com/kirinyoku/tour-go/internal/service/booking"
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

type fakeAPI struct {
	checkoutURL  string
	lastCheckout ls.CheckoutParams
	order        *ls.Order
	prices       map[string]*ls.Price
	products     map[string]*ls.Product
	priceCalls   int
	productCalls int
}

func (f *fakeAPI) CreateCheckout(_ context.Context, p ls.CheckoutParams) (string, error) {
	f.lastCheckout = p
	return f.checkoutURL, nil
}

func (f *fakeAPI) GetOrder(_ context.Context, orderID string) (*ls.Order, error) {
	return f.order, nil
}

func (f *fakeAPI) GetPrice(_ context.Context, priceID string) (*ls.Price, error) {
	f.priceCalls++
	p, ok := f.prices[priceID]
	if !ok {
		return nil, &ls.APIError{HTTPStatus: 404, Detail: "price not found"}
	}
	return p, nil
}

func (f *fakeAPI) GetProduct(_ context.Context, productID string) (*ls.Product, error) {
	f.productCalls++
	p, ok := f.products[productID]
	if !ok {
		return nil, &ls.APIError{HTTPStatus: 404, Detail: "product not found"}
	}
	return p, nil
}

type fakeEvents struct {
	recorded []string
	marked   []string
}

func (f *fakeEvents) Record(_ context.Context, _, eventName string, _ []byte) (uuid.UUID, error) {
	f.recorded = append(f.recorded, eventName)
	return uuid.New(), nil
}

func (f *fakeEvents) MarkProcessed(_ context.Context, _ uuid.UUID, processingError string) error {
	f.marked = append(f.marked, processingError)
	return nil
}

type fakeSubs struct {
	plans    map[int64]*domain.SubscriptionPlan
	created  []*domain.SubscriptionPlan
	upserted []*domain.UserSubscription
}

func (f *fakeSubs) GetPlanByVariantID(_ context.Context, variantID int64) (*domain.SubscriptionPlan, error) {
	p, ok := f.plans[variantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeSubs) CreatePlan(_ context.Context, p *domain.SubscriptionPlan) (uuid.UUID, error) {
	id := uuid.New()
	f.created = append(f.created, p)
	if f.plans == nil {
		f.plans = map[int64]*domain.SubscriptionPlan{}
	}
	f.plans[p.VariantID] = p
	return id, nil
}

func (f *fakeSubs) UpsertUserSubscription(_ context.Context, s *domain.UserSubscription) error {
	f.upserted = append(f.upserted, s)
	return nil
}

// --- helpers ---

func newTestService(ledger *fakeLedger, tours *fakeTours, api *fakeAPI, events *fakeEvents, subs *fakeSubs) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(api, ledger, tours, events, subs, log, Config{SuccessURL: "https://example.com/success"})
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

// --- tests ---

func TestCreateCheckout(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	tours := &fakeTours{tours: map[int64]*domain.Tour{3: {
		ID:          3,
		Title:       "City Walking Tour",
		LsProductID: "prod_1",
		LsVariantID: "variant_1",
	}}}
	api := &fakeAPI{checkoutURL: "https://checkout.lemonsqueezy.com/x"}
	svc := newTestService(ledger, tours, api, &fakeEvents{}, &fakeSubs{})

	url, err := svc.CreateCheckout(context.Background(), 42, "")
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.lemonsqueezy.com/x", url)
	assert.Equal(t, "variant_1", api.lastCheckout.VariantID)
	assert.Equal(t, "City Walking Tour", api.lastCheckout.ProductName)
	assert.Equal(t, "https://example.com/success", api.lastCheckout.RedirectURL)
	assert.Equal(t, "42", api.lastCheckout.CustomData["booking_id"])
	assert.Equal(t, "7", api.lastCheckout.CustomData["user_id"])
}

func TestCreateCheckout_MissingProviderIDs(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	tours := &fakeTours{tours: map[int64]*domain.Tour{3: {ID: 3, Title: "No LS"}}}
	svc := newTestService(ledger, tours, &fakeAPI{}, &fakeEvents{}, &fakeSubs{})

	_, err := svc.CreateCheckout(context.Background(), 42, "")
	assert.ErrorIs(t, err, ErrMissingLsIDs)
}

func TestVerifyPayment_Paid(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeAPI{order: &ls.Order{ID: "ord_1", Status: "paid", TotalCents: 19800}}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{}, &fakeSubs{})

	b, err := svc.VerifyPayment(context.Background(), 42, "ord_1")
	require.NoError(t, err)

	assert.True(t, b.IsPaid)
	require.Len(t, ledger.confirmed, 1)
	assert.Equal(t, confirmCall{bookingID: 42, paymentID: "ord_1"}, ledger.confirmed[0])
}

func TestVerifyPayment_NotPaid(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	api := &fakeAPI{order: &ls.Order{ID: "ord_1", Status: "pending"}}
	svc := newTestService(ledger, &fakeTours{}, api, &fakeEvents{}, &fakeSubs{})

	_, err := svc.VerifyPayment(context.Background(), 42, "ord_1")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Contains(t, err.Error(), "pending")
	assert.Empty(t, ledger.confirmed)
}

func TestHandleWebhook_OrderCreatedPaid(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	events := &fakeEvents{}
	svc := newTestService(ledger, &fakeTours{}, &fakeAPI{}, events, &fakeSubs{})

	payload := []byte(`{
		"meta": {"event_name": "order_created", "custom_data": {"booking_id": "42"}},
		"data": {
			"id": "ord_9",
			"attributes": {
				"status": "paid",
				"first_order_item": {"custom_data": {"booking_id": "42"}}
			}
		}
	}`)

	err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, ledger.confirmed, 1)
	assert.Equal(t, confirmCall{bookingID: 42, paymentID: "ord_9"}, ledger.confirmed[0])
	assert.Equal(t, []string{"order_created"}, events.recorded)
	assert.Equal(t, []string{""}, events.marked)
}

func TestHandleWebhook_OrderCreatedNotPaid(t *testing.T) {
	ledger := &fakeLedger{bookings: map[int64]*domain.Booking{42: pendingBooking(42)}}
	events := &fakeEvents{}
	svc := newTestService(ledger, &fakeTours{}, &fakeAPI{}, events, &fakeSubs{})

	payload := []byte(`{
		"meta": {"event_name": "order_created", "custom_data": {"booking_id": "42"}},
		"data": {"id": "ord_9", "attributes": {"status": "pending"}}
	}`)

	err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)

	assert.Empty(t, ledger.confirmed)
	assert.Equal(t, []string{""}, events.marked)
}

func TestHandleWebhook_SubscriptionMissingData(t *testing.T) {
	events := &fakeEvents{}
	subs := &fakeSubs{}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, &fakeAPI{}, events, subs)

	// no data section at all
	payload := []byte(`{"meta": {"event_name": "subscription_created"}}`)

	err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"subscription_created"}, events.recorded)
	require.Len(t, events.marked, 1)
	assert.Equal(t, "Invalid subscription webhook payload structure", events.marked[0])
	assert.Empty(t, subs.created)
	assert.Empty(t, subs.upserted)
}

func TestHandleWebhook_SubscriptionCreated_BootstrapsPlan(t *testing.T) {
	events := &fakeEvents{}
	subs := &fakeSubs{}
	api := &fakeAPI{
		prices: map[string]*ls.Price{
			"700": {ID: "700", Name: "Monthly", UnitPriceCents: 1500, Interval: "month", IntervalCount: 1},
		},
		products: map[string]*ls.Product{
			"55": {ID: "55", Name: "Pro Plan", Description: "Pro tier"},
		},
	}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, api, events, subs)

	payload := []byte(`{
		"meta": {"event_name": "subscription_created", "custom_data": {"user_id": "7"}},
		"data": {
			"id": "sub_1",
			"attributes": {
				"order_id": 900,
				"product_id": 55,
				"variant_id": 101,
				"user_name": "Ada",
				"user_email": "ada@example.com",
				"status": "active",
				"status_formatted": "Active",
				"renews_at": "2026-09-28T00:00:00Z",
				"first_subscription_item": {"id": 3001, "price_id": 700, "is_usage_based": false}
			}
		}
	}`)

	err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, subs.created, 1)
	plan := subs.created[0]
	assert.Equal(t, int64(101), plan.VariantID)
	assert.Equal(t, "Monthly", plan.Name)
	assert.Equal(t, "Pro Plan", plan.ProductName)
	assert.Equal(t, "1500", plan.Price)
	assert.Equal(t, "month", plan.Interval)

	require.Len(t, subs.upserted, 1)
	sub := subs.upserted[0]
	assert.Equal(t, "sub_1", sub.LsSubscriptionID)
	assert.Equal(t, int64(7), sub.UserID)
	assert.Equal(t, int64(900), sub.OrderID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "3001", sub.SubscriptionItemID)
	assert.Equal(t, []string{""}, events.marked)
}

func TestHandleWebhook_SubscriptionUpdated_ExistingPlan(t *testing.T) {
	events := &fakeEvents{}
	planID := uuid.New()
	subs := &fakeSubs{plans: map[int64]*domain.SubscriptionPlan{
		101: {ID: planID, VariantID: 101, Name: "Monthly", Price: "1500"},
	}}
	api := &fakeAPI{
		prices: map[string]*ls.Price{
			"700": {ID: "700", UnitPriceCents: 1700},
		},
	}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, api, events, subs)

	payload := []byte(`{
		"meta": {"event_name": "subscription_updated", "custom_data": {"user_id": "7"}},
		"data": {
			"id": "sub_1",
			"attributes": {
				"variant_id": 101,
				"status": "past_due",
				"first_subscription_item": {"id": 3001, "price_id": 700}
			}
		}
	}`)

	err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)

	assert.Empty(t, subs.created, "plan already known, nothing to bootstrap")
	require.Len(t, subs.upserted, 1)
	assert.Equal(t, planID, subs.upserted[0].PlanID)
	assert.Equal(t, "1700", subs.upserted[0].Price, "price refreshed from provider")
	assert.Equal(t, "past_due", subs.upserted[0].Status)
}

func TestHandleWebhook_SubscriptionPaymentIgnored(t *testing.T) {
	events := &fakeEvents{}
	subs := &fakeSubs{}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, &fakeAPI{}, events, subs)

	payload := []byte(`{
		"meta": {"event_name": "subscription_payment_success"},
		"data": {"id": "inv_1", "attributes": {"status": "paid"}}
	}`)

	err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, []string{""}, events.marked)
	assert.Empty(t, subs.upserted)
}

func TestHandleWebhook_UnknownEvent(t *testing.T) {
	events := &fakeEvents{}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, &fakeAPI{}, events, &fakeSubs{})

	err := svc.HandleWebhook(context.Background(), []byte(`{"meta":{"event_name":"affiliate_activated"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"affiliate_activated"}, events.recorded)
}

func TestHandleWebhook_GarbagePayload(t *testing.T) {
	events := &fakeEvents{}
	svc := newTestService(&fakeLedger{}, &fakeTours{}, &fakeAPI{}, events, &fakeSubs{})

	err := svc.HandleWebhook(context.Background(), []byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown_event"}, events.recorded)
}
