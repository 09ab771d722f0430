package lemonsqueezy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirinyoku/tour-go/internal/domain"
	ls "github.com/kirinyoku/tour-go/internal/lemonsqueezy"
	"github.com/kirinyoku/tour-go/internal/metrics"
	"github.com/kirinyoku/tour-go/internal/repository"
)

const provider = "lemonsqueezy"

const checkoutTTL = 24 * time.Hour

type BookingLedger interface {
	FindOne(ctx context.Context, id int64) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, id int64, paymentID string) (*domain.Booking, error)
}

type TourFinder interface {
	Get(ctx context.Context, id int64) (*domain.Tour, error)
}

// LsAPI abstracts the provider client for tests.
type LsAPI interface {
	CreateCheckout(ctx context.Context, p ls.CheckoutParams) (string, error)
	GetOrder(ctx context.Context, orderID string) (*ls.Order, error)
	GetPrice(ctx context.Context, priceID string) (*ls.Price, error)
	GetProduct(ctx context.Context, productID string) (*ls.Product, error)
}

type EventLog interface {
	Record(ctx context.Context, provider, eventName string, body []byte) (uuid.UUID, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error
}

// SubscriptionStore persists plans and user subscriptions synced from
// provider webhooks.
type SubscriptionStore interface {
	GetPlanByVariantID(ctx context.Context, variantID int64) (*domain.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, p *domain.SubscriptionPlan) (uuid.UUID, error)
	UpsertUserSubscription(ctx context.Context, s *domain.UserSubscription) error
}

type Config struct {
	SuccessURL string
}

// Service is the Lemon Squeezy payment adapter: hosted checkouts for
// bookings, order verification, and webhook-driven booking confirmation and
// subscription sync.
type Service struct {
	api    LsAPI
	ledger BookingLedger
	tours  TourFinder
	events EventLog
	subs   SubscriptionStore
	log    *slog.Logger
	cfg    Config
}

func New(
	api LsAPI,
	ledger BookingLedger,
	tours TourFinder,
	events EventLog,
	subs SubscriptionStore,
	log *slog.Logger,
	cfg Config,
) *Service {
	return &Service{
		api:    api,
		ledger: ledger,
		tours:  tours,
		events: events,
		subs:   subs,
		log:    log,
		cfg:    cfg,
	}
}

// CreateCheckout builds a hosted checkout for the booking's tour variant.
// The checkout carries the booking, tour and user ids as custom data so the
// order_created webhook can find its way back.
//
// Returns:
//   - error: lemonsqueezy.ErrMissingLsIDs if the tour lacks provider ids.
func (s *Service) CreateCheckout(ctx context.Context, bookingID int64, successURL string) (string, error) {
	const op = "service.lemonsqueezy.CreateCheckout"

	b, err := s.ledger.FindOne(ctx, bookingID)
	if err != nil {
		return "", err
	}

	tour, err := s.tours.Get(ctx, b.TourID)
	if err != nil {
		return "", err
	}

	if tour.LsProductID == "" || tour.LsVariantID == "" {
		return "", fmt.Errorf("%s:%w", op, ErrMissingLsIDs)
	}

	if successURL == "" {
		successURL = s.cfg.SuccessURL
	}

	url, err := s.api.CreateCheckout(ctx, ls.CheckoutParams{
		VariantID:   tour.LsVariantID,
		Email:       b.ContactEmail,
		ProductName: tour.Title,
		Description: fmt.Sprintf("Tour booking for %d people", b.NumberOfPeople),
		RedirectURL: successURL,
		ExpiresAt:   time.Now().Add(checkoutTTL),
		CustomData: map[string]string{
			"booking_id": strconv.FormatInt(b.ID, 10),
			"tour_id":    strconv.FormatInt(b.TourID, 10),
			"user_id":    strconv.FormatInt(b.UserID, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return url, nil
}

// VerifyPayment asks the provider for the order's authoritative status and,
// when it is paid, confirms the booking.
//
// Returns:
//   - error: lemonsqueezy.ErrPaymentNotCompleted wrapped with the provider's
//     status string for any non-paid order.
func (s *Service) VerifyPayment(ctx context.Context, bookingID int64, orderID string) (*domain.Booking, error) {
	const op = "service.lemonsqueezy.VerifyPayment"

	if _, err := s.ledger.FindOne(ctx, bookingID); err != nil {
		return nil, err
	}

	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if order.Status != "paid" {
		return nil, fmt.Errorf("%s: order status %q:%w", op, order.Status, ErrPaymentNotCompleted)
	}

	return s.ledger.ConfirmPayment(ctx, bookingID, order.ID)
}

// webhookPayload is the envelope Lemon Squeezy posts: meta carries the event
// name and the custom data attached at checkout time, data the JSON:API
// resource the event is about.
type webhookPayload struct {
	Meta *struct {
		EventName  string            `json:"event_name"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data *struct {
		ID         string          `json:"id"`
		Attributes json.RawMessage `json:"attributes"`
	} `json:"data"`
}

// HandleWebhook records the delivery, then dispatches on event name:
// order_created confirms the referenced booking when the order is paid;
// subscription_* events sync plan and user-subscription rows; everything
// else is accepted with no effect. The event row is stamped with the
// outcome either way.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte) error {
	const op = "service.lemonsqueezy.HandleWebhook"

	timer := prometheus.NewTimer(metrics.WebhookHandlingTime.WithLabelValues(provider))
	defer timer.ObserveDuration()

	metrics.WebhooksReceived.WithLabelValues(provider).Inc()

	var p webhookPayload
	_ = json.Unmarshal(payload, &p)

	eventName := "unknown_event"
	if p.Meta != nil && p.Meta.EventName != "" {
		eventName = p.Meta.EventName
	}

	eventID, err := s.events.Record(ctx, provider, eventName, payload)
	if err != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, err)
	}

	handleErr := s.dispatch(ctx, eventName, &p)

	// Shape failures are recorded but not re-raised: the provider would
	// retry a payload that can never become valid.
	recordOnly := errors.Is(handleErr, errInvalidSubscriptionShape)

	errMsg := ""
	if handleErr != nil {
		errMsg = handleErr.Error()
	}
	if err := s.events.MarkProcessed(ctx, eventID, errMsg); err != nil {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, err)
	}

	if handleErr != nil && !recordOnly {
		metrics.WebhooksFailed.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s:%w", op, handleErr)
	}

	return nil
}

func (s *Service) dispatch(ctx context.Context, eventName string, p *webhookPayload) error {
	switch {
	case eventName == "order_created":
		return s.handleOrderCreated(ctx, p)
	case strings.HasPrefix(eventName, "subscription_payment_"):
		// Subscription invoices are not tracked.
		return nil
	case strings.HasPrefix(eventName, "subscription_"):
		if p.Meta == nil || p.Meta.EventName == "" || p.Data == nil || len(p.Data.Attributes) == 0 {
			return errInvalidSubscriptionShape
		}
		return s.handleSubscriptionEvent(ctx, p)
	case strings.HasPrefix(eventName, "license_"):
		return nil
	default:
		return nil
	}
}

type orderAttrs struct {
	Status         string `json:"status"`
	FirstOrderItem struct {
		CustomData map[string]string `json:"custom_data"`
	} `json:"first_order_item"`
}

func (s *Service) handleOrderCreated(ctx context.Context, p *webhookPayload) error {
	if p.Data == nil {
		return ErrInvalidOrderData
	}

	var attrs orderAttrs
	if err := json.Unmarshal(p.Data.Attributes, &attrs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrderData, err)
	}

	custom := attrs.FirstOrderItem.CustomData
	if custom["booking_id"] == "" && p.Meta != nil {
		custom = p.Meta.CustomData
	}

	raw := custom["booking_id"]
	if raw == "" {
		s.log.Warn("order_created webhook without booking id", "order_id", p.Data.ID)
		return nil
	}

	bookingID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad booking_id %q", ErrInvalidOrderData, raw)
	}

	if attrs.Status != "paid" {
		s.log.Info("order not yet paid",
			"order_id", p.Data.ID,
			"booking_id", bookingID,
			"status", attrs.Status,
		)
		return nil
	}

	_, err = s.ledger.ConfirmPayment(ctx, bookingID, p.Data.ID)
	return err
}

type subscriptionAttrs struct {
	OrderID               int64  `json:"order_id"`
	ProductID             int64  `json:"product_id"`
	VariantID             int64  `json:"variant_id"`
	UserName              string `json:"user_name"`
	UserEmail             string `json:"user_email"`
	Status                string `json:"status"`
	StatusFormatted       string `json:"status_formatted"`
	RenewsAt              string `json:"renews_at"`
	EndsAt                string `json:"ends_at"`
	TrialEndsAt           string `json:"trial_ends_at"`
	FirstSubscriptionItem struct {
		ID           int64 `json:"id"`
		PriceID      int64 `json:"price_id"`
		IsUsageBased bool  `json:"is_usage_based"`
	} `json:"first_subscription_item"`
}

// handleSubscriptionEvent upserts the user subscription named by the
// payload, bootstrapping the plan from the provider's price and product APIs
// the first time its variant is seen.
func (s *Service) handleSubscriptionEvent(ctx context.Context, p *webhookPayload) error {
	var attrs subscriptionAttrs
	if err := json.Unmarshal(p.Data.Attributes, &attrs); err != nil {
		return fmt.Errorf("%w: %v", errInvalidSubscriptionShape, err)
	}

	priceID := strconv.FormatInt(attrs.FirstSubscriptionItem.PriceID, 10)

	plan, err := s.subs.GetPlanByVariantID(ctx, attrs.VariantID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		plan, err = s.bootstrapPlan(ctx, &attrs, priceID)
		if err != nil {
			return fmt.Errorf("plan with variant %d not found and could not be created: %w",
				attrs.VariantID, err)
		}
	default:
		return err
	}

	price := plan.Price
	if pr, err := s.api.GetPrice(ctx, priceID); err == nil {
		price = priceString(pr, attrs.FirstSubscriptionItem.IsUsageBased)
	} else {
		s.log.Warn("price lookup failed, keeping plan price",
			"price_id", priceID, "error", err)
	}

	var userID int64
	if p.Meta.CustomData != nil {
		userID, _ = strconv.ParseInt(p.Meta.CustomData["user_id"], 10, 64)
	}

	sub := &domain.UserSubscription{
		LsSubscriptionID:   p.Data.ID,
		OrderID:            attrs.OrderID,
		UserID:             userID,
		PlanID:             plan.ID,
		Name:               attrs.UserName,
		Email:              attrs.UserEmail,
		Status:             attrs.Status,
		StatusFormatted:    attrs.StatusFormatted,
		RenewsAt:           attrs.RenewsAt,
		EndsAt:             attrs.EndsAt,
		TrialEndsAt:        attrs.TrialEndsAt,
		Price:              price,
		IsUsageBased:       attrs.FirstSubscriptionItem.IsUsageBased,
		IsPaused:           false,
		SubscriptionItemID: strconv.FormatInt(attrs.FirstSubscriptionItem.ID, 10),
	}

	if err := s.subs.UpsertUserSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to create/update subscription for user %d: %w", userID, err)
	}

	return nil
}

func (s *Service) bootstrapPlan(ctx context.Context, attrs *subscriptionAttrs, priceID string) (*domain.SubscriptionPlan, error) {
	pr, err := s.api.GetPrice(ctx, priceID)
	if err != nil {
		return nil, err
	}

	prod, err := s.api.GetProduct(ctx, strconv.FormatInt(attrs.ProductID, 10))
	if err != nil {
		return nil, err
	}

	name := pr.Name
	if name == "" {
		name = "Subscription Plan"
	}

	plan := &domain.SubscriptionPlan{
		ProductID:     attrs.ProductID,
		ProductName:   prod.Name,
		VariantID:     attrs.VariantID,
		Name:          name,
		Description:   prod.Description,
		Price:         priceString(pr, attrs.FirstSubscriptionItem.IsUsageBased),
		IsUsageBased:  attrs.FirstSubscriptionItem.IsUsageBased,
		Interval:      pr.Interval,
		IntervalCount: pr.IntervalCount,
	}

	id, err := s.subs.CreatePlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = id

	return plan, nil
}

func priceString(pr *ls.Price, usageBased bool) string {
	if usageBased && pr.UnitPriceDecimal != "" {
		return pr.UnitPriceDecimal
	}
	return strconv.FormatInt(pr.UnitPriceCents, 10)
}
