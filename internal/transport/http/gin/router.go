package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/tour-go/internal/domain"
	ls "github.com/kirinyoku/tour-go/internal/lemonsqueezy"
	redisrepo "github.com/kirinyoku/tour-go/internal/repository/redis"
	"github.com/kirinyoku/tour-go/internal/service"
	"github.com/kirinyoku/tour-go/internal/service/booking"
	"github.com/kirinyoku/tour-go/internal/service/lemonsqueezy"
	"github.com/kirinyoku/tour-go/internal/service/payment"
	"github.com/kirinyoku/tour-go/internal/service/tours"
	"github.com/kirinyoku/tour-go/internal/stripe"
)

type RouterConfig struct {
	JWTSecret string
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health + metrics
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API
	r.GET("/tours", handleListTours(svcs))
	r.GET("/tours/:id", handleGetTour(svcs))
	r.GET("/tours/:id/availability", handleGetAvailability(svcs))

	// provider callbacks, unauthenticated by design
	r.POST("/payments/webhook", handleStripeWebhook(svcs))
	r.POST("/lemon-squeezy/webhook", handleLsWebhook(svcs))

	auth := r.Group("/", JWTAuth(cfg.JWTSecret))
	{
		auth.POST("/bookings", handleCreateBooking(svcs, idem))
		auth.GET("/bookings/my", handleListMyBookings(svcs))
		auth.GET("/bookings/:id", handleGetBooking(svcs))
		auth.PATCH("/bookings/:id", handleUpdateBooking(svcs))
		auth.DELETE("/bookings/:id", handleDeleteBooking(svcs))
		auth.POST("/bookings/:id/cancel", handleCancelBooking(svcs))

		auth.POST("/payments/create-payment-intent/:bookingId", handleCreateIntent(svcs))
		auth.POST("/payments/confirm-payment/:bookingId", handleConfirmPayment(svcs))
		auth.POST("/payments/create-checkout-session/:bookingId", handleCheckoutSession(svcs))

		auth.POST("/lemon-squeezy/create-checkout/:bookingId", handleLsCheckout(svcs))
		auth.POST("/lemon-squeezy/verify-payment/:bookingId", handleLsVerifyPayment(svcs))
	}

	admin := r.Group("/", JWTAuth(cfg.JWTSecret), RequireRole("admin"))
	{
		admin.GET("/bookings", handleListBookings(svcs))
		admin.GET("/tours/:id/bookings", handleListTourBookings(svcs))
		admin.POST("/bookings/:id/complete", handleCompleteBooking(svcs))
		admin.POST("/admin/tours", handleCreateTour(svcs))
		admin.POST("/payments/generate-invoice/:bookingId", handleGenerateInvoice(svcs))
	}

	return r
}

// --- Tour handlers ---

// @Summary  List active tours
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200  {array}   TourResponse
// @Router   /tours [get]
func handleListTours(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 20)
		offset := parseIntDefault(c.Query("offset"), 0)

		ts, err := svcs.Tours.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCachedJSON(c, http.StatusOK, toTourResponses(ts), "public, max-age=60", true)
	}
}

// @Summary  Get tour
// @Param    id  path  int  true  "Tour ID"
// @Success  200  {object}  TourResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /tours/{id} [get]
func handleGetTour(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tourID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Tours.Get(c.Request.Context(), tourID)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCachedJSON(c, http.StatusOK, toTourResponse(t), "public, max-age=60", true)
	}
}

// @Summary  Get seat availability
// @Param    id  path  int  true  "Tour ID"
// @Success  200  {object}  tours.Availability
// @Router   /tours/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tourID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		a, err := svcs.Tours.GetAvailability(c.Request.Context(), tourID)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCachedJSON(c, http.StatusOK, a, "public, max-age=15", true)
	}
}

// @Summary  Create tour
// @Param    req body  CreateTourRequest true "payload"
// @Success  201 {object} CreateTourResponse
// @Failure  400 {object} ErrorResponse
// @Router   /admin/tours [post]
func handleCreateTour(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTourRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		t, err := svcs.Tours.Create(c.Request.Context(), tours.CreateParams{
			Title:          req.Title,
			Description:    req.Description,
			Location:       req.Location,
			PriceCents:     req.PriceCents,
			AvailableSeats: req.AvailableSeats,
			StripePriceID:  req.StripePriceID,
			LsProductID:    req.LsProductID,
			LsVariantID:    req.LsVariantID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateTourResponse{TourID: t.ID})
	}
}

// --- Booking handlers ---

// @Summary  Create booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} BookingResponse
// @Failure  400 {object} ErrorResponse "not enough seats"
// @Failure  409 {object} ErrorResponse "idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		userID := c.GetInt64("user_id")

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(userID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Booking.Create(c.Request.Context(), userID, booking.CreateParams{
			TourID:          req.TourID,
			NumberOfPeople:  req.NumberOfPeople,
			ContactEmail:    req.ContactEmail,
			SpecialRequests: req.SpecialRequests,
		}, rlKey)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: err.Error()},
				)
				return
			}
			respondErr(c, err)
			return
		}

		resp := toBookingResponse(b)

		if idemStorageKey != "" && idem != nil {
			raw, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(raw))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  List my bookings
// @Success  200 {array} BookingResponse
// @Router   /bookings/my [get]
func handleListMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bs, err := svcs.Booking.FindByUser(c.Request.Context(), c.GetInt64("user_id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponses(bs))
	}
}

// @Summary  List all bookings
// @Success  200 {array} BookingResponse
// @Router   /bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bs, err := svcs.Booking.FindAll(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponses(bs))
	}
}

// @Summary  List bookings for a tour
// @Param    id  path  int  true  "Tour ID"
// @Success  200 {array} BookingResponse
// @Router   /tours/{id}/bookings [get]
func handleListTourBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tourID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		bs, err := svcs.Booking.FindByTour(c.Request.Context(), tourID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponses(bs))
	}
}

// @Summary  Get booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200 {object} BookingResponse
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Update booking
// @Param    id  path  int  true  "Booking ID"
// @Param    req body  UpdateBookingRequest true "payload"
// @Success  200 {object} BookingResponse
// @Failure  400 {object} ErrorResponse "not enough seats"
// @Router   /bookings/{id} [patch]
func handleUpdateBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "id")
		if !ok {
			return
		}

		var req UpdateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		patch := booking.UpdatePatch{
			NumberOfPeople:  req.NumberOfPeople,
			ContactEmail:    req.ContactEmail,
			SpecialRequests: req.SpecialRequests,
		}
		if req.Status != nil {
			st := domain.BookingStatus(*req.Status)
			patch.Status = &st
		}

		updated, err := svcs.Booking.Update(c.Request.Context(), b.ID, patch)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(updated))
	}
}

// @Summary  Delete booking
// @Param    id  path  int  true  "Booking ID"
// @Success  204
// @Failure  409 {object} ErrorResponse "booking is paid"
// @Router   /bookings/{id} [delete]
func handleDeleteBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "id")
		if !ok {
			return
		}
		if err := svcs.Booking.Remove(c.Request.Context(), b.ID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Cancel booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200 {object} BookingResponse
// @Failure  409 {object} ErrorResponse "already completed"
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "id")
		if !ok {
			return
		}
		cancelled, err := svcs.Booking.Cancel(c.Request.Context(), b.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(cancelled))
	}
}

// @Summary  Complete booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200 {object} BookingResponse
// @Failure  409 {object} ErrorResponse "not confirmed"
// @Router   /bookings/{id}/complete [post]
func handleCompleteBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		completed, err := svcs.Booking.Complete(c.Request.Context(), bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(completed))
	}
}

// --- Stripe payment handlers ---

// @Summary  Create payment intent for a booking
// @Param    bookingId  path  int  true  "Booking ID"
// @Success  201 {object} IntentResponse
// @Router   /payments/create-payment-intent/{bookingId} [post]
func handleCreateIntent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "bookingId")
		if !ok {
			return
		}
		in, err := svcs.Payment.CreateIntent(c.Request.Context(), b.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IntentResponse{
			PaymentIntentID: in.PaymentIntentID,
			ClientSecret:    in.ClientSecret,
			AmountCents:     in.AmountCents,
			Currency:        in.Currency,
		})
	}
}

// @Summary  Verify payment intent and confirm the booking
// @Param    bookingId  path  int  true  "Booking ID"
// @Param    req body  ConfirmPaymentRequest true "payload"
// @Success  200 {object} BookingResponse
// @Failure  422 {object} ErrorResponse "payment still processing"
// @Router   /payments/confirm-payment/{bookingId} [post]
func handleConfirmPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "bookingId")
		if !ok {
			return
		}
		var req ConfirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		confirmed, err := svcs.Payment.Verify(c.Request.Context(), b.ID, req.PaymentIntentID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(confirmed))
	}
}

// @Summary  Create Stripe checkout session for a booking
// @Param    bookingId  path  int  true  "Booking ID"
// @Param    req body  CheckoutSessionRequest true "payload"
// @Success  201 {object} CheckoutResponse
// @Router   /payments/create-checkout-session/{bookingId} [post]
func handleCheckoutSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "bookingId")
		if !ok {
			return
		}
		var req CheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Payment.CreateCheckoutSession(
			c.Request.Context(),
			b.ID,
			req.SuccessURL,
			req.CancelURL,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CheckoutResponse{SessionID: out.SessionID, URL: out.URL})
	}
}

// @Summary  Generate and send a Stripe invoice for a booking
// @Param    bookingId  path  int  true  "Booking ID"
// @Success  201 {object} InvoiceResponse
// @Router   /payments/generate-invoice/{bookingId} [post]
func handleGenerateInvoice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseInt64Param(c, "bookingId")
		if !ok {
			return
		}
		url, err := svcs.Payment.GenerateInvoice(c.Request.Context(), bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, InvoiceResponse{HostedInvoiceURL: url})
	}
}

// @Summary  Stripe webhook endpoint
// @Success  200 {object} WebhookAckResponse
// @Failure  400 {object} ErrorResponse
// @Router   /payments/webhook [post]
func handleStripeWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "cannot read body")
			return
		}
		sig := c.GetHeader("Stripe-Signature")
		if err := svcs.Payment.HandleWebhook(c.Request.Context(), payload, sig); err != nil {
			badRequest(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, WebhookAckResponse{Message: "webhook processed successfully"})
	}
}

// --- Lemon Squeezy handlers ---

// @Summary  Create Lemon Squeezy checkout for a booking
// @Param    bookingId  path  int  true  "Booking ID"
// @Param    req body  LsCheckoutRequest true "payload"
// @Success  201 {object} CheckoutResponse
// @Router   /lemon-squeezy/create-checkout/{bookingId} [post]
func handleLsCheckout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "bookingId")
		if !ok {
			return
		}
		var req LsCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		url, err := svcs.LemonSqueezy.CreateCheckout(c.Request.Context(), b.ID, req.SuccessURL)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CheckoutResponse{URL: url})
	}
}

// @Summary  Verify a Lemon Squeezy order and confirm the booking
// @Param    bookingId  path  int  true  "Booking ID"
// @Param    req body  LsVerifyPaymentRequest true "payload"
// @Success  200 {object} BookingResponse
// @Failure  400 {object} ErrorResponse "order not paid"
// @Router   /lemon-squeezy/verify-payment/{bookingId} [post]
func handleLsVerifyPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := ownedBooking(c, svcs, "bookingId")
		if !ok {
			return
		}
		var req LsVerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		confirmed, err := svcs.LemonSqueezy.VerifyPayment(c.Request.Context(), b.ID, req.OrderID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(confirmed))
	}
}

// @Summary  Lemon Squeezy webhook endpoint
// @Success  200 {object} WebhookAckResponse
// @Failure  400 {object} ErrorResponse
// @Router   /lemon-squeezy/webhook [post]
func handleLsWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "cannot read body")
			return
		}
		if err := svcs.LemonSqueezy.HandleWebhook(c.Request.Context(), payload); err != nil {
			badRequest(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, WebhookAckResponse{Message: "webhook processed successfully"})
	}
}

// --- Helpers ---

// ownedBooking loads the booking from the named path param and enforces that
// the caller owns it or is an admin.
func ownedBooking(c *gin.Context, svcs *service.Services, param string) (*domain.Booking, bool) {
	bookingID, ok := parseInt64Param(c, param)
	if !ok {
		return nil, false
	}

	b, err := svcs.Booking.FindOne(c.Request.Context(), bookingID)
	if err != nil {
		respondErr(c, err)
		return nil, false
	}

	if b.UserID != c.GetInt64("user_id") && c.GetString("role") != "admin" {
		c.JSON(http.StatusForbidden,
			ErrorResponse{Error: "you do not have permission to access this booking"})
		return nil, false
	}

	return b, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	// provider API errors carry their own detail; surface it as BadRequest
	var stripeErr *stripe.APIError
	if errors.As(err, &stripeErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: stripeErr.Error()})
		return
	}
	var lsErr *ls.APIError
	if errors.As(err, &lsErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: lsErr.Error()})
		return
	}

	switch {
	// booking service
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, booking.ErrTourNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "tour not found"})
	case errors.Is(err, booking.ErrNotEnoughSeats):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "not enough available seats for this tour"})
	case errors.Is(err, booking.ErrPaidBookingDelete):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "paid bookings cannot be deleted"})
	case errors.Is(err, booking.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking is already completed"})
	case errors.Is(err, booking.ErrNotConfirmed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "only confirmed bookings can be completed"})
	case errors.Is(err, booking.ErrInvalidPeople):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "number of people must be at least 1"})
	case errors.Is(err, booking.ErrBookingFinalized):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "cancelled or completed bookings cannot be modified"})
	// tours service
	case errors.Is(err, tours.ErrTourNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "tour not found"})
	case errors.Is(err, tours.ErrMissingLsIDs),
		errors.Is(err, tours.ErrInvalidPriceCents),
		errors.Is(err, tours.ErrInvalidSeatCount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	// stripe adapter
	case errors.Is(err, payment.ErrPaymentProcessing):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, payment.ErrPaymentNotCompleted),
		errors.Is(err, payment.ErrMissingStripePrice),
		errors.Is(err, payment.ErrMissingContactEmail),
		errors.Is(err, payment.ErrInvalidSignature),
		errors.Is(err, payment.ErrMissingBookingRef):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	// lemon squeezy adapter
	case errors.Is(err, lemonsqueezy.ErrPaymentNotCompleted),
		errors.Is(err, lemonsqueezy.ErrMissingLsIDs),
		errors.Is(err, lemonsqueezy.ErrInvalidOrderData):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
