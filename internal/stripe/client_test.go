package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "5000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "42", r.PostForm.Get("metadata[booking_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_1","amount":5000,"currency":"usd","status":"requires_payment_method","client_secret":"pi_1_secret"}`))
	}))
	defer srv.Close()

	c := New(Config{SecretKey: "sk_test", BaseURL: srv.URL})

	pi, err := c.CreatePaymentIntent(context.Background(), 5000, "usd", map[string]string{"booking_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", pi.ID)
	assert.Equal(t, int64(5000), pi.Amount)
	assert.Equal(t, "pi_1_secret", pi.ClientSecret)
}

func TestDo_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	c := New(Config{SecretKey: "sk_test", BaseURL: srv.URL})

	_, err := c.GetPaymentIntent(context.Background(), "pi_1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.HTTPStatus)
	assert.Equal(t, "card_declined", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "declined")
}

func TestDo_UnexpectedErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream blew up"))
	}))
	defer srv.Close()

	c := New(Config{SecretKey: "sk_test", BaseURL: srv.URL})

	_, err := c.GetPaymentIntent(context.Background(), "pi_1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus)
	assert.Contains(t, apiErr.Message, "502")
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "price_1", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "3", r.PostForm.Get("line_items[0][quantity]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1"}`))
	}))
	defer srv.Close()

	c := New(Config{SecretKey: "sk_test", BaseURL: srv.URL})

	s, err := c.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		PriceID:    "price_1",
		Quantity:   3,
		SuccessURL: "https://example.com/ok",
		CancelURL:  "https://example.com/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.NotEmpty(t, s.URL)
}
