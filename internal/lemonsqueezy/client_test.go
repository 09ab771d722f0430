package lemonsqueezy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer key_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.api+json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		data := body["data"].(map[string]any)
		rels := data["relationships"].(map[string]any)
		store := rels["store"].(map[string]any)["data"].(map[string]any)
		variant := rels["variant"].(map[string]any)["data"].(map[string]any)
		assert.Equal(t, "store_1", store["id"])
		assert.Equal(t, "variant_1", variant["id"])

		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.Write([]byte(`{"data":{"attributes":{"url":"https://checkout.lemonsqueezy.com/x"}}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key_test", StoreID: "store_1", BaseURL: srv.URL})

	url, err := c.CreateCheckout(context.Background(), CheckoutParams{
		VariantID:   "variant_1",
		Email:       "tourist@example.com",
		ProductName: "City Walking Tour",
		RedirectURL: "https://example.com/ok",
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		CustomData:  map[string]string{"booking_id": "42"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.lemonsqueezy.com/x", url)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/ord_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.Write([]byte(`{"data":{"id":"ord_1","attributes":{"status":"paid","total":9900}}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key_test", StoreID: "store_1", BaseURL: srv.URL})

	o, err := c.GetOrder(context.Background(), "ord_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", o.Status)
	assert.Equal(t, int64(9900), o.TotalCents)
}

func TestDo_APIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"detail":"The variant does not exist."}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key_test", StoreID: "store_1", BaseURL: srv.URL})

	_, err := c.GetOrder(context.Background(), "ord_x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.HTTPStatus)
	assert.Equal(t, "The variant does not exist.", apiErr.Detail)
}

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.Write([]byte(`{"data":{"id":"7","attributes":{"name":"Monthly","unit_price":1500,"interval":"month","interval_count":1}}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key_test", StoreID: "store_1", BaseURL: srv.URL})

	p, err := c.GetPrice(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), p.UnitPriceCents)
	assert.Equal(t, "month", p.Interval)
}
