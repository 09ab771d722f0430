package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.lemonsqueezy.com/v1"

type Config struct {
	APIKey  string
	StoreID string
	BaseURL string
}

// Client is a minimal Lemon Squeezy JSON:API client covering checkouts,
// orders, prices and products.
type Client struct {
	apiKey  string
	storeID string
	baseURL string
	httpc   *http.Client
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		storeID: cfg.StoreID,
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError carries the first error detail from a JSON:API error response.
type APIError struct {
	HTTPStatus int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lemonsqueezy: %s", e.Detail)
}

type CheckoutParams struct {
	VariantID   string
	Email       string
	ProductName string
	Description string
	RedirectURL string
	ExpiresAt   time.Time
	CustomData  map[string]string
}

type Order struct {
	ID         string
	Status     string
	TotalCents int64
}

type Price struct {
	ID               string
	Name             string
	UnitPriceCents   int64
	UnitPriceDecimal string
	Interval         string
	IntervalCount    int
}

type Product struct {
	ID          string
	Name        string
	Description string
}

// CreateCheckout creates a hosted checkout for the given variant and returns
// its URL.
func (c *Client) CreateCheckout(ctx context.Context, p CheckoutParams) (string, error) {
	custom := make(map[string]any, len(p.CustomData))
	for k, v := range p.CustomData {
		custom[k] = v
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"product_options": map[string]any{
					"name":         p.ProductName,
					"description":  p.Description,
					"redirect_url": p.RedirectURL,
				},
				"checkout_options": map[string]any{
					"embed": false,
					"media": false,
					"logo":  true,
				},
				"checkout_data": map[string]any{
					"email":  p.Email,
					"custom": custom,
				},
				"expires_at": p.ExpiresAt.UTC().Format(time.RFC3339),
				"preview":    false,
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": c.storeID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": p.VariantID},
				},
			},
		},
	}

	var resp struct {
		Data struct {
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkouts", body, &resp); err != nil {
		return "", err
	}

	return resp.Data.Attributes.URL, nil
}

// GetOrder fetches an order's authoritative status from the provider.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status string `json:"status"`
				Total  int64  `json:"total"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &resp); err != nil {
		return nil, err
	}

	return &Order{
		ID:         resp.Data.ID,
		Status:     resp.Data.Attributes.Status,
		TotalCents: resp.Data.Attributes.Total,
	}, nil
}

func (c *Client) GetPrice(ctx context.Context, priceID string) (*Price, error) {
	var resp struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Name             string `json:"name"`
				UnitPrice        int64  `json:"unit_price"`
				UnitPriceDecimal string `json:"unit_price_decimal"`
				Interval         string `json:"interval"`
				IntervalCount    int    `json:"interval_count"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/prices/"+url.PathEscape(priceID), nil, &resp); err != nil {
		return nil, err
	}

	return &Price{
		ID:               resp.Data.ID,
		Name:             resp.Data.Attributes.Name,
		UnitPriceCents:   resp.Data.Attributes.UnitPrice,
		UnitPriceDecimal: resp.Data.Attributes.UnitPriceDecimal,
		Interval:         resp.Data.Attributes.Interval,
		IntervalCount:    resp.Data.Attributes.IntervalCount,
	}, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var resp struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil, &resp); err != nil {
		return nil, err
	}

	return &Product{
		ID:          resp.Data.ID,
		Name:        resp.Data.Attributes.Name,
		Description: resp.Data.Attributes.Description,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	const op = "lemonsqueezy.Client.do"

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			Errors []struct {
				Detail string `json:"detail"`
			} `json:"errors"`
		}
		detail := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if err := json.Unmarshal(raw, &errBody); err == nil && len(errBody.Errors) > 0 && errBody.Errors[0].Detail != "" {
			detail = errBody.Errors[0].Detail
		}
		return &APIError{HTTPStatus: resp.StatusCode, Detail: detail}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}
