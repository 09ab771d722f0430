package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com/v1"

type Config struct {
	SecretKey string
	BaseURL   string
}

// Client is a minimal Stripe REST client covering the payment-intent,
// checkout-session and invoicing endpoints this service needs. Requests are
// form-encoded, responses JSON, per the Stripe API.
type Client struct {
	secretKey string
	baseURL   string
	httpc     *http.Client
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		httpc:     &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is the structured error body Stripe returns on non-2xx responses.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %s", e.Message)
}

type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Metadata     map[string]string `json:"metadata"`
}

type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Invoice struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}

type InvoiceItem struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var pi PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payment_intents", form, &pi); err != nil {
		return nil, err
	}

	return &pi, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(id), nil, &pi); err != nil {
		return nil, err
	}

	return &pi, nil
}

type CheckoutSessionParams struct {
	PriceID    string
	Quantity   int
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(p.Quantity))
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var s CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var cu Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &cu); err != nil {
		return nil, err
	}

	return &cu, nil
}

func (c *Client) CreateInvoiceItem(ctx context.Context, customerID string, amountCents int64, currency, description string) (*InvoiceItem, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("description", description)

	var it InvoiceItem
	if err := c.do(ctx, http.MethodPost, "/invoiceitems", form, &it); err != nil {
		return nil, err
	}

	return &it, nil
}

func (c *Client) CreateInvoice(ctx context.Context, customerID string, daysUntilDue int) (*Invoice, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("auto_advance", "true")
	form.Set("collection_method", "send_invoice")
	form.Set("days_until_due", strconv.Itoa(daysUntilDue))

	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", form, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (c *Client) FinalizeInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices/"+url.PathEscape(invoiceID)+"/finalize", url.Values{}, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (c *Client) SendInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices/"+url.PathEscape(invoiceID)+"/send", url.Values{}, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	const op = "stripe.Client.do"

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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
		var wrapper struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Error.Message == "" {
			wrapper.Error.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		wrapper.Error.HTTPStatus = resp.StatusCode
		return &wrapper.Error
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}
