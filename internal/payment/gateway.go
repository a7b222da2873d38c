package payment

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

// CheckoutParams describes the checkout session the gateway should
// collect payment for. Metadata carried here comes back verbatim on the
// completion event and is the only correlation between a payment and a
// seat.
type CheckoutParams struct {
	SessionID   uint64
	UserID      string
	Title       string
	PriceCents  int
	SuccessURL  string
	CancelURL   string
	Email       string
	Timezone    string
}

// Gateway is the payment processor as seen by this service: it opens
// checkouts and issues refunds. Card handling itself lives entirely on
// the processor's side.
type Gateway interface {
	CreateCheckout(ctx context.Context, p CheckoutParams) (string, error)
	Refund(ctx context.Context, paymentRef, idempotencyKey string) error
}

// StripeClient implements Gateway against the Stripe HTTP API.
type StripeClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewStripeClient builds a gateway client. baseURL is overridable for
// tests and defaults to the public API.
func NewStripeClient(baseURL, apiKey string) *StripeClient {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckout opens a single-item card checkout and returns the
// hosted payment page URL the participant should be redirected to.
func (c *StripeClient) CreateCheckout(ctx context.Context, p CheckoutParams) (string, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(p.PriceCents))
	form.Set("line_items[0][price_data][product_data][name]", p.Title)
	form.Set("line_items[0][price_data][product_data][description]", "Reserve a seat for this session")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("metadata[user_id]", p.UserID)
	form.Set("metadata[session_id]", strconv.FormatUint(p.SessionID, 10))
	if p.Email != "" {
		form.Set("metadata[email]", p.Email)
	}
	if p.Timezone != "" {
		form.Set("metadata[timezone]", p.Timezone)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/checkout/sessions", form, "", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Refund reverses a completed payment. The idempotency key makes
// repeated delivery of the same webhook event collapse to a single
// refund on the gateway's side.
func (c *StripeClient) Refund(ctx context.Context, paymentRef, idempotencyKey string) error {
	form := url.Values{}
	form.Set("payment_intent", paymentRef)
	return c.post(ctx, "/v1/refunds", form, idempotencyKey, nil)
}

func (c *StripeClient) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}
