package tap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the Tap Payments API base URL.
const DefaultBaseURL = "https://api.tap.company/v2"

// Config holds Tap client settings.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client is a minimal HTTP client for the Tap Payments charge/refund API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	debug      bool
}

// NewClient constructs a new Tap client with sane defaults.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		secretKey:  cfg.SecretKey,
		debug:      os.Getenv("ENV") == "development",
	}
}

// CreateCharge creates a new charge. The returned charge carries the gateway
// charge id and, for redirect flows, a hosted payment page URL.
func (c *Client) CreateCharge(ctx context.Context, req *ChargeRequest) (*Charge, error) {
	wire := chargeRequestWire{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Customer:    req.Customer,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if req.RedirectURL != "" {
		wire.Redirect = &urlRef{URL: req.RedirectURL}
	}
	if req.WebhookURL != "" {
		wire.Post = &urlRef{URL: req.WebhookURL}
	}

	var charge Charge
	if err := c.doRequest(ctx, http.MethodPost, "/charges", wire, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// RetrieveCharge fetches the authoritative state of a charge by id.
func (c *Client) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	var charge Charge
	if err := c.doRequest(ctx, http.MethodGet, "/charges/"+chargeID, nil, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// CreateRefund refunds part or all of a captured charge.
func (c *Client) CreateRefund(ctx context.Context, chargeID string, amount int, currency string) (*Refund, error) {
	body := map[string]interface{}{
		"charge_id": chargeID,
		"amount":    amount,
		"currency":  currency,
		"reason":    "requested_by_customer",
	}
	var refund Refund
	if err := c.doRequest(ctx, http.MethodPost, "/refunds", body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// doRequest performs an HTTP call against the Tap API with JSON payloads,
// decodes error payloads in either known shape, and unmarshals the success
// body into result.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			RawJSON("response", raw).
			Msg("[TAP] Incoming response")
	}

	// Tap signals errors both via HTTP status and via error envelopes in a
	// 200 body; check the envelope regardless of status code.
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if apiErr := envelope.first(); apiErr != nil {
			return apiErr
		}
	}
	if resp.StatusCode >= 400 {
		return &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Description: http.StatusText(resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
