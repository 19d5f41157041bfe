package tap

// Charge statuses returned by the Tap API.
const (
	StatusInitiated  = "INITIATED"
	StatusAuthorized = "AUTHORIZED"
	StatusCaptured   = "CAPTURED"
	StatusFailed     = "FAILED"
	StatusAbandoned  = "ABANDONED"
)

// Webhook event names.
const (
	EventChargeInitialized = "CHARGE_INITIALIZED"
	EventChargeAuthorized  = "CHARGE_AUTHORIZED"
	EventChargeCaptured    = "CHARGE_CAPTURED"
	EventChargeFailed      = "CHARGE_FAILED"
	EventRefundInitialized = "REFUND_INITIALIZED"
	EventRefundCaptured    = "REFUND_CAPTURED"
)

// Customer identifies the paying customer on a charge.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ChargeRequest is the payload for creating a charge. Amount is in minor
// currency units.
type ChargeRequest struct {
	Amount      int               `json:"amount"`
	Currency    string            `json:"currency"`
	Customer    Customer          `json:"customer"`
	Description string            `json:"description,omitempty"`
	RedirectURL string            `json:"-"`
	WebhookURL  string            `json:"-"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// chargeRequestWire is the on-the-wire shape with nested redirect/post URLs.
type chargeRequestWire struct {
	Amount      int               `json:"amount"`
	Currency    string            `json:"currency"`
	Customer    Customer          `json:"customer"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Redirect    *urlRef           `json:"redirect,omitempty"`
	Post        *urlRef           `json:"post,omitempty"`
}

type urlRef struct {
	URL string `json:"url,omitempty"`
}

// Charge is a charge object as returned by Tap. Only the fields this service
// consumes are modeled.
type Charge struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      int               `json:"amount"`
	Currency    string            `json:"currency"`
	Customer    Customer          `json:"customer"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Transaction *urlRef           `json:"transaction,omitempty"`
	Redirect    *urlRef           `json:"redirect,omitempty"`
	Source      *chargeSource     `json:"source,omitempty"`
	PayURL      string            `json:"payment_url,omitempty"`
	Response    *gatewayResponse  `json:"response,omitempty"`
}

type chargeSource struct {
	ID         string `json:"id,omitempty"`
	PaymentURL string `json:"payment_url,omitempty"`
}

type gatewayResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// PaymentURL extracts the hosted payment page URL from a charge. The URL has
// been observed in four locations depending on gateway mode, so this is an
// ordered-fallback compatibility shim: transaction.url, redirect.url,
// source.payment_url, then a top-level payment_url. Returns "" when none is
// present.
func (c *Charge) PaymentURL() string {
	if c.Transaction != nil && c.Transaction.URL != "" {
		return c.Transaction.URL
	}
	if c.Redirect != nil && c.Redirect.URL != "" {
		return c.Redirect.URL
	}
	if c.Source != nil && c.Source.PaymentURL != "" {
		return c.Source.PaymentURL
	}
	return c.PayURL
}

// Refund is a refund object as returned by Tap.
type Refund struct {
	ID       string `json:"id"`
	ChargeID string `json:"charge_id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// WebhookPayload is the body of an inbound Tap webhook POST.
type WebhookPayload struct {
	Event  string  `json:"event"`
	Charge *Charge `json:"charge,omitempty"`
	Refund *Refund `json:"refund,omitempty"`
}

// APIError is an error entry from a Tap error payload.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return "tap: " + e.Description
	}
	return "tap: error " + e.Code
}

// errorEnvelope covers both error payload shapes the gateway emits:
// {"errors":[...]} and {"error":{...}}.
type errorEnvelope struct {
	Errors []APIError `json:"errors,omitempty"`
	Err    *APIError  `json:"error,omitempty"`
}

func (e *errorEnvelope) first() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}
	return e.Err
}
