package tap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentURLFallbackOrder(t *testing.T) {
	full := &Charge{
		Transaction: &urlRef{URL: "https://t"},
		Redirect:    &urlRef{URL: "https://r"},
		Source:      &chargeSource{PaymentURL: "https://s"},
		PayURL:      "https://p",
	}
	assert.Equal(t, "https://t", full.PaymentURL())

	full.Transaction = nil
	assert.Equal(t, "https://r", full.PaymentURL())

	full.Redirect = &urlRef{}
	assert.Equal(t, "https://s", full.PaymentURL())

	full.Source = nil
	assert.Equal(t, "https://p", full.PaymentURL())

	assert.Empty(t, (&Charge{}).PaymentURL())
}

func TestErrorEnvelopeBothShapes(t *testing.T) {
	var list errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"errors":[{"code":"1100","description":"Invalid API key"}]}`), &list))
	require.NotNil(t, list.first())
	assert.Equal(t, "1100", list.first().Code)

	var single errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"error":{"code":"2200","description":"Charge not found"}}`), &single))
	require.NotNil(t, single.first())
	assert.Equal(t, "2200", single.first().Code)

	var clean errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"id":"chg_1","status":"CAPTURED"}`), &clean))
	assert.Nil(t, clean.first())
}

func TestCreateChargeWireShape(t *testing.T) {
	var got chargeRequestWire
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charges", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "chg_live_1",
			"status":      StatusInitiated,
			"amount":      29900,
			"currency":    "SAR",
			"transaction": map[string]string{"url": "https://checkout.tap.company/chg_live_1"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_abc"})
	charge, err := client.CreateCharge(context.Background(), &ChargeRequest{
		Amount:      29900,
		Currency:    "SAR",
		Customer:    Customer{Name: "Al Noor Trading", Email: "noor@example.sa"},
		RedirectURL: "https://api.tijarahub.sa/v1/subscription/success",
		WebhookURL:  "https://api.tijarahub.sa/webhook/tap",
		Metadata:    map[string]string{"transaction_id": "42"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_abc", auth)
	assert.Equal(t, 29900, got.Amount)
	require.NotNil(t, got.Redirect)
	assert.Equal(t, "https://api.tijarahub.sa/v1/subscription/success", got.Redirect.URL)
	require.NotNil(t, got.Post)
	assert.Equal(t, "https://api.tijarahub.sa/webhook/tap", got.Post.URL)
	assert.Equal(t, "42", got.Metadata["transaction_id"])

	assert.Equal(t, "chg_live_1", charge.ID)
	assert.Equal(t, "https://checkout.tap.company/chg_live_1", charge.PaymentURL())
}

func TestRetrieveCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/charges/chg_live_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": "chg_live_1", "status": StatusCaptured})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_abc"})
	charge, err := client.RetrieveCharge(context.Background(), "chg_live_1")
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, charge.Status)
}

func TestErrorEnvelopeInOKResponse(t *testing.T) {
	// the gateway sometimes reports errors in a 200 body
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"code":"1100","description":"Invalid API key"}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "bad"})
	_, err := client.RetrieveCharge(context.Background(), "chg_x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "1100", apiErr.Code)
}

func TestHTTPErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"})
	_, err := client.RetrieveCharge(context.Background(), "chg_x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_502", apiErr.Code)
}
