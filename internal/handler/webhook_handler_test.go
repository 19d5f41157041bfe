package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TijaraHub/tijara_api/internal/utils"
	"github.com/TijaraHub/tijara_api/pkg/tap"
)

type stubWebhookService struct {
	err      error
	received *tap.WebhookPayload
}

func (s *stubWebhookService) ProcessWebhook(ctx context.Context, payload *tap.WebhookPayload) error {
	s.received = payload
	return s.err
}

func postWebhook(h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook/tap", h.HandleTapWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook/tap", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Tap-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookAcknowledgesValidPayload(t *testing.T) {
	svc := &stubWebhookService{}
	h := NewWebhookHandler(svc, "")

	w := postWebhook(h, `{"event":"CHARGE_CAPTURED","charge":{"id":"chg_1","status":"CAPTURED"}}`, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())
	require.NotNil(t, svc.received)
	assert.Equal(t, tap.EventChargeCaptured, svc.received.Event)
}

func TestWebhookAcknowledgesDespiteProcessingError(t *testing.T) {
	// Tap retries on non-200; our own failures must not trigger retry storms
	svc := &stubWebhookService{err: errors.New("db down")}
	h := NewWebhookHandler(svc, "")

	w := postWebhook(h, `{"event":"CHARGE_FAILED","charge":{"id":"chg_1"}}`, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	svc := &stubWebhookService{}
	h := NewWebhookHandler(svc, "")

	w := postWebhook(h, `{not json`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.received)
}

func TestWebhookSignatureVerification(t *testing.T) {
	secret := "whsec_test"
	body := `{"event":"CHARGE_CAPTURED","charge":{"id":"chg_1","status":"CAPTURED"}}`
	svc := &stubWebhookService{}
	h := NewWebhookHandler(svc, secret)

	w := postWebhook(h, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, svc.received)

	w = postWebhook(h, body, utils.GenerateSignature([]byte(body), secret))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.received)
}
