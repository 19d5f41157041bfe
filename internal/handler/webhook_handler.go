package handler

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/utils"
	"github.com/TijaraHub/tijara_api/pkg/tap"
)

// WebhookHandler handles incoming payment gateway webhooks.
type WebhookHandler struct {
	webhookService interface {
		ProcessWebhook(ctx context.Context, payload *tap.WebhookPayload) error
	}
	webhookSecret string
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(webhookService interface {
	ProcessWebhook(ctx context.Context, payload *tap.WebhookPayload) error
}, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService, webhookSecret: webhookSecret}
}

// HandleTapWebhook handles POST /webhook/tap. The gateway is always answered
// with 200 {"status":"success"} once the payload parses; processing failures
// are logged and retried through reconciliation, not surfaced to Tap.
func (h *WebhookHandler) HandleTapWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid body"})
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader("X-Tap-Signature")
		if !utils.VerifySignature(body, signature, h.webhookSecret) {
			log.Warn().Str("ip", c.ClientIP()).Msg("tap webhook signature mismatch")
			c.JSON(401, gin.H{"error": "Invalid signature"})
			return
		}
	}

	var payload tap.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.webhookService.ProcessWebhook(c.Request.Context(), &payload); err != nil {
		log.Error().Err(err).Str("event", payload.Event).Msg("failed to process tap webhook")
	}

	c.JSON(200, gin.H{"status": "success"})
}
