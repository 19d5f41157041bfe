package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TijaraHub/tijara_api/internal/middleware"
	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/utils"
	"github.com/TijaraHub/tijara_api/pkg/tap"
)

// SubscriptionHandler handles the supplier-facing subscription endpoints.
type SubscriptionHandler struct {
	subService  *service.SubscriptionService
	frontendURL string
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(subService *service.SubscriptionService, frontendURL string) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService, frontendURL: frontendURL}
}

// ListPlans handles GET /v1/subscription/plans
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.subService.ListPlans(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Plans retrieved", plans)
}

type createPaymentRequest struct {
	PlanID   int           `json:"planId" binding:"required"`
	Customer *tap.Customer `json:"customer"`
}

// CreatePayment handles POST /v1/subscription/payment
func (h *SubscriptionHandler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	intent, err := h.subService.CreateSubscriptionPayment(c.Request.Context(), supplierID, req.PlanID, req.Customer)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Payment created", intent)
}

// CurrentSubscription handles GET /v1/subscription/current
func (h *SubscriptionHandler) CurrentSubscription(c *gin.Context) {
	supplierID := middleware.GetSupplierID(c)
	sub, err := h.subService.CurrentSubscription(c.Request.Context(), supplierID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if sub == nil {
		utils.Success(c, 200, "No active subscription", gin.H{"subscription": nil})
		return
	}
	utils.Success(c, 200, "Subscription retrieved", sub)
}

// SubscriptionHistory handles GET /v1/subscription/history
func (h *SubscriptionHandler) SubscriptionHistory(c *gin.Context) {
	supplierID := middleware.GetSupplierID(c)
	subs, err := h.subService.SubscriptionHistory(c.Request.Context(), supplierID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Subscription history retrieved", subs)
}

// PaymentHistory handles GET /v1/subscription/payments
func (h *SubscriptionHandler) PaymentHistory(c *gin.Context) {
	supplierID := middleware.GetSupplierID(c)
	list, err := h.subService.PaymentHistory(c.Request.Context(), supplierID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Payment history retrieved", list)
}

// PaymentStatus handles GET /v1/subscription/status/:transactionId. For a
// pending transaction the gateway is queried first, so a missed webhook still
// resolves on poll.
func (h *SubscriptionHandler) PaymentStatus(c *gin.Context) {
	transactionID, err := strconv.Atoi(c.Param("transactionId"))
	if err != nil {
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid transaction id")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	trx, err := h.subService.PaymentStatus(c.Request.Context(), supplierID, transactionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Transaction status retrieved", trx)
}

// SuccessCallback handles GET /v1/subscription/success, the gateway redirect
// target after checkout. It reconciles the charge and forwards the customer
// to the frontend with the final status. Public route.
func (h *SubscriptionHandler) SuccessCallback(c *gin.Context) {
	chargeID := c.Query("tap_id")
	if chargeID == "" {
		c.Redirect(http.StatusFound, fmt.Sprintf("%s/subscription?status=error", h.frontendURL))
		return
	}

	trx, err := h.subService.ConfirmPayment(c.Request.Context(), chargeID)
	if err != nil {
		c.Redirect(http.StatusFound, fmt.Sprintf("%s/subscription?status=error", h.frontendURL))
		return
	}

	success := "false"
	if trx.Status == "completed" {
		success = "true"
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/subscription?status=%s&success=%s", h.frontendURL, trx.Status, success))
}

func (h *SubscriptionHandler) handleError(c *gin.Context, err error) {
	switch err {
	case utils.ErrPlanNotFound:
		utils.Error(c, 404, "PLAN_NOT_FOUND", "Subscription plan not found")
	case utils.ErrPlanInactive:
		utils.Error(c, 400, "PLAN_INACTIVE", "Subscription plan is not available")
	case utils.ErrInvalidAmount:
		utils.Error(c, 400, "INVALID_AMOUNT", "Plan price must be a positive amount")
	case utils.ErrValidation:
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid request")
	case utils.ErrForbidden:
		utils.Error(c, 403, "FORBIDDEN", "You do not have access to this resource")
	case utils.ErrNotFound:
		utils.Error(c, 404, "NOT_FOUND", "Resource not found")
	case utils.ErrGateway:
		utils.Error(c, 502, "GATEWAY_ERROR", "Payment gateway request failed")
	case utils.ErrPaymentURLMissing:
		utils.Error(c, 502, "PAYMENT_URL_MISSING", "Payment gateway did not return a payment page")
	default:
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
