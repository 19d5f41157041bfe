package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/config"
	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// AdminSubscriptionHandler handles the admin-side subscription and plan
// management endpoints plus the settings reload.
type AdminSubscriptionHandler struct {
	subService *service.SubscriptionService
	cfgStore   *config.Store
}

// NewAdminSubscriptionHandler constructs an AdminSubscriptionHandler.
func NewAdminSubscriptionHandler(subService *service.SubscriptionService, cfgStore *config.Store) *AdminSubscriptionHandler {
	return &AdminSubscriptionHandler{subService: subService, cfgStore: cfgStore}
}

// ListSubscriptions handles GET /admin/subscriptions
func (h *AdminSubscriptionHandler) ListSubscriptions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}

	subs, total, err := h.subService.ListAllSubscriptions(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		return
	}
	utils.SuccessWithPagination(c, 200, "Subscriptions retrieved", subs, page, limit, total)
}

// CancelSubscription handles POST /admin/subscriptions/:id/cancel
func (h *AdminSubscriptionHandler) CancelSubscription(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid subscription id")
		return
	}

	// supplierID 0 skips the ownership check for admin cancellation
	if err := h.subService.CancelSubscription(c.Request.Context(), 0, id); err != nil {
		switch err {
		case utils.ErrNotFound:
			utils.Error(c, 404, "NOT_FOUND", "Active subscription not found")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	adminID := c.GetInt("admin_id")
	log.Info().Int("subscription_id", id).Int("admin_id", adminID).Msg("subscription cancelled by admin")
	utils.Success(c, 200, "Subscription cancelled", gin.H{"id": id})
}

type planRequest struct {
	Name           string  `json:"name" binding:"required"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	BillingCycle   string  `json:"billingCycle"`
	DurationMonths int     `json:"durationMonths" binding:"required"`
	IsActive       *bool   `json:"isActive"`
}

// CreatePlan handles POST /admin/plans
func (h *AdminSubscriptionHandler) CreatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	plan := &models.SubscriptionPlan{
		Name:           req.Name,
		Price:          req.Price,
		Currency:       req.Currency,
		BillingCycle:   req.BillingCycle,
		DurationMonths: req.DurationMonths,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := h.subService.CreatePlan(c.Request.Context(), plan); err != nil {
		if err == utils.ErrValidation {
			utils.Error(c, 400, "VALIDATION_ERROR", "Invalid plan definition")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		return
	}
	utils.Success(c, 201, "Plan created", plan)
}

// UpdatePlan handles PUT /admin/plans/:id
func (h *AdminSubscriptionHandler) UpdatePlan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid plan id")
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	plan := &models.SubscriptionPlan{
		ID:             id,
		Name:           req.Name,
		Price:          req.Price,
		Currency:       req.Currency,
		BillingCycle:   req.BillingCycle,
		DurationMonths: req.DurationMonths,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := h.subService.UpdatePlan(c.Request.Context(), plan); err != nil {
		switch err {
		case utils.ErrNotFound:
			utils.Error(c, 404, "PLAN_NOT_FOUND", "Subscription plan not found")
		case utils.ErrValidation:
			utils.Error(c, 400, "VALIDATION_ERROR", "Invalid plan definition")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}
	utils.Success(c, 200, "Plan updated", plan)
}

// ReloadSettings handles POST /admin/settings/reload
func (h *AdminSubscriptionHandler) ReloadSettings(c *gin.Context) {
	snap, err := h.cfgStore.Reload()
	if err != nil {
		utils.Error(c, 500, "RELOAD_FAILED", "Configuration reload failed")
		return
	}
	log.Info().Int("version", snap.Version).Msg("configuration reloaded")
	utils.Success(c, 200, "Settings reloaded", gin.H{
		"version":  snap.Version,
		"loadedAt": snap.LoadedAt,
	})
}
