package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TijaraHub/tijara_api/internal/middleware"
	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// SupplierHandler handles supplier account and profile endpoints.
type SupplierHandler struct {
	supplierService *service.SupplierService
}

// NewSupplierHandler constructs a SupplierHandler.
func NewSupplierHandler(supplierService *service.SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

// Register handles POST /v1/suppliers (admin). The response includes the
// freshly generated API key; it is not retrievable afterwards.
func (h *SupplierHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplier, err := h.supplierService.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Supplier registered", supplier)
}

// GetProfile handles GET /v1/supplier/profile
func (h *SupplierHandler) GetProfile(c *gin.Context) {
	supplierID := middleware.GetSupplierID(c)
	view, err := h.supplierService.Get(c.Request.Context(), supplierID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	view.Supplier.APIKey = ""
	utils.Success(c, 200, "Profile retrieved", view)
}

// UpdateProfile handles PUT /v1/supplier/profile
func (h *SupplierHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	profile, err := h.supplierService.UpdateProfile(c.Request.Context(), supplierID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Profile updated", profile)
}

// ListSuppliers handles GET /admin/suppliers
func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}

	suppliers, total, err := h.supplierService.List(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	for i := range suppliers {
		suppliers[i].APIKey = ""
	}
	utils.SuccessWithPagination(c, 200, "Suppliers retrieved", suppliers, page, limit, total)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles PATCH /admin/suppliers/:id/status
func (h *SupplierHandler) SetStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid supplier id")
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplier, err := h.supplierService.SetStatus(c.Request.Context(), id, models.SupplierStatus(req.Status))
	if err != nil {
		h.handleError(c, err)
		return
	}
	supplier.APIKey = ""
	utils.Success(c, 200, "Supplier status updated", supplier)
}

func (h *SupplierHandler) handleError(c *gin.Context, err error) {
	switch err {
	case utils.ErrValidation:
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid request")
	case utils.ErrNotFound:
		utils.Error(c, 404, "SUPPLIER_NOT_FOUND", "Supplier not found")
	default:
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
