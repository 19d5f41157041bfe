package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// AdminAuthHandler handles admin panel authentication.
type AdminAuthHandler struct {
	adminAuthService *service.AdminAuthService
}

// NewAdminAuthHandler constructs an AdminAuthHandler.
func NewAdminAuthHandler(adminAuthService *service.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{adminAuthService: adminAuthService}
}

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /admin/auth/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Email and password are required")
		return
	}

	result, err := h.adminAuthService.Login(req.Email, req.Password)
	if err != nil {
		if err == utils.ErrInvalidToken {
			utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		return
	}

	utils.Success(c, 200, "Login successful", result)
}
