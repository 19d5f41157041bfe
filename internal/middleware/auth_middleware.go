package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// AuthMiddleware handles supplier API key authentication.
type AuthMiddleware struct {
	authService *service.AuthService
	rateLimiter *InvalidAuthRateLimiter
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		rateLimiter: NewInvalidAuthRateLimiter(),
	}
}

// Handle returns a Gin middleware function that enforces authentication.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			m.handleAuthError(c, "INVALID_TOKEN", "Missing or invalid authorization header")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		supplier, err := m.authService.ValidateAPIKey(token)
		if err != nil || supplier == nil {
			m.handleAuthError(c, "INVALID_SUPPLIER", "Invalid API token")
			return
		}

		c.Set("supplier", supplier)
		c.Set("supplier_id", supplier.ID)

		c.Next()
	}
}

func (m *AuthMiddleware) handleAuthError(c *gin.Context, code, message string) {
	// Apply rate limit for invalid auth attempts
	ip := c.ClientIP()
	if !m.rateLimiter.Allow(ip) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, 401, code, message)
	c.Abort()
}

// GetSupplier returns the authenticated supplier from context.
func GetSupplier(c *gin.Context) *models.Supplier {
	supplier, _ := c.Get("supplier")
	if supplier == nil {
		return nil
	}
	return supplier.(*models.Supplier)
}

// GetSupplierID returns the authenticated supplier id, or 0 when missing.
func GetSupplierID(c *gin.Context) int {
	id, _ := c.Get("supplier_id")
	if id == nil {
		return 0
	}
	return id.(int)
}
