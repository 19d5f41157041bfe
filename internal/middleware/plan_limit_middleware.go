package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/config"
	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// InquiryCounter counts inquiries a supplier has sent since a point in time.
type InquiryCounter interface {
	CountSentSince(supplierID int, since time.Time) (int, error)
}

// PlanLimitMiddleware enforces the basic-tier monthly inquiry quota. Paid
// tiers are unlimited. When the quota check itself fails the behavior follows
// the fail-open flag: limits are best-effort and must not take sends down
// with them unless explicitly configured to.
type PlanLimitMiddleware struct {
	cfg       *config.Store
	inquiries InquiryCounter
}

func NewPlanLimitMiddleware(cfg *config.Store, inquiries InquiryCounter) *PlanLimitMiddleware {
	return &PlanLimitMiddleware{cfg: cfg, inquiries: inquiries}
}

// Handle guards inquiry-creating routes.
func (m *PlanLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier := GetSupplier(c)
		if supplier == nil {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing supplier context")
			c.Abort()
			return
		}
		if supplier.Plan != models.PlanBasic {
			c.Next()
			return
		}

		limits := m.cfg.Current().Config.Limits
		if limits.BasicInquiryQuota <= 0 {
			c.Next()
			return
		}

		monthStart := time.Now().AddDate(0, -1, 0)
		sent, err := m.inquiries.CountSentSince(supplier.ID, monthStart)
		if err != nil {
			log.Warn().Err(err).Int("supplier_id", supplier.ID).Msg("plan limit check failed")
			if limits.FailOpen {
				c.Next()
				return
			}
			utils.Error(c, 503, "LIMIT_CHECK_FAILED", "Unable to verify plan limits")
			c.Abort()
			return
		}

		if sent >= limits.BasicInquiryQuota {
			utils.Error(c, 403, "PLAN_LIMIT_REACHED", "Monthly inquiry limit reached for the basic plan")
			c.Abort()
			return
		}
		c.Next()
	}
}
