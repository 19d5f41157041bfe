package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// PlanRepository handles data access for subscription plans.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create inserts a new plan row.
func (r *PlanRepository) Create(p *models.SubscriptionPlan) error {
	const q = `
        INSERT INTO subscription_plans
            (name, price, currency, billing_cycle, duration_months, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q,
		p.Name, p.Price, p.Currency, p.BillingCycle, p.DurationMonths, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetByID returns a plan by id.
func (r *PlanRepository) GetByID(id int) (*models.SubscriptionPlan, error) {
	const q = `SELECT * FROM subscription_plans WHERE id = $1 LIMIT 1`
	var p models.SubscriptionPlan
	if err := r.db.Get(&p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns active plans ordered by price ascending.
func (r *PlanRepository) ListActive() ([]models.SubscriptionPlan, error) {
	const q = `SELECT * FROM subscription_plans WHERE is_active = TRUE ORDER BY price ASC`
	var list []models.SubscriptionPlan
	if err := r.db.Select(&list, q); err != nil {
		return nil, err
	}
	return list, nil
}

// Update updates plan attributes. Plans referenced by transactions keep their
// historical pricing in the transaction row itself.
func (r *PlanRepository) Update(p *models.SubscriptionPlan) error {
	const q = `
        UPDATE subscription_plans SET
            name = $2, price = $3, currency = $4, billing_cycle = $5,
            duration_months = $6, is_active = $7, updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.Exec(q, p.ID, p.Name, p.Price, p.Currency, p.BillingCycle, p.DurationMonths, p.IsActive)
	return err
}
