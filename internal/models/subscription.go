package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// SubscriptionPlan is a purchasable tier. Price is in major currency units
// (e.g. 299.00 SAR); gateway amounts are converted to minor units.
type SubscriptionPlan struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Price          float64   `db:"price" json:"price"`
	Currency       string    `db:"currency" json:"currency"`
	BillingCycle   string    `db:"billing_cycle" json:"billingCycle"`
	DurationMonths int       `db:"duration_months" json:"durationMonths"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"-"`
}

// PriceMinorUnits returns the plan price in minor currency units (halalas).
func (p *SubscriptionPlan) PriceMinorUnits() int {
	return int(p.Price*100 + 0.5)
}

// UserSubscription is a supplier's subscription to a plan. At most one row
// per supplier may be active at any time; activation expires prior actives
// inside the same store transaction.
type UserSubscription struct {
	ID          int                `db:"id" json:"id"`
	SupplierID  int                `db:"supplier_id" json:"supplierId"`
	PlanID      int                `db:"subscription_plan_id" json:"planId"`
	Status      SubscriptionStatus `db:"status" json:"status"`
	StartsAt    time.Time          `db:"starts_at" json:"startsAt"`
	EndsAt      time.Time          `db:"ends_at" json:"endsAt"`
	TapChargeID *string            `db:"tap_charge_id" json:"tapChargeId,omitempty"`
	AutoRenew   bool               `db:"auto_renew" json:"autoRenew"`
	CancelledAt *time.Time         `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `db:"updated_at" json:"-"`
}
