package models

import "time"

type SupplierPlan string
type SupplierStatus string

const (
	PlanBasic      SupplierPlan = "basic"
	PlanPremium    SupplierPlan = "premium"
	PlanEnterprise SupplierPlan = "enterprise"
)

const (
	SupplierActive    SupplierStatus = "active"
	SupplierSuspended SupplierStatus = "suspended"
	SupplierPending   SupplierStatus = "pending"
)

// PlanFromName maps a subscription plan name to the supplier plan tier,
// defaulting to basic for unrecognized names.
func PlanFromName(name string) SupplierPlan {
	switch name {
	case "Premium", "premium":
		return PlanPremium
	case "Enterprise", "enterprise":
		return PlanEnterprise
	default:
		return PlanBasic
	}
}

// Supplier represents a registered supplier account. The API key is omitted
// from JSON responses except where explicitly returned at creation time.
type Supplier struct {
	ID        int            `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Phone     string         `db:"phone" json:"phone"`
	Plan      SupplierPlan   `db:"plan" json:"plan"`
	Status    SupplierStatus `db:"status" json:"status"`
	APIKey    string         `db:"api_key" json:"apiKey,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"-"`
}

// SupplierProfile is the public directory profile owned by a supplier.
// ContactEmail, when set, is preferred over the account email for message
// display and notification purposes.
type SupplierProfile struct {
	ID           int       `db:"id" json:"id"`
	SupplierID   int       `db:"supplier_id" json:"supplierId"`
	BusinessName string    `db:"business_name" json:"businessName"`
	Location     string    `db:"location" json:"location"`
	Categories   string    `db:"categories" json:"categories"`
	ContactEmail *string   `db:"contact_email" json:"contactEmail,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// DisplayEmail returns the profile contact email, falling back to the
// supplier account email.
func (p *SupplierProfile) DisplayEmail(accountEmail string) string {
	if p != nil && p.ContactEmail != nil && *p.ContactEmail != "" {
		return *p.ContactEmail
	}
	return accountEmail
}
