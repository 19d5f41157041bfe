package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// SupplierRepository handles data access for supplier accounts and profiles.
type SupplierRepository struct {
	db *sqlx.DB
}

// NewSupplierRepository creates a new SupplierRepository.
func NewSupplierRepository(db *sqlx.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create inserts a new supplier row.
func (r *SupplierRepository) Create(s *models.Supplier) error {
	const q = `
        INSERT INTO suppliers (name, email, phone, plan, status, api_key, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q, s.Name, s.Email, s.Phone, s.Plan, s.Status, s.APIKey).
		Scan(&s.ID, &s.CreatedAt)
}

// GetByID returns a supplier by id.
func (r *SupplierRepository) GetByID(id int) (*models.Supplier, error) {
	const q = `SELECT * FROM suppliers WHERE id = $1 LIMIT 1`
	var s models.Supplier
	if err := r.db.Get(&s, q, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByAPIKey returns a supplier by its API key.
func (r *SupplierRepository) GetByAPIKey(apiKey string) (*models.Supplier, error) {
	const q = `SELECT * FROM suppliers WHERE api_key = $1 LIMIT 1`
	var s models.Supplier
	if err := r.db.Get(&s, q, apiKey); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByEmail returns a supplier by account email.
func (r *SupplierRepository) GetByEmail(email string) (*models.Supplier, error) {
	const q = `SELECT * FROM suppliers WHERE email = $1 LIMIT 1`
	var s models.Supplier
	if err := r.db.Get(&s, q, email); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update updates mutable supplier fields.
func (r *SupplierRepository) Update(s *models.Supplier) error {
	const q = `
        UPDATE suppliers SET
            name = $2, email = $3, phone = $4, plan = $5, status = $6, updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.Exec(q, s.ID, s.Name, s.Email, s.Phone, s.Plan, s.Status)
	return err
}

// List returns suppliers ordered by creation time with limit/offset paging.
func (r *SupplierRepository) List(limit, offset int) ([]models.Supplier, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM suppliers`); err != nil {
		return nil, 0, err
	}
	const q = `SELECT * FROM suppliers ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var list []models.Supplier
	if err := r.db.Select(&list, q, limit, offset); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetProfile returns the supplier's directory profile, or nil when none exists.
func (r *SupplierRepository) GetProfile(supplierID int) (*models.SupplierProfile, error) {
	const q = `SELECT * FROM supplier_profiles WHERE supplier_id = $1 LIMIT 1`
	var p models.SupplierProfile
	if err := r.db.Get(&p, q, supplierID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or updates the supplier's profile.
func (r *SupplierRepository) UpsertProfile(p *models.SupplierProfile) error {
	const q = `
        INSERT INTO supplier_profiles (supplier_id, business_name, location, categories, contact_email, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
        ON CONFLICT (supplier_id) DO UPDATE SET
            business_name = EXCLUDED.business_name,
            location = EXCLUDED.location,
            categories = EXCLUDED.categories,
            contact_email = EXCLUDED.contact_email,
            updated_at = NOW()
        RETURNING id`
	return r.db.QueryRow(q, p.SupplierID, p.BusinessName, p.Location, p.Categories, p.ContactEmail).
		Scan(&p.ID)
}
