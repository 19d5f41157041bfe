package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// AdminUserRepository handles data access for admin panel users.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new AdminUserRepository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail returns an admin user by email.
func (r *AdminUserRepository) GetByEmail(email string) (*models.AdminUser, error) {
	const q = `SELECT * FROM admin_users WHERE email = $1 LIMIT 1`
	var u models.AdminUser
	if err := r.db.Get(&u, q, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// TouchLastLogin stamps a successful login.
func (r *AdminUserRepository) TouchLastLogin(id int) error {
	const q = `UPDATE admin_users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}

// Create inserts a new admin user row.
func (r *AdminUserRepository) Create(u *models.AdminUser) error {
	const q = `
        INSERT INTO admin_users (email, password_hash, name, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,NOW(),NOW())
        RETURNING id`
	return r.db.QueryRow(q, u.Email, u.PasswordHash, u.Name, u.IsActive).Scan(&u.ID)
}
