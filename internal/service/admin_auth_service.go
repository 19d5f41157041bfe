package service

import (
	"database/sql"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// AdminUserStore resolves admin accounts by email.
type AdminUserStore interface {
	GetByEmail(email string) (*models.AdminUser, error)
	TouchLastLogin(id int) error
}

// AdminAuthService handles admin panel login.
type AdminAuthService struct {
	admins AdminUserStore
}

func NewAdminAuthService(admins AdminUserStore) *AdminAuthService {
	return &AdminAuthService{admins: admins}
}

// AdminLoginResult carries the issued token and the authenticated admin.
type AdminLoginResult struct {
	Token string            `json:"token"`
	User  *models.AdminUser `json:"user"`
}

// Login checks credentials and issues a JWT. Unknown emails, wrong passwords
// and deactivated accounts all return the same invalid-token error.
func (s *AdminAuthService) Login(email, password string) (*AdminLoginResult, error) {
	admin, err := s.admins.GetByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.ErrInvalidToken
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, utils.ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, utils.ErrInvalidToken
	}

	token, err := utils.GenerateJWT(admin.ID, admin.Email)
	if err != nil {
		return nil, err
	}
	if err := s.admins.TouchLastLogin(admin.ID); err != nil {
		log.Warn().Err(err).Int("admin_id", admin.ID).Msg("failed to stamp last login")
	}
	return &AdminLoginResult{Token: token, User: admin}, nil
}
