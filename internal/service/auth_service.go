package service

import (
	"database/sql"

	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// SupplierAuthStore resolves suppliers by API key.
type SupplierAuthStore interface {
	GetByAPIKey(apiKey string) (*models.Supplier, error)
}

// AuthService validates supplier API keys for the public API surface.
type AuthService struct {
	suppliers SupplierAuthStore
}

func NewAuthService(suppliers SupplierAuthStore) *AuthService {
	return &AuthService{suppliers: suppliers}
}

// ValidateAPIKey returns the supplier owning the key. Suspended and inactive
// accounts are rejected the same way as unknown keys.
func (s *AuthService) ValidateAPIKey(apiKey string) (*models.Supplier, error) {
	if apiKey == "" {
		return nil, utils.ErrInvalidToken
	}

	supplier, err := s.suppliers.GetByAPIKey(apiKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.ErrInvalidSupplier
		}
		return nil, err
	}
	if supplier.Status != models.SupplierActive {
		return nil, utils.ErrInvalidSupplier
	}
	return supplier, nil
}
