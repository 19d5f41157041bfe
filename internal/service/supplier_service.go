package service

import (
	"context"

	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// SupplierDirectoryStore is the data access surface for supplier accounts
// and their public profiles.
type SupplierDirectoryStore interface {
	Create(s *models.Supplier) error
	GetByID(id int) (*models.Supplier, error)
	GetByEmail(email string) (*models.Supplier, error)
	Update(s *models.Supplier) error
	List(limit, offset int) ([]models.Supplier, int, error)
	GetProfile(supplierID int) (*models.SupplierProfile, error)
	UpsertProfile(p *models.SupplierProfile) error
}

// SupplierService handles supplier account and profile management.
type SupplierService struct {
	suppliers SupplierDirectoryStore
}

func NewSupplierService(suppliers SupplierDirectoryStore) *SupplierService {
	return &SupplierService{suppliers: suppliers}
}

// SupplierView is a supplier account with its profile attached. Profile is
// nil when the supplier has not filled one out.
type SupplierView struct {
	Supplier *models.Supplier        `json:"supplier"`
	Profile  *models.SupplierProfile `json:"profile"`
}

// RegisterInput is the payload for creating a supplier account.
type RegisterInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// Register creates a supplier account on the basic tier with a fresh API key.
func (s *SupplierService) Register(ctx context.Context, in RegisterInput) (*models.Supplier, error) {
	existing, err := s.suppliers.GetByEmail(in.Email)
	if err == nil && existing != nil {
		return nil, utils.ErrValidation
	}
	if err != nil && mapNoRows(err) != utils.ErrNotFound {
		return nil, err
	}

	apiKey, err := utils.GenerateLiveKey()
	if err != nil {
		return nil, err
	}
	supplier := &models.Supplier{
		Name:   in.Name,
		Email:  in.Email,
		Phone:  in.Phone,
		Plan:   models.PlanBasic,
		Status: models.SupplierActive,
		APIKey: apiKey,
	}
	if err := s.suppliers.Create(supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// Get returns the supplier with its profile.
func (s *SupplierService) Get(ctx context.Context, supplierID int) (*SupplierView, error) {
	supplier, err := s.suppliers.GetByID(supplierID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	profile, err := s.suppliers.GetProfile(supplierID)
	if err != nil {
		return nil, err
	}
	return &SupplierView{Supplier: supplier, Profile: profile}, nil
}

// ProfileInput is the payload for updating a supplier profile.
type ProfileInput struct {
	BusinessName string  `json:"businessName"`
	Location     string  `json:"location"`
	Categories   string  `json:"categories"`
	ContactEmail *string `json:"contactEmail"`
}

// UpdateProfile upserts the supplier's public profile.
func (s *SupplierService) UpdateProfile(ctx context.Context, supplierID int, in ProfileInput) (*models.SupplierProfile, error) {
	if _, err := s.suppliers.GetByID(supplierID); err != nil {
		return nil, mapNoRows(err)
	}
	profile := &models.SupplierProfile{
		SupplierID:   supplierID,
		BusinessName: in.BusinessName,
		Location:     in.Location,
		Categories:   in.Categories,
		ContactEmail: in.ContactEmail,
	}
	if err := s.suppliers.UpsertProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// List returns a page of suppliers with the total count (admin).
func (s *SupplierService) List(ctx context.Context, limit, offset int) ([]models.Supplier, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.suppliers.List(limit, offset)
}

// SetStatus activates or suspends a supplier account (admin).
func (s *SupplierService) SetStatus(ctx context.Context, supplierID int, status models.SupplierStatus) (*models.Supplier, error) {
	if status != models.SupplierActive && status != models.SupplierSuspended {
		return nil, utils.ErrValidation
	}
	supplier, err := s.suppliers.GetByID(supplierID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	supplier.Status = status
	if err := s.suppliers.Update(supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}
