package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/pkg/logger"
)

type InstitutionService interface {
	GetInstitutions(ctx context.Context) ([]model.Institution, error)
	GetInstitutionByID(ctx context.Context, id string) (*model.Institution, error)
	CreateInstitution(ctx context.Context, institution *model.Institution) error
}

type institutionService struct {
	institutionRepo repository.InstitutionRepository
}

func NewInstitutionService(institutionRepo repository.InstitutionRepository) InstitutionService {
	return &institutionService{institutionRepo: institutionRepo}
}

func (s *institutionService) GetInstitutions(ctx context.Context) ([]model.Institution, error) {
	return s.institutionRepo.FindAll(ctx)
}

func (s *institutionService) GetInstitutionByID(ctx context.Context, id string) (*model.Institution, error) {
	institution, err := s.institutionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrInstitutionNotFound)
	}
	return institution, nil
}

// CreateInstitution registers an institution without a license. Used by the XLSX import.
func (s *institutionService) CreateInstitution(ctx context.Context, institution *model.Institution) error {
	institution.Name = strings.TrimSpace(institution.Name)
	if institution.Name == "" {
		return validationError("institution name is required")
	}
	if institution.ID == "" {
		institution.ID = uuid.NewString()
	}
	if institution.Status == "" {
		institution.Status = model.InstitutionStatusPending
	}
	if !institution.Status.Valid() {
		return validationError("invalid institution status %q", institution.Status)
	}
	institution.LicenseType = model.LicenseTypeNone
	institution.LicenseExpiry = nil

	if err := s.institutionRepo.Create(ctx, institution); err != nil {
		return err
	}

	logger.Info("Institution created", map[string]interface{}{
		"institution_id": institution.ID,
		"name":           institution.Name,
	})
	return nil
}
