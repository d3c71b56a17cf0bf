package repository

import (
	"context"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"gorm.io/gorm"
)

type InstitutionRepository interface {
	WithTx(tx *gorm.DB) InstitutionRepository
	Create(ctx context.Context, institution *model.Institution) error
	FindByID(ctx context.Context, id string) (*model.Institution, error)
	FindAll(ctx context.Context) ([]model.Institution, error)
	UpdateLicenseSummary(ctx context.Context, id string, licenseType model.LicenseType, expiry *time.Time, at time.Time) error
}

type institutionRepository struct {
	db *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) InstitutionRepository {
	return &institutionRepository{db: db}
}

func (r *institutionRepository) WithTx(tx *gorm.DB) InstitutionRepository {
	return &institutionRepository{db: tx}
}

func (r *institutionRepository) Create(ctx context.Context, institution *model.Institution) error {
	if err := r.db.WithContext(ctx).Create(institution).Error; err != nil {
		logger.Error("Failed to create institution in database", err, map[string]interface{}{
			"institution_id": institution.ID,
			"name":           institution.Name,
		})
		return err
	}

	logger.Debug("Institution created in database", map[string]interface{}{
		"institution_id": institution.ID,
	})
	return nil
}

func (r *institutionRepository) FindByID(ctx context.Context, id string) (*model.Institution, error) {
	var institution model.Institution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&institution).Error; err != nil {
		return nil, err
	}
	return &institution, nil
}

func (r *institutionRepository) FindAll(ctx context.Context) ([]model.Institution, error) {
	var institutions []model.Institution
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&institutions).Error; err != nil {
		logger.Error("Failed to list institutions in database", err)
		return nil, err
	}

	logger.Debug("Institutions listed in database", map[string]interface{}{
		"count": len(institutions),
	})
	return institutions, nil
}

// UpdateLicenseSummary overwrites the mirrored license columns only.
func (r *institutionRepository) UpdateLicenseSummary(ctx context.Context, id string, licenseType model.LicenseType, expiry *time.Time, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Institution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"license_type":   licenseType,
			"license_expiry": expiry,
			"updated_at":     at,
		})
	if result.Error != nil {
		logger.Error("Failed to mirror license summary onto institution", result.Error, map[string]interface{}{
			"institution_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("License summary mirrored onto institution", map[string]interface{}{
		"institution_id": id,
		"license_type":   licenseType,
	})
	return nil
}
