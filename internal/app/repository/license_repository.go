package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LicenseFilter narrows license listings. Limit <= 0 disables pagination.
type LicenseFilter struct {
	Search        string
	Status        model.LicenseStatus
	Type          model.LicenseType
	InstitutionID string
	Page          int
	Limit         int
}

type LicenseRepository interface {
	WithTx(tx *gorm.DB) LicenseRepository
	Create(ctx context.Context, license *model.License) error
	FindByID(ctx context.Context, id string) (*model.License, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.License, error)
	List(ctx context.Context, filter LicenseFilter) ([]model.License, int64, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]model.License, error)
	Update(ctx context.Context, license *model.License) error
	UpdatePaymentID(ctx context.Context, id, paymentID string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type licenseRepository struct {
	db *gorm.DB
}

func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

func (r *licenseRepository) WithTx(tx *gorm.DB) LicenseRepository {
	return &licenseRepository{db: tx}
}

func (r *licenseRepository) Create(ctx context.Context, license *model.License) error {
	logger.Debug("Creating license in database", map[string]interface{}{
		"license_id":     license.ID,
		"institution_id": license.InstitutionID,
		"type":           license.Type,
	})

	if err := r.db.WithContext(ctx).Create(license).Error; err != nil {
		logger.Error("Failed to create license in database", err, map[string]interface{}{
			"license_id":     license.ID,
			"institution_id": license.InstitutionID,
		})
		return err
	}
	return nil
}

func (r *licenseRepository) FindByID(ctx context.Context, id string) (*model.License, error) {
	var license model.License
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&license).Error; err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.License, error) {
	var license model.License
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&license).Error; err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) List(ctx context.Context, filter LicenseFilter) ([]model.License, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.License{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		query = query.Where(`LOWER(institution_name) LIKE ? ESCAPE '\' OR LOWER(id) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.InstitutionID != "" {
		query = query.Where("institution_id = ?", filter.InstitutionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count licenses in database", err)
		return nil, 0, err
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var licenses []model.License
	if err := query.Order("created_at DESC").Order("id DESC").Find(&licenses).Error; err != nil {
		logger.Error("Failed to list licenses in database", err)
		return nil, 0, err
	}

	logger.Debug("Licenses listed in database", map[string]interface{}{
		"total": total,
		"count": len(licenses),
		"page":  filter.Page,
	})
	return licenses, total, nil
}

func (r *licenseRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]model.License, error) {
	var licenses []model.License
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date >= ? AND expiry_date <= ?", model.LicenseStatusActive, from, to).
		Order("expiry_date ASC").
		Find(&licenses).Error; err != nil {
		logger.Error("Failed to find expiring licenses in database", err)
		return nil, err
	}
	return licenses, nil
}

func (r *licenseRepository) Update(ctx context.Context, license *model.License) error {
	if err := r.db.WithContext(ctx).Save(license).Error; err != nil {
		logger.Error("Failed to update license in database", err, map[string]interface{}{
			"license_id": license.ID,
		})
		return err
	}

	logger.Debug("License updated in database", map[string]interface{}{
		"license_id": license.ID,
		"status":     license.Status,
	})
	return nil
}

func (r *licenseRepository) UpdatePaymentID(ctx context.Context, id, paymentID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.License{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_id": paymentID,
			"updated_at": at,
		})
	if result.Error != nil {
		logger.Error("Failed to stamp payment on license", result.Error, map[string]interface{}{
			"license_id": id,
			"payment_id": paymentID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *licenseRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.License{})
	if result.Error != nil {
		logger.Error("Failed to delete license in database", result.Error, map[string]interface{}{
			"license_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
