package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/metrics"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPageNumber   = 100000
)

var quotaKinds = []model.QuotaKind{model.QuotaUsers, model.QuotaPhotos, model.QuotaReports}

type CreateLicenseInput struct {
	InstitutionID string
	Type          model.LicenseType
	Status        model.LicenseStatus
	StartDate     time.Time
	ExpiryDate    time.Time
	MaxUsers      int
	MaxPhotos     int
	MaxReports    int
}

// UpdateLicenseInput carries a partial update; nil fields are left untouched.
type UpdateLicenseInput struct {
	InstitutionID *string
	Type          *model.LicenseType
	Status        *model.LicenseStatus
	StartDate     *time.Time
	ExpiryDate    *time.Time
	MaxUsers      *int
	MaxPhotos     *int
	MaxReports    *int
}

type LicenseListResult struct {
	Licenses []model.License `json:"licenses"`
	Total    int64           `json:"total"`
}

type LicenseService interface {
	GetLicenses(ctx context.Context, filter repository.LicenseFilter) (*LicenseListResult, error)
	GetLicenseByID(ctx context.Context, id string) (*model.License, error)
	CreateLicense(ctx context.Context, input CreateLicenseInput) (*model.License, error)
	UpdateLicense(ctx context.Context, id string, input UpdateLicenseInput) (*model.License, error)
	UpdateLicenseStatus(ctx context.Context, id string, status model.LicenseStatus) (*model.License, error)
	ConsumeQuota(ctx context.Context, id string, quota model.QuotaKind, delta int) (*model.License, error)
	DeleteLicense(ctx context.Context, id string) error
	GetExpiringLicenses(ctx context.Context, within time.Duration) ([]model.License, error)
}

type licenseService struct {
	licenseRepo     repository.LicenseRepository
	institutionRepo repository.InstitutionRepository
	sequences       SequenceGenerator
	publisher       EventPublisher
	db              *gorm.DB
}

func NewLicenseService(
	licenseRepo repository.LicenseRepository,
	institutionRepo repository.InstitutionRepository,
	sequences SequenceGenerator,
	db *gorm.DB,
	publisher EventPublisher,
) LicenseService {
	return &licenseService{
		licenseRepo:     licenseRepo,
		institutionRepo: institutionRepo,
		sequences:       sequences,
		publisher:       publisherOrNoop(publisher),
		db:              db,
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPageNumber {
		page = maxPageNumber
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func (s *licenseService) GetLicenses(ctx context.Context, filter repository.LicenseFilter) (*LicenseListResult, error) {
	if err := validateLicenseFilter(filter); err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	licenses, total, err := s.licenseRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &LicenseListResult{Licenses: licenses, Total: total}, nil
}

func (s *licenseService) GetLicenseByID(ctx context.Context, id string) (*model.License, error) {
	license, err := s.licenseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrLicenseNotFound)
	}
	return license, nil
}

func validateLicenseFilter(filter repository.LicenseFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return validationError("invalid license status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return validationError("invalid license type %q", filter.Type)
	}
	return nil
}

// validateLicense checks enum values, date ordering and quota limits.
func validateLicense(license *model.License) error {
	if !license.Type.Valid() {
		return validationError("invalid license type %q", license.Type)
	}
	if !license.Status.Valid() {
		return validationError("invalid license status %q", license.Status)
	}
	if !license.ExpiryDate.After(license.StartDate) {
		return ErrInvalidDateRange
	}
	for _, quota := range quotaKinds {
		if _, max := license.Usage(quota); max < 1 {
			return validationError("max_%s must be at least 1", quota)
		}
	}
	return nil
}

// checkQuotas enforces current <= max for every quota pair.
func checkQuotas(license *model.License) error {
	for _, quota := range quotaKinds {
		if current, max := license.Usage(quota); current > max {
			return &QuotaViolationError{Quota: quota, Current: current, Max: max}
		}
	}
	return nil
}

func (s *licenseService) resolveInstitution(ctx context.Context, repo repository.InstitutionRepository, id string) (*model.Institution, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("institution_id is required")
	}
	institution, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: institution %q does not exist", ErrValidation, id))
	}
	return institution, nil
}

func (s *licenseService) CreateLicense(ctx context.Context, input CreateLicenseInput) (license *model.License, err error) {
	defer func() { metrics.ObserveLicenseOperation("create", err) }()

	license = &model.License{
		InstitutionID: input.InstitutionID,
		Type:          input.Type,
		Status:        input.Status,
		StartDate:     input.StartDate,
		ExpiryDate:    input.ExpiryDate,
		MaxUsers:      input.MaxUsers,
		MaxPhotos:     input.MaxPhotos,
		MaxReports:    input.MaxReports,
	}
	if err := validateLicense(license); err != nil {
		logger.Warn("License creation rejected", map[string]interface{}{
			"institution_id": input.InstitutionID,
			"error":          err.Error(),
		})
		return nil, err
	}

	institution, err := s.resolveInstitution(ctx, s.institutionRepo, input.InstitutionID)
	if err != nil {
		return nil, err
	}
	license.InstitutionName = institution.Name

	now := timeNow()
	seq, err := s.sequences.Next(ctx, sequenceLicense, now.Year())
	if err != nil {
		logger.Error("Failed to allocate license sequence", err)
		return nil, err
	}
	license.ID = formatSequenceID("LIC", now.Year(), seq)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.licenseRepo.WithTx(tx).Create(ctx, license); err != nil {
			return err
		}
		return mirrorLicense(ctx, s.institutionRepo.WithTx(tx), license, now)
	})
	if err != nil {
		logger.Error("Failed to create license", err, map[string]interface{}{
			"license_id":     license.ID,
			"institution_id": license.InstitutionID,
		})
		return nil, err
	}

	logger.Info("License created", map[string]interface{}{
		"license_id":     license.ID,
		"institution_id": license.InstitutionID,
		"type":           license.Type,
		"status":         license.Status,
		"expiry_date":    license.ExpiryDate,
	})
	s.publish(model.EventLicenseCreated, license)
	return license, nil
}

func (s *licenseService) UpdateLicense(ctx context.Context, id string, input UpdateLicenseInput) (license *model.License, err error) {
	defer func() { metrics.ObserveLicenseOperation("update", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		licenseRepo := s.licenseRepo.WithTx(tx)
		institutionRepo := s.institutionRepo.WithTx(tx)

		current, err := licenseRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, ErrLicenseNotFound)
		}
		before := *current

		applyLicenseUpdate(current, input)
		if err := validateLicense(current); err != nil {
			return err
		}
		if err := checkQuotas(current); err != nil {
			return err
		}

		institutionChanged := current.InstitutionID != before.InstitutionID
		if institutionChanged {
			institution, err := s.resolveInstitution(ctx, institutionRepo, current.InstitutionID)
			if err != nil {
				return err
			}
			current.InstitutionName = institution.Name
		}

		now := timeNow()
		current.UpdatedAt = now
		if err := licenseRepo.Update(ctx, current); err != nil {
			return err
		}

		if institutionChanged || current.Type != before.Type || !current.ExpiryDate.Equal(before.ExpiryDate) {
			if err := mirrorLicense(ctx, institutionRepo, current, now); err != nil {
				return err
			}
		}

		license = current
		return nil
	})
	if err != nil {
		logger.Warn("License update failed", map[string]interface{}{
			"license_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("License updated", map[string]interface{}{
		"license_id": license.ID,
		"status":     license.Status,
		"type":       license.Type,
	})
	s.publish(model.EventLicenseUpdated, license)
	return license, nil
}

func applyLicenseUpdate(license *model.License, input UpdateLicenseInput) {
	if input.InstitutionID != nil {
		license.InstitutionID = *input.InstitutionID
	}
	if input.Type != nil {
		license.Type = *input.Type
	}
	if input.Status != nil {
		license.Status = *input.Status
	}
	if input.StartDate != nil {
		license.StartDate = *input.StartDate
	}
	if input.ExpiryDate != nil {
		license.ExpiryDate = *input.ExpiryDate
	}
	if input.MaxUsers != nil {
		license.MaxUsers = *input.MaxUsers
	}
	if input.MaxPhotos != nil {
		license.MaxPhotos = *input.MaxPhotos
	}
	if input.MaxReports != nil {
		license.MaxReports = *input.MaxReports
	}
}

// UpdateLicenseStatus allows any status to be reached from any other status.
func (s *licenseService) UpdateLicenseStatus(ctx context.Context, id string, status model.LicenseStatus) (*model.License, error) {
	if !status.Valid() {
		return nil, validationError("invalid license status %q", status)
	}
	return s.UpdateLicense(ctx, id, UpdateLicenseInput{Status: &status})
}

// ConsumeQuota adjusts the current usage of one quota by delta. Negative deltas release usage.
func (s *licenseService) ConsumeQuota(ctx context.Context, id string, quota model.QuotaKind, delta int) (license *model.License, err error) {
	defer func() { metrics.ObserveLicenseOperation("consume_quota", err) }()

	if !quota.Valid() {
		return nil, validationError("invalid quota %q", quota)
	}
	if delta == 0 {
		return nil, validationError("delta must not be zero")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		licenseRepo := s.licenseRepo.WithTx(tx)

		current, err := licenseRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, ErrLicenseNotFound)
		}

		used, max := current.Usage(quota)
		next := used + delta
		if next < 0 {
			return validationError("%s usage cannot drop below zero", quota)
		}
		if next > max {
			return &QuotaViolationError{Quota: quota, Current: next, Max: max}
		}

		current.SetCurrent(quota, next)
		current.UpdatedAt = timeNow()
		if err := licenseRepo.Update(ctx, current); err != nil {
			return err
		}
		license = current
		return nil
	})
	if err != nil {
		logger.Warn("License quota consumption rejected", map[string]interface{}{
			"license_id": id,
			"quota":      quota,
			"delta":      delta,
			"error":      err.Error(),
		})
		return nil, err
	}

	used, max := license.Usage(quota)
	logger.Debug("License quota consumed", map[string]interface{}{
		"license_id": license.ID,
		"quota":      quota,
		"current":    used,
		"max":        max,
	})
	s.publish(model.EventLicenseQuotaConsumed, license)
	return license, nil
}

// DeleteLicense removes the license outright. Payments keep their license_id.
func (s *licenseService) DeleteLicense(ctx context.Context, id string) (err error) {
	defer func() { metrics.ObserveLicenseOperation("delete", err) }()

	license, err := s.licenseRepo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, ErrLicenseNotFound)
	}
	if err := s.licenseRepo.Delete(ctx, id); err != nil {
		return notFoundOr(err, ErrLicenseNotFound)
	}

	logger.Info("License deleted", map[string]interface{}{
		"license_id":     id,
		"institution_id": license.InstitutionID,
		"payment_id":     license.PaymentID,
	})
	s.publish(model.EventLicenseDeleted, license)
	return nil
}

// GetExpiringLicenses lists active licenses whose expiry falls within the window from now.
func (s *licenseService) GetExpiringLicenses(ctx context.Context, within time.Duration) ([]model.License, error) {
	now := timeNow()
	return s.licenseRepo.FindExpiringBetween(ctx, now, now.Add(within))
}

func (s *licenseService) publish(eventType model.BillingEventType, license *model.License) {
	s.publisher.Publish(model.BillingEvent{
		Type:          eventType,
		EntityID:      license.ID,
		InstitutionID: license.InstitutionID,
		Status:        string(license.Status),
		OccurredAt:    timeNow(),
	})
}
