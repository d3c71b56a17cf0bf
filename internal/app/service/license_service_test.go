package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BillingEvent
}

func (p *recordingPublisher) Publish(event model.BillingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []model.BillingEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.BillingEventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func freezeTime(t *testing.T, at time.Time) {
	original := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = original })
}

func setupLicenseServiceTest(t *testing.T) (LicenseService, *gorm.DB, *recordingPublisher) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	require.NoError(t, db.SeedInstitutions(testDB))

	publisher := &recordingPublisher{}
	licenseService := NewLicenseService(
		repository.NewLicenseRepository(testDB),
		repository.NewInstitutionRepository(testDB),
		repository.NewSequenceRepository(testDB),
		testDB,
		publisher,
	)
	return licenseService, testDB, publisher
}

func validLicenseInput(institutionID string) CreateLicenseInput {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return CreateLicenseInput{
		InstitutionID: institutionID,
		Type:          model.LicenseTypeStandard,
		Status:        model.LicenseStatusActive,
		StartDate:     start,
		ExpiryDate:    start.AddDate(1, 0, 0),
		MaxUsers:      10,
		MaxPhotos:     1000,
		MaxReports:    100,
	}
}

func intPtr(v int) *int { return &v }

func TestLicenseService_CreateLicense_Success(t *testing.T) {
	licenseService, testDB, publisher := setupLicenseServiceTest(t)
	freezeTime(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	license, err := licenseService.CreateLicense(context.Background(), validLicenseInput("1"))
	require.NoError(t, err)
	assert.Equal(t, "LIC-2025-001", license.ID)
	assert.Equal(t, "서울밝은피부과의원", license.InstitutionName)
	assert.Zero(t, license.CurrentUsers)
	assert.Zero(t, license.CurrentPhotos)
	assert.Zero(t, license.CurrentReports)
	assert.Nil(t, license.PaymentID)

	var institution model.Institution
	require.NoError(t, testDB.First(&institution, "id = ?", "1").Error)
	assert.Equal(t, model.LicenseTypeStandard, institution.LicenseType)
	require.NotNil(t, institution.LicenseExpiry)
	assert.True(t, institution.LicenseExpiry.Equal(license.ExpiryDate))

	assert.Equal(t, []model.BillingEventType{model.EventLicenseCreated}, publisher.Types())
}

func TestLicenseService_CreateLicense_SequenceIncrements(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)
	freezeTime(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	for i := 1; i <= 3; i++ {
		license, err := licenseService.CreateLicense(context.Background(), validLicenseInput("2"))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("LIC-2025-%03d", i), license.ID)
	}
}

func TestLicenseService_CreateLicense_ValidationErrors(t *testing.T) {
	licenseService, testDB, publisher := setupLicenseServiceTest(t)

	tests := []struct {
		name   string
		mutate func(*CreateLicenseInput)
	}{
		{"expiry equals start", func(in *CreateLicenseInput) { in.ExpiryDate = in.StartDate }},
		{"expiry before start", func(in *CreateLicenseInput) { in.ExpiryDate = in.StartDate.AddDate(0, 0, -1) }},
		{"zero max users", func(in *CreateLicenseInput) { in.MaxUsers = 0 }},
		{"zero max photos", func(in *CreateLicenseInput) { in.MaxPhotos = 0 }},
		{"negative max reports", func(in *CreateLicenseInput) { in.MaxReports = -1 }},
		{"unknown type", func(in *CreateLicenseInput) { in.Type = "enterprise" }},
		{"none type", func(in *CreateLicenseInput) { in.Type = model.LicenseTypeNone }},
		{"unknown status", func(in *CreateLicenseInput) { in.Status = "suspended" }},
		{"missing institution", func(in *CreateLicenseInput) { in.InstitutionID = "" }},
		{"unknown institution", func(in *CreateLicenseInput) { in.InstitutionID = "999" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validLicenseInput("1")
			tt.mutate(&input)

			license, err := licenseService.CreateLicense(context.Background(), input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, license)
		})
	}

	var count int64
	testDB.Model(&model.License{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, publisher.Types())

	var institution model.Institution
	require.NoError(t, testDB.First(&institution, "id = ?", "1").Error)
	assert.Equal(t, model.LicenseTypeNone, institution.LicenseType)
	assert.Nil(t, institution.LicenseExpiry)
}

func TestLicenseService_GetLicenseByID_NotFound(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)

	license, err := licenseService.GetLicenseByID(context.Background(), "LIC-2025-999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrLicenseNotFound)
	assert.Nil(t, license)
}

func TestLicenseService_GetLicenses_FiltersAndPagination(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
		require.NoError(t, err)
	}
	premium := validLicenseInput("2")
	premium.Type = model.LicenseTypePremium
	premium.Status = model.LicenseStatusPending
	_, err := licenseService.CreateLicense(ctx, premium)
	require.NoError(t, err)

	result, err := licenseService.GetLicenses(ctx, repository.LicenseFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Total)
	assert.Len(t, result.Licenses, 2)

	result, err = licenseService.GetLicenses(ctx, repository.LicenseFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Total)
	assert.Len(t, result.Licenses, 2)

	result, err = licenseService.GetLicenses(ctx, repository.LicenseFilter{Search: "해운대"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, "2", result.Licenses[0].InstitutionID)

	result, err = licenseService.GetLicenses(ctx, repository.LicenseFilter{Type: model.LicenseTypeStandard, Status: model.LicenseStatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)

	result, err = licenseService.GetLicenses(ctx, repository.LicenseFilter{InstitutionID: "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	_, err = licenseService.GetLicenses(ctx, repository.LicenseFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLicenseService_GetLicenses_SearchByIDIsCaseInsensitive(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)
	freezeTime(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := licenseService.CreateLicense(context.Background(), validLicenseInput("1"))
	require.NoError(t, err)

	result, err := licenseService.GetLicenses(context.Background(), repository.LicenseFilter{Search: "lic-2025-001"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}

func TestLicenseService_UpdateLicense_QuotaViolation(t *testing.T) {
	licenseService, testDB, _ := setupLicenseServiceTest(t)
	ctx := context.Background()

	input := validLicenseInput("1")
	input.MaxUsers = 10
	license, err := licenseService.CreateLicense(ctx, input)
	require.NoError(t, err)

	_, err = licenseService.ConsumeQuota(ctx, license.ID, model.QuotaUsers, 8)
	require.NoError(t, err)

	updated, err := licenseService.UpdateLicense(ctx, license.ID, UpdateLicenseInput{MaxUsers: intPtr(5)})
	assert.ErrorIs(t, err, ErrQuotaViolation)
	assert.Nil(t, updated)

	var violation *QuotaViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, model.QuotaUsers, violation.Quota)
	assert.Equal(t, 8, violation.Current)
	assert.Equal(t, 5, violation.Max)

	var stored model.License
	require.NoError(t, testDB.First(&stored, "id = ?", license.ID).Error)
	assert.Equal(t, 10, stored.MaxUsers)
	assert.Equal(t, 8, stored.CurrentUsers)
}

func TestLicenseService_UpdateLicense_DateOrderingOnMergedRecord(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)
	ctx := context.Background()

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)

	newStart := license.ExpiryDate.AddDate(0, 0, 1)
	_, err = licenseService.UpdateLicense(ctx, license.ID, UpdateLicenseInput{StartDate: &newStart})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestLicenseService_UpdateLicense_RemirrorsOnTypeAndExpiry(t *testing.T) {
	licenseService, testDB, publisher := setupLicenseServiceTest(t)
	ctx := context.Background()

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)

	premium := model.LicenseTypePremium
	expiry := license.ExpiryDate.AddDate(1, 0, 0)
	updated, err := licenseService.UpdateLicense(ctx, license.ID, UpdateLicenseInput{Type: &premium, ExpiryDate: &expiry})
	require.NoError(t, err)
	assert.Equal(t, model.LicenseTypePremium, updated.Type)

	var institution model.Institution
	require.NoError(t, testDB.First(&institution, "id = ?", "1").Error)
	assert.Equal(t, model.LicenseTypePremium, institution.LicenseType)
	require.NotNil(t, institution.LicenseExpiry)
	assert.True(t, institution.LicenseExpiry.Equal(expiry))

	assert.Equal(t, []model.BillingEventType{model.EventLicenseCreated, model.EventLicenseUpdated}, publisher.Types())
}

func TestLicenseService_UpdateLicense_InstitutionChange(t *testing.T) {
	licenseService, testDB, _ := setupLicenseServiceTest(t)
	ctx := context.Background()

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)

	target := "3"
	updated, err := licenseService.UpdateLicense(ctx, license.ID, UpdateLicenseInput{InstitutionID: &target})
	require.NoError(t, err)
	assert.Equal(t, "3", updated.InstitutionID)
	assert.Equal(t, "대전한빛검진센터", updated.InstitutionName)

	var institution model.Institution
	require.NoError(t, testDB.First(&institution, "id = ?", "3").Error)
	assert.Equal(t, model.LicenseTypeStandard, institution.LicenseType)

	missing := "999"
	_, err = licenseService.UpdateLicense(ctx, license.ID, UpdateLicenseInput{InstitutionID: &missing})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLicenseService_UpdateLicense_NotFound(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)

	_, err := licenseService.UpdateLicense(context.Background(), "LIC-2025-404", UpdateLicenseInput{MaxUsers: intPtr(3)})
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestLicenseService_UpdateLicenseStatus_Permissive(t *testing.T) {
	licenseService, testDB, _ := setupLicenseServiceTest(t)
	ctx := context.Background()

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)

	for _, status := range []model.LicenseStatus{
		model.LicenseStatusCanceled,
		model.LicenseStatusActive,
		model.LicenseStatusExpired,
		model.LicenseStatusPending,
	} {
		updated, err := licenseService.UpdateLicenseStatus(ctx, license.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	_, err = licenseService.UpdateLicenseStatus(ctx, license.ID, "archived")
	assert.ErrorIs(t, err, ErrValidation)

	var stored model.License
	require.NoError(t, testDB.First(&stored, "id = ?", license.ID).Error)
	assert.Equal(t, model.LicenseStatusPending, stored.Status)
}

func TestLicenseService_ConsumeQuota(t *testing.T) {
	licenseService, _, publisher := setupLicenseServiceTest(t)
	ctx := context.Background()

	input := validLicenseInput("1")
	input.MaxReports = 3
	license, err := licenseService.CreateLicense(ctx, input)
	require.NoError(t, err)

	updated, err := licenseService.ConsumeQuota(ctx, license.ID, model.QuotaReports, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.CurrentReports)

	_, err = licenseService.ConsumeQuota(ctx, license.ID, model.QuotaReports, 1)
	assert.ErrorIs(t, err, ErrQuotaViolation)

	updated, err = licenseService.ConsumeQuota(ctx, license.ID, model.QuotaReports, -2)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentReports)

	_, err = licenseService.ConsumeQuota(ctx, license.ID, model.QuotaReports, -5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = licenseService.ConsumeQuota(ctx, license.ID, "storage", 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = licenseService.ConsumeQuota(ctx, license.ID, model.QuotaReports, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = licenseService.ConsumeQuota(ctx, "LIC-2025-404", model.QuotaReports, 1)
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	assert.Equal(t, []model.BillingEventType{
		model.EventLicenseCreated,
		model.EventLicenseQuotaConsumed,
		model.EventLicenseQuotaConsumed,
	}, publisher.Types())
}

func TestLicenseService_DeleteLicense(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)
	ctx := context.Background()

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)

	require.NoError(t, licenseService.DeleteLicense(ctx, license.ID))

	_, err = licenseService.GetLicenseByID(ctx, license.ID)
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	err = licenseService.DeleteLicense(ctx, license.ID)
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestLicenseService_GetExpiringLicenses(t *testing.T) {
	licenseService, _, _ := setupLicenseServiceTest(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	soon := validLicenseInput("1")
	soon.StartDate = now.AddDate(-1, 0, 0)
	soon.ExpiryDate = now.AddDate(0, 0, 10)
	expiring, err := licenseService.CreateLicense(ctx, soon)
	require.NoError(t, err)

	later := validLicenseInput("2")
	later.StartDate = now.AddDate(-1, 0, 0)
	later.ExpiryDate = now.AddDate(0, 3, 0)
	_, err = licenseService.CreateLicense(ctx, later)
	require.NoError(t, err)

	canceled := validLicenseInput("3")
	canceled.Status = model.LicenseStatusCanceled
	canceled.StartDate = now.AddDate(-1, 0, 0)
	canceled.ExpiryDate = now.AddDate(0, 0, 5)
	_, err = licenseService.CreateLicense(ctx, canceled)
	require.NoError(t, err)

	licenses, err := licenseService.GetExpiringLicenses(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, expiring.ID, licenses[0].ID)
	assert.Equal(t, model.LicenseStatusActive, licenses[0].Status)
}
