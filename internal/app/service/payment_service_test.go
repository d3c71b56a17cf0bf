package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testReceiptBaseURL = "https://admin.medilens.test/receipts"

func setupPaymentServiceTest(t *testing.T) (PaymentService, LicenseService, *gorm.DB, *recordingPublisher) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	require.NoError(t, db.SeedInstitutions(testDB))

	licenseRepo := repository.NewLicenseRepository(testDB)
	institutionRepo := repository.NewInstitutionRepository(testDB)
	sequences := repository.NewSequenceRepository(testDB)
	publisher := &recordingPublisher{}

	licenseService := NewLicenseService(licenseRepo, institutionRepo, sequences, testDB, nil)
	paymentService := NewPaymentService(
		repository.NewPaymentRepository(testDB),
		licenseRepo,
		institutionRepo,
		sequences,
		&config.BillingConfig{ReceiptBaseURL: testReceiptBaseURL + "/"},
		testDB,
		publisher,
	)
	return paymentService, licenseService, testDB, publisher
}

func strPtr(v string) *string { return &v }

func createPaidPayment(t *testing.T, paymentService PaymentService, amount int64) *model.Payment {
	payment, err := paymentService.CreatePayment(context.Background(), CreatePaymentInput{
		InstitutionID: "1",
		Amount:        amount,
		Method:        model.PaymentMethodCard,
		Description:   "스탠다드 연간 라이선스",
		Status:        model.PaymentStatusPaid,
	})
	require.NoError(t, err)
	return payment
}

func TestPaymentService_CreatePayment_ReadyWithLicense(t *testing.T) {
	paymentService, licenseService, testDB, publisher := setupPaymentServiceTest(t)
	ctx := context.Background()
	freezeTime(t, time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC))

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)

	payment, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "1",
		LicenseID:     &license.ID,
		Amount:        500000,
		Method:        model.PaymentMethodBank,
		Description:   "스탠다드 라이선스",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-2025-001", payment.ID)
	assert.Equal(t, "ORD-2025-001", payment.OrderID)
	assert.Equal(t, model.PaymentStatusReady, payment.Status)
	assert.Equal(t, "서울밝은피부과의원", payment.InstitutionName)
	assert.Nil(t, payment.PaymentDate)
	assert.Nil(t, payment.ReceiptURL)

	var stored model.License
	require.NoError(t, testDB.First(&stored, "id = ?", license.ID).Error)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, payment.ID, *stored.PaymentID)

	assert.Equal(t, []model.BillingEventType{model.EventPaymentCreated}, publisher.Types())
}

func TestPaymentService_CreatePayment_SharedSequence(t *testing.T) {
	paymentService, _, _, _ := setupPaymentServiceTest(t)
	freezeTime(t, time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC))

	first := createPaidPayment(t, paymentService, 1000)
	second := createPaidPayment(t, paymentService, 2000)

	assert.Equal(t, "PAY-2025-001", first.ID)
	assert.Equal(t, "ORD-2025-001", first.OrderID)
	assert.Equal(t, "PAY-2025-002", second.ID)
	assert.Equal(t, "ORD-2025-002", second.OrderID)
}

func TestPaymentService_CreatePayment_PaidStampsDateAndReceipt(t *testing.T) {
	paymentService, _, _, _ := setupPaymentServiceTest(t)
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	payment := createPaidPayment(t, paymentService, 300000)
	require.NotNil(t, payment.PaymentDate)
	assert.True(t, payment.PaymentDate.Equal(now))
	require.NotNil(t, payment.ReceiptURL)
	assert.Equal(t, testReceiptBaseURL+"/ORD-2025-001", *payment.ReceiptURL)
}

func TestPaymentService_CreatePayment_ValidationErrors(t *testing.T) {
	paymentService, _, testDB, publisher := setupPaymentServiceTest(t)

	tests := []struct {
		name  string
		input CreatePaymentInput
	}{
		{"zero amount", CreatePaymentInput{InstitutionID: "1", Amount: 0, Method: model.PaymentMethodCard}},
		{"negative amount", CreatePaymentInput{InstitutionID: "1", Amount: -100, Method: model.PaymentMethodCard}},
		{"unknown method", CreatePaymentInput{InstitutionID: "1", Amount: 100, Method: "crypto"}},
		{"unknown status", CreatePaymentInput{InstitutionID: "1", Amount: 100, Method: model.PaymentMethodCard, Status: "pending"}},
		{"missing institution", CreatePaymentInput{Amount: 100, Method: model.PaymentMethodCard}},
		{"unknown institution", CreatePaymentInput{InstitutionID: "999", Amount: 100, Method: model.PaymentMethodCard}},
		{"unknown license", CreatePaymentInput{InstitutionID: "1", LicenseID: strPtr("LIC-2025-999"), Amount: 100, Method: model.PaymentMethodCard}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment, err := paymentService.CreatePayment(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, payment)
		})
	}

	var count int64
	testDB.Model(&model.Payment{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, publisher.Types())
}

func TestPaymentService_UpdatePaymentStatus(t *testing.T) {
	paymentService, _, _, _ := setupPaymentServiceTest(t)
	ctx := context.Background()
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	payment, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "2",
		Amount:        120000,
		Method:        model.PaymentMethodVBank,
	})
	require.NoError(t, err)

	paid, err := paymentService.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(now))
	require.NotNil(t, paid.ReceiptURL)
	assert.Equal(t, testReceiptBaseURL+"/"+payment.OrderID, *paid.ReceiptURL)

	later := now.Add(time.Hour)
	freezeTime(t, later)

	canceled, err := paymentService.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CancelDate)
	assert.True(t, canceled.CancelDate.Equal(later))
	assert.True(t, canceled.PaymentDate.Equal(now))

	// No transition gating: canceled back to paid keeps the original payment date.
	repaid, err := paymentService.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, repaid.PaymentDate.Equal(now))

	_, err = paymentService.UpdatePaymentStatus(ctx, payment.ID, "settled")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = paymentService.UpdatePaymentStatus(ctx, "PAY-2025-404", model.PaymentStatusFailed)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestPaymentService_ProcessRefund_Partial(t *testing.T) {
	paymentService, _, _, publisher := setupPaymentServiceTest(t)
	ctx := context.Background()

	payment := createPaidPayment(t, paymentService, 500000)

	refunded, err := paymentService.ProcessRefund(ctx, payment.ID, RefundInput{Amount: 200000, Reason: "사용 기간 조정"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartialRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundAmount)
	assert.Equal(t, int64(200000), *refunded.RefundAmount)
	assert.NotNil(t, refunded.RefundDate)
	assert.Equal(t, "사용 기간 조정", refunded.RefundReason)

	// Only paid payments can be refunded, so a second refund is rejected.
	_, err = paymentService.ProcessRefund(ctx, payment.ID, RefundInput{Amount: 100000, Reason: "추가 환불"})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)

	assert.Equal(t, []model.BillingEventType{model.EventPaymentCreated, model.EventPaymentRefunded}, publisher.Types())
}

func TestPaymentService_ProcessRefund_Full(t *testing.T) {
	paymentService, _, _, _ := setupPaymentServiceTest(t)

	payment := createPaidPayment(t, paymentService, 500000)

	refunded, err := paymentService.ProcessRefund(context.Background(), payment.ID, RefundInput{Amount: 500000, Reason: "  계약 해지  "})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, refunded.Status)
	assert.Equal(t, "계약 해지", refunded.RefundReason)
}

func TestPaymentService_ProcessRefund_Rejections(t *testing.T) {
	paymentService, _, testDB, _ := setupPaymentServiceTest(t)
	ctx := context.Background()

	payment := createPaidPayment(t, paymentService, 500000)

	_, err := paymentService.ProcessRefund(ctx, payment.ID, RefundInput{Amount: 500001, Reason: "초과 환불"})
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)

	_, err = paymentService.ProcessRefund(ctx, payment.ID, RefundInput{Amount: 0, Reason: "금액 없음"})
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)

	_, err = paymentService.ProcessRefund(ctx, payment.ID, RefundInput{Amount: 1000, Reason: " 가 "})
	assert.ErrorIs(t, err, ErrRefundReasonTooShort)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = paymentService.ProcessRefund(ctx, "PAY-2025-404", RefundInput{Amount: 1000, Reason: "없는 결제"})
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	var stored model.Payment
	require.NoError(t, testDB.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, model.PaymentStatusPaid, stored.Status)
	assert.Nil(t, stored.RefundAmount)
	assert.Nil(t, stored.RefundDate)

	ready, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "1",
		Amount:        10000,
		Method:        model.PaymentMethodPhone,
	})
	require.NoError(t, err)

	_, err = paymentService.ProcessRefund(ctx, ready.ID, RefundInput{Amount: 10000, Reason: "미결제 환불"})
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
}

func TestPaymentService_GetPayments_Filters(t *testing.T) {
	paymentService, _, _, _ := setupPaymentServiceTest(t)
	ctx := context.Background()

	may1 := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	may20 := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

	_, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "1", Amount: 1000, Method: model.PaymentMethodCard,
		Status: model.PaymentStatusPaid, PaymentDate: &may1,
	})
	require.NoError(t, err)
	_, err = paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "2", Amount: 2000, Method: model.PaymentMethodBank,
		Status: model.PaymentStatusPaid, PaymentDate: &may20,
	})
	require.NoError(t, err)
	ready, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "2", Amount: 3000, Method: model.PaymentMethodBank,
	})
	require.NoError(t, err)

	result, err := paymentService.GetPayments(ctx, repository.PaymentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 10, 23, 59, 59, 0, time.UTC)
	result, err = paymentService.GetPayments(ctx, repository.PaymentFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, "1", result.Payments[0].InstitutionID)

	// A lower bound alone still drops payments that were never paid.
	result, err = paymentService.GetPayments(ctx, repository.PaymentFilter{StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	for _, p := range result.Payments {
		assert.NotEqual(t, ready.ID, p.ID)
	}

	result, err = paymentService.GetPayments(ctx, repository.PaymentFilter{Method: model.PaymentMethodBank, Status: model.PaymentStatusReady})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = paymentService.GetPayments(ctx, repository.PaymentFilter{Search: ready.OrderID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = paymentService.GetPayments(ctx, repository.PaymentFilter{Search: "부산"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	result, err = paymentService.GetPayments(ctx, repository.PaymentFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Len(t, result.Payments, 1)

	_, err = paymentService.GetPayments(ctx, repository.PaymentFilter{StartDate: &end, EndDate: &start})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPaymentService_DeletePayment(t *testing.T) {
	paymentService, _, _, _ := setupPaymentServiceTest(t)
	ctx := context.Background()

	payment := createPaidPayment(t, paymentService, 1000)

	require.NoError(t, paymentService.DeletePayment(ctx, payment.ID))

	_, err := paymentService.GetPaymentByID(ctx, payment.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	err = paymentService.DeletePayment(ctx, payment.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestPaymentService_LicenseDeleteLeavesPaymentLink(t *testing.T) {
	paymentService, licenseService, _, _ := setupPaymentServiceTest(t)
	ctx := context.Background()

	license, err := licenseService.CreateLicense(ctx, validLicenseInput("1"))
	require.NoError(t, err)
	payment, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "1",
		LicenseID:     &license.ID,
		Amount:        1000,
		Method:        model.PaymentMethodCard,
	})
	require.NoError(t, err)

	require.NoError(t, licenseService.DeleteLicense(ctx, license.ID))

	stored, err := paymentService.GetPaymentByID(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LicenseID)
	assert.Equal(t, license.ID, *stored.LicenseID)
}

// Mirrors the end-to-end flow: license creation, payment, then a partial refund.
func TestLicensePaymentLifecycle(t *testing.T) {
	paymentService, licenseService, testDB, _ := setupPaymentServiceTest(t)
	ctx := context.Background()
	freezeTime(t, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))

	license, err := licenseService.CreateLicense(ctx, CreateLicenseInput{
		InstitutionID: "1",
		Type:          model.LicenseTypePremium,
		Status:        model.LicenseStatusActive,
		StartDate:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxUsers:      50,
		MaxPhotos:     10000,
		MaxReports:    1000,
	})
	require.NoError(t, err)

	payment, err := paymentService.CreatePayment(ctx, CreatePaymentInput{
		InstitutionID: "1",
		LicenseID:     &license.ID,
		Amount:        1200000,
		Method:        model.PaymentMethodCard,
		Description:   "프리미엄 연간",
		Status:        model.PaymentStatusPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-2025-001", payment.ID)

	refunded, err := paymentService.ProcessRefund(ctx, payment.ID, RefundInput{Amount: 200000, Reason: "중도 해지"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartialRefunded, refunded.Status)

	var storedLicense model.License
	require.NoError(t, testDB.First(&storedLicense, "id = ?", license.ID).Error)
	require.NotNil(t, storedLicense.PaymentID)
	assert.Equal(t, payment.ID, *storedLicense.PaymentID)

	var institution model.Institution
	require.NoError(t, testDB.First(&institution, "id = ?", "1").Error)
	assert.Equal(t, model.LicenseTypePremium, institution.LicenseType)
	require.NotNil(t, institution.LicenseExpiry)
	assert.True(t, institution.LicenseExpiry.Equal(license.ExpiryDate))
}
