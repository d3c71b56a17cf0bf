package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	exportDateFormat = "2006-01-02"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	licenseExportHeader = []interface{}{
		"license_id", "institution_id", "institution_name", "type", "status",
		"start_date", "expiry_date",
		"max_users", "current_users", "max_photos", "current_photos", "max_reports", "current_reports",
		"payment_id",
	}
	paymentExportHeader = []interface{}{
		"payment_id", "order_id", "institution_id", "institution_name", "license_id",
		"amount", "method", "status", "payment_date", "refund_amount", "refund_reason", "description",
	}
)

// ExportService renders filtered listings as XLSX workbooks.
type ExportService interface {
	ExportLicenses(ctx context.Context, filter repository.LicenseFilter) ([]byte, error)
	ExportPayments(ctx context.Context, filter repository.PaymentFilter) ([]byte, error)
	// BuildDailyPaymentReport exports every payment whose payment_date falls on day.
	BuildDailyPaymentReport(ctx context.Context, day time.Time) ([]byte, int, error)
}

type exportService struct {
	licenseRepo repository.LicenseRepository
	paymentRepo repository.PaymentRepository
}

func NewExportService(licenseRepo repository.LicenseRepository, paymentRepo repository.PaymentRepository) ExportService {
	return &exportService{
		licenseRepo: licenseRepo,
		paymentRepo: paymentRepo,
	}
}

func (s *exportService) ExportLicenses(ctx context.Context, filter repository.LicenseFilter) ([]byte, error) {
	if err := validateLicenseFilter(filter); err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = 0, 0
	licenses, _, err := s.licenseRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(licenses))
	for _, l := range licenses {
		rows = append(rows, []interface{}{
			l.ID, l.InstitutionID, l.InstitutionName, string(l.Type), string(l.Status),
			l.StartDate.Format(exportDateFormat), l.ExpiryDate.Format(exportDateFormat),
			l.MaxUsers, l.CurrentUsers, l.MaxPhotos, l.CurrentPhotos, l.MaxReports, l.CurrentReports,
			stringOrEmpty(l.PaymentID),
		})
	}

	data, err := writeWorkbook("licenses", licenseExportHeader, rows)
	if err != nil {
		logger.Error("Failed to export licenses", err)
		return nil, err
	}

	logger.Info("Licenses exported", map[string]interface{}{
		"rows": len(rows),
	})
	return data, nil
}

func (s *exportService) ExportPayments(ctx context.Context, filter repository.PaymentFilter) ([]byte, error) {
	if err := validatePaymentFilter(filter); err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = 0, 0
	payments, _, err := s.paymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data, err := writeWorkbook("payments", paymentExportHeader, paymentRows(payments))
	if err != nil {
		logger.Error("Failed to export payments", err)
		return nil, err
	}

	logger.Info("Payments exported", map[string]interface{}{
		"rows": len(payments),
	})
	return data, nil
}

func (s *exportService) BuildDailyPaymentReport(ctx context.Context, day time.Time) ([]byte, int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	payments, _, err := s.paymentRepo.List(ctx, repository.PaymentFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, 0, err
	}

	data, err := writeWorkbook(start.Format(exportDateFormat), paymentExportHeader, paymentRows(payments))
	if err != nil {
		return nil, 0, err
	}
	return data, len(payments), nil
}

func paymentRows(payments []model.Payment) [][]interface{} {
	rows := make([][]interface{}, 0, len(payments))
	for _, p := range payments {
		paymentDate := ""
		if p.PaymentDate != nil {
			paymentDate = p.PaymentDate.Format(time.RFC3339)
		}
		var refundAmount interface{} = ""
		if p.RefundAmount != nil {
			refundAmount = *p.RefundAmount
		}
		rows = append(rows, []interface{}{
			p.ID, p.OrderID, p.InstitutionID, p.InstitutionName, stringOrEmpty(p.LicenseID),
			p.Amount, string(p.Method), string(p.Status), paymentDate, refundAmount, p.RefundReason, p.Description,
		})
	}
	return rows
}

// writeWorkbook writes a single-sheet workbook with a header row at A1.
func writeWorkbook(sheetName string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &rows[i]); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
