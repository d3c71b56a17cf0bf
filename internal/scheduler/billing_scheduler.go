package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/internal/app/service"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// ReportUploader stores generated report files. Implemented by storage.S3Storage.
type ReportUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// PaymentReportKey 일일 결제 리포트 저장 경로
func PaymentReportKey(day time.Time) string {
	return fmt.Sprintf("reports/payments/%s.xlsx", day.Format("2006-01-02"))
}

// BillingScheduler 결제 리포트 업로드 및 만료 예정 라이선스 점검 스케줄러
type BillingScheduler struct {
	cron           *cron.Cron
	cfg            *config.SchedulerConfig
	exportService  service.ExportService
	licenseService service.LicenseService
	uploader       ReportUploader // nil이면 리포트 업로드 생략
	now            func() time.Time
}

// NewBillingScheduler 스케줄러 생성
func NewBillingScheduler(
	cfg *config.SchedulerConfig,
	exportService service.ExportService,
	licenseService service.LicenseService,
	uploader ReportUploader,
) *BillingScheduler {
	return &BillingScheduler{
		cron:           cron.New(),
		cfg:            cfg,
		exportService:  exportService,
		licenseService: licenseService,
		uploader:       uploader,
		now:            time.Now,
	}
}

// Start 스케줄러 시작
func (s *BillingScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.PaymentReportSpec, s.runJob("payment report", s.RunPaymentReport)); err != nil {
		logger.Error("Failed to add cron job for payment report", err, map[string]interface{}{
			"spec": s.cfg.PaymentReportSpec,
		})
		return err
	}

	if _, err := s.cron.AddFunc(s.cfg.ExpiryCheckSpec, s.runJob("license expiry check", s.RunExpiryCheck)); err != nil {
		logger.Error("Failed to add cron job for license expiry check", err, map[string]interface{}{
			"spec": s.cfg.ExpiryCheckSpec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Billing scheduler started", map[string]interface{}{
		"payment_report_spec": s.cfg.PaymentReportSpec,
		"expiry_check_spec":   s.cfg.ExpiryCheckSpec,
	})
	return nil
}

// Stop 스케줄러 중지 (실행 중인 작업 완료 대기)
func (s *BillingScheduler) Stop() {
	logger.Info("Stopping billing scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Billing scheduler stopped", nil)
}

func (s *BillingScheduler) runJob(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		logger.Info("Starting scheduled job", map[string]interface{}{"job": name})
		if err := job(ctx); err != nil {
			logger.Error("Scheduled job failed", err, map[string]interface{}{"job": name})
			return
		}
		logger.Info("Scheduled job completed", map[string]interface{}{"job": name})
	}
}

// RunPaymentReport builds the previous day's payment report and uploads it.
func (s *BillingScheduler) RunPaymentReport(ctx context.Context) error {
	day := s.now().AddDate(0, 0, -1)

	data, count, err := s.exportService.BuildDailyPaymentReport(ctx, day)
	if err != nil {
		return err
	}

	if s.uploader == nil {
		logger.Info("Report storage not configured, skipping upload", map[string]interface{}{
			"day":      day.Format("2006-01-02"),
			"payments": count,
		})
		return nil
	}

	url, err := s.uploader.Upload(ctx, PaymentReportKey(day), service.XLSXContentType, data)
	if err != nil {
		return err
	}

	logger.Info("Daily payment report uploaded", map[string]interface{}{
		"day":      day.Format("2006-01-02"),
		"payments": count,
		"url":      url,
	})
	return nil
}

// RunExpiryCheck logs active licenses that expire within the configured window.
// License status is left untouched.
func (s *BillingScheduler) RunExpiryCheck(ctx context.Context) error {
	window := time.Duration(s.cfg.ExpiryWindowDays) * 24 * time.Hour

	licenses, err := s.licenseService.GetExpiringLicenses(ctx, window)
	if err != nil {
		return err
	}

	for _, license := range licenses {
		logger.Warn("License expiring soon", map[string]interface{}{
			"license_id":       license.ID,
			"institution_id":   license.InstitutionID,
			"institution_name": license.InstitutionName,
			"expiry_date":      license.ExpiryDate.Format("2006-01-02"),
		})
	}

	logger.Info("License expiry check finished", map[string]interface{}{
		"window_days": s.cfg.ExpiryWindowDays,
		"expiring":    len(licenses),
	})
	return nil
}
