package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/medilens-admin/internal/errors"
	"github.com/ikkim/medilens-admin/internal/middleware"
	"github.com/ikkim/medilens-admin/internal/scheduler"
)

const reportURLTTL = 15 * time.Minute

// ReportSigner issues download URLs for stored reports. Implemented by storage.S3Storage.
type ReportSigner interface {
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ReportController struct {
	signer ReportSigner // S3 미설정 시 nil
}

func NewReportController(signer ReportSigner) *ReportController {
	return &ReportController{signer: signer}
}

// GetPaymentReport GET /api/v1/admin/reports/payments/:date
func (ctrl *ReportController) GetPaymentReport(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.signer == nil {
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalExternalAPI, "리포트 저장소가 설정되지 않았습니다")
		return
	}

	day, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidDate, "날짜 형식은 YYYY-MM-DD 입니다")
		return
	}

	key := scheduler.PaymentReportKey(day)
	url, err := ctrl.signer.PresignDownload(c.Request.Context(), key, reportURLTTL)
	if err != nil {
		log.Error("Failed to presign payment report", err, map[string]interface{}{
			"key": key,
		})
		apperrors.ParseAndRespond(c, err, "report")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":        key,
		"url":        url,
		"expires_at": time.Now().Add(reportURLTTL),
	})
}
