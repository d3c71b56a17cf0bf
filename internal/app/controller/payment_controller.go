package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/app/service"
	apperrors "github.com/ikkim/medilens-admin/internal/errors"
	"github.com/ikkim/medilens-admin/internal/middleware"
)

type PaymentController struct {
	paymentService service.PaymentService
	exportService  service.ExportService
}

func NewPaymentController(paymentService service.PaymentService, exportService service.ExportService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		exportService:  exportService,
	}
}

type CreatePaymentRequest struct {
	InstitutionID string              `json:"institution_id" binding:"required"`
	LicenseID     *string             `json:"license_id"`
	Amount        int64               `json:"amount"`
	Method        model.PaymentMethod `json:"method" binding:"required"`
	Description   string              `json:"description"`
	Status        model.PaymentStatus `json:"status"`       // 생략 시 ready
	PaymentDate   *string             `json:"payment_date"` // 생략 시 paid 처리 시각
}

type UpdatePaymentStatusRequest struct {
	Status model.PaymentStatus `json:"status" binding:"required"`
}

// RefundRequest 금액/사유 검증은 서비스에서 결제 상태 확인 후 수행
type RefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func paymentFilterFromQuery(c *gin.Context) (repository.PaymentFilter, error) {
	page, limit, err := parsePagination(c)
	if err != nil {
		return repository.PaymentFilter{}, err
	}
	startDate, err := parseOptionalDate(c.Query("start_date"), false)
	if err != nil {
		return repository.PaymentFilter{}, err
	}
	endDate, err := parseOptionalDate(c.Query("end_date"), true)
	if err != nil {
		return repository.PaymentFilter{}, err
	}
	return repository.PaymentFilter{
		Search:        c.Query("search"),
		Status:        model.PaymentStatus(c.Query("status")),
		Method:        model.PaymentMethod(c.Query("method")),
		InstitutionID: c.Query("institution_id"),
		StartDate:     startDate,
		EndDate:       endDate,
		Page:          page,
		Limit:         limit,
	}, nil
}

// ListPayments GET /api/v1/admin/payments
func (ctrl *PaymentController) ListPayments(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	result, err := ctrl.paymentService.GetPayments(c.Request.Context(), filter)
	if err != nil {
		log.Warn("Failed to list payments", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.ParseAndRespond(c, err, "payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": result.Payments,
		"total":    result.Total,
	})
}

// GetPayment GET /api/v1/admin/payments/:id
func (ctrl *PaymentController) GetPayment(c *gin.Context) {
	payment, err := ctrl.paymentService.GetPaymentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.ParseAndRespond(c, err, "payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": payment,
	})
}

// CreatePayment POST /api/v1/admin/payments
func (ctrl *PaymentController) CreatePayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid payment request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	input := service.CreatePaymentInput{
		InstitutionID: req.InstitutionID,
		LicenseID:     req.LicenseID,
		Amount:        req.Amount,
		Method:        req.Method,
		Description:   req.Description,
		Status:        req.Status,
	}
	if req.PaymentDate != nil {
		paymentDate, _, err := parseDate(*req.PaymentDate)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidDate, err.Error())
			return
		}
		input.PaymentDate = &paymentDate
	}

	payment, err := ctrl.paymentService.CreatePayment(c.Request.Context(), input)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "create payment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment created successfully",
		"payment": payment,
	})
}

// UpdatePaymentStatus PATCH /api/v1/admin/payments/:id/status
func (ctrl *PaymentController) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status는 필수 항목입니다")
		return
	}

	payment, err := ctrl.paymentService.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "update payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status updated successfully",
		"payment": payment,
	})
}

// RefundPayment POST /api/v1/admin/payments/:id/refund
func (ctrl *PaymentController) RefundPayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	payment, err := ctrl.paymentService.ProcessRefund(c.Request.Context(), c.Param("id"), service.RefundInput{
		Amount: req.Amount,
		Reason: req.Reason,
	})
	if err != nil {
		log.Warn("Refund rejected", map[string]interface{}{
			"payment_id": c.Param("id"),
			"error":      err.Error(),
		})
		apperrors.ParseAndRespond(c, err, "refund")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Refund processed successfully",
		"payment": payment,
	})
}

// DeletePayment DELETE /api/v1/admin/payments/:id
func (ctrl *PaymentController) DeletePayment(c *gin.Context) {
	if err := ctrl.paymentService.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.ParseAndRespond(c, err, "delete payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment deleted successfully",
	})
}

// ExportPayments GET /api/v1/admin/payments/export
func (ctrl *PaymentController) ExportPayments(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	data, err := ctrl.exportService.ExportPayments(c.Request.Context(), filter)
	if errors.Is(err, service.ErrValidation) {
		apperrors.ParseAndRespond(c, err, "export payments")
		return
	}
	if err != nil {
		log.Error("Failed to export payments", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.PaymentExportFailed, "엑셀 파일 생성 중 오류가 발생했습니다")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename("payments")+`"`)
	c.Data(http.StatusOK, service.XLSXContentType, data)
}
