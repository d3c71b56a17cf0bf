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

type LicenseController struct {
	licenseService service.LicenseService
	exportService  service.ExportService
}

func NewLicenseController(licenseService service.LicenseService, exportService service.ExportService) *LicenseController {
	return &LicenseController{
		licenseService: licenseService,
		exportService:  exportService,
	}
}

type CreateLicenseRequest struct {
	InstitutionID string              `json:"institution_id" binding:"required"`
	Type          model.LicenseType   `json:"type" binding:"required"`
	Status        model.LicenseStatus `json:"status" binding:"required"`
	StartDate     string              `json:"start_date" binding:"required"`
	ExpiryDate    string              `json:"expiry_date" binding:"required"`
	MaxUsers      int                 `json:"max_users"`
	MaxPhotos     int                 `json:"max_photos"`
	MaxReports    int                 `json:"max_reports"`
}

// UpdateLicenseRequest 부분 수정 요청 (생략한 필드는 유지)
type UpdateLicenseRequest struct {
	InstitutionID *string              `json:"institution_id"`
	Type          *model.LicenseType   `json:"type"`
	Status        *model.LicenseStatus `json:"status"`
	StartDate     *string              `json:"start_date"`
	ExpiryDate    *string              `json:"expiry_date"`
	MaxUsers      *int                 `json:"max_users"`
	MaxPhotos     *int                 `json:"max_photos"`
	MaxReports    *int                 `json:"max_reports"`
}

type UpdateLicenseStatusRequest struct {
	Status model.LicenseStatus `json:"status" binding:"required"`
}

type ConsumeQuotaRequest struct {
	Quota model.QuotaKind `json:"quota" binding:"required"`
	Delta int             `json:"delta" binding:"required"`
}

func licenseFilterFromQuery(c *gin.Context) (repository.LicenseFilter, error) {
	page, limit, err := parsePagination(c)
	if err != nil {
		return repository.LicenseFilter{}, err
	}
	return repository.LicenseFilter{
		Search:        c.Query("search"),
		Status:        model.LicenseStatus(c.Query("status")),
		Type:          model.LicenseType(c.Query("type")),
		InstitutionID: c.Query("institution_id"),
		Page:          page,
		Limit:         limit,
	}, nil
}

// ListLicenses GET /api/v1/admin/licenses
func (ctrl *LicenseController) ListLicenses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, err := licenseFilterFromQuery(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	result, err := ctrl.licenseService.GetLicenses(c.Request.Context(), filter)
	if err != nil {
		log.Warn("Failed to list licenses", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.ParseAndRespond(c, err, "license")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"licenses": result.Licenses,
		"total":    result.Total,
	})
}

// GetLicense GET /api/v1/admin/licenses/:id
func (ctrl *LicenseController) GetLicense(c *gin.Context) {
	license, err := ctrl.licenseService.GetLicenseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.ParseAndRespond(c, err, "license")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"license": license,
	})
}

// CreateLicense POST /api/v1/admin/licenses
func (ctrl *LicenseController) CreateLicense(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid license request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	startDate, _, err := parseDate(req.StartDate)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidDate, err.Error())
		return
	}
	expiryDate, _, err := parseDate(req.ExpiryDate)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidDate, err.Error())
		return
	}

	license, err := ctrl.licenseService.CreateLicense(c.Request.Context(), service.CreateLicenseInput{
		InstitutionID: req.InstitutionID,
		Type:          req.Type,
		Status:        req.Status,
		StartDate:     startDate,
		ExpiryDate:    expiryDate,
		MaxUsers:      req.MaxUsers,
		MaxPhotos:     req.MaxPhotos,
		MaxReports:    req.MaxReports,
	})
	if err != nil {
		apperrors.ParseAndRespond(c, err, "create license")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "License created successfully",
		"license": license,
	})
}

// UpdateLicense PUT /api/v1/admin/licenses/:id
func (ctrl *LicenseController) UpdateLicense(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid license update request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	input := service.UpdateLicenseInput{
		InstitutionID: req.InstitutionID,
		Type:          req.Type,
		Status:        req.Status,
		MaxUsers:      req.MaxUsers,
		MaxPhotos:     req.MaxPhotos,
		MaxReports:    req.MaxReports,
	}
	if req.StartDate != nil {
		startDate, _, err := parseDate(*req.StartDate)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidDate, err.Error())
			return
		}
		input.StartDate = &startDate
	}
	if req.ExpiryDate != nil {
		expiryDate, _, err := parseDate(*req.ExpiryDate)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidDate, err.Error())
			return
		}
		input.ExpiryDate = &expiryDate
	}

	license, err := ctrl.licenseService.UpdateLicense(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "update license")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "License updated successfully",
		"license": license,
	})
}

// UpdateLicenseStatus PATCH /api/v1/admin/licenses/:id/status
func (ctrl *LicenseController) UpdateLicenseStatus(c *gin.Context) {
	var req UpdateLicenseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status는 필수 항목입니다")
		return
	}

	license, err := ctrl.licenseService.UpdateLicenseStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "update license")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "License status updated successfully",
		"license": license,
	})
}

// ConsumeQuota POST /api/v1/admin/licenses/:id/usage
func (ctrl *LicenseController) ConsumeQuota(c *gin.Context) {
	var req ConsumeQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "quota와 0이 아닌 delta가 필요합니다")
		return
	}

	license, err := ctrl.licenseService.ConsumeQuota(c.Request.Context(), c.Param("id"), req.Quota, req.Delta)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "update license")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"license": license,
	})
}

// DeleteLicense DELETE /api/v1/admin/licenses/:id
func (ctrl *LicenseController) DeleteLicense(c *gin.Context) {
	if err := ctrl.licenseService.DeleteLicense(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.ParseAndRespond(c, err, "delete license")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "License deleted successfully",
	})
}

// ExportLicenses GET /api/v1/admin/licenses/export
func (ctrl *LicenseController) ExportLicenses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, err := licenseFilterFromQuery(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	data, err := ctrl.exportService.ExportLicenses(c.Request.Context(), filter)
	if errors.Is(err, service.ErrValidation) {
		apperrors.ParseAndRespond(c, err, "export licenses")
		return
	}
	if err != nil {
		log.Error("Failed to export licenses", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.LicenseExportFailed, "엑셀 파일 생성 중 오류가 발생했습니다")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename("licenses")+`"`)
	c.Data(http.StatusOK, service.XLSXContentType, data)
}
