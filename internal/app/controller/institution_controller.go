package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/medilens-admin/internal/app/service"
	apperrors "github.com/ikkim/medilens-admin/internal/errors"
)

type InstitutionController struct {
	institutionService service.InstitutionService
}

func NewInstitutionController(institutionService service.InstitutionService) *InstitutionController {
	return &InstitutionController{
		institutionService: institutionService,
	}
}

// ListInstitutions GET /api/v1/admin/institutions
func (ctrl *InstitutionController) ListInstitutions(c *gin.Context) {
	institutions, err := ctrl.institutionService.GetInstitutions(c.Request.Context())
	if err != nil {
		apperrors.ParseAndRespond(c, err, "institution")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"institutions": institutions,
		"count":        len(institutions),
	})
}

// GetInstitution GET /api/v1/admin/institutions/:id
func (ctrl *InstitutionController) GetInstitution(c *gin.Context) {
	institution, err := ctrl.institutionService.GetInstitutionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.ParseAndRespond(c, err, "institution")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"institution": institution,
	})
}
