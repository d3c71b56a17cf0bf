package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	key string
	ttl time.Duration
	err error
}

func (s *fakeSigner) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.key = key
	s.ttl = ttl
	if s.err != nil {
		return "", s.err
	}
	return "https://reports.example.com/" + key + "?signature=abc", nil
}

func setupReportRouter(signer ReportSigner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/reports/payments/:date", NewReportController(signer).GetPaymentReport)
	return router
}

func TestReportController_GetPaymentReport(t *testing.T) {
	signer := &fakeSigner{}
	router := setupReportRouter(signer)

	w := performJSON(router, http.MethodGet, "/reports/payments/2025-03-14", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decodeBody(t, w)
	assert.Equal(t, "reports/payments/2025-03-14.xlsx", response["key"])
	assert.Contains(t, response["url"], "signature=abc")
	assert.Equal(t, "reports/payments/2025-03-14.xlsx", signer.key)
	assert.Equal(t, reportURLTTL, signer.ttl)
}

func TestReportController_GetPaymentReport_InvalidDate(t *testing.T) {
	router := setupReportRouter(&fakeSigner{})

	w := performJSON(router, http.MethodGet, "/reports/payments/20250314", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_DATE", decodeBody(t, w)["error"])
}

func TestReportController_GetPaymentReport_Unavailable(t *testing.T) {
	router := setupReportRouter(nil)

	w := performJSON(router, http.MethodGet, "/reports/payments/2025-03-14", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReportController_GetPaymentReport_SignerError(t *testing.T) {
	router := setupReportRouter(&fakeSigner{err: errors.New("credentials expired")})

	w := performJSON(router, http.MethodGet, "/reports/payments/2025-03-14", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeBody(t, w)["error"])
}
