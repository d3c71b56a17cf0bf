package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/internal/app/controller"
	"github.com/ikkim/medilens-admin/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	institutionController *controller.InstitutionController
	licenseController     *controller.LicenseController
	paymentController     *controller.PaymentController
	reportController      *controller.ReportController
	websocketController   *controller.WebSocketController
	config                *config.Config
}

func NewRouter(
	institutionController *controller.InstitutionController,
	licenseController *controller.LicenseController,
	paymentController *controller.PaymentController,
	reportController *controller.ReportController,
	websocketController *controller.WebSocketController,
	cfg *config.Config,
) *Router {
	return &Router{
		institutionController: institutionController,
		licenseController:     licenseController,
		paymentController:     paymentController,
		reportController:      reportController,
		websocketController:   websocketController,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "MediLens admin API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 대시보드 실시간 이벤트
	router.GET("/ws/billing", r.websocketController.BillingEvents)

	admin := router.Group("/api/v1/admin")
	{
		institutions := admin.Group("/institutions")
		{
			institutions.GET("", r.institutionController.ListInstitutions)
			institutions.GET("/:id", r.institutionController.GetInstitution)
		}

		licenses := admin.Group("/licenses")
		{
			licenses.GET("", r.licenseController.ListLicenses)
			licenses.GET("/export", r.licenseController.ExportLicenses)
			licenses.GET("/:id", r.licenseController.GetLicense)
			licenses.POST("", r.licenseController.CreateLicense)
			licenses.PUT("/:id", r.licenseController.UpdateLicense)
			licenses.PATCH("/:id/status", r.licenseController.UpdateLicenseStatus)
			licenses.POST("/:id/usage", r.licenseController.ConsumeQuota)
			licenses.DELETE("/:id", r.licenseController.DeleteLicense)
		}

		payments := admin.Group("/payments")
		{
			payments.GET("", r.paymentController.ListPayments)
			payments.GET("/export", r.paymentController.ExportPayments)
			payments.GET("/:id", r.paymentController.GetPayment)
			payments.POST("", r.paymentController.CreatePayment)
			payments.PATCH("/:id/status", r.paymentController.UpdatePaymentStatus)
			payments.POST("/:id/refund", r.paymentController.RefundPayment)
			payments.DELETE("/:id", r.paymentController.DeletePayment)
		}

		reports := admin.Group("/reports")
		{
			reports.GET("/payments/:date", r.reportController.GetPaymentReport)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
