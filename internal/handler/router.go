package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/config"
	"marketplace/voucherhub/internal/handler/middleware"
	jwtpkg "marketplace/voucherhub/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	gatherer prometheus.Gatherer,
	voucherHandler *VoucherHandler,
	businessHandler *BusinessHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Public catalogue and scanning; a bearer token personalizes the result
	public := r.Group("/api/v1")
	public.Use(middleware.OptionalAuth(jwtManager))
	{
		public.GET("/vouchers", voucherHandler.List)
		public.GET("/vouchers/resolve", voucherHandler.Resolve)
		public.GET("/vouchers/:id", voucherHandler.Get)
		public.POST("/vouchers/:id/scan", voucherHandler.Scan)
		public.POST("/scan", voucherHandler.ScanCode)
	}

	// Customer routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.POST("/vouchers/:id/claim", voucherHandler.Claim)
		protected.POST("/vouchers/:id/redeem", voucherHandler.Redeem)
		protected.GET("/me/vouchers", voucherHandler.MyVouchers)
	}

	// Business routes (JWT + business claim)
	business := r.Group("/api/v1/business")
	business.Use(middleware.JWTAuth(jwtManager))
	business.Use(middleware.BusinessAuth())
	{
		business.POST("/vouchers", businessHandler.Create)
		business.GET("/vouchers", businessHandler.List)
		business.GET("/vouchers/:id", businessHandler.Get)
		business.PUT("/vouchers/:id", businessHandler.Update)
		business.DELETE("/vouchers/:id", businessHandler.Delete)
		business.POST("/vouchers/:id/publish", businessHandler.Publish)
		business.POST("/vouchers/:id/expire", businessHandler.Expire)
		business.POST("/vouchers/:id/redeem", businessHandler.Redeem)
		business.POST("/vouchers/:id/scan", businessHandler.Scan)
		business.GET("/vouchers/:id/stats", businessHandler.Stats)
	}

	// Admin routes (JWT + admin check)
	if adminHandler != nil {
		admin := r.Group("/api/v1/admin")
		admin.Use(middleware.JWTAuth(jwtManager))
		admin.Use(middleware.AdminAuth(cfg.Admin.UserIDs))
		{
			admin.POST("/vouchers/:id/transition", adminHandler.Transition)
			admin.POST("/vouchers/expire-overdue", adminHandler.ExpireOverdue)
		}
	}

	return r
}
