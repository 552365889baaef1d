package routes

import (
	"net/http"
	"time"

	"loyalty-backend/config"
	"loyalty-backend/controllers"
	"loyalty-backend/models"
	"loyalty-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Controllers groups every handler the router mounts.
type Controllers struct {
	Auth       *controllers.AuthController
	Coupon     *controllers.CouponController
	Redemption *controllers.RedemptionController
	POS        *controllers.POSController
	ShopAdmin  *controllers.ShopAdminController
	Admin      *controllers.AdminController
	Report     *controllers.ReportController
}

func SetupRouter(cfg *config.Config, logger *zap.Logger, ctrl Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{config.DefaultCORSOrigin}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "loyalty-backend"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := utils.AuthMiddleware(cfg.JWTSecret)
	customer := utils.RequireRole(string(models.RoleCustomer))
	shopAdmin := utils.RequireRole(string(models.RoleShopAdmin))
	platformAdmin := utils.RequireRole(string(models.RolePlatformAdmin))

	auth := r.Group("/auth")
	{
		auth.POST("/register", ctrl.Auth.Register)
		auth.POST("/login", ctrl.Auth.Login)
		auth.GET("/me", authRequired, ctrl.Auth.Me)
	}

	coupons := r.Group("/coupons", authRequired, customer)
	{
		coupons.POST("/:couponId/activate", ctrl.Redemption.ActivateCoupon)
		coupons.POST("/redemptions/:redemptionId/cancel", ctrl.Redemption.CancelRedemption)
	}
	r.GET("/shops/:shopId/balance", authRequired, customer, ctrl.Redemption.GetBalance)

	// POS callers authenticate with x-api-key, checked by the gateway
	pos := r.Group("/pos")
	{
		pos.POST("/coupons/validate", ctrl.POS.ValidateCoupon)
	}

	shop := r.Group("/shop-admin", authRequired, shopAdmin)
	{
		shop.POST("/coupons", ctrl.Coupon.CreateCoupon)
		shop.GET("/coupons", ctrl.Coupon.GetCoupons)
		shop.GET("/coupons/:couponId", ctrl.Coupon.GetCoupon)
		shop.PUT("/coupons/:couponId", ctrl.Coupon.UpdateCoupon)
		shop.DELETE("/coupons/:couponId", ctrl.Coupon.DeleteCoupon)

		shop.GET("/redemptions", ctrl.ShopAdmin.GetRedemptions)
		shop.POST("/loyalty/credit", ctrl.ShopAdmin.CreditPoints)
		shop.GET("/reports/analytics", ctrl.Report.GetReportAnalytics)
	}

	admin := r.Group("/admin", authRequired, platformAdmin)
	{
		admin.POST("/shops", ctrl.Admin.CreateShop)
		admin.POST("/shops/:shopId/admins", ctrl.Admin.CreateShopAdmin)
		admin.POST("/pos-providers", ctrl.Admin.CreatePOSProvider)
		admin.POST("/testing/customers", ctrl.Admin.CreateTestCustomer)
	}

	return r
}
