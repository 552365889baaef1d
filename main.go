package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-backend/config"
	"loyalty-backend/controllers"
	"loyalty-backend/repository"
	"loyalty-backend/routes"
	"loyalty-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.AppEnv)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database ---
	db, err := config.ConnectDB(cfg.DBURL)
	if err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}
	if err := config.Migrate(db); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Recently issued codes ---
	var registry repository.CodeRegistry = repository.NewMemoryCodeRegistry()
	if cfg.RedisURL != "" {
		client, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, using in-memory code registry", zap.Error(err))
		} else {
			defer client.Close()
			registry = repository.NewRedisCodeRegistry(client)
		}
	}

	// --- Events ---
	var publisher services.EventPublisher
	if cfg.RedemptionSNSTopicARN != "" {
		snsPublisher, err := services.NewSNSPublisher(ctx, cfg.AWSEndpoint)
		if err != nil {
			logger.Warn("SNS publisher init failed, events disabled", zap.Error(err))
		} else {
			publisher = snsPublisher
		}
	}

	// --- Dependency injection ---
	userRepo := repository.NewGormUserRepository(db)
	shopRepo := repository.NewGormShopRepository(db)
	accountRepo := repository.NewGormLoyaltyAccountRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	redemptionRepo := repository.NewGormRedemptionRepository(db)
	notificationRepo := repository.NewGormNotificationLogRepository(db)
	reportRepo := repository.NewGormReportRepository(db)

	ledgerService := services.NewLedgerService(accountRepo, logger)
	couponService := services.NewCouponService(couponRepo, logger)
	redemptionService := services.NewRedemptionService(redemptionRepo, couponService, ledgerService, services.RedemptionOptions{
		TTL:              cfg.RedemptionTTL,
		RecentCodeWindow: cfg.RecentCodeWindow,
		Registry:         registry,
		Publisher:        publisher,
		TopicArn:         cfg.RedemptionSNSTopicARN,
	}, logger)

	var notifier services.Notifier
	if cfg.TwilioEnabled() {
		notifier = services.NewTwilioNotificationService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, notificationRepo, logger)
	}
	posService := services.NewPOSService(shopRepo, userRepo, redemptionService, notifier, logger)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, logger)
	adminService := services.NewAdminService(shopRepo, userRepo, ledgerService, logger)
	reportService := services.NewReportService(reportRepo, nil, logger)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := adminService.EnsurePlatformAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatal("Failed to bootstrap platform admin", zap.Error(err))
		}
	}

	sweeper := services.NewExpirySweeper(redemptionService, logger)
	if err := sweeper.Start(cfg.ExpirySweepSpec); err != nil {
		logger.Fatal("Expiry sweeper failed to start", zap.Error(err))
	}

	r := routes.SetupRouter(cfg, logger, routes.Controllers{
		Auth:       controllers.NewAuthController(authService),
		Coupon:     controllers.NewCouponController(couponService),
		Redemption: controllers.NewRedemptionController(redemptionService, ledgerService),
		POS:        controllers.NewPOSController(posService),
		ShopAdmin:  controllers.NewShopAdminController(redemptionService, ledgerService, logger),
		Admin:      controllers.NewAdminController(adminService),
		Report:     controllers.NewReportController(reportService),
	})
	if !cfg.IsProduction() {
		printRoutes(r)
	}

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Loyalty backend started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	sweeper.Stop()
	if err := config.CloseDB(db); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}
	logger.Info("Loyalty backend stopped gracefully")
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
