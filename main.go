package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"learning-rewards-service/chain"
	"learning-rewards-service/config"
	"learning-rewards-service/database"
	"learning-rewards-service/handlers"
	"learning-rewards-service/logger"
	"learning-rewards-service/middleware"
	"learning-rewards-service/services"
	"learning-rewards-service/utils"
	"learning-rewards-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// zap is not configured yet.
		log.Fatalf("config: %v", err)
	}

	if err := logger.Initialize(logger.Configuration{
		LogFile:   cfg.LogFile,
		ErrorFile: cfg.LogErrorFile,
		Level:     cfg.LogLevel,
		Console:   true,
	}); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	var gateway chain.Gateway = chain.Disabled{}
	if cfg.Chain.Disabled {
		logger.Warn("chain gateway disabled, EXP conversions will fail")
	} else {
		eth, err := chain.DialEthereum(ctx, chain.EthereumConfig{
			RPCURL:          cfg.Chain.RPCURL,
			ChainID:         cfg.Chain.ChainID,
			TokenAddress:    cfg.Chain.TokenAddress,
			TokenDecimals:   cfg.Chain.TokenDecimals,
			AdminPrivateKey: cfg.Chain.AdminPrivateKey,
			ConfirmTimeout:  cfg.Chain.ConfirmTimeout,
			ExplorerBaseURL: cfg.Chain.ExplorerBaseURL,
		})
		if err != nil {
			logger.Fatal("failed to connect to chain", zap.Error(err))
		}
		defer eth.Close()
		gateway = eth
	}

	clock := clockwork.NewRealClock()
	accountService := services.NewAccountService(db)
	rewardService := services.NewRewardService(db, clock, cfg.FlashcardWindow)
	conversionService := services.NewConversionService(db, gateway, clock, cfg.ConversionClaimTTL)
	redemptionService := services.NewRedemptionService(db, clock)
	flashcardService := services.NewFlashcardService(db, services.NewReviewScheduler(clock))

	if cfg.R2.Enabled() {
		archive, err := utils.NewR2Archive(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 archive", zap.Error(err))
		}
		conversionService.Archive = archive
		redemptionService.Archive = archive
		logger.Info("audit archive enabled", zap.String("bucket", cfg.R2.Bucket))
	}

	reconciler := workers.NewReconciliationWorker(conversionService, clock, cfg.ReconcileInterval)
	if err := reconciler.Start(ctx); err != nil {
		logger.Fatal("failed to start reconciliation worker", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.OriginList(), ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		MaxAge:       86400,
	}))
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, "/health"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	handlers.SetupUserRoutes(app, accountService)
	handlers.SetupExpRoutes(app, rewardService, conversionService)
	handlers.SetupVoucherRoutes(app, redemptionService)
	handlers.SetupFlashcardRoutes(app, flashcardService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.String("database", cfg.DatabaseDriver),
		zap.Bool("chain_enabled", !cfg.Chain.Disabled),
		zap.Strings("cors_origins", cfg.OriginList()),
	)

	<-ctx.Done()
	logger.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := reconciler.Stop(); err != nil {
		logger.Warn("reconciliation worker shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
