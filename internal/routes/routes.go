package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aurora-bank/aurora_bank/internal/adminops"
	"github.com/aurora-bank/aurora_bank/internal/approval"
	"github.com/aurora-bank/aurora_bank/internal/auth"
	"github.com/aurora-bank/aurora_bank/internal/billpay"
	"github.com/aurora-bank/aurora_bank/internal/config"
	"github.com/aurora-bank/aurora_bank/internal/funding"
	"github.com/aurora-bank/aurora_bank/internal/identity"
	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/middleware"
	"github.com/aurora-bank/aurora_bank/internal/notification"
	"github.com/aurora-bank/aurora_bank/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Backends
	var ledgerBackend ledger.Ledger
	var identityRepo identity.Repository
	var billRepo billpay.Repository
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		billRepo = billpay.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
		billRepo = billpay.NewMemoryRepository()
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(identityRepo, ledgerBackend)
	tokenSvc := auth.NewService(d.Cfg, identityRepo)
	transferSvc := transfer.NewService(ledgerBackend, identityRepo, notifier)
	billSvc := billpay.NewService(ledgerBackend, billRepo, notifier)
	approvalSvc := approval.NewService(ledgerBackend, notifier)
	adminSvc := adminops.NewService(ledgerBackend, identityRepo)
	fundingSvc := funding.NewService(ledgerBackend, nil, notifier, d.Cfg.ReviewThreshold)

	authHandler := auth.NewHandler(identitySvc, tokenSvc)
	transferHandler := transfer.NewHandler(transferSvc)
	billHandler := billpay.NewHandler(billSvc)
	approvalHandler := approval.NewHandler(approvalSvc)
	adminHandler := adminops.NewHandler(adminSvc)
	fundingHandler := funding.NewHandler(fundingSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	RegisterAccountRoutes(protected, ledgerBackend, identityRepo)
	RegisterTransferRoutes(protected, transferHandler)
	RegisterBillRoutes(protected, billHandler)
	RegisterFundingRoutes(protected, fundingHandler)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireAdmin())
	RegisterApprovalRoutes(admin, approvalHandler)
	RegisterAdminRoutes(admin, adminHandler)

	return nil
}
