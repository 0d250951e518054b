package routes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/furacompany/kirkidata-backend-sub000/internal/catalog"
	"github.com/furacompany/kirkidata-backend-sub000/internal/config"
	"github.com/furacompany/kirkidata-backend-sub000/internal/funding"
	"github.com/furacompany/kirkidata-backend-sub000/internal/ledger"
	"github.com/furacompany/kirkidata-backend-sub000/internal/middleware"
	"github.com/furacompany/kirkidata-backend-sub000/internal/notification"
	"github.com/furacompany/kirkidata-backend-sub000/internal/purchase"
	"github.com/furacompany/kirkidata-backend-sub000/internal/vtu"
	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
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
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	} else {
		app.Use(middleware.Audit(d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores, falling back to in-memory backends in development.
	var store ledger.Store
	var walletRepo wallet.Repository
	var products catalog.Repository
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		products = catalog.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		store = ledger.NewInMemory(walletRepo)
		products = devCatalog()
	}

	var gateway vtu.Gateway
	if d.Cfg.VendorBaseURL != "" {
		gateway = vtu.NewHTTPGateway(d.Cfg.VendorBaseURL, d.Cfg.VendorAPIKey, d.Cfg.VendorTimeout)
	} else {
		gateway = vtu.StaticGateway{}
	}

	// Services and handlers
	walletSvc := wallet.NewService(walletRepo)
	alerts := notification.NewLoggerNotifier(d.Logger)
	fundingSvc := funding.NewService(d.Cfg.WebhookSecret, d.Cfg.Currency, walletSvc, store, alerts, d.Logger)
	purchaseSvc := purchase.NewService(walletSvc, store, products, gateway, alerts, d.Logger)

	fundingHandler := funding.NewHandler(fundingSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	walletHandler := wallet.NewHandler(walletSvc)

	// Public webhook, authenticated by signature rather than a principal.
	app.Post("/webhooks/funding", fundingHandler.Webhook)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("request_id").(string)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Protected routes; the identity layer upstream forwards the principal.
	protected := api.Group("", middleware.Principal())
	RegisterWalletRoutes(protected, walletHandler, walletSvc, store)
	RegisterPurchaseRoutes(protected, purchaseHandler, d)

	return nil
}

func devCatalog() catalog.Repository {
	products := catalog.NewMemoryRepository()
	products.AddNetwork(catalog.Network{Code: "mtn", Name: "MTN", Active: true})
	products.AddNetwork(catalog.Network{Code: "glo", Name: "Glo", AirtimeMarkup: 20, Active: true})
	products.AddNetwork(catalog.Network{Code: "airtel", Name: "Airtel", Active: true})
	products.AddDataPlan(catalog.DataPlan{ID: "mtn-1gb", NetworkCode: "mtn", Name: "1GB / 30 days", Price: 50_000, Active: true})
	products.AddDataPlan(catalog.DataPlan{ID: "glo-2gb", NetworkCode: "glo", Name: "2GB / 30 days", Price: 90_000, Active: true})
	return products
}
