package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/furacompany/kirkidata-backend-sub000/internal/middleware"
	"github.com/furacompany/kirkidata-backend-sub000/internal/purchase"
)

// RegisterPurchaseRoutes wires airtime and data settlement endpoints. When a
// cache is available the endpoints sit behind the Idempotency-Key middleware
// so client retries replay the original settlement response.
func RegisterPurchaseRoutes(r fiber.Router, h *purchase.Handler, d Deps) {
	group := r.Group("")
	if d.Cache != nil {
		group = r.Group("", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	group.Post("/wallets/:walletId/purchases/airtime", h.Airtime)
	group.Post("/wallets/:walletId/purchases/data", h.Data)
}
