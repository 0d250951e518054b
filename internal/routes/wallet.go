package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/furacompany/kirkidata-backend-sub000/internal/ledger"
	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

// RegisterWalletRoutes wires wallet balance and transaction history
// endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, svc *wallet.Service, store ledger.Store) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:walletId/balance", h.Balance)
	r.Get("/wallets/:walletId/transactions", listTransactions(svc, store))
}

type entryResponse struct {
	ID                string         `json:"id"`
	Kind              string         `json:"kind"`
	Amount            int64          `json:"amount"`
	ExternalReference string         `json:"external_reference"`
	VendorReference   string         `json:"vendor_reference,omitempty"`
	Status            string         `json:"status"`
	Profit            int64          `json:"profit,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func listTransactions(svc *wallet.Service, store ledger.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		walletID := c.Params("walletId")
		limit := c.QueryInt("limit", 20)
		offset := c.QueryInt("offset", 0)

		// Transaction history is visible to the wallet owner only.
		w, err := svc.Get(c.UserContext(), walletID)
		if err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "wallet not found")
			}
			return fiber.NewError(http.StatusInternalServerError, "internal server error")
		}
		uid, _ := c.Locals("user_id").(string)
		if w.OwnerID != uid {
			return fiber.NewError(http.StatusForbidden, "not owner of wallet")
		}

		entries, err := store.ListByWallet(c.UserContext(), walletID, limit, offset)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "wallet not found")
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryResponse{
				ID:                e.ID,
				Kind:              string(e.Kind),
				Amount:            e.Amount,
				ExternalReference: e.ExternalReference,
				VendorReference:   e.VendorReference,
				Status:            string(e.Status),
				Profit:            e.Profit,
				Metadata:          e.Metadata,
				CreatedAt:         e.CreatedAt,
				UpdatedAt:         e.UpdatedAt,
			})
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"wallet_id":    walletID,
			"limit":        limit,
			"offset":       offset,
			"transactions": out,
		})
	}
}
