package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	OwnerID  string `json:"owner_id"`
	Currency string `json:"currency"`
}

type walletResponse struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	VirtualAccount string `json:"virtual_account"`
	Currency       string `json:"currency"`
	Balance        int64  `json:"balance"`
	Status         string `json:"status"`
}

// Create provisions a wallet with a dedicated virtual account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: req.OwnerID, Currency: req.Currency})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Balance returns the wallet record including its current balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	w, err := h.service.Get(c.UserContext(), walletID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	if uid, _ := c.Locals("user_id").(string); uid != "" && w.OwnerID != uid {
		return fiber.NewError(http.StatusForbidden, "not owner of wallet")
	}

	return c.Status(http.StatusOK).JSON(toResponse(w))
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:             w.ID,
		OwnerID:        w.OwnerID,
		VirtualAccount: w.VirtualAccount,
		Currency:       w.Currency,
		Balance:        w.Balance,
		Status:         w.Status,
	}
}
