package purchase

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/furacompany/kirkidata-backend-sub000/internal/catalog"
	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

// Handler exposes purchase settlement endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a purchase handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type airtimeRequest struct {
	Network     string `json:"network"`
	PhoneNumber string `json:"phone"`
	Amount      int64  `json:"amount"`
}

type dataRequest struct {
	PlanID      string `json:"plan_id"`
	PhoneNumber string `json:"phone"`
}

type purchaseResponse struct {
	EntryID  string `json:"entry_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Profit   int64  `json:"profit,omitempty"`
	Refunded bool   `json:"refunded"`
	Message  string `json:"message"`
}

// Airtime settles an airtime purchase from the caller's wallet.
func (h *Handler) Airtime(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	var req airtimeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Airtime(c.UserContext(), AirtimeInput{
		WalletID:        walletID,
		NetworkCode:     req.Network,
		PhoneNumber:     req.PhoneNumber,
		Amount:          req.Amount,
		RequestorUserID: uid,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(res))
}

// Data settles a data bundle purchase from the caller's wallet.
func (h *Handler) Data(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	var req dataRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Data(c.UserContext(), DataInput{
		WalletID:        walletID,
		PlanID:          req.PlanID,
		PhoneNumber:     req.PhoneNumber,
		RequestorUserID: uid,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(res))
}

func mapError(err error) error {
	var cErr *CompensationError
	switch {
	case errors.As(err, &cErr):
		return fiber.NewError(http.StatusInternalServerError, "purchase failed; refund pending manual reconciliation")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, catalog.ErrUnavailable):
		return fiber.NewError(http.StatusNotFound, "product unavailable")
	case errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, "not owner of wallet")
	case errors.Is(err, errBadInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		// Store or infrastructure failures; the detail belongs in logs, not
		// in the response.
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
}

func toResponse(res Result) purchaseResponse {
	return purchaseResponse{
		EntryID:  res.EntryID,
		Status:   string(res.Status),
		Amount:   res.Amount,
		Profit:   res.Profit,
		Refunded: res.Refunded,
		Message:  res.Message,
	}
}
