package funding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the provider's HMAC over the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// Handler exposes the inbound funding webhook.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Webhook processes a payment notification. The provider treats any response
// other than the literal body "success" as a failure and retries, which is
// safe because processing is idempotent.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	body := c.Body()

	if !h.service.VerifySignature(body, c.Get(SignatureHeader)) {
		return fiber.NewError(http.StatusUnauthorized, "invalid signature")
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed payload")
	}

	if _, err := h.service.Process(c.UserContext(), n); err != nil {
		switch {
		case errors.Is(err, ErrInvalidPayload):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, "processing failed")
		}
	}

	return c.Status(http.StatusOK).SendString("success")
}
