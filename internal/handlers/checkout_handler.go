package handlers

import (
	"errors"
	"log"

	"lapak/internal/middleware"
	"lapak/internal/models"
	"lapak/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles HTTP requests for the checkout and payment
// verification flows.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	payments *services.PaymentService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService, payments *services.PaymentService) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		payments: payments,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the authenticated checkout routes.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/checkout", h.HandleCheckout)
}

// RegisterWebhookRoutes registers the provider callback route. It sits
// outside the JWT group: the provider authenticates with its signature, and
// requiring a user token would break provider retries.
func (h *CheckoutHandler) RegisterWebhookRoutes(router fiber.Router) {
	router.Post("/checkout/verify", h.HandleVerifyPayment)
}

// HandleCheckout creates a pending order and registers it with the payment
// provider.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authenticated user required for checkout.",
		})
	}

	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   validationErrors.Error(),
		})
	}

	result, err := h.checkout.Checkout(c.Context(), userID, req)
	if err != nil {
		log.Printf("Error during checkout for user %s: %v", userID, err)
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"message": "Checkout failed",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// verifyPaymentRequest is the provider callback body. OrderID is accepted
// for compatibility with older clients but the provider order reference is
// authoritative.
type verifyPaymentRequest struct {
	ProviderOrderID   string `json:"provider_order_id" validate:"required"`
	ProviderPaymentID string `json:"provider_payment_id" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
	OrderID           string `json:"order_id"`
}

// HandleVerifyPayment processes a payment confirmation callback.
func (h *CheckoutHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing payment verification body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   validationErrors.Error(),
		})
	}

	order, err := h.payments.VerifyCallback(req.ProviderOrderID, req.ProviderPaymentID, req.Signature)
	if err != nil {
		log.Printf("Payment verification failed for provider order %s: %v", req.ProviderOrderID, err)
		// Insufficient stock at confirmation means the payment was captured
		// but could not be fulfilled; the payer sees a failed payment while
		// the refund is handled by operators out of band.
		if errors.Is(err, models.ErrInsufficientStock) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"status":  string(models.StatusCancelled),
				"message": "Payment could not be fulfilled; the order was cancelled.",
			})
		}
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"message": "Payment verification failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":   string(order.Status),
		"order_id": order.ID,
	})
}
