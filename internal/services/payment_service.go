package services

import (
	"fmt"
	"log"

	"lapak/internal/gateway"
	"lapak/internal/models"
	"lapak/internal/repositories"
)

// PaymentService is the trust boundary between the external payment
// provider and internal state. It verifies callback signatures and drives
// the pending -> confirmed transition together with the inventory commit.
type PaymentService struct {
	orderRepo repositories.OrderRepository
	cartRepo  repositories.CartRepository
	inventory *InventoryService
	notifier  *NotificationService
	secret    []byte
}

// NewPaymentService creates a new PaymentService. secret is the server-held
// key the provider signs callbacks with.
func NewPaymentService(orderRepo repositories.OrderRepository, cartRepo repositories.CartRepository, inventory *InventoryService, notifier *NotificationService, secret string) *PaymentService {
	return &PaymentService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		inventory: inventory,
		notifier:  notifier,
		secret:    []byte(secret),
	}
}

// VerifyCallback handles an inbound payment confirmation. As a single
// logical unit it verifies the signature, claims the pending -> confirmed
// transition, commits inventory for every line item, clears the user's cart
// and emits a notification.
//
// The conditional status claim serializes concurrent deliveries of the same
// callback: only the claim winner runs the commit sequence. A redelivery of
// an already-processed payment (provider retry) is a no-op success.
//
// If the inventory commit fails after the claim, the payment has been
// captured by the provider but nothing was committed locally. The order is
// cancelled with RequiresManualRefund set and an operator notification is
// emitted; this condition is surfaced, never silently dropped.
func (s *PaymentService) VerifyCallback(providerOrderID, providerPaymentID, signature string) (*models.Order, error) {
	order, err := s.orderRepo.GetByProviderOrderID(providerOrderID)
	if err != nil {
		return nil, err
	}

	// Provider retry of an already-confirmed payment: idempotent success,
	// no second stock commit, no second cart clear.
	if order.Status == models.StatusConfirmed && order.ProviderPaymentID == providerPaymentID {
		return order, nil
	}

	if !gateway.VerifySignature(s.secret, providerOrderID, providerPaymentID, signature) {
		reason := "payment signature verification failed"
		claimed, claimErr := s.orderRepo.ClaimTransition(order.ID, models.StatusPending, models.StatusCancelled,
			map[string]interface{}{"failure_reason": reason})
		if claimErr != nil {
			log.Printf("Warning: failed to cancel order %s after signature mismatch: %v", order.ID, claimErr)
		}
		if claimed {
			order.Status = models.StatusCancelled
			order.FailureReason = reason
			if s.notifier != nil {
				s.notifier.PaymentFailed(order, reason)
			}
		}
		return nil, fmt.Errorf("%w: order %s", models.ErrSignatureMismatch, order.ID)
	}

	claimed, err := s.orderRepo.ClaimTransition(order.ID, models.StatusPending, models.StatusConfirmed, nil)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the claim. If a concurrent delivery of the same payment won,
		// treat this call as the idempotent duplicate it is.
		current, readErr := s.orderRepo.GetByID(order.ID)
		if readErr != nil {
			return nil, readErr
		}
		if current.Status == models.StatusConfirmed && current.ProviderPaymentID == providerPaymentID {
			return current, nil
		}
		return nil, fmt.Errorf("%w: order %s is %s, expected %s",
			models.ErrInvalidTransition, order.ID, current.Status, models.StatusPending)
	}

	// Record the payment reference immediately after winning the claim so a
	// redelivered callback is recognizable even if a later step fails.
	if err := s.orderRepo.SetPaymentReference(order.ID, providerPaymentID, signature); err != nil {
		log.Printf("Warning: failed to record payment reference on order %s: %v", order.ID, err)
	}
	order.Status = models.StatusConfirmed
	order.ProviderPaymentID = providerPaymentID
	order.ProviderSignature = signature

	if err := s.inventory.Commit(order.Items); err != nil {
		// Payment captured, stock commit failed. Inventory.Commit already
		// rolled back its partial decrements, so the cancellation below must
		// not restore anything.
		reason := "stock unavailable at confirmation"
		_, claimErr := s.orderRepo.ClaimTransition(order.ID, models.StatusConfirmed, models.StatusCancelled,
			map[string]interface{}{
				"failure_reason":         reason,
				"requires_manual_refund": true,
			})
		if claimErr != nil {
			log.Printf("ERROR: failed to cancel order %s after commit failure: %v", order.ID, claimErr)
		}
		order.Status = models.StatusCancelled
		order.FailureReason = reason
		order.RequiresManualRefund = true
		if s.notifier != nil {
			s.notifier.ManualRefundRequired(order)
		}
		return nil, err
	}

	// Best-effort side effects: neither may unwind the committed state.
	if err := s.cartRepo.Clear(order.UserID); err != nil {
		log.Printf("Warning: failed to clear cart for user %s after order %s: %v", order.UserID, order.ID, err)
	}
	if s.notifier != nil {
		s.notifier.OrderConfirmed(order)
	}
	return order, nil
}
