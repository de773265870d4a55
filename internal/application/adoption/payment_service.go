package adoption

import (
	"context"
	"errors"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// callbackDedupTTL bounds how long a processed gateway notification id is
// remembered. Redelivery after the TTL falls through to the database-level
// idempotency check, which is authoritative.
const callbackDedupTTL = 24 * time.Hour

// PaymentService finalizes adoption orders after the payment gateway reports
// an outcome. Completion and cancellation both run as single transactions in
// the AllocationStore; the service layers gateway-callback deduplication and
// event publication on top.
type PaymentService struct {
	store      adoption.AllocationStore
	orderRepo  adoption.OrderRepository
	dedupStore shared.IdempotencyStore
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(store adoption.AllocationStore, orderRepo adoption.OrderRepository, dedupStore shared.IdempotencyStore, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:      store,
		orderRepo:  orderRepo,
		dedupStore: dedupStore,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CompletePayment transitions a pending order to PAID, adopts its reserved
// units and creates the adoption records. Duplicate calls with the same
// payment reference are idempotent no-ops returning the paid order. A late
// success on an expired order fails with ORDER_EXPIRED so the caller can
// start a compensating refund instead of adopting possibly reclaimed units.
func (s *PaymentService) CompletePayment(ctx context.Context, orderNo, paymentRef string) (*OrderResponse, error) {
	if orderNo == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if paymentRef == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_REF", "Payment reference cannot be empty")
	}

	order, err := s.store.CompletePayment(ctx, orderNo, paymentRef, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment completed",
		zap.String("order_no", orderNo),
		zap.String("payment_ref", paymentRef),
		zap.Int("unit_count", order.UnitCount),
	)

	s.publishEvents(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// CancelPayment cancels a pending order and releases its reserved units.
// It serves both explicit cancellation and gateway-reported failures.
func (s *PaymentService) CancelPayment(ctx context.Context, orderNo, reason string) (*OrderResponse, error) {
	if orderNo == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	order, err := s.store.CancelOrder(ctx, orderNo, reason, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_no", orderNo),
		zap.String("reason", reason),
	)

	s.publishEvents(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// HandleNotification processes one payment gateway notification. Gateways
// deliver at least once, so the notification id is checked against the dedup
// store first. A replayed id is acknowledged outright only when the order has
// actually been finalized; a mark left behind by an attempt that failed after
// marking must not swallow the gateway's retry, so a still-pending order falls
// through to the completion path, which is idempotent at the database level.
func (s *PaymentService) HandleNotification(ctx context.Context, n PaymentNotification) (*OrderResponse, error) {
	if n.NotificationID != "" && s.dedupStore != nil {
		fresh, err := s.dedupStore.MarkProcessed(ctx, n.NotificationID, callbackDedupTTL)
		if err != nil {
			// Dedup store failure is not fatal: the completion path itself is
			// idempotent on the payment reference.
			s.logger.Warn("Callback dedup store unavailable",
				zap.String("notification_id", n.NotificationID),
				zap.Error(err),
			)
		} else if !fresh {
			order, ferr := s.orderRepo.FindByOrderNo(ctx, n.OrderNo)
			if ferr == nil && order.IsTerminal() {
				s.logger.Debug("Duplicate gateway notification ignored",
					zap.String("notification_id", n.NotificationID),
					zap.String("order_no", n.OrderNo),
				)
				resp := ToOrderResponse(order)
				return &resp, nil
			}
			if ferr != nil && !errors.Is(ferr, shared.ErrNotFound) {
				return nil, ferr
			}
			s.logger.Info("Replayed notification id but order not finalized, reprocessing",
				zap.String("notification_id", n.NotificationID),
				zap.String("order_no", n.OrderNo),
			)
		}
	}

	switch n.Outcome {
	case PaymentOutcomeSuccess:
		return s.CompletePayment(ctx, n.OrderNo, n.PaymentRef)
	case PaymentOutcomeFailure:
		return s.CancelPayment(ctx, n.OrderNo, "payment gateway reported failure")
	default:
		return nil, shared.NewDomainError("INVALID_OUTCOME", "Unknown payment outcome")
	}
}

func (s *PaymentService) publishEvents(ctx context.Context, order *adoption.Order) {
	if s.publisher == nil {
		return
	}
	for _, event := range order.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	order.ClearDomainEvents()
}
