package adoption

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationConfig holds the tunables of the allocation engine. The payment
// window and retry behaviour are deployment configuration, not constants.
type AllocationConfig struct {
	PaymentWindow time.Duration // how long a reservation waits for payment
	RetryAttempts int           // bounded retries on concurrency conflicts
	RetryDelay    time.Duration // base delay between retries
}

// DefaultAllocationConfig returns the default engine configuration
func DefaultAllocationConfig() AllocationConfig {
	return AllocationConfig{
		PaymentWindow: 30 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    50 * time.Millisecond,
	}
}

// AllocationService reserves project units for paying buyers. All inventory
// mutations are delegated to the AllocationStore, which executes them as
// single atomic transactions; this service adds idempotency-key handling,
// bounded conflict retries and event publication.
type AllocationService struct {
	store     adoption.AllocationStore
	orderRepo adoption.OrderRepository
	publisher shared.EventPublisher
	cfg       AllocationConfig
	logger    *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(store adoption.AllocationStore, orderRepo adoption.OrderRepository, cfg AllocationConfig, logger *zap.Logger) *AllocationService {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &AllocationService{
		store:     store,
		orderRepo: orderRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// ReserveUnits reserves the requested number of units on a project and
// returns the resulting order in PENDING_PAYMENT. Repeated calls with the
// same idempotency key return the order created by the first call.
func (s *AllocationService) ReserveUnits(ctx context.Context, req ReserveUnitsRequest) (*OrderResponse, error) {
	if req.UnitCount < 1 {
		return nil, shared.NewDomainError("INVALID_UNIT_COUNT", "Requested unit count must be at least 1")
	}
	if req.ProjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if req.BuyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}

	key := req.IdempotencyKey
	if key == "" {
		// Callers without a key get no cross-request dedup, but the key column
		// is unique so each attempt still needs a distinct value.
		key = uuid.NewString()
	}

	// Fast path: the key already produced an order for this buyer. The
	// lookup is buyer-scoped so a key submitted by a different buyer can
	// never surface someone else's order.
	if existing, err := s.orderRepo.FindByIdempotencyKey(ctx, req.BuyerID, key); err == nil {
		resp := ToOrderResponse(existing)
		return &resp, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	cmd := adoption.ReserveCommand{
		ProjectID:      req.ProjectID,
		BuyerID:        req.BuyerID,
		UnitCount:      req.UnitCount,
		IdempotencyKey: key,
		ExpiresAt:      time.Now().Add(s.cfg.PaymentWindow),
	}

	var order *adoption.Order
	err := s.withConflictRetry(ctx, "reserve", func() error {
		cmd.OrderNo = generateOrderNo()
		var rerr error
		order, rerr = s.store.Reserve(ctx, cmd)
		return rerr
	})
	if err != nil {
		// A conflict can mean another request with the same key won the
		// insert; surface that order rather than the conflict.
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			if existing, ferr := s.orderRepo.FindByIdempotencyKey(ctx, req.BuyerID, key); ferr == nil {
				resp := ToOrderResponse(existing)
				return &resp, nil
			}
		}
		return nil, err
	}

	s.logger.Info("Units reserved",
		zap.String("order_no", order.OrderNo),
		zap.String("project_id", req.ProjectID.String()),
		zap.Int("unit_count", req.UnitCount),
		zap.Time("expires_at", order.ExpiresAt),
	)

	s.publishEvents(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetByOrderNo retrieves an adoption order by its order number
func (s *AllocationService) GetByOrderNo(ctx context.Context, orderNo string) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, adoption.ErrOrderNotFound
		}
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ListByBuyer retrieves a buyer's orders with pagination
func (s *AllocationService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	orders, err := s.orderRepo.FindByBuyer(ctx, buyerID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.CountByBuyer(ctx, buyerID, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out, total, nil
}

// withConflictRetry runs fn, retrying only on concurrency conflicts with a
// bounded linear backoff. All other errors propagate unmodified.
func (s *AllocationService) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if attempt == s.cfg.RetryAttempts {
			break
		}
		s.logger.Debug("Retrying after concurrency conflict",
			zap.String("op", op),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryDelay * time.Duration(attempt)):
		}
	}
	return err
}

func (s *AllocationService) publishEvents(ctx context.Context, order *adoption.Order) {
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

// generateOrderNo builds a sortable order number: AD + timestamp + random tail
func generateOrderNo() string {
	var tail [4]byte
	_, _ = rand.Read(tail[:])
	return fmt.Sprintf("AD%s%s", time.Now().UTC().Format("20060102150405"), hex.EncodeToString(tail[:]))
}
