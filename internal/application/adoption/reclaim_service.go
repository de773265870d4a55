package adoption

import (
	"context"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"go.uber.org/zap"
)

// reclaimBatchSize bounds how many expired orders one sweep pass loads
// when no batch size is configured.
const reclaimBatchSize = 100

// ReclaimService releases expired payment reservations back to inventory.
// It is a pure function over persisted state: the caller supplies the sweep
// time, so the same code path serves the interval scheduler, the admin
// endpoint and tests.
type ReclaimService struct {
	store     adoption.AllocationStore
	orderRepo adoption.OrderRepository
	batchSize int
	logger    *zap.Logger
}

// NewReclaimService creates a new ReclaimService
func NewReclaimService(store adoption.AllocationStore, orderRepo adoption.OrderRepository, logger *zap.Logger) *ReclaimService {
	return &ReclaimService{
		store:     store,
		orderRepo: orderRepo,
		batchSize: reclaimBatchSize,
		logger:    logger,
	}
}

// SetBatchSize overrides how many expired orders one sweep pass loads.
// Values below 1 are ignored.
func (s *ReclaimService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ReclaimExpired finds all orders still in PENDING_PAYMENT whose deadline
// lies before now, transitions each to TIMEOUT_CANCELLED and releases its
// units. Orders that a concurrent payment or another sweep instance finalizes
// first are skipped without error. Returns the number of orders reclaimed.
func (s *ReclaimService) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	reclaimed := 0
	skipped := 0

	for {
		orderNos, err := s.orderRepo.FindExpiredOrderNos(ctx, now, s.batchSize)
		if err != nil {
			return reclaimed, err
		}
		if len(orderNos) == 0 {
			break
		}

		progressed := false
		for _, orderNo := range orderNos {
			ok, err := s.store.ReclaimOrder(ctx, orderNo, now)
			if err != nil {
				s.logger.Error("Failed to reclaim expired order",
					zap.String("order_no", orderNo),
					zap.Error(err),
				)
				return reclaimed, err
			}
			if ok {
				reclaimed++
				progressed = true
			} else {
				// Lost the race against payment completion or another sweep.
				skipped++
			}
		}

		if len(orderNos) < s.batchSize {
			break
		}
		// Every order in a full batch was finalized by someone else; stop
		// rather than re-reading the same frontier forever.
		if !progressed {
			break
		}
	}

	if reclaimed > 0 || skipped > 0 {
		s.logger.Info("Reclaim sweep finished",
			zap.Time("sweep_time", now),
			zap.Int("reclaimed", reclaimed),
			zap.Int("skipped", skipped),
		)
	}

	return reclaimed, nil
}
