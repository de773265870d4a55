package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAllocationStore implements adoption.AllocationStore on GORM.
//
// Correctness rests on two mechanics, both inside one transaction per call:
// the project counter is decremented with a guarded UPDATE that also takes
// the project row lock (serializing concurrent reservations on the same
// project), and every unit/order state flip is a conditional UPDATE whose
// WHERE clause names the expected prior state, with RowsAffected checked
// against the expected row count. A failed check rolls the transaction back
// and surfaces as a concurrency conflict.
type GormAllocationStore struct {
	db *gorm.DB
}

// NewGormAllocationStore creates a new GormAllocationStore
func NewGormAllocationStore(db *gorm.DB) *GormAllocationStore {
	return &GormAllocationStore{db: db}
}

// Reserve atomically reserves the lowest-numbered available units for a new
// pending order. See adoption.AllocationStore.
func (s *GormAllocationStore) Reserve(ctx context.Context, cmd adoption.ReserveCommand) (*adoption.Order, error) {
	var out *adoption.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The idempotency key may already have produced an order for this
		// buyer. Keys are scoped per buyer, matching the unique index.
		var existing adoption.Order
		err := tx.Preload("Units").
			Where("buyer_id = ? AND idempotency_key = ?", cmd.BuyerID, cmd.IdempotencyKey).
			First(&existing).Error
		if err == nil {
			out = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()

		// Guarded counter decrement. The WHERE clause re-checks status and
		// availability inside the transaction, and the row lock it takes
		// serializes all reservations on this project until commit.
		res := tx.Model(&adoption.Project{}).
			Where("id = ? AND status = ? AND available_units >= ?",
				cmd.ProjectID, adoption.ProjectStatusOpen, cmd.UnitCount).
			Updates(map[string]interface{}{
				"available_units": gorm.Expr("available_units - ?", cmd.UnitCount),
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyReserveFailure(tx, cmd)
		}

		var project adoption.Project
		if err := tx.First(&project, "id = ?", cmd.ProjectID).Error; err != nil {
			return err
		}

		// Lowest unit number first: deterministic and keeps the allocated
		// range compact.
		var units []adoption.Unit
		if err := tx.
			Where("project_id = ? AND status = ?", cmd.ProjectID, adoption.UnitStatusAvailable).
			Order("number ASC").
			Limit(cmd.UnitCount).
			Find(&units).Error; err != nil {
			return err
		}
		if len(units) < cmd.UnitCount {
			// The counter admitted us but the unit rows disagree; roll back
			// and let the caller retry against the settled state.
			return shared.ErrConcurrencyConflict
		}

		order, err := adoption.NewOrder(cmd.OrderNo, cmd.BuyerID, cmd.ProjectID,
			cmd.UnitCount, project.TotalPriceFor(cmd.UnitCount), cmd.IdempotencyKey, cmd.ExpiresAt)
		if err != nil {
			return err
		}

		unitIDs := make([]uuid.UUID, len(units))
		for i, u := range units {
			unitIDs[i] = u.ID
			order.AttachUnit(u.ID, u.Number)
		}

		res = tx.Model(&adoption.Unit{}).
			Where("id IN ? AND status = ?", unitIDs, adoption.UnitStatusAvailable).
			Updates(map[string]interface{}{
				"status":     adoption.UnitStatusReserved,
				"order_id":   order.ID,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if int(res.RowsAffected) != cmd.UnitCount {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Create(order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Another request with the same idempotency key committed
				// between our lookup and this insert.
				return shared.ErrConcurrencyConflict
			}
			return err
		}

		// Sold out: flip the project to FULL.
		if err := tx.Model(&adoption.Project{}).
			Where("id = ? AND available_units = 0 AND status = ?", cmd.ProjectID, adoption.ProjectStatusOpen).
			Update("status", adoption.ProjectStatusFull).Error; err != nil {
			return err
		}

		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classifyReserveFailure turns a failed counter decrement into the business
// error the caller should see. FULL counts as insufficient inventory rather
// than not-open: the project is still selling, it just has nothing left.
func (s *GormAllocationStore) classifyReserveFailure(tx *gorm.DB, cmd adoption.ReserveCommand) error {
	var project adoption.Project
	if err := tx.First(&project, "id = ?", cmd.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}

	switch {
	case project.Status == adoption.ProjectStatusFull:
		return adoption.ErrInsufficientInventory
	case project.Status != adoption.ProjectStatusOpen:
		return adoption.ErrProjectNotOpen
	case project.AvailableUnits < cmd.UnitCount:
		return adoption.ErrInsufficientInventory
	default:
		return shared.ErrConcurrencyConflict
	}
}

// CompletePayment finalizes a pending order as PAID. See adoption.AllocationStore.
func (s *GormAllocationStore) CompletePayment(ctx context.Context, orderNo, paymentRef string, now time.Time) (*adoption.Order, error) {
	var out *adoption.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order adoption.Order
		if err := tx.Preload("Units").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return adoption.ErrOrderNotFound
			}
			return err
		}

		// Duplicate gateway callback: same reference on an already paid
		// order is a benign replay.
		if order.Status == adoption.OrderStatusPaid && order.PaymentRef == paymentRef {
			out = &order
			return nil
		}
		if order.IsTerminal() {
			return adoption.ErrOrderAlreadyFinalized
		}
		if order.IsExpired(now) {
			// Late success: the reclaimer may already have released these
			// units, so the order must not be adopted. The caller routes
			// this into a refund flow.
			return adoption.ErrOrderExpired
		}

		if err := order.MarkPaid(paymentRef, now); err != nil {
			return err
		}

		res := tx.Model(&adoption.Order{}).
			Where("order_no = ? AND status = ?", orderNo, adoption.OrderStatusPendingPayment).
			Updates(map[string]interface{}{
				"status":      adoption.OrderStatusPaid,
				"payment_ref": paymentRef,
				"paid_at":     now,
				"updated_at":  now,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race against the reclaimer or another completion.
			return shared.ErrConcurrencyConflict
		}

		unitIDs := order.UnitIDs()
		res = tx.Model(&adoption.Unit{}).
			Where("id IN ? AND order_id = ? AND status = ?", unitIDs, order.ID, adoption.UnitStatusReserved).
			Updates(map[string]interface{}{
				"status":     adoption.UnitStatusAdopted,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if int(res.RowsAffected) != len(unitIDs) {
			return shared.ErrConcurrencyConflict
		}

		records := make([]adoption.AdoptionRecord, 0, len(order.Units))
		for _, u := range order.Units {
			records = append(records, *adoption.NewAdoptionRecord(
				order.ID, u.UnitID, u.UnitNumber, order.ProjectID, order.BuyerID, now))
		}
		if err := tx.Create(&records).Error; err != nil {
			return err
		}

		out = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder cancels a pending order and releases its units. See
// adoption.AllocationStore.
func (s *GormAllocationStore) CancelOrder(ctx context.Context, orderNo, reason string, now time.Time) (*adoption.Order, error) {
	var out *adoption.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order adoption.Order
		if err := tx.Preload("Units").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return adoption.ErrOrderNotFound
			}
			return err
		}

		res := tx.Model(&adoption.Order{}).
			Where("order_no = ? AND status = ?", orderNo, adoption.OrderStatusPendingPayment).
			Updates(map[string]interface{}{
				"status":        adoption.OrderStatusCancelled,
				"cancelled_at":  now,
				"cancel_reason": reason,
				"updated_at":    now,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Re-read rather than reporting a conflict: a cancellation that
			// lost to payment completion or the reclaimer can never succeed
			// on retry, so the caller should see the final state instead.
			var current adoption.Order
			if err := tx.Where("order_no = ?", orderNo).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return adoption.ErrOrderNotFound
				}
				return err
			}
			if current.IsTerminal() {
				return adoption.ErrOrderAlreadyFinalized
			}
			return shared.ErrConcurrencyConflict
		}

		if err := order.Cancel(reason, now); err != nil {
			return err
		}

		if err := s.releaseOrderUnits(tx, &order, now); err != nil {
			return err
		}

		out = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReclaimOrder reclaims one expired pending order. See adoption.AllocationStore.
func (s *GormAllocationStore) ReclaimOrder(ctx context.Context, orderNo string, now time.Time) (bool, error) {
	reclaimed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order adoption.Order
		if err := tx.Where("order_no = ?", orderNo).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The order vanished between the sweep query and now;
				// nothing to reclaim.
				return nil
			}
			return err
		}

		// Conditional transition: only an order still pending and actually
		// expired is reclaimed. Zero rows affected means a concurrent
		// payment or another sweep instance won; that is a clean no-op.
		res := tx.Model(&adoption.Order{}).
			Where("order_no = ? AND status = ? AND expires_at < ?",
				orderNo, adoption.OrderStatusPendingPayment, now).
			Updates(map[string]interface{}{
				"status":        adoption.OrderStatusTimeoutCancelled,
				"cancelled_at":  now,
				"cancel_reason": "payment window elapsed",
				"updated_at":    now,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := s.releaseOrderUnits(tx, &order, now); err != nil {
			return err
		}

		reclaimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reclaimed, nil
}

// releaseOrderUnits returns an order's reserved units to the available pool
// and restores the project counter by the number of rows actually released.
func (s *GormAllocationStore) releaseOrderUnits(tx *gorm.DB, order *adoption.Order, now time.Time) error {
	res := tx.Model(&adoption.Unit{}).
		Where("order_id = ? AND status = ?", order.ID, adoption.UnitStatusReserved).
		Updates(map[string]interface{}{
			"status":     adoption.UnitStatusAvailable,
			"order_id":   nil,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	released := int(res.RowsAffected)
	if released == 0 {
		return nil
	}

	if err := tx.Model(&adoption.Project{}).
		Where("id = ?", order.ProjectID).
		Updates(map[string]interface{}{
			"available_units": gorm.Expr("available_units + ?", released),
			"updated_at":      now,
		}).Error; err != nil {
		return err
	}

	// A sold-out project regains capacity.
	return tx.Model(&adoption.Project{}).
		Where("id = ? AND status = ?", order.ProjectID, adoption.ProjectStatusFull).
		Update("status", adoption.ProjectStatusOpen).Error
}
