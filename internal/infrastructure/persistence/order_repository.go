package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements adoption.OrderRepository using GORM.
// It is read-only by design: every order mutation happens inside the
// AllocationStore transactions.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*adoption.Order, error) {
	var order adoption.Order
	if err := r.db.WithContext(ctx).Preload("Units").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrderNo finds an order by its order number
func (r *GormOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*adoption.Order, error) {
	var order adoption.Order
	if err := r.db.WithContext(ctx).Preload("Units").
		Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByIdempotencyKey finds the order a buyer created under an idempotency
// key. Keys are scoped per buyer so one caller cannot look up another buyer's
// order by guessing their key.
func (r *GormOrderRepository) FindByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*adoption.Order, error) {
	var order adoption.Order
	if err := r.db.WithContext(ctx).Preload("Units").
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByBuyer finds a buyer's orders with filtering and pagination
func (r *GormOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]adoption.Order, error) {
	var orders []adoption.Order
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&adoption.Order{}).Preload("Units").
			Where("buyer_id = ?", buyerID),
		filter,
	)
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CountByBuyer counts a buyer's orders matching the filter
func (r *GormOrderRepository) CountByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(
		r.db.WithContext(ctx).Model(&adoption.Order{}).Where("buyer_id = ?", buyerID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindExpiredOrderNos returns order numbers still pending payment whose
// deadline lies before the given time, oldest deadline first
func (r *GormOrderRepository) FindExpiredOrderNos(ctx context.Context, before time.Time, limit int) ([]string, error) {
	var orderNos []string
	if err := r.db.WithContext(ctx).
		Model(&adoption.Order{}).
		Where("status = ? AND expires_at < ?", adoption.OrderStatusPendingPayment, before).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("order_no", &orderNos).Error; err != nil {
		return nil, err
	}
	return orderNos, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyConditions(query, filter)

	orderBy := "created_at"
	if filter.OrderBy == "expires_at" {
		orderBy = "expires_at"
	}
	dir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		dir = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", orderBy, dir))

	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

func (r *GormOrderRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if projectID, ok := filter.Filters["project_id"]; ok {
		query = query.Where("project_id = ?", projectID)
	}
	return query
}
