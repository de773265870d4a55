package persistence

import (
	"context"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUnitRepository implements adoption.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByProject finds all units of a project ordered by unit number
func (r *GormUnitRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]adoption.Unit, error) {
	var units []adoption.Unit
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("number ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindByOrder finds the units currently held by an order
func (r *GormUnitRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]adoption.Unit, error) {
	var units []adoption.Unit
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("number ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// CountByProjectAndStatus counts a project's units in the given status
func (r *GormUnitRepository) CountByProjectAndStatus(ctx context.Context, projectID uuid.UUID, status adoption.UnitStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&adoption.Unit{}).
		Where("project_id = ? AND status = ?", projectID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AdvanceByProject conditionally moves all units of a project from one status
// to another. The WHERE clause names the prior status, so units that are not
// in it are left untouched.
func (r *GormUnitRepository) AdvanceByProject(ctx context.Context, projectID uuid.UUID, from, to adoption.UnitStatus) (int64, error) {
	if !from.CanTransitionTo(to) {
		return 0, shared.ErrInvalidState
	}
	res := r.db.WithContext(ctx).
		Model(&adoption.Unit{}).
		Where("project_id = ? AND status = ?", projectID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
