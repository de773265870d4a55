package persistence

import (
	"context"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAdoptionRecordRepository implements adoption.AdoptionRecordRepository
// using GORM. Records are inserted by the payment completion transaction;
// this repository serves the read model and the bulk progress updates.
type GormAdoptionRecordRepository struct {
	db *gorm.DB
}

// NewGormAdoptionRecordRepository creates a new GormAdoptionRecordRepository
func NewGormAdoptionRecordRepository(db *gorm.DB) *GormAdoptionRecordRepository {
	return &GormAdoptionRecordRepository{db: db}
}

// FindByBuyer finds a buyer's adoption records, newest first
func (r *GormAdoptionRecordRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]adoption.AdoptionRecord, error) {
	var records []adoption.AdoptionRecord
	query := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("adopted_at DESC")
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByBuyer counts a buyer's adoption records
func (r *GormAdoptionRecordRepository) CountByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&adoption.AdoptionRecord{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByOrder finds the records created by one order
func (r *GormAdoptionRecordRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]adoption.AdoptionRecord, error) {
	var records []adoption.AdoptionRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("unit_number ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// AdvanceStatusByProject moves all records of a project from one progress
// status to the next
func (r *GormAdoptionRecordRepository) AdvanceStatusByProject(ctx context.Context, projectID uuid.UUID, from, to adoption.RecordStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&adoption.AdoptionRecord{}).
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
