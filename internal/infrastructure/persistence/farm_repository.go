package persistence

import (
	"context"
	"errors"

	"github.com/farmlink/backend/internal/domain/farm"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFarmRepository implements farm.FarmRepository using GORM
type GormFarmRepository struct {
	db *gorm.DB
}

// NewGormFarmRepository creates a new GormFarmRepository
func NewGormFarmRepository(db *gorm.DB) *GormFarmRepository {
	return &GormFarmRepository{db: db}
}

// FindByID finds a farm by ID
func (r *GormFarmRepository) FindByID(ctx context.Context, id uuid.UUID) (*farm.Farm, error) {
	var f farm.Farm
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// FindAll finds farms matching the filter
func (r *GormFarmRepository) FindAll(ctx context.Context, filter shared.Filter) ([]farm.Farm, error) {
	var farms []farm.Farm
	query := r.applyFarmConditions(r.db.WithContext(ctx), filter)
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Order("created_at DESC").Find(&farms).Error; err != nil {
		return nil, err
	}
	return farms, nil
}

// Count counts farms matching the filter
func (r *GormFarmRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFarmConditions(r.db.WithContext(ctx).Model(&farm.Farm{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save saves a farm
func (r *GormFarmRepository) Save(ctx context.Context, f *farm.Farm) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *GormFarmRepository) applyFarmConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if region, ok := filter.Filters["region"]; ok {
		query = query.Where("region = ?", region)
	}
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}
	return query
}

// GormCropRepository implements farm.CropRepository using GORM
type GormCropRepository struct {
	db *gorm.DB
}

// NewGormCropRepository creates a new GormCropRepository
func NewGormCropRepository(db *gorm.DB) *GormCropRepository {
	return &GormCropRepository{db: db}
}

// FindByID finds a crop by ID
func (r *GormCropRepository) FindByID(ctx context.Context, id uuid.UUID) (*farm.Crop, error) {
	var c farm.Crop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByFarm finds the crops grown on a farm
func (r *GormCropRepository) FindByFarm(ctx context.Context, farmID uuid.UUID) ([]farm.Crop, error) {
	var crops []farm.Crop
	if err := r.db.WithContext(ctx).
		Where("farm_id = ?", farmID).
		Order("name ASC").
		Find(&crops).Error; err != nil {
		return nil, err
	}
	return crops, nil
}

// Save saves a crop
func (r *GormCropRepository) Save(ctx context.Context, c *farm.Crop) error {
	return r.db.WithContext(ctx).Save(c).Error
}
