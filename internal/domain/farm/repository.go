package farm

import (
	"context"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FarmRepository provides access to farms
type FarmRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Farm, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Farm, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, f *Farm) error
}

// CropRepository provides access to crops
type CropRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Crop, error)
	FindByFarm(ctx context.Context, farmID uuid.UUID) ([]Crop, error)
	Save(ctx context.Context, c *Crop) error
}
