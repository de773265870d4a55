package farm

import (
	"context"
	"time"

	"github.com/farmlink/backend/internal/domain/farm"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FarmResponse represents a farm in API responses
type FarmResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Region      string    `json:"region,omitempty"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CropResponse represents a crop in API responses
type CropResponse struct {
	ID         string `json:"id"`
	FarmID     string `json:"farm_id"`
	Name       string `json:"name"`
	Variety    string `json:"variety,omitempty"`
	GrowthDays int    `json:"growth_days"`
}

// FarmService serves the farm/crop browse catalog
type FarmService struct {
	farmRepo farm.FarmRepository
	cropRepo farm.CropRepository
}

// NewFarmService creates a new FarmService
func NewFarmService(farmRepo farm.FarmRepository, cropRepo farm.CropRepository) *FarmService {
	return &FarmService{
		farmRepo: farmRepo,
		cropRepo: cropRepo,
	}
}

// List retrieves farms with pagination
func (s *FarmService) List(ctx context.Context, filter shared.Filter) ([]FarmResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	farms, err := s.farmRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.farmRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]FarmResponse, len(farms))
	for i := range farms {
		out[i] = toFarmResponse(&farms[i])
	}
	return out, total, nil
}

// GetByID retrieves one farm with its crops
func (s *FarmService) GetByID(ctx context.Context, id uuid.UUID) (*FarmResponse, []CropResponse, error) {
	f, err := s.farmRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	crops, err := s.cropRepo.FindByFarm(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	resp := toFarmResponse(f)
	cropResps := make([]CropResponse, len(crops))
	for i := range crops {
		cropResps[i] = toCropResponse(&crops[i])
	}
	return &resp, cropResps, nil
}

func toFarmResponse(f *farm.Farm) FarmResponse {
	return FarmResponse{
		ID:          f.ID.String(),
		Name:        f.Name,
		Region:      f.Region,
		Description: f.Description,
		CoverURL:    f.CoverURL,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
	}
}

func toCropResponse(c *farm.Crop) CropResponse {
	return CropResponse{
		ID:         c.ID.String(),
		FarmID:     c.FarmID.String(),
		Name:       c.Name,
		Variety:    c.Variety,
		GrowthDays: c.GrowthDays,
	}
}
