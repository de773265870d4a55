package farm

import (
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Farm represents a partner farm offering adoption plots
type Farm struct {
	shared.BaseEntity
	Name        string `gorm:"type:varchar(200);not null"`
	Region      string `gorm:"type:varchar(100);index"`
	Description string `gorm:"type:text"`
	CoverURL    string `gorm:"type:varchar(500)"`
	Active      bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Farm) TableName() string {
	return "farms"
}

// NewFarm creates a new farm
func NewFarm(name, region string) (*Farm, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Farm name cannot be empty")
	}
	return &Farm{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Region:     region,
		Active:     true,
	}, nil
}

// Crop represents a crop variety that can be grown on adoption plots
type Crop struct {
	shared.BaseEntity
	FarmID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Variety     string    `gorm:"type:varchar(100)"`
	GrowthDays  int       `gorm:"not null"`
	Description string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Crop) TableName() string {
	return "crops"
}

// NewCrop creates a new crop for a farm
func NewCrop(farmID uuid.UUID, name, variety string, growthDays int) (*Crop, error) {
	if farmID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FARM", "Farm ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Crop name cannot be empty")
	}
	if growthDays <= 0 {
		return nil, shared.NewDomainError("INVALID_GROWTH_DAYS", "Growth days must be positive")
	}
	return &Crop{
		BaseEntity: shared.NewBaseEntity(),
		FarmID:     farmID,
		Name:       name,
		Variety:    variety,
		GrowthDays: growthDays,
	}, nil
}
