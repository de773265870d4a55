package adoption

import (
	"fmt"
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectStatus represents the lifecycle status of an adoption project
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "DRAFT"
	ProjectStatusOpen       ProjectStatus = "OPEN"
	ProjectStatusFull       ProjectStatus = "FULL"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusCancelled  ProjectStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ProjectStatus
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusOpen, ProjectStatusFull,
		ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ProjectStatus
func (s ProjectStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ProjectStatus) CanTransitionTo(target ProjectStatus) bool {
	switch s {
	case ProjectStatusDraft:
		return target == ProjectStatusOpen || target == ProjectStatusCancelled
	case ProjectStatusOpen:
		return target == ProjectStatusFull || target == ProjectStatusInProgress || target == ProjectStatusCancelled
	case ProjectStatusFull:
		return target == ProjectStatusOpen || target == ProjectStatusInProgress || target == ProjectStatusCancelled
	case ProjectStatusInProgress:
		return target == ProjectStatusCompleted || target == ProjectStatusCancelled
	case ProjectStatusCompleted, ProjectStatusCancelled:
		return false // Terminal states
	}
	return false
}

// Project represents an adoptable growing cycle on a farm plot.
// It is the aggregate root that owns the project's allocatable units.
//
// AvailableUnits is a denormalized counter over the unit rows. It is only
// ever mutated co-transactionally with the unit rows themselves; the unit
// row is the source of truth for allocation state.
type Project struct {
	shared.BaseAggregateRoot
	FarmID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	CropID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Description    string          `gorm:"type:text"`
	TotalUnits     int             `gorm:"not null"`
	AvailableUnits int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status         ProjectStatus   `gorm:"type:varchar(20);not null;index"`
	StartAt        time.Time       `gorm:"not null"`
	EndAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Project) TableName() string {
	return "adoption_projects"
}

// NewProject creates a new adoption project in DRAFT status
func NewProject(farmID, cropID uuid.UUID, name string, totalUnits int, unitPrice decimal.Decimal, startAt, endAt time.Time) (*Project, error) {
	if farmID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FARM", "Farm ID cannot be empty")
	}
	if cropID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CROP", "Crop ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Project name cannot be empty")
	}
	if totalUnits < 1 {
		return nil, shared.NewDomainError("INVALID_UNIT_COUNT", "Project must have at least one unit")
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price must be positive")
	}
	if !endAt.After(startAt) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Project end time must be after start time")
	}

	return &Project{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FarmID:            farmID,
		CropID:            cropID,
		Name:              name,
		TotalUnits:        totalUnits,
		AvailableUnits:    totalUnits,
		UnitPrice:         unitPrice,
		Status:            ProjectStatusDraft,
		StartAt:           startAt,
		EndAt:             endAt,
	}, nil
}

// Open publishes the project so buyers can reserve units
func (p *Project) Open() error {
	if !p.Status.CanTransitionTo(ProjectStatusOpen) && p.Status != ProjectStatusFull {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot open project in %s status", p.Status))
	}
	p.Status = ProjectStatusOpen
	p.UpdatedAt = time.Now()
	return nil
}

// StartGrowing transitions the project to IN_PROGRESS at the start of the cycle
func (p *Project) StartGrowing() error {
	if !p.Status.CanTransitionTo(ProjectStatusInProgress) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start project in %s status", p.Status))
	}
	p.Status = ProjectStatusInProgress
	p.UpdatedAt = time.Now()
	return nil
}

// Complete transitions the project to COMPLETED after harvest
func (p *Project) Complete() error {
	if !p.Status.CanTransitionTo(ProjectStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete project in %s status", p.Status))
	}
	p.Status = ProjectStatusCompleted
	p.UpdatedAt = time.Now()
	return nil
}

// Cancel cancels the project
func (p *Project) Cancel() error {
	if !p.Status.CanTransitionTo(ProjectStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel project in %s status", p.Status))
	}
	p.Status = ProjectStatusCancelled
	p.UpdatedAt = time.Now()
	return nil
}

// AcceptsOrders returns true if new reservations are allowed
func (p *Project) AcceptsOrders() bool {
	return p.Status == ProjectStatusOpen
}

// IsSoldOut returns true if no units remain available
func (p *Project) IsSoldOut() bool {
	return p.AvailableUnits == 0
}

// TotalPriceFor returns the total amount for the requested number of units
func (p *Project) TotalPriceFor(count int) decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(count)))
}
