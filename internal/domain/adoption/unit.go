package adoption

import (
	"fmt"
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UnitStatus represents the allocation status of a project unit
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "AVAILABLE"
	UnitStatusReserved    UnitStatus = "RESERVED"
	UnitStatusAdopted     UnitStatus = "ADOPTED"
	UnitStatusMaintenance UnitStatus = "MAINTENANCE"
	UnitStatusHarvested   UnitStatus = "HARVESTED"
)

// IsValid checks if the status is a valid UnitStatus
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusReserved, UnitStatusAdopted,
		UnitStatusMaintenance, UnitStatusHarvested:
		return true
	}
	return false
}

// String returns the string representation of UnitStatus
func (s UnitStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// The allocation path is strictly AVAILABLE -> RESERVED -> (ADOPTED | AVAILABLE);
// MAINTENANCE is only reachable from and back to AVAILABLE, and HARVESTED only
// from ADOPTED.
func (s UnitStatus) CanTransitionTo(target UnitStatus) bool {
	switch s {
	case UnitStatusAvailable:
		return target == UnitStatusReserved || target == UnitStatusMaintenance
	case UnitStatusReserved:
		return target == UnitStatusAdopted || target == UnitStatusAvailable
	case UnitStatusAdopted:
		return target == UnitStatusHarvested
	case UnitStatusMaintenance:
		return target == UnitStatusAvailable
	case UnitStatusHarvested:
		return false
	}
	return false
}

// Unit represents one allocatable slot within an adoption project.
// A unit holds at most one non-released reservation at any time: OrderID is
// set exactly when the unit is RESERVED or ADOPTED.
type Unit struct {
	shared.BaseEntity
	ProjectID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_unit_project_number"`
	Number    int        `gorm:"not null;uniqueIndex:idx_unit_project_number"`
	Status    UnitStatus `gorm:"type:varchar(20);not null;index"`
	OrderID   *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "adoption_units"
}

// NewUnit creates a new available unit for a project
func NewUnit(projectID uuid.UUID, number int) *Unit {
	return &Unit{
		BaseEntity: shared.NewBaseEntity(),
		ProjectID:  projectID,
		Number:     number,
		Status:     UnitStatusAvailable,
	}
}

// Reserve places a reservation hold for the given order
func (u *Unit) Reserve(orderID uuid.UUID) error {
	if err := u.transition(UnitStatusReserved); err != nil {
		return err
	}
	u.OrderID = &orderID
	return nil
}

// Adopt finalizes the reservation held by the owning order
func (u *Unit) Adopt() error {
	return u.transition(UnitStatusAdopted)
}

// Release returns a reserved unit to the available pool
func (u *Unit) Release() error {
	if err := u.transition(UnitStatusAvailable); err != nil {
		return err
	}
	u.OrderID = nil
	return nil
}

// MarkHarvested marks an adopted unit as harvested
func (u *Unit) MarkHarvested() error {
	return u.transition(UnitStatusHarvested)
}

// IsAllocated returns true while the unit counts against available inventory
func (u *Unit) IsAllocated() bool {
	return u.Status == UnitStatusReserved || u.Status == UnitStatusAdopted
}

func (u *Unit) transition(target UnitStatus) error {
	if !u.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Unit %d cannot transition from %s to %s", u.Number, u.Status, target))
	}
	u.Status = target
	u.UpdatedAt = time.Now()
	return nil
}
