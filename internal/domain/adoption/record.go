package adoption

import (
	"fmt"
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RecordStatus reflects the growth progress of an adopted unit
type RecordStatus string

const (
	RecordStatusGrowing   RecordStatus = "GROWING"
	RecordStatusHarvested RecordStatus = "HARVESTED"
	RecordStatusDelivered RecordStatus = "DELIVERED"
)

// IsValid checks if the status is a valid RecordStatus
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusGrowing, RecordStatusHarvested, RecordStatusDelivered:
		return true
	}
	return false
}

// AdoptionRecord binds a buyer to one adopted unit for the duration of the
// project. It is created exactly once when the owning order reaches PAID and
// is immutable apart from the derived progress status.
type AdoptionRecord struct {
	shared.BaseEntity
	OrderID    uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_record_order_unit"`
	UnitID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_record_order_unit"`
	UnitNumber int          `gorm:"not null"`
	ProjectID  uuid.UUID    `gorm:"type:uuid;not null;index"`
	BuyerID    uuid.UUID    `gorm:"type:uuid;not null;index"`
	Status     RecordStatus `gorm:"type:varchar(20);not null"`
	AdoptedAt  time.Time    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AdoptionRecord) TableName() string {
	return "adoption_records"
}

// NewAdoptionRecord creates a record for one adopted unit of a paid order
func NewAdoptionRecord(orderID, unitID uuid.UUID, unitNumber int, projectID, buyerID uuid.UUID, adoptedAt time.Time) *AdoptionRecord {
	return &AdoptionRecord{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		UnitID:     unitID,
		UnitNumber: unitNumber,
		ProjectID:  projectID,
		BuyerID:    buyerID,
		Status:     RecordStatusGrowing,
		AdoptedAt:  adoptedAt,
	}
}

// MarkHarvested advances the record when the project's harvest completes
func (r *AdoptionRecord) MarkHarvested() error {
	if r.Status != RecordStatusGrowing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot harvest record in %s status", r.Status))
	}
	r.Status = RecordStatusHarvested
	r.UpdatedAt = time.Now()
	return nil
}

// MarkDelivered advances the record once the produce shipment is delivered
func (r *AdoptionRecord) MarkDelivered() error {
	if r.Status != RecordStatusHarvested {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deliver record in %s status", r.Status))
	}
	r.Status = RecordStatusDelivered
	r.UpdatedAt = time.Now()
	return nil
}
