package adoption

import (
	"context"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RecordService serves the "my adoptions" read model. Records are created by
// the payment completion transaction; this service only reads.
type RecordService struct {
	recordRepo adoption.AdoptionRecordRepository
}

// NewRecordService creates a new RecordService
func NewRecordService(recordRepo adoption.AdoptionRecordRepository) *RecordService {
	return &RecordService{recordRepo: recordRepo}
}

// ListByBuyer retrieves a buyer's adoption records with pagination
func (s *RecordService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]RecordResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	records, err := s.recordRepo.FindByBuyer(ctx, buyerID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.recordRepo.CountByBuyer(ctx, buyerID)
	if err != nil {
		return nil, 0, err
	}
	return ToRecordResponses(records), total, nil
}

// ListByOrder retrieves the adoption records created by one paid order
func (s *RecordService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]RecordResponse, error) {
	records, err := s.recordRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToRecordResponses(records), nil
}
