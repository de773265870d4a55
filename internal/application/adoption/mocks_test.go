package adoption

import (
	"context"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockAllocationStore is a mock implementation of adoption.AllocationStore
type MockAllocationStore struct {
	mock.Mock
}

func (m *MockAllocationStore) Reserve(ctx context.Context, cmd adoption.ReserveCommand) (*adoption.Order, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Order), args.Error(1)
}

func (m *MockAllocationStore) CompletePayment(ctx context.Context, orderNo, paymentRef string, now time.Time) (*adoption.Order, error) {
	args := m.Called(ctx, orderNo, paymentRef, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Order), args.Error(1)
}

func (m *MockAllocationStore) CancelOrder(ctx context.Context, orderNo, reason string, now time.Time) (*adoption.Order, error) {
	args := m.Called(ctx, orderNo, reason, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Order), args.Error(1)
}

func (m *MockAllocationStore) ReclaimOrder(ctx context.Context, orderNo string, now time.Time) (bool, error) {
	args := m.Called(ctx, orderNo, now)
	return args.Bool(0), args.Error(1)
}

// MockOrderRepository is a mock implementation of adoption.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*adoption.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*adoption.Order, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*adoption.Order, error) {
	args := m.Called(ctx, buyerID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]adoption.Order, error) {
	args := m.Called(ctx, buyerID, filter)
	return args.Get(0).([]adoption.Order), args.Error(1)
}

func (m *MockOrderRepository) CountByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, buyerID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) FindExpiredOrderNos(ctx context.Context, before time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]string), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, messageID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockProjectRepository is a mock implementation of adoption.ProjectRepository
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*adoption.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adoption.Project), args.Error(1)
}

func (m *MockProjectRepository) FindAll(ctx context.Context, filter shared.Filter) ([]adoption.Project, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]adoption.Project), args.Error(1)
}

func (m *MockProjectRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *adoption.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) SaveWithUnits(ctx context.Context, project *adoption.Project, units []adoption.Unit) error {
	args := m.Called(ctx, project, units)
	return args.Error(0)
}

// MockUnitRepository is a mock implementation of adoption.UnitRepository
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]adoption.Unit, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]adoption.Unit), args.Error(1)
}

func (m *MockUnitRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]adoption.Unit, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]adoption.Unit), args.Error(1)
}

func (m *MockUnitRepository) CountByProjectAndStatus(ctx context.Context, projectID uuid.UUID, status adoption.UnitStatus) (int64, error) {
	args := m.Called(ctx, projectID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUnitRepository) AdvanceByProject(ctx context.Context, projectID uuid.UUID, from, to adoption.UnitStatus) (int64, error) {
	args := m.Called(ctx, projectID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// MockRecordRepository is a mock implementation of adoption.AdoptionRecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]adoption.AdoptionRecord, error) {
	args := m.Called(ctx, buyerID, filter)
	return args.Get(0).([]adoption.AdoptionRecord), args.Error(1)
}

func (m *MockRecordRepository) CountByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, buyerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecordRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]adoption.AdoptionRecord, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]adoption.AdoptionRecord), args.Error(1)
}

func (m *MockRecordRepository) AdvanceStatusByProject(ctx context.Context, projectID uuid.UUID, from, to adoption.RecordStatus) (int64, error) {
	args := m.Called(ctx, projectID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// newPendingOrder builds a pending order for service tests
func newPendingOrder(orderNo string, unitCount int) *adoption.Order {
	order, err := adoption.NewOrder(orderNo, uuid.New(), uuid.New(), unitCount,
		decimal.NewFromInt(int64(unitCount)*100), "key-"+orderNo, time.Now().Add(30*time.Minute))
	if err != nil {
		panic(err)
	}
	order.ClearDomainEvents()
	return order
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
