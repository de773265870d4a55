package adoption

import (
	"context"
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProjectRepository provides access to adoption projects
type ProjectRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Project, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, project *Project) error
	// SaveWithUnits persists a new project together with its generated unit
	// rows in one transaction
	SaveWithUnits(ctx context.Context, project *Project, units []Unit) error
}

// UnitRepository provides access to project units. All writes on the
// allocation path (AVAILABLE/RESERVED/ADOPTED) go through the AllocationStore
// so that allocation state never changes outside a transaction that also
// touches the order and the counter; AdvanceByProject only serves the
// post-allocation harvest transition.
type UnitRepository interface {
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]Unit, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Unit, error)
	CountByProjectAndStatus(ctx context.Context, projectID uuid.UUID, status UnitStatus) (int64, error)
	// AdvanceByProject conditionally moves all units of a project from one
	// status to another, returning the number of rows updated
	AdvanceByProject(ctx context.Context, projectID uuid.UUID, from, to UnitStatus) (int64, error)
}

// OrderRepository provides access to adoption orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*Order, error)
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]Order, error)
	CountByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (int64, error)
	// FindExpiredOrderNos returns order numbers still in PENDING_PAYMENT whose
	// payment deadline lies before the given time
	FindExpiredOrderNos(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// AdoptionRecordRepository provides access to the adoption read model
type AdoptionRecordRepository interface {
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]AdoptionRecord, error)
	CountByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]AdoptionRecord, error)
	// AdvanceStatusByProject moves all records of a project from one progress
	// status to the next, returning the number of records updated
	AdvanceStatusByProject(ctx context.Context, projectID uuid.UUID, from, to RecordStatus) (int64, error)
}

// ReserveCommand carries the parameters of one unit reservation attempt
type ReserveCommand struct {
	ProjectID      uuid.UUID
	BuyerID        uuid.UUID
	UnitCount      int
	IdempotencyKey string
	OrderNo        string
	ExpiresAt      time.Time
}

// AllocationStore is the transactional port of the allocation engine. Every
// method runs as a single atomic transaction over the order, its units and
// the project counter; implementations must guarantee that no partially
// updated triple is ever observable and must report lost races as
// ErrConcurrencyConflict.
type AllocationStore interface {
	// Reserve atomically selects the lowest-numbered available units, flips
	// them to RESERVED, decrements the project counter and inserts the order.
	// A command whose idempotency key already has an order returns that order
	// unchanged.
	Reserve(ctx context.Context, cmd ReserveCommand) (*Order, error)

	// CompletePayment transitions a pending order to PAID, adopts its units
	// and creates one AdoptionRecord per unit. Calling it again with the same
	// payment reference is a no-op returning the paid order.
	CompletePayment(ctx context.Context, orderNo, paymentRef string, now time.Time) (*Order, error)

	// CancelOrder transitions a pending order to CANCELLED and releases its
	// units back to inventory.
	CancelOrder(ctx context.Context, orderNo, reason string, now time.Time) (*Order, error)

	// ReclaimOrder transitions an expired pending order to TIMEOUT_CANCELLED
	// and releases its units. Returns false without error when the order is no
	// longer pending, which is how a race against payment completion loses
	// cleanly.
	ReclaimOrder(ctx context.Context, orderNo string, now time.Time) (bool, error)
}
