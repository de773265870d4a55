package adoption

import "github.com/farmlink/backend/internal/domain/shared"

// Allocation engine error taxonomy. All are business-state facts except
// ErrConcurrencyConflict (re-exported from shared), which is the only error
// the engine may retry internally.
var (
	ErrInsufficientInventory = shared.NewDomainError("INSUFFICIENT_INVENTORY", "Not enough available units in the project")
	ErrProjectNotOpen        = shared.NewDomainError("PROJECT_NOT_OPEN", "Project is not accepting new orders")
	ErrOrderNotFound         = shared.NewDomainError("ORDER_NOT_FOUND", "Adoption order not found")
	ErrOrderAlreadyFinalized = shared.NewDomainError("ORDER_ALREADY_FINALIZED", "Adoption order is already in a terminal state")
	ErrOrderExpired          = shared.NewDomainError("ORDER_EXPIRED", "Payment window for the order has elapsed")

	// ErrConcurrencyConflict denotes a transient transaction race; callers
	// inside the engine retry it with bounded backoff, external callers may
	// simply resubmit.
	ErrConcurrencyConflict = shared.ErrConcurrencyConflict
)
