package adoption

import (
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the adoption order lifecycle
const (
	EventTypeOrderCreated   = "adoption.order.created"
	EventTypeOrderPaid      = "adoption.order.paid"
	EventTypeOrderCancelled = "adoption.order.cancelled"
)

const aggregateTypeOrder = "AdoptionOrder"

// OrderCreatedEvent is raised when the allocation engine reserves units and
// creates a pending order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNo   string    `json:"order_no"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	ProjectID uuid.UUID `json:"project_id"`
	UnitCount int       `json:"unit_count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, aggregateTypeOrder, order.ID),
		OrderNo:         order.OrderNo,
		BuyerID:         order.BuyerID,
		ProjectID:       order.ProjectID,
		UnitCount:       order.UnitCount,
		ExpiresAt:       order.ExpiresAt,
	}
}

// OrderPaidEvent is raised when payment completion adopts the reserved units
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderNo    string    `json:"order_no"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	ProjectID  uuid.UUID `json:"project_id"`
	UnitCount  int       `json:"unit_count"`
	PaymentRef string    `json:"payment_ref"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(order *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, aggregateTypeOrder, order.ID),
		OrderNo:         order.OrderNo,
		BuyerID:         order.BuyerID,
		ProjectID:       order.ProjectID,
		UnitCount:       order.UnitCount,
		PaymentRef:      order.PaymentRef,
	}
}

// OrderCancelledEvent is raised when an order is cancelled, either explicitly
// or by the timeout reclaimer, and its units return to inventory
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNo   string    `json:"order_no"`
	ProjectID uuid.UUID `json:"project_id"`
	UnitCount int       `json:"unit_count"`
	Reason    string    `json:"reason"`
	ByTimeout bool      `json:"by_timeout"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(order *Order, byTimeout bool) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, aggregateTypeOrder, order.ID),
		OrderNo:         order.OrderNo,
		ProjectID:       order.ProjectID,
		UnitCount:       order.UnitCount,
		Reason:          order.CancelReason,
		ByTimeout:       byTimeout,
	}
}
