package adoption

import (
	"fmt"
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an adoption order
type OrderStatus string

const (
	OrderStatusPendingPayment   OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid             OrderStatus = "PAID"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusTimeoutCancelled OrderStatus = "TIMEOUT_CANCELLED"
	OrderStatusRefunded         OrderStatus = "REFUNDED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusCancelled,
		OrderStatusTimeoutCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPendingPayment:
		return target == OrderStatusPaid || target == OrderStatusCancelled || target == OrderStatusTimeoutCancelled
	case OrderStatusPaid:
		return target == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusTimeoutCancelled, OrderStatusRefunded:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true for states that end the payment lifecycle
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusCancelled, OrderStatusTimeoutCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// OrderUnit records one unit reserved by an order. Rows are written when the
// reservation commits and are never deleted, so the order keeps its unit
// history even after a reclaim releases the units themselves.
type OrderUnit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	UnitID     uuid.UUID `gorm:"type:uuid;not null"`
	UnitNumber int       `gorm:"not null"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (OrderUnit) TableName() string {
	return "adoption_order_units"
}

// Order represents a purchase intent for one or more units of a project.
// It is created in PENDING_PAYMENT by the allocation engine and finalized by
// either the payment completion handler or the timeout reclaimer.
type Order struct {
	shared.BaseAggregateRoot
	OrderNo        string          `gorm:"type:varchar(40);not null;uniqueIndex"`
	BuyerID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_adoption_orders_buyer_key"`
	ProjectID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitCount      int             `gorm:"not null"`
	Units          []OrderUnit     `gorm:"foreignKey:OrderID"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index"`
	IdempotencyKey string          `gorm:"type:varchar(100);uniqueIndex:idx_adoption_orders_buyer_key"`
	PaymentRef     string          `gorm:"type:varchar(100)"`
	ExpiresAt      time.Time       `gorm:"not null;index"`
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "adoption_orders"
}

// NewOrder creates a new adoption order in PENDING_PAYMENT status
func NewOrder(orderNo string, buyerID, projectID uuid.UUID, unitCount int, totalAmount decimal.Decimal, idempotencyKey string, expiresAt time.Time) (*Order, error) {
	if orderNo == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if unitCount < 1 {
		return nil, shared.NewDomainError("INVALID_UNIT_COUNT", "Requested unit count must be at least 1")
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order amount must be positive")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNo:           orderNo,
		BuyerID:           buyerID,
		ProjectID:         projectID,
		UnitCount:         unitCount,
		Units:             make([]OrderUnit, 0, unitCount),
		TotalAmount:       totalAmount,
		Status:            OrderStatusPendingPayment,
		IdempotencyKey:    idempotencyKey,
		ExpiresAt:         expiresAt,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AttachUnit records a reserved unit on the order
func (o *Order) AttachUnit(unitID uuid.UUID, unitNumber int) {
	o.Units = append(o.Units, OrderUnit{
		ID:         uuid.New(),
		OrderID:    o.ID,
		UnitID:     unitID,
		UnitNumber: unitNumber,
		CreatedAt:  time.Now(),
	})
}

// UnitIDs returns the ids of the units reserved by this order
func (o *Order) UnitIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(o.Units))
	for i, u := range o.Units {
		ids[i] = u.UnitID
	}
	return ids
}

// IsExpired reports whether the payment deadline has passed at the given time
func (o *Order) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// MarkPaid transitions the order to PAID with the gateway payment reference
func (o *Order) MarkPaid(paymentRef string, now time.Time) error {
	if paymentRef == "" {
		return shared.NewDomainError("INVALID_PAYMENT_REF", "Payment reference cannot be empty")
	}
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pay order in %s status", o.Status))
	}
	o.Status = OrderStatusPaid
	o.PaymentRef = paymentRef
	o.PaidAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderPaidEvent(o))

	return nil
}

// Cancel transitions the order to CANCELLED with a reason
func (o *Order) Cancel(reason string, now time.Time) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o, false))

	return nil
}

// MarkTimeoutCancelled transitions the order to TIMEOUT_CANCELLED after the
// payment window elapsed without a successful payment
func (o *Order) MarkTimeoutCancelled(now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusTimeoutCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reclaim order in %s status", o.Status))
	}
	o.Status = OrderStatusTimeoutCancelled
	o.CancelledAt = &now
	o.CancelReason = "payment window elapsed"
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o, true))

	return nil
}

// Refund transitions a paid order to REFUNDED
func (o *Order) Refund(reason string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusRefunded) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund order in %s status", o.Status))
	}
	o.Status = OrderStatusRefunded
	o.CancelReason = reason
	o.UpdatedAt = now
	return nil
}

// IsPendingPayment returns true while the order awaits payment
func (o *Order) IsPendingPayment() bool {
	return o.Status == OrderStatusPendingPayment
}

// IsPaid returns true if the order has been paid
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// IsTerminal returns true if the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}
