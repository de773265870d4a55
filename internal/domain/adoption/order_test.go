package adoption

import (
	"testing"
	"time"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createTestOrder(t *testing.T) *Order {
	buyerID := uuid.New()
	projectID := uuid.New()
	order, err := NewOrder("AD-20260101-0001", buyerID, projectID, 2,
		decimal.NewFromInt(199), "idem-key-1", time.Now().Add(30*time.Minute))
	require.NoError(t, err)
	return order
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

// ============================================
// OrderStatus Tests
// ============================================

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		isValid bool
	}{
		{OrderStatusPendingPayment, true},
		{OrderStatusPaid, true},
		{OrderStatusCancelled, true},
		{OrderStatusTimeoutCancelled, true},
		{OrderStatusRefunded, true},
		{OrderStatus("INVALID"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		canTrans bool
	}{
		// From PENDING_PAYMENT
		{OrderStatusPendingPayment, OrderStatusPaid, true},
		{OrderStatusPendingPayment, OrderStatusCancelled, true},
		{OrderStatusPendingPayment, OrderStatusTimeoutCancelled, true},
		{OrderStatusPendingPayment, OrderStatusRefunded, false},
		// From PAID
		{OrderStatusPaid, OrderStatusRefunded, true},
		{OrderStatusPaid, OrderStatusPendingPayment, false},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusPaid, OrderStatusTimeoutCancelled, false},
		// From CANCELLED (terminal)
		{OrderStatusCancelled, OrderStatusPendingPayment, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusCancelled, OrderStatusRefunded, false},
		// From TIMEOUT_CANCELLED (terminal)
		{OrderStatusTimeoutCancelled, OrderStatusPendingPayment, false},
		{OrderStatusTimeoutCancelled, OrderStatusPaid, false},
		// From REFUNDED (terminal)
		{OrderStatusRefunded, OrderStatusPaid, false},
		{OrderStatusRefunded, OrderStatusPendingPayment, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPendingPayment.IsTerminal())
	assert.True(t, OrderStatusPaid.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusTimeoutCancelled.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
}

// ============================================
// Order Creation Tests
// ============================================

func TestNewOrder_Success(t *testing.T) {
	buyerID := uuid.New()
	projectID := uuid.New()
	expiresAt := time.Now().Add(30 * time.Minute)

	order, err := NewOrder("AD-20260101-0001", buyerID, projectID, 3,
		decimal.NewFromFloat(298.50), "idem-key-1", expiresAt)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "AD-20260101-0001", order.OrderNo)
	assert.Equal(t, buyerID, order.BuyerID)
	assert.Equal(t, projectID, order.ProjectID)
	assert.Equal(t, 3, order.UnitCount)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(298.50)))
	assert.Equal(t, OrderStatusPendingPayment, order.Status)
	assert.Equal(t, "idem-key-1", order.IdempotencyKey)
	assert.Equal(t, expiresAt, order.ExpiresAt)
	assert.Empty(t, order.Units)
	assert.Nil(t, order.PaidAt)

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderCreated, events[0].EventType())
}

func TestNewOrder_ValidationErrors(t *testing.T) {
	buyerID := uuid.New()
	projectID := uuid.New()
	amount := decimal.NewFromInt(100)
	expiresAt := time.Now().Add(30 * time.Minute)

	tests := []struct {
		name      string
		orderNo   string
		buyerID   uuid.UUID
		projectID uuid.UUID
		unitCount int
		amount    decimal.Decimal
		wantCode  string
	}{
		{"empty order number", "", buyerID, projectID, 1, amount, "INVALID_ORDER_NUMBER"},
		{"nil buyer", "AD-1", uuid.Nil, projectID, 1, amount, "INVALID_BUYER"},
		{"nil project", "AD-1", buyerID, uuid.Nil, 1, amount, "INVALID_PROJECT"},
		{"zero unit count", "AD-1", buyerID, projectID, 0, amount, "INVALID_UNIT_COUNT"},
		{"negative unit count", "AD-1", buyerID, projectID, -2, amount, "INVALID_UNIT_COUNT"},
		{"zero amount", "AD-1", buyerID, projectID, 1, decimal.Zero, "INVALID_AMOUNT"},
		{"negative amount", "AD-1", buyerID, projectID, 1, decimal.NewFromInt(-5), "INVALID_AMOUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder(tt.orderNo, tt.buyerID, tt.projectID, tt.unitCount, tt.amount, "key", expiresAt)
			assert.Nil(t, order)
			assertDomainErrorCode(t, err, tt.wantCode)
		})
	}
}

// ============================================
// Order Lifecycle Tests
// ============================================

func TestOrder_MarkPaid(t *testing.T) {
	order := createTestOrder(t)
	order.ClearDomainEvents()
	now := time.Now()

	err := order.MarkPaid("pay-ref-001", now)

	require.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, order.Status)
	assert.Equal(t, "pay-ref-001", order.PaymentRef)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, now, *order.PaidAt)
	assert.True(t, order.IsPaid())
	assert.True(t, order.IsTerminal())

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderPaid, events[0].EventType())
}

func TestOrder_MarkPaid_EmptyRef(t *testing.T) {
	order := createTestOrder(t)

	err := order.MarkPaid("", time.Now())

	assertDomainErrorCode(t, err, "INVALID_PAYMENT_REF")
	assert.Equal(t, OrderStatusPendingPayment, order.Status)
}

func TestOrder_MarkPaid_AlreadyFinalized(t *testing.T) {
	order := createTestOrder(t)
	require.NoError(t, order.Cancel("buyer cancelled", time.Now()))

	err := order.MarkPaid("pay-ref-001", time.Now())

	assertDomainErrorCode(t, err, "INVALID_STATE")
	assert.Equal(t, OrderStatusCancelled, order.Status)
}

func TestOrder_Cancel(t *testing.T) {
	order := createTestOrder(t)
	order.ClearDomainEvents()
	now := time.Now()

	err := order.Cancel("changed my mind", now)

	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.Equal(t, "changed my mind", order.CancelReason)
	require.NotNil(t, order.CancelledAt)
	assert.Equal(t, now, *order.CancelledAt)

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderCancelled, events[0].EventType())
}

func TestOrder_Cancel_RequiresReason(t *testing.T) {
	order := createTestOrder(t)

	err := order.Cancel("", time.Now())

	assertDomainErrorCode(t, err, "INVALID_REASON")
	assert.Equal(t, OrderStatusPendingPayment, order.Status)
}

func TestOrder_Cancel_AfterPaid(t *testing.T) {
	order := createTestOrder(t)
	require.NoError(t, order.MarkPaid("pay-ref-001", time.Now()))

	err := order.Cancel("too late", time.Now())

	assertDomainErrorCode(t, err, "INVALID_STATE")
	assert.Equal(t, OrderStatusPaid, order.Status)
}

func TestOrder_MarkTimeoutCancelled(t *testing.T) {
	order := createTestOrder(t)
	now := time.Now()

	err := order.MarkTimeoutCancelled(now)

	require.NoError(t, err)
	assert.Equal(t, OrderStatusTimeoutCancelled, order.Status)
	assert.Equal(t, "payment window elapsed", order.CancelReason)
	require.NotNil(t, order.CancelledAt)
}

func TestOrder_MarkTimeoutCancelled_AfterPaid(t *testing.T) {
	order := createTestOrder(t)
	require.NoError(t, order.MarkPaid("pay-ref-001", time.Now()))

	err := order.MarkTimeoutCancelled(time.Now())

	assertDomainErrorCode(t, err, "INVALID_STATE")
	assert.Equal(t, OrderStatusPaid, order.Status)
}

func TestOrder_Refund(t *testing.T) {
	order := createTestOrder(t)
	require.NoError(t, order.MarkPaid("pay-ref-001", time.Now()))

	err := order.Refund("crop failure", time.Now())

	require.NoError(t, err)
	assert.Equal(t, OrderStatusRefunded, order.Status)
	assert.Equal(t, "crop failure", order.CancelReason)
}

func TestOrder_Refund_NotPaid(t *testing.T) {
	order := createTestOrder(t)

	err := order.Refund("nope", time.Now())

	assertDomainErrorCode(t, err, "INVALID_STATE")
}

// ============================================
// Order Unit Attachment Tests
// ============================================

func TestOrder_AttachUnit(t *testing.T) {
	order := createTestOrder(t)
	unit1 := uuid.New()
	unit2 := uuid.New()

	order.AttachUnit(unit1, 4)
	order.AttachUnit(unit2, 7)

	require.Len(t, order.Units, 2)
	assert.Equal(t, order.ID, order.Units[0].OrderID)
	assert.Equal(t, unit1, order.Units[0].UnitID)
	assert.Equal(t, 4, order.Units[0].UnitNumber)
	assert.Equal(t, []uuid.UUID{unit1, unit2}, order.UnitIDs())
}

func TestOrder_IsExpired(t *testing.T) {
	order := createTestOrder(t)

	assert.False(t, order.IsExpired(order.ExpiresAt.Add(-time.Minute)))
	assert.False(t, order.IsExpired(order.ExpiresAt))
	assert.True(t, order.IsExpired(order.ExpiresAt.Add(time.Second)))
}
