package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAllocationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	return db
}

// seedOpenProject creates an OPEN project with the given number of units,
// numbered from 1.
func seedOpenProject(t *testing.T, db *gorm.DB, totalUnits int) *adoption.Project {
	project, err := adoption.NewProject(uuid.New(), uuid.New(), "Test Plot",
		totalUnits, decimal.NewFromInt(100), time.Now(), time.Now().Add(90*24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, project.Open())
	require.NoError(t, db.Create(project).Error)

	for i := 1; i <= totalUnits; i++ {
		require.NoError(t, db.Create(adoption.NewUnit(project.ID, i)).Error)
	}
	return project
}

func reserveCmd(projectID uuid.UUID, unitCount int, key string) adoption.ReserveCommand {
	return adoption.ReserveCommand{
		ProjectID:      projectID,
		BuyerID:        uuid.New(),
		UnitCount:      unitCount,
		IdempotencyKey: key,
		OrderNo:        "AD-" + key,
		ExpiresAt:      time.Now().Add(30 * time.Minute),
	}
}

func projectState(t *testing.T, db *gorm.DB, id uuid.UUID) *adoption.Project {
	var p adoption.Project
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}

func unitCountByStatus(t *testing.T, db *gorm.DB, projectID uuid.UUID, status adoption.UnitStatus) int64 {
	var n int64
	require.NoError(t, db.Model(&adoption.Unit{}).
		Where("project_id = ? AND status = ?", projectID, status).
		Count(&n).Error)
	return n
}

// ============================================
// Reserve Tests
// ============================================

func TestAllocationStore_Reserve(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))

	require.NoError(t, err)
	assert.Equal(t, adoption.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, 2, order.UnitCount)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200)))

	// Lowest-numbered units first
	require.Len(t, order.Units, 2)
	assert.Equal(t, 1, order.Units[0].UnitNumber)
	assert.Equal(t, 2, order.Units[1].UnitNumber)

	assert.Equal(t, 3, projectState(t, db, project.ID).AvailableUnits)
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
	assert.Equal(t, int64(3), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAvailable))
}

func TestAllocationStore_Reserve_IdempotencyKeyReplay(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	cmd := reserveCmd(project.ID, 2, "k1")
	first, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)

	// Same buyer and key again must return the first order and reserve
	// nothing new, even with a different requested count.
	replay := cmd
	replay.UnitCount = 4
	second, err := store.Reserve(ctx, replay)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.OrderNo, second.OrderNo)
	assert.Equal(t, 2, second.UnitCount)
	assert.Equal(t, 3, projectState(t, db, project.ID).AvailableUnits)
}

func TestAllocationStore_Reserve_SameKeyDifferentBuyer(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	first, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)

	// Keys are scoped per buyer: another buyer reusing the same key gets
	// their own order, not a replay of someone else's.
	other := reserveCmd(project.ID, 1, "k1")
	other.OrderNo = "AD-other"
	second, err := store.Reserve(ctx, other)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.BuyerID, second.BuyerID)
	assert.Equal(t, 2, projectState(t, db, project.ID).AvailableUnits)
}

func TestAllocationStore_Reserve_ExactSellOut(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	_, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)
	_, err = store.Reserve(ctx, reserveCmd(project.ID, 3, "k2"))
	require.NoError(t, err)

	// Counter at zero flips the project to FULL.
	p := projectState(t, db, project.ID)
	assert.Equal(t, 0, p.AvailableUnits)
	assert.Equal(t, adoption.ProjectStatusFull, p.Status)
	assert.Equal(t, int64(5), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
}

func TestAllocationStore_Reserve_InsufficientInventory(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 3)

	_, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)

	// Asking for more than remains must fail atomically: no partial
	// reservation, counter untouched.
	_, err = store.Reserve(ctx, reserveCmd(project.ID, 2, "k2"))

	require.ErrorIs(t, err, adoption.ErrInsufficientInventory)
	assert.Equal(t, 1, projectState(t, db, project.ID).AvailableUnits)
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))

	var orderCount int64
	require.NoError(t, db.Model(&adoption.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestAllocationStore_Reserve_SoldOutProject(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 2)

	_, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)

	_, err = store.Reserve(ctx, reserveCmd(project.ID, 1, "k2"))

	assert.ErrorIs(t, err, adoption.ErrInsufficientInventory)
}

func TestAllocationStore_Reserve_ProjectNotOpen(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()

	project, err := adoption.NewProject(uuid.New(), uuid.New(), "Draft Plot",
		3, decimal.NewFromInt(100), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, db.Create(project).Error)

	_, err = store.Reserve(ctx, reserveCmd(project.ID, 1, "k1"))

	assert.ErrorIs(t, err, adoption.ErrProjectNotOpen)
}

func TestAllocationStore_Reserve_UnknownProject(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)

	_, err := store.Reserve(context.Background(), reserveCmd(uuid.New(), 1, "k1"))

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ============================================
// CompletePayment Tests
// ============================================

func TestAllocationStore_CompletePayment(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)

	paid, err := store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())

	require.NoError(t, err)
	assert.Equal(t, adoption.OrderStatusPaid, paid.Status)
	assert.Equal(t, "pay-ref-001", paid.PaymentRef)
	assert.NotNil(t, paid.PaidAt)

	// Units flipped to ADOPTED, counter untouched.
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAdopted))
	assert.Equal(t, int64(0), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
	assert.Equal(t, 3, projectState(t, db, project.ID).AvailableUnits)

	// Exactly one adoption record per unit.
	var records []adoption.AdoptionRecord
	require.NoError(t, db.Where("order_id = ?", order.ID).Order("unit_number ASC").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, adoption.RecordStatusGrowing, records[0].Status)
	assert.Equal(t, 1, records[0].UnitNumber)
	assert.Equal(t, order.BuyerID, records[0].BuyerID)
}

func TestAllocationStore_CompletePayment_DuplicateCallback(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)
	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())
	require.NoError(t, err)

	// Same payment reference again is a benign replay: no new records.
	paid, err := store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())
	require.NoError(t, err)
	assert.Equal(t, adoption.OrderStatusPaid, paid.Status)

	var recordCount int64
	require.NoError(t, db.Model(&adoption.AdoptionRecord{}).Where("order_id = ?", order.ID).Count(&recordCount).Error)
	assert.Equal(t, int64(2), recordCount)
}

func TestAllocationStore_CompletePayment_DifferentRefOnPaid(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 1, "k1"))
	require.NoError(t, err)
	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())
	require.NoError(t, err)

	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-002", time.Now())

	assert.ErrorIs(t, err, adoption.ErrOrderAlreadyFinalized)
}

func TestAllocationStore_CompletePayment_ExpiredOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	cmd := reserveCmd(project.ID, 2, "k1")
	cmd.ExpiresAt = time.Now().Add(-time.Minute)
	order, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)

	// A late gateway success must not adopt possibly reclaimed units.
	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())

	require.ErrorIs(t, err, adoption.ErrOrderExpired)
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
}

func TestAllocationStore_CompletePayment_UnknownOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)

	_, err := store.CompletePayment(context.Background(), "missing", "ref", time.Now())

	assert.ErrorIs(t, err, adoption.ErrOrderNotFound)
}

func TestAllocationStore_CompletePayment_AfterReclaim(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	cmd := reserveCmd(project.ID, 2, "k1")
	cmd.ExpiresAt = time.Now().Add(-time.Minute)
	order, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)

	ok, err := store.ReclaimOrder(ctx, order.OrderNo, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())

	assert.ErrorIs(t, err, adoption.ErrOrderAlreadyFinalized)
}

// ============================================
// CancelOrder Tests
// ============================================

func TestAllocationStore_CancelOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)

	cancelled, err := store.CancelOrder(ctx, order.OrderNo, "changed my mind", time.Now())

	require.NoError(t, err)
	assert.Equal(t, adoption.OrderStatusCancelled, cancelled.Status)

	// Units returned to the pool, counter restored.
	assert.Equal(t, 5, projectState(t, db, project.ID).AvailableUnits)
	assert.Equal(t, int64(5), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAvailable))
	assert.Equal(t, int64(0), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
}

func TestAllocationStore_CancelOrder_ReopensFullProject(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 2)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)
	require.Equal(t, adoption.ProjectStatusFull, projectState(t, db, project.ID).Status)

	_, err = store.CancelOrder(ctx, order.OrderNo, "changed my mind", time.Now())
	require.NoError(t, err)

	p := projectState(t, db, project.ID)
	assert.Equal(t, adoption.ProjectStatusOpen, p.Status)
	assert.Equal(t, 2, p.AvailableUnits)

	// Capacity is actually usable again.
	_, err = store.Reserve(ctx, reserveCmd(project.ID, 2, "k2"))
	assert.NoError(t, err)
}

func TestAllocationStore_CancelOrder_AlreadyPaid(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)
	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())
	require.NoError(t, err)

	_, err = store.CancelOrder(ctx, order.OrderNo, "too late", time.Now())

	require.ErrorIs(t, err, adoption.ErrOrderAlreadyFinalized)
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAdopted))
}

// ============================================
// ReclaimOrder Tests
// ============================================

func TestAllocationStore_ReclaimOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	cmd := reserveCmd(project.ID, 3, "k1")
	cmd.ExpiresAt = time.Now().Add(-time.Minute)
	order, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)

	ok, err := store.ReclaimOrder(ctx, order.OrderNo, time.Now())

	require.NoError(t, err)
	assert.True(t, ok)

	var reloaded adoption.Order
	require.NoError(t, db.Where("order_no = ?", order.OrderNo).First(&reloaded).Error)
	assert.Equal(t, adoption.OrderStatusTimeoutCancelled, reloaded.Status)
	assert.Equal(t, "payment window elapsed", reloaded.CancelReason)

	assert.Equal(t, 5, projectState(t, db, project.ID).AvailableUnits)
	assert.Equal(t, int64(5), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAvailable))
}

func TestAllocationStore_ReclaimOrder_NotYetExpired(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	order, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k1"))
	require.NoError(t, err)

	ok, err := store.ReclaimOrder(ctx, order.OrderNo, time.Now())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
}

func TestAllocationStore_ReclaimOrder_AlreadyPaid(t *testing.T) {
	// The reclaim-versus-payment race: once the payment committed, the
	// conditional reclaim update matches zero rows and nothing is released.
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	cmd := reserveCmd(project.ID, 2, "k1")
	order, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)
	_, err = store.CompletePayment(ctx, order.OrderNo, "pay-ref-001", time.Now())
	require.NoError(t, err)

	ok, err := store.ReclaimOrder(ctx, order.OrderNo, time.Now().Add(time.Hour))

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAdopted))
	assert.Equal(t, 3, projectState(t, db, project.ID).AvailableUnits)
}

func TestAllocationStore_ReclaimOrder_UnknownOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)

	ok, err := store.ReclaimOrder(context.Background(), "missing", time.Now())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllocationStore_ReclaimOrder_Twice(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	cmd := reserveCmd(project.ID, 2, "k1")
	cmd.ExpiresAt = time.Now().Add(-time.Minute)
	order, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)

	ok, err := store.ReclaimOrder(ctx, order.OrderNo, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	// Second sweep over the same order releases nothing further.
	ok, err = store.ReclaimOrder(ctx, order.OrderNo, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5, projectState(t, db, project.ID).AvailableUnits)
}

func TestAllocationStore_ReserveAfterReclaim_ReusesUnits(t *testing.T) {
	db := setupAllocationTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 2)

	cmd := reserveCmd(project.ID, 2, "k1")
	cmd.ExpiresAt = time.Now().Add(-time.Minute)
	order, err := store.Reserve(ctx, cmd)
	require.NoError(t, err)

	ok, err := store.ReclaimOrder(ctx, order.OrderNo, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	// The released units are allocatable by a fresh order.
	next, err := store.Reserve(ctx, reserveCmd(project.ID, 2, "k2"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, []int{next.Units[0].UnitNumber, next.Units[1].UnitNumber})
}

// ============================================
// Concurrency Tests
// ============================================

// setupContentionTestDB returns a file-backed database so several
// connections can run transactions against it at once. Each transaction
// takes the write lock at BEGIN and queues on the busy timeout, which makes
// contended reservations serialize instead of failing mid-transaction.
func setupContentionTestDB(t *testing.T) *gorm.DB {
	dsn := "file:" + filepath.Join(t.TempDir(), "alloc.db") +
		"?_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	return db
}

func TestAllocationStore_Reserve_ConcurrentNeverOversells(t *testing.T) {
	db := setupContentionTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Reserve(ctx, reserveCmd(project.ID, 1, fmt.Sprintf("race-%d", i)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, adoption.ErrInsufficientInventory)
		rejected++
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 3, rejected)

	// Reserved rows, counter and status all agree: nothing oversold.
	p := projectState(t, db, project.ID)
	assert.Equal(t, 0, p.AvailableUnits)
	assert.Equal(t, adoption.ProjectStatusFull, p.Status)
	assert.Equal(t, int64(5), unitCountByStatus(t, db, project.ID, adoption.UnitStatusReserved))
	assert.Equal(t, int64(0), unitCountByStatus(t, db, project.ID, adoption.UnitStatusAvailable))

	var orderCount int64
	require.NoError(t, db.Model(&adoption.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(5), orderCount)
}

func TestAllocationStore_Reserve_ConcurrentSplitSellsOut(t *testing.T) {
	// Two buyers racing for 2 and 3 units of a 5-unit project must both
	// succeed and partition the full unit range between them.
	db := setupContentionTestDB(t)
	store := NewGormAllocationStore(db)
	ctx := context.Background()
	project := seedOpenProject(t, db, 5)

	counts := []int{2, 3}
	orders := make([]*adoption.Order, len(counts))
	errs := make([]error, len(counts))
	var wg sync.WaitGroup
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orders[i], errs[i] = store.Reserve(ctx, reserveCmd(project.ID, counts[i], fmt.Sprintf("split-%d", i)))
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	p := projectState(t, db, project.ID)
	assert.Equal(t, 0, p.AvailableUnits)
	assert.Equal(t, adoption.ProjectStatusFull, p.Status)

	var numbers []int
	for _, order := range orders {
		for _, u := range order.Units {
			numbers = append(numbers, u.UnitNumber)
		}
	}
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, numbers)
}
