package product

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adjustmentsMetric = "poscatalog_stock_adjustments_total"

func TestAdjustStockScenarioB(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(ctx, colaInput(snacks.ID, 5), nil)
	require.NoError(t, err)

	res, err := env.svc.AdjustStock(ctx, cola.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, "stock updated", res.Message)
	assert.Equal(t, 5, res.PreviousQuantity)
	assert.Equal(t, 0, res.NewQuantity)

	stored := env.reload(t, cola.ID)
	assert.Equal(t, 0, stored.Quantity)
	assert.Equal(t, enums.ProductStatusOutOfStock, stored.Status)

	_, err = env.svc.AdjustStock(ctx, cola.ID, -1)
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, 0, env.reload(t, cola.ID).Quantity)

	res, err = env.svc.AdjustStock(ctx, cola.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PreviousQuantity)
	assert.Equal(t, 3, res.NewQuantity)
	assert.Equal(t, enums.ProductStatusActive, env.reload(t, cola.ID).Status)

	assert.Equal(t, float64(2), env.counter(t, adjustmentsMetric, "outcome", metrics.StockApplied))
	assert.Equal(t, float64(1), env.counter(t, adjustmentsMetric, "outcome", metrics.StockInsufficient))
}

func TestAdjustStockScenarioC(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(ctx, colaInput(snacks.ID, 3), nil)
	require.NoError(t, err)

	_, err = env.svc.AdjustStock(ctx, cola.ID, -4)
	requireCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 3, details["current_quantity"])
	assert.Equal(t, -4, details["requested_delta"])

	stored := env.reload(t, cola.ID)
	assert.Equal(t, 3, stored.Quantity)
	assert.Equal(t, enums.ProductStatusActive, stored.Status)
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	env := newTestEnv(t)
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(context.Background(), colaInput(snacks.ID, 3), nil)
	require.NoError(t, err)

	_, err = env.svc.AdjustStock(context.Background(), cola.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, 3, env.reload(t, cola.ID).Quantity)
}

func TestAdjustStockRejectsOutOfRangeDelta(t *testing.T) {
	env := newTestEnv(t)
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(context.Background(), colaInput(snacks.ID, 5), nil)
	require.NoError(t, err)

	for _, delta := range []int{math.MaxInt64, math.MinInt64, math.MaxInt32 + 1, math.MinInt32 - 1} {
		_, err = env.svc.AdjustStock(context.Background(), cola.ID, delta)
		requireCode(t, err, pkgerrors.CodeValidation)
	}
	assert.Equal(t, 5, env.reload(t, cola.ID).Quantity)
}

func TestAdjustStockRejectsExceedingCeiling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(ctx, colaInput(snacks.ID, math.MaxInt32-2), nil)
	require.NoError(t, err)

	_, err = env.svc.AdjustStock(ctx, cola.ID, 3)
	requireCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().(map[string]int)
	require.True(t, ok)
	assert.Equal(t, math.MaxInt32, details["max_quantity"])
	assert.Equal(t, math.MaxInt32-2, env.reload(t, cola.ID).Quantity)

	_, err = env.svc.AdjustStock(ctx, cola.ID, math.MaxInt32)
	requireCode(t, err, pkgerrors.CodeValidation)

	res, err := env.svc.AdjustStock(ctx, cola.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, res.NewQuantity)
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AdjustStock(context.Background(), uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, float64(1), env.counter(t, adjustmentsMetric, "outcome", metrics.StockNotFound))
}

func TestAdjustStockOnDeletedProductConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(ctx, colaInput(snacks.ID, 5), nil)
	require.NoError(t, err)
	require.NoError(t, env.svc.SoftDelete(ctx, cola.ID))

	_, err = env.svc.AdjustStock(ctx, cola.ID, 2)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	stored := env.reload(t, cola.ID)
	assert.Equal(t, 5, stored.Quantity)
	assert.Equal(t, enums.ProductStatusInactive, stored.Status)
	assert.Equal(t, float64(1), env.counter(t, adjustmentsMetric, "outcome", metrics.StockDeleted))
}

func TestAdjustStockConcurrentDecrementsNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(ctx, colaInput(snacks.ID, 10), nil)
	require.NoError(t, err)

	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int32
		insufficient atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.AdjustStock(ctx, cola.ID, -1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case pkgerrors.Is(err, pkgerrors.CodeValidation):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(10), insufficient.Load())
	stored := env.reload(t, cola.ID)
	assert.Equal(t, 0, stored.Quantity)
	assert.Equal(t, enums.ProductStatusOutOfStock, stored.Status)
}

func TestAdjustStockConcurrentMixedDeltasSumExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snacks := env.seedCategory(t, "Snacks", enums.CategoryStatusActive)
	cola, err := env.svc.Create(ctx, colaInput(snacks.ID, 50), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		delta := 2
		if i%2 == 0 {
			delta = -1
		}
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			if _, err := env.svc.AdjustStock(ctx, cola.ID, delta); err != nil {
				t.Errorf("adjust %d: %v", delta, err)
			}
		}(delta)
	}
	wg.Wait()

	// 15 * 2 - 15 * 1
	assert.Equal(t, 65, env.reload(t, cola.ID).Quantity)
}

func TestStockOutcome(t *testing.T) {
	assert.Equal(t, metrics.StockInsufficient, stockOutcome(pkgerrors.New(pkgerrors.CodeValidation, "x")))
	assert.Equal(t, metrics.StockNotFound, stockOutcome(pkgerrors.New(pkgerrors.CodeNotFound, "x")))
	assert.Equal(t, metrics.StockDeleted, stockOutcome(pkgerrors.New(pkgerrors.CodeStateConflict, "x")))
	assert.Equal(t, metrics.StockError, stockOutcome(pkgerrors.New(pkgerrors.CodeDependency, "x")))
}
