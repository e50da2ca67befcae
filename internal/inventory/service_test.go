package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/testing/memstore"
)

const product = int64(1)

var now = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type shortfallMetrics struct{ units float64 }

func (m *shortfallMetrics) CostingShortfall(units float64) { m.units += units }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func setup(t *testing.T) (*memstore.Store, *inventory.Service, *shortfallMetrics) {
	t.Helper()
	store := memstore.New()
	store.WithNow(func() time.Time { return now })
	metrics := &shortfallMetrics{}
	svc := inventory.NewService(store.Inventory(), store.Audit(), metrics, nil)
	svc.WithNow(func() time.Time { return now })
	return store, svc, metrics
}

func purchase(t *testing.T, svc *inventory.Service, day int, qty, unit string) int64 {
	t.Helper()
	id, err := svc.RecordPurchase(context.Background(), inventory.PurchaseInput{
		ProductID:       product,
		PurchaseID:      "PO-1",
		Quantity:        dec(qty),
		UnitCost:        dec(unit),
		TransactionDate: time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		ActorID:         1,
	})
	require.NoError(t, err)
	return id
}

func sale(qty string) inventory.ConsumeInput {
	return inventory.ConsumeInput{ProductID: product, Quantity: dec(qty), ReferenceType: "sales_invoice", ReferenceID: "42"}
}

func TestRecordPurchaseRecomputesWeightedAverage(t *testing.T) {
	store, svc, _ := setup(t)
	purchase(t, svc, 1, "10", "2")
	require.True(t, store.ProductCost(product).Equal(dec("2")))

	purchase(t, svc, 2, "10", "4")
	require.True(t, store.ProductCost(product).Equal(dec("3")), store.ProductCost(product).String())

	lots := store.Lots(product)
	require.Len(t, lots, 2)
	require.Equal(t, "40", lots[1].TotalCost.String())
	require.Equal(t, "purchase", lots[1].ReferenceType)
	require.False(t, lots[1].IsSold)

	value, err := svc.InventoryValue(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "60", value.String())
	require.Len(t, store.AuditLogs(), 2)
}

func TestRecordPurchaseValidation(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.RecordPurchase(ctx, inventory.PurchaseInput{Quantity: dec("1"), UnitCost: dec("1")})
	require.ErrorIs(t, err, inventory.ErrProductRequired)
	_, err = svc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: product, Quantity: dec("0"), UnitCost: dec("1")})
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)
	_, err = svc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: product, Quantity: dec("1"), UnitCost: dec("-1")})
	require.ErrorIs(t, err, inventory.ErrInvalidUnitCost)
}

func TestConsumeFIFOSplitsOldestLots(t *testing.T) {
	store, svc, metrics := setup(t)
	purchase(t, svc, 1, "10", "2")
	second := purchase(t, svc, 2, "10", "4")

	consumed, err := svc.ConsumeFIFO(context.Background(), sale("15"))
	require.NoError(t, err)
	require.Equal(t, "40", consumed.TotalCost.String())
	require.True(t, consumed.Shortfall.IsZero())
	require.Len(t, consumed.Slices, 2)
	require.Zero(t, metrics.units)

	var unsold []inventory.Lot
	for _, lot := range store.Lots(product) {
		if !lot.IsSold {
			unsold = append(unsold, lot)
		}
	}
	require.Len(t, unsold, 1)
	require.Equal(t, second, unsold[0].ID)
	require.Equal(t, "5", unsold[0].Quantity.String())
	require.Equal(t, "4", unsold[0].UnitCost.String())
	require.Equal(t, "20", unsold[0].TotalCost.String())

	lots := store.Lots(product)
	split := lots[len(lots)-1]
	require.True(t, split.IsSold)
	require.Equal(t, inventory.CostMethodFIFO, split.CostMethod)
	require.Equal(t, "sales_invoice", split.ReferenceType)
	require.Equal(t, "42", split.ReferenceID)
	require.Equal(t, "5", split.Quantity.String())

	value, err := svc.InventoryValue(context.Background(), ptr(product))
	require.NoError(t, err)
	require.Equal(t, "20", value.String())
}

func TestConsumeFIFOCostMatchesLotOrder(t *testing.T) {
	_, svc, _ := setup(t)
	purchase(t, svc, 3, "10", "3")
	purchase(t, svc, 1, "10", "2")

	consumed, err := svc.ConsumeFIFO(context.Background(), sale("15"))
	require.NoError(t, err)
	require.Equal(t, "35", consumed.TotalCost.String(), "oldest transaction date is consumed first")

	rest, err := svc.ConsumeFIFO(context.Background(), sale("5"))
	require.NoError(t, err)
	require.Equal(t, "15", rest.TotalCost.String())
}

func TestConsumeWACUsesStoredAverage(t *testing.T) {
	store, svc, _ := setup(t)
	purchase(t, svc, 1, "10", "2")
	purchase(t, svc, 2, "10", "4")

	consumed, err := svc.ConsumeWAC(context.Background(), sale("15"))
	require.NoError(t, err)
	require.Equal(t, "45", consumed.TotalCost.String())
	for _, slice := range consumed.Slices {
		require.Equal(t, inventory.CostMethodWAC, slice.Method)
		require.Equal(t, "3", slice.UnitCost.String())
	}

	value, err := svc.InventoryValue(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "15", value.String())
	require.True(t, store.ProductCost(product).Equal(dec("3")), "consumption leaves the average untouched")
}

func TestConsumeShortfallFallsBackToAverage(t *testing.T) {
	_, svc, metrics := setup(t)
	purchase(t, svc, 1, "5", "2")

	consumed, err := svc.ConsumeFIFO(context.Background(), sale("8"))
	require.NoError(t, err)
	require.Equal(t, "16", consumed.TotalCost.String())
	require.Equal(t, "3", consumed.Shortfall.String())
	last := consumed.Slices[len(consumed.Slices)-1]
	require.Equal(t, inventory.CostMethodWACShortfall, last.Method)
	require.Zero(t, last.LotID)
	require.InDelta(t, 3.0, metrics.units, 0.0001)
}

func TestConsumeWithoutStockCostsZero(t *testing.T) {
	_, svc, _ := setup(t)
	consumed, err := svc.ConsumeFIFO(context.Background(), sale("2"))
	require.NoError(t, err)
	require.True(t, consumed.TotalCost.IsZero())
	require.Equal(t, "2", consumed.Shortfall.String())

	_, err = svc.ConsumeFIFO(context.Background(), inventory.ConsumeInput{ProductID: product})
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestRevalueAllReportsChangedProducts(t *testing.T) {
	store, svc, _ := setup(t)
	purchase(t, svc, 1, "10", "2")
	store.AddLot(inventory.Lot{
		ProductID:       product,
		Quantity:        dec("10"),
		UnitCost:        dec("5"),
		TotalCost:       dec("50"),
		TransactionDate: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	})

	changed, err := svc.RevalueAll(context.Background())
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.Equal(t, product, changed[0].ProductID)
	require.Equal(t, "2", changed[0].Previous.String())
	require.Equal(t, "3.5", changed[0].Current.String())
	require.True(t, store.ProductCost(product).Equal(dec("3.5")))

	again, err := svc.RevalueAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestWeightedAverageIgnoresSoldLots(t *testing.T) {
	wac, ok := inventory.WeightedAverage([]inventory.Lot{
		{Quantity: dec("3"), UnitCost: dec("1")},
		{Quantity: dec("100"), UnitCost: dec("50"), IsSold: true},
		{Quantity: dec("1"), UnitCost: dec("2")},
	})
	require.True(t, ok)
	require.Equal(t, "1.25", wac.String())

	_, ok = inventory.WeightedAverage(nil)
	require.False(t, ok)
}

func TestRestoreSoldReturnsConsumedLots(t *testing.T) {
	store, svc, _ := setup(t)
	ctx := context.Background()
	first := purchase(t, svc, 1, "10", "2")
	purchase(t, svc, 2, "10", "4")
	_, err := svc.ConsumeFIFO(ctx, sale("15"))
	require.NoError(t, err)

	lots := store.Lots(product)
	require.Equal(t, first, lots[0].ID)
	require.True(t, lots[0].IsSold)
	require.Equal(t, "sales_invoice", lots[0].ReferenceType, "a wholly consumed lot is tagged with the sale")
	require.Equal(t, "42", lots[0].ReferenceID)

	var restored inventory.Restoration
	err = store.Inventory().WithTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		var err error
		restored, err = svc.RestoreSoldInTx(ctx, tx, "sales_invoice", "42")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 2, restored.Lots)
	require.Equal(t, "15", restored.Quantity.String())
	require.Equal(t, "40", restored.Value.String())

	value, err := svc.InventoryValue(ctx, ptr(product))
	require.NoError(t, err)
	require.Equal(t, "60", value.String())
	require.True(t, store.ProductCost(product).Equal(dec("3")), store.ProductCost(product).String())

	again, err := svc.ConsumeFIFO(ctx, inventory.ConsumeInput{ProductID: product, Quantity: dec("10"), ReferenceType: "sales_invoice", ReferenceID: "43"})
	require.NoError(t, err)
	require.Equal(t, "20", again.TotalCost.String(), "restored lots keep their FIFO position")
}

func TestRestoreSoldUnknownReference(t *testing.T) {
	store, svc, _ := setup(t)
	purchase(t, svc, 1, "10", "2")
	err := store.Inventory().WithTx(context.Background(), func(ctx context.Context, tx inventory.TxRepository) error {
		restored, err := svc.RestoreSoldInTx(ctx, tx, "sales_invoice", "404")
		require.Zero(t, restored.Lots)
		return err
	})
	require.NoError(t, err)
	require.False(t, store.Lots(product)[0].IsSold)
}

func ptr[T any](v T) *T { return &v }
