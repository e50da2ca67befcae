package integration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/integration"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/ledger"
	"github.com/Emran025/supermarket-system-sub001/internal/testing/memstore"
)

var now = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func setup(t *testing.T) (*memstore.Store, *ledger.Engine) {
	t.Helper()
	store := memstore.New()
	store.WithNow(func() time.Time { return now })
	store.AddRetailChart()
	return store, ledger.Assemble(store.Stores(), ledger.Options{Now: func() time.Time { return now }})
}

func balances(t *testing.T, engine *ledger.Engine, codes ...string) map[string]string {
	t.Helper()
	out := make(map[string]string, len(codes))
	for _, code := range codes {
		b, err := engine.Balance(context.Background(), code, nil)
		require.NoError(t, err)
		out[code] = b.StringFixed(2)
	}
	return out
}

// requireStockMatchesLedger checks that unsold lots and the inventory account agree.
func requireStockMatchesLedger(t *testing.T, engine *ledger.Engine) {
	t.Helper()
	value, err := engine.InventoryValue(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, balances(t, engine, "1200")["1200"], value.StringFixed(2), "lot value and inventory account diverged")
}

func receive(t *testing.T, engine *ledger.Engine) string {
	t.Helper()
	number, err := engine.Hooks.HandlePurchaseReceived(context.Background(), integration.PurchaseReceivedEvent{
		ID:         3,
		Number:     "PUR-000003",
		ReceivedAt: now.AddDate(0, 0, -5),
		VATRate:    dec("15"),
		Lines:      []integration.PurchaseLine{{ProductID: 1, Quantity: dec("10"), UnitCost: dec("2")}},
		ActorID:    1,
	})
	require.NoError(t, err)
	return number
}

func saleEvent() integration.SaleCompletedEvent {
	return integration.SaleCompletedEvent{
		ID:            7,
		Number:        "INV-000007",
		SoldAt:        now,
		PaymentMethod: integration.PaymentCash,
		VATRate:       dec("15"),
		CostMethod:    inventory.CostMethodFIFO,
		Lines:         []integration.SaleLine{{ProductID: 1, Quantity: dec("4"), UnitPrice: dec("5")}},
		ActorID:       1,
	}
}

func TestPurchaseReceivedPostsStockAndPayable(t *testing.T) {
	store, engine := setup(t)
	number := receive(t, engine)
	require.NotEmpty(t, number)

	require.Equal(t, map[string]string{
		"1200": "20.00",
		"1300": "3.00",
		"2010": "23.00",
	}, balances(t, engine, "1200", "1300", "2010"))

	lots := store.Lots(1)
	require.Len(t, lots, 1)
	require.Equal(t, "3", lots[0].ReferenceID)
	require.True(t, store.ProductCost(1).Equal(dec("2")))

	for _, e := range store.VoucherEntries(number) {
		require.Equal(t, integration.ReferencePurchase, e.ReferenceType)
	}
	requireStockMatchesLedger(t, engine)
}

func TestSaleCompletedPostsRevenueVATAndCOGS(t *testing.T) {
	store, engine := setup(t)
	receive(t, engine)

	number, err := engine.Hooks.HandleSaleCompleted(context.Background(), saleEvent())
	require.NoError(t, err)
	require.Len(t, store.VoucherEntries(number), 5)

	require.Equal(t, map[string]string{
		"1010": "23.00",
		"4000": "20.00",
		"2200": "3.00",
		"5000": "8.00",
		"1200": "12.00",
	}, balances(t, engine, "1010", "4000", "2200", "5000", "1200"))

	value, err := engine.InventoryValue(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "12", value.String())
	requireStockMatchesLedger(t, engine)
}

func TestZeroPriceSaleStillPostsCOGS(t *testing.T) {
	store, engine := setup(t)
	receive(t, engine)
	evt := saleEvent()
	evt.Lines[0].UnitPrice = decimal.Zero

	number, err := engine.Hooks.HandleSaleCompleted(context.Background(), evt)
	require.NoError(t, err)
	require.NotEmpty(t, number)
	require.Len(t, store.VoucherEntries(number), 2)
	require.Equal(t, map[string]string{
		"1010": "0.00",
		"4000": "0.00",
		"2200": "0.00",
		"5000": "8.00",
		"1200": "12.00",
	}, balances(t, engine, "1010", "4000", "2200", "5000", "1200"))
	requireStockMatchesLedger(t, engine)
}

func TestSaleWithoutRevenueOrCostPostsNothing(t *testing.T) {
	store, engine := setup(t)
	evt := saleEvent()
	evt.Lines = []integration.SaleLine{{ProductID: 9, Quantity: dec("1"), UnitPrice: decimal.Zero}}

	number, err := engine.Hooks.HandleSaleCompleted(context.Background(), evt)
	require.NoError(t, err)
	require.Empty(t, number)
	require.Empty(t, store.Entries())
}

func TestCreditSaleDebitsReceivable(t *testing.T) {
	_, engine := setup(t)
	receive(t, engine)
	evt := saleEvent()
	evt.PaymentMethod = integration.PaymentCredit
	evt.VATRate = decimal.Zero

	_, err := engine.Hooks.HandleSaleCompleted(context.Background(), evt)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"1100": "20.00", "1010": "0.00", "2200": "0.00"},
		balances(t, engine, "1100", "1010", "2200"))
}

func TestSaleReplayIsIgnored(t *testing.T) {
	store, engine := setup(t)
	receive(t, engine)
	ctx := context.Background()

	first, err := engine.Hooks.HandleSaleCompleted(ctx, saleEvent())
	require.NoError(t, err)
	entries := len(store.Entries())

	again, err := engine.Hooks.HandleSaleCompleted(ctx, saleEvent())
	require.NoError(t, err)
	require.Empty(t, again)
	require.NotEmpty(t, first)
	require.Len(t, store.Entries(), entries)
	require.Equal(t, "12.00", balances(t, engine, "1200")["1200"])
}

func TestSaleFailureReleasesIdempotencyKey(t *testing.T) {
	store, engine := setup(t)
	receive(t, engine)
	ctx := context.Background()
	lotsBefore := store.Lots(1)

	store.FailNext("InsertEntries", errors.New("disk full"))
	_, err := engine.Hooks.HandleSaleCompleted(ctx, saleEvent())
	require.EqualError(t, err, "disk full")
	require.Equal(t, lotsBefore, store.Lots(1), "inventory consumption rolls back with the voucher")

	number, err := engine.Hooks.HandleSaleCompleted(ctx, saleEvent())
	require.NoError(t, err)
	require.NotEmpty(t, number)
}

func TestSaleValidation(t *testing.T) {
	_, engine := setup(t)
	_, err := engine.Hooks.HandleSaleCompleted(context.Background(), integration.SaleCompletedEvent{ID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = engine.Hooks.HandlePurchaseReceived(context.Background(), integration.PurchaseReceivedEvent{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDocumentVoidedReversesOnce(t *testing.T) {
	store, engine := setup(t)
	receive(t, engine)
	ctx := context.Background()
	saleVoucher, err := engine.Hooks.HandleSaleCompleted(ctx, saleEvent())
	require.NoError(t, err)

	evt := integration.DocumentVoidedEvent{Module: "sales", DocumentID: 7, VoucherNumber: saleVoucher, Reason: "customer return", ActorID: 2}
	reversal, err := engine.Hooks.HandleDocumentVoided(ctx, evt)
	require.NoError(t, err)
	require.NotEmpty(t, reversal)

	rows := store.VoucherEntries(reversal)
	require.Len(t, rows, 5)
	require.Equal(t, "Void sales 7: customer return", rows[0].Description)
	require.Equal(t, journals.EntryCredit, rows[0].EntryType)

	require.Equal(t, map[string]string{"4000": "0.00", "1010": "0.00", "5000": "0.00", "1200": "20.00"},
		balances(t, engine, "4000", "1010", "5000", "1200"))
	requireStockMatchesLedger(t, engine)
	for _, lot := range store.Lots(1) {
		require.False(t, lot.IsSold, "lot %d still sold after void", lot.ID)
	}

	again, err := engine.Hooks.HandleDocumentVoided(ctx, evt)
	require.NoError(t, err)
	require.Empty(t, again)

	_, err = engine.Hooks.HandleDocumentVoided(ctx, integration.DocumentVoidedEvent{Module: "sales", DocumentID: 8})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVoidedSaleStockCanBeSoldAgain(t *testing.T) {
	store, engine := setup(t)
	receive(t, engine)
	ctx := context.Background()
	evt := saleEvent()
	evt.Lines[0].Quantity = dec("10")
	evt.CostMethod = inventory.CostMethodWAC
	saleVoucher, err := engine.Hooks.HandleSaleCompleted(ctx, evt)
	require.NoError(t, err)
	requireStockMatchesLedger(t, engine)

	lots := store.Lots(1)
	require.Len(t, lots, 1)
	require.True(t, lots[0].IsSold)
	require.Equal(t, integration.ReferenceSale, lots[0].ReferenceType)
	require.Equal(t, "7", lots[0].ReferenceID)

	_, err = engine.Hooks.HandleDocumentVoided(ctx, integration.DocumentVoidedEvent{Module: "sales", DocumentID: 7, VoucherNumber: saleVoucher, ActorID: 2})
	require.NoError(t, err)
	requireStockMatchesLedger(t, engine)
	require.True(t, store.ProductCost(1).Equal(dec("2")))

	next := saleEvent()
	next.ID = 8
	next.Number = "INV-000008"
	_, err = engine.Hooks.HandleSaleCompleted(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "12.00", balances(t, engine, "1200")["1200"])
	requireStockMatchesLedger(t, engine)
}

func TestVoidedPurchaseOnlyReversesLedger(t *testing.T) {
	store, engine := setup(t)
	number := receive(t, engine)

	reversal, err := engine.Hooks.HandleDocumentVoided(context.Background(), integration.DocumentVoidedEvent{Module: "purchases", DocumentID: 3, VoucherNumber: number, ActorID: 2})
	require.NoError(t, err)
	require.NotEmpty(t, reversal)
	require.Equal(t, "0.00", balances(t, engine, "1200")["1200"])
	require.Len(t, store.Lots(1), 1)
	require.False(t, store.Lots(1)[0].IsSold)
}
