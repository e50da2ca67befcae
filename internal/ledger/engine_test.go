package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/ledger"
	"github.com/Emran025/supermarket-system-sub001/internal/testing/memstore"
)

var now = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newEngine(t *testing.T) (*memstore.Store, *ledger.Engine) {
	t.Helper()
	store := memstore.New()
	store.WithNow(func() time.Time { return now })
	store.AddRetailChart()
	return store, ledger.Assemble(store.Stores(), ledger.Options{Now: func() time.Time { return now }})
}

func TestEngineSequencesAreIndependentPerType(t *testing.T) {
	_, engine := newEngine(t)
	ctx := context.Background()

	inv, err := engine.NextVoucherNumber(ctx, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-000001", inv)

	number, err := engine.Post(ctx, journals.PostInput{Entries: []journals.EntryInput{
		{AccountCode: "1010", EntryType: journals.EntryDebit, Amount: dec("5")},
		{AccountCode: "3000", EntryType: journals.EntryCredit, Amount: dec("5")},
	}})
	require.NoError(t, err)
	require.Equal(t, "VOU-000001", number)

	inv, err = engine.NextVoucherNumber(ctx, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-000002", inv)
}

func TestEngineCostingFacade(t *testing.T) {
	_, engine := newEngine(t)
	ctx := context.Background()

	for i, unit := range []string{"2", "4"} {
		_, err := engine.RecordPurchase(ctx, inventory.PurchaseInput{
			ProductID:       9,
			PurchaseID:      "PO-9",
			Quantity:        dec("10"),
			UnitCost:        dec(unit),
			TransactionDate: time.Date(2025, 3, i+1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	cost, err := engine.ConsumeFIFO(ctx, inventory.ConsumeInput{ProductID: 9, Quantity: dec("12"), ReferenceType: "sales_invoice", ReferenceID: "1"})
	require.NoError(t, err)
	require.Equal(t, "28", cost.String())

	product := int64(9)
	value, err := engine.InventoryValue(ctx, &product)
	require.NoError(t, err)
	require.Equal(t, "32", value.String())

	cost, err = engine.ConsumeWAC(ctx, inventory.ConsumeInput{ProductID: 9, Quantity: dec("2"), ReferenceType: "sales_invoice", ReferenceID: "2"})
	require.NoError(t, err)
	require.Equal(t, "6", cost.String())

	_, err = engine.ConsumeFIFO(ctx, inventory.ConsumeInput{ProductID: 9, Quantity: dec("0")})
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestEnginePeriodLifecycle(t *testing.T) {
	store, engine := newEngine(t)
	ctx := context.Background()
	march := store.AddPeriod("2025-03", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))

	sale := journals.PostInput{Entries: []journals.EntryInput{
		{AccountCode: "1010", EntryType: journals.EntryDebit, Amount: dec("40")},
		{AccountCode: "4000", EntryType: journals.EntryCredit, Amount: dec("40")},
	}, VoucherDate: now}
	_, err := engine.Post(ctx, sale)
	require.NoError(t, err)

	locked, err := engine.LockPeriod(ctx, march.ID, 1)
	require.NoError(t, err)
	require.Equal(t, periods.PeriodStatusLocked, locked.Status())
	_, err = engine.Post(ctx, sale)
	require.ErrorIs(t, err, shared.ErrPeriodLocked)

	_, err = engine.UnlockPeriod(ctx, march.ID, 1)
	require.NoError(t, err)

	tb, err := engine.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.True(t, tb.Balanced(decimal.Zero))
	require.Equal(t, "40", tb.TotalDebit.String())

	closed, err := engine.ClosePeriod(ctx, march.ID, 1)
	require.NoError(t, err)
	require.Equal(t, periods.PeriodStatusClosed, closed.Status())

	_, err = engine.Post(ctx, sale)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	bal, err := engine.Balance(ctx, "1010", nil)
	require.NoError(t, err)
	require.True(t, bal.IsZero(), "closed periods drop out of running balances")
}

func TestEngineDepreciationWithoutAssets(t *testing.T) {
	_, engine := newEngine(t)
	results, err := engine.RunMonthlyDepreciation(context.Background(), assets.RunInput{RunDate: now, ActorID: 1})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEngineMappingOverride(t *testing.T) {
	_, engine := newEngine(t)
	ctx := context.Background()

	_, err := engine.Accounts.Create(ctx, accounts.Account{Code: "4100", Name: "Online Sales", Type: accounts.AccountTypeRevenue})
	require.NoError(t, err)

	mapping, err := engine.SetMapping(ctx, mappings.ModuleSales, mappings.KeySalesRevenue, "4100")
	require.NoError(t, err)
	require.Equal(t, "4100", mapping.AccountCode)

	code, err := engine.Mappings.AccountCode(ctx, mappings.ModuleSales, mappings.KeySalesRevenue)
	require.NoError(t, err)
	require.Equal(t, "4100", code)

	_, err = engine.SetMapping(ctx, mappings.ModuleSales, mappings.KeySalesRevenue, "9999")
	require.ErrorIs(t, err, shared.ErrUnknownAccount)
}
