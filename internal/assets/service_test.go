package assets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/ledger"
	"github.com/Emran025/supermarket-system-sub001/internal/testing/memstore"
)

var start = time.Date(2015, 1, 15, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T, opts ledger.Options) (*memstore.Store, *ledger.Engine) {
	t.Helper()
	store := memstore.New()
	store.AddRetailChart()
	return store, ledger.Assemble(store.Stores(), opts)
}

func register(store *memstore.Store, code, value, rate string) assets.Asset {
	return store.AddAsset(assets.Asset{
		Code:             code,
		Name:             code,
		PurchaseValue:    decimal.RequireFromString(value),
		DepreciationRate: decimal.RequireFromString(rate),
		PurchaseDate:     start,
		IsActive:         true,
	})
}

func run(t *testing.T, engine *ledger.Engine, month int) []assets.Result {
	t.Helper()
	results, err := engine.RunMonthlyDepreciation(context.Background(), assets.RunInput{
		RunDate: start.AddDate(0, month, 0),
		ActorID: 1,
	})
	require.NoError(t, err)
	return results
}

func TestDepreciationLifecycle(t *testing.T) {
	store, engine := setup(t, ledger.Options{})
	asset := register(store, "FRIDGE", "1200", "10")

	first := run(t, engine, 0)
	require.Len(t, first, 1)
	require.Equal(t, asset.ID, first[0].AssetID)
	require.Equal(t, "10.00", first[0].Amount.StringFixed(2))
	require.Equal(t, "10.00", first[0].Accumulated.StringFixed(2))
	require.Equal(t, "1190.00", first[0].BookValue.StringFixed(2))

	entries := store.VoucherEntries(first[0].VoucherNumber)
	require.Len(t, entries, 2)
	require.Equal(t, "6100", entries[0].AccountCode)
	require.Equal(t, "1510", entries[1].AccountCode)
	require.Equal(t, assets.ReferenceDepreciation, entries[0].ReferenceType)

	var last assets.Result
	for month := 1; month < 120; month++ {
		results := run(t, engine, month)
		require.Len(t, results, 1, "month %d", month)
		last = results[0]
	}
	require.Equal(t, "1200.00", last.Accumulated.StringFixed(2))
	require.Equal(t, "0.00", last.BookValue.StringFixed(2))

	require.Empty(t, run(t, engine, 120), "fully depreciated asset is skipped")
	require.Len(t, store.DepreciationRecords(), 120)

	expense, err := engine.Balance(context.Background(), "6100", nil)
	require.NoError(t, err)
	require.Equal(t, "1200.00", expense.StringFixed(2))
}

func TestDepreciationRunsOncePerMonth(t *testing.T) {
	store, engine := setup(t, ledger.Options{})
	register(store, "SHELF", "600", "20")

	require.Len(t, run(t, engine, 0), 1)
	_, err := engine.RunMonthlyDepreciation(context.Background(), assets.RunInput{RunDate: start.AddDate(0, 0, -10)})
	require.NoError(t, err)
	require.Len(t, store.DepreciationRecords(), 1, "a second run in the same month posts nothing")
}

func TestDepreciationSkipsFailingAsset(t *testing.T) {
	store, engine := setup(t, ledger.Options{})
	register(store, "A", "1200", "10")
	ok := register(store, "B", "2400", "10")

	store.FailNext("LockAsset", errors.New("row vanished"))
	results := run(t, engine, 0)
	require.Len(t, results, 1)
	require.Equal(t, ok.ID, results[0].AssetID)
	require.Equal(t, "20.00", results[0].Amount.StringFixed(2))
	require.Len(t, store.DepreciationRecords(), 1)
}

func TestDepreciationRecordsFiscalPeriod(t *testing.T) {
	store, engine := setup(t, ledger.Options{})
	register(store, "TILL", "1200", "10")
	jan := store.AddPeriod("2015-01", time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 1, 31, 0, 0, 0, 0, time.UTC))
	feb := store.AddPeriod("2015-02", time.Date(2015, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 2, 28, 0, 0, 0, 0, time.UTC))

	run(t, engine, 0)
	records := store.DepreciationRecords()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].FiscalPeriodID)
	require.Equal(t, jan.ID, *records[0].FiscalPeriodID)

	store.SetPeriodFlags(feb.ID, true, false)
	require.Empty(t, run(t, engine, 1), "locked period fails the asset, not the run")
	require.Len(t, store.DepreciationRecords(), 1)

	store.SetPeriodFlags(feb.ID, false, false)
	require.Len(t, run(t, engine, 1), 1)
}

func TestDepreciationAbortsWithoutMappings(t *testing.T) {
	store, engine := setup(t, ledger.Options{DefaultMappings: map[string]string{}})
	register(store, "TILL", "1200", "10")

	_, err := engine.RunMonthlyDepreciation(context.Background(), assets.RunInput{RunDate: start})
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
	require.Empty(t, store.DepreciationRecords())
}
