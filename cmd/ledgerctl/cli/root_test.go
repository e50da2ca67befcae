package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/reports"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
)

type stubLedger struct {
	number   int
	asOf     *time.Time
	reversed journals.ReverseInput
	run      assets.RunInput
	closed   []int64
}

func (s *stubLedger) NextVoucherNumber(ctx context.Context, documentType string) (string, error) {
	s.number++
	return fmt.Sprintf("%s-%06d", documentType, s.number), nil
}

func (s *stubLedger) Balance(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error) {
	s.asOf = asOf
	if code == "1010" {
		return decimal.RequireFromString("1150"), nil
	}
	return decimal.Zero, nil
}

func (s *stubLedger) TrialBalance(ctx context.Context, asOf *time.Time) (reports.TrialBalance, error) {
	return reports.TrialBalance{TotalDebit: decimal.NewFromInt(10), TotalCredit: decimal.NewFromInt(10)}, nil
}

func (s *stubLedger) Reverse(ctx context.Context, in journals.ReverseInput) (string, error) {
	if in.VoucherNumber == "VOU-999999" {
		return "", &shared.VoucherNotFoundError{VoucherNumber: in.VoucherNumber}
	}
	s.reversed = in
	return "VOU-000002", nil
}

func (s *stubLedger) RunMonthlyDepreciation(ctx context.Context, in assets.RunInput) ([]assets.Result, error) {
	s.run = in
	return []assets.Result{{AssetCode: "VAN-01", Amount: decimal.NewFromInt(1000), VoucherNumber: "VOU-000003"}}, nil
}

func (s *stubLedger) LockPeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error) {
	return periods.FiscalPeriod{ID: id, Name: "2025-01", IsLocked: true}, nil
}

func (s *stubLedger) UnlockPeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error) {
	return periods.FiscalPeriod{ID: id, Name: "2025-01"}, nil
}

func (s *stubLedger) ClosePeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error) {
	s.closed = append(s.closed, id)
	return periods.FiscalPeriod{ID: id, Name: "2025-01", IsClosed: true}, nil
}

func (s *stubLedger) SetMapping(ctx context.Context, module, key, accountCode string) (mappings.AccountMapping, error) {
	if accountCode == "9999" {
		return mappings.AccountMapping{}, &shared.UnknownAccountError{Code: accountCode}
	}
	return mappings.AccountMapping{Module: module, Key: key, AccountCode: accountCode}, nil
}

func execute(t *testing.T, ledger *stubLedger, args ...string) (string, error) {
	t.Helper()
	opened, released := 0, 0
	root, release := NewRootCommand(Deps{Open: func(ctx context.Context) (Ledger, func(), error) {
		opened++
		return ledger, func() { released++ }, nil
	}})
	stdout := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	release()
	release()
	require.Equal(t, opened, released, "every opened ledger is released exactly once")
	return stdout.String(), err
}

func TestNextNumberPrintsVoucher(t *testing.T) {
	out, err := execute(t, &stubLedger{}, "next-number", "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-000001\n", out)
}

func TestBalanceParsesAsOfAndPrintsJSON(t *testing.T) {
	ledger := &stubLedger{}
	out, err := execute(t, ledger, "balance", "1010", "--as-of", "2025-01-31", "--json")
	require.NoError(t, err)
	require.NotNil(t, ledger.asOf)
	require.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), *ledger.asOf)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Equal(t, "1150.00", payload["balance"])
}

func TestBalanceRejectsBadDate(t *testing.T) {
	_, err := execute(t, &stubLedger{}, "balance", "1010", "--as-of", "31/01/2025")
	require.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestReverseRequiresActor(t *testing.T) {
	_, err := execute(t, &stubLedger{}, "reverse", "VOU-000001")
	require.ErrorContains(t, err, "--actor")
}

func TestReversePassesInput(t *testing.T) {
	ledger := &stubLedger{}
	out, err := execute(t, ledger, "reverse", "VOU-000001", "--actor", "7", "--description", "void sale")
	require.NoError(t, err)
	require.Equal(t, journals.ReverseInput{VoucherNumber: "VOU-000001", Description: "void sale", ActorID: 7}, ledger.reversed)
	require.Contains(t, out, "VOU-000002")
}

func TestReverseSurfacesVoucherNotFound(t *testing.T) {
	_, err := execute(t, &stubLedger{}, "reverse", "VOU-999999", "--actor", "7")
	require.ErrorIs(t, err, shared.ErrVoucherNotFound)
}

func TestFailedCommandStillReleasesLedger(t *testing.T) {
	released := false
	root, release := NewRootCommand(Deps{Open: func(ctx context.Context) (Ledger, func(), error) {
		return &stubLedger{}, func() { released = true }, nil
	}})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"reverse", "VOU-999999", "--actor", "7"})
	require.Error(t, root.ExecuteContext(context.Background()))
	require.False(t, released)

	release()
	require.True(t, released)
}

func TestDepreciateBuildsRunInput(t *testing.T) {
	ledger := &stubLedger{}
	out, err := execute(t, ledger, "depreciate", "--actor", "3", "--run-date", "2025-02-28", "--period", "12")
	require.NoError(t, err)
	require.Equal(t, int64(3), ledger.run.ActorID)
	require.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), ledger.run.RunDate)
	require.NotNil(t, ledger.run.FiscalPeriodID)
	require.Equal(t, int64(12), *ledger.run.FiscalPeriodID)
	require.Contains(t, out, "VAN-01")
	require.Contains(t, out, "1000.00")
}

func TestPeriodClose(t *testing.T) {
	ledger := &stubLedger{}
	out, err := execute(t, ledger, "period", "close", "4", "--actor", "1")
	require.NoError(t, err)
	require.Equal(t, []int64{4}, ledger.closed)
	require.Contains(t, out, string(periods.PeriodStatusClosed))
}

func TestPeriodRejectsBadID(t *testing.T) {
	_, err := execute(t, &stubLedger{}, "period", "lock", "abc", "--actor", "1")
	require.ErrorContains(t, err, "invalid period id")
}

func TestMappingSet(t *testing.T) {
	out, err := execute(t, &stubLedger{}, "mapping", "set", "SALES", "sales.revenue", "4100")
	require.NoError(t, err)
	require.Equal(t, "SALES/sales.revenue -> 4100\n", out)

	_, err = execute(t, &stubLedger{}, "mapping", "set", "SALES", "sales.revenue", "9999")
	require.ErrorIs(t, err, shared.ErrUnknownAccount)
}
