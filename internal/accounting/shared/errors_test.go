package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", Invalid("entries", "at least two entries"), ErrValidation},
		{"imbalanced", &ImbalancedPostingError{Debit: decimal.NewFromInt(100), Credit: decimal.NewFromInt(90)}, ErrUnbalanced},
		{"imbalanced is validation", &ImbalancedPostingError{}, ErrValidation},
		{"unknown account", &UnknownAccountError{Code: "9999"}, ErrUnknownAccount},
		{"locked", &PeriodLockedError{PeriodID: 3}, ErrPeriodLocked},
		{"closed", &PeriodClosedError{PeriodID: 3}, ErrPeriodClosed},
		{"voucher", &VoucherNotFoundError{VoucherNumber: "VOU-000009"}, ErrVoucherNotFound},
		{"concurrency", &ConcurrencyError{Op: "post", Err: errors.New("timeout")}, ErrConcurrency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tc.err)
			require.ErrorIs(t, wrapped, tc.target)
		})
	}
}

func TestImbalancedPostingErrorCarriesTotals(t *testing.T) {
	err := &ImbalancedPostingError{Debit: decimal.NewFromInt(100), Credit: decimal.NewFromInt(90)}
	require.Contains(t, err.Error(), "debit 100.00")
	require.Contains(t, err.Error(), "credit 90.00")
	require.NotErrorIs(t, err, ErrPeriodLocked)
}

func TestUnknownAccountErrorNamesCode(t *testing.T) {
	require.Contains(t, (&UnknownAccountError{Code: "4000", Inactive: true}).Error(), `"4000" is inactive`)
	require.Contains(t, (&UnknownAccountError{Code: "9999"}).Error(), `unknown account "9999"`)
}

func TestWrapConcurrencyMapsLockFailures(t *testing.T) {
	require.NoError(t, WrapConcurrency("post", nil))

	for _, code := range []string{"55P03", "40001", "40P01"} {
		err := WrapConcurrency("post", &pgconn.PgError{Code: code})
		require.ErrorIs(t, err, ErrConcurrency, code)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
	}

	plain := errors.New("boom")
	require.Same(t, plain, WrapConcurrency("post", plain))
	require.NotErrorIs(t, WrapConcurrency("post", &pgconn.PgError{Code: "23505"}), ErrConcurrency)
}
