// Package cli implements ledgerctl, the operator command line for the ledger.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/reports"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
)

const dateLayout = "2006-01-02"

// Ledger is the subset of the engine driven from the command line.
type Ledger interface {
	NextVoucherNumber(ctx context.Context, documentType string) (string, error)
	Balance(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error)
	TrialBalance(ctx context.Context, asOf *time.Time) (reports.TrialBalance, error)
	Reverse(ctx context.Context, in journals.ReverseInput) (string, error)
	RunMonthlyDepreciation(ctx context.Context, in assets.RunInput) ([]assets.Result, error)
	LockPeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error)
	UnlockPeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error)
	ClosePeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error)
	SetMapping(ctx context.Context, module, key, accountCode string) (mappings.AccountMapping, error)
}

// Deps supplies the ledger lazily so --help works without a database.
type Deps struct {
	Open func(ctx context.Context) (Ledger, func(), error)
}

type state struct {
	deps    Deps
	ledger  Ledger
	release func()
	json    bool
	actorID int64
}

// NewRootCommand builds the ledgerctl command tree. The returned release
// func frees the ledger if a command opened one; callers defer it so it runs
// on failed commands too.
func NewRootCommand(deps Deps) (*cobra.Command, func()) {
	st := &state{deps: deps}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the accounting ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&st.json, "json", false, "print results as JSON")
	root.PersistentFlags().Int64Var(&st.actorID, "actor", 0, "user id recorded on mutations")

	root.AddCommand(
		newNextNumberCommand(st),
		newBalanceCommand(st),
		newTrialBalanceCommand(st),
		newReverseCommand(st),
		newDepreciateCommand(st),
		newPeriodCommand(st),
		newMappingCommand(st),
	)
	return root, st.close
}

func (st *state) close() {
	if st.release != nil {
		st.release()
		st.release = nil
	}
	st.ledger = nil
}

func (st *state) open(ctx context.Context) (Ledger, error) {
	if st.ledger != nil {
		return st.ledger, nil
	}
	if st.deps.Open == nil {
		return nil, errors.New("ledger not configured")
	}
	ledger, release, err := st.deps.Open(ctx)
	if err != nil {
		return nil, err
	}
	st.ledger, st.release = ledger, release
	return ledger, nil
}

func (st *state) requireActor() error {
	if st.actorID <= 0 {
		return errors.New("--actor is required for this command")
	}
	return nil
}

func (st *state) print(w io.Writer, v any, text func(io.Writer)) error {
	if st.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", raw, err)
	}
	return &t, nil
}
