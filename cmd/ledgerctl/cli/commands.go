package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
)

func newNextNumberCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "next-number <document-type>",
		Short:   "Mint the next document number",
		Example: "  ledgerctl next-number INV",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			number, err := ledger.NextVoucherNumber(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return st.print(cmd.OutOrStdout(), map[string]string{"number": number}, func(w io.Writer) {
				fmt.Fprintln(w, number)
			})
		},
	}
}

func newBalanceCommand(st *state) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balance <account-code>",
		Short: "Print an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(asOf)
			if err != nil {
				return err
			}
			ledger, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			balance, err := ledger.Balance(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			out := map[string]string{"account": args[0], "balance": balance.StringFixed(2)}
			return st.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", args[0], balance.StringFixed(2))
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "balance as of date (YYYY-MM-DD)")
	return cmd
}

func newTrialBalanceCommand(st *state) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance grouped by account code prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(asOf)
			if err != nil {
				return err
			}
			ledger, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			tb, err := ledger.TrialBalance(cmd.Context(), date)
			if err != nil {
				return err
			}
			return st.print(cmd.OutOrStdout(), tb, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tNAME\tDEBIT\tCREDIT")
				for _, group := range tb.Groups {
					fmt.Fprintf(tw, "%s\t\t%s\t%s\n", group.Key, group.Debit.StringFixed(2), group.Credit.StringFixed(2))
					for _, acc := range group.Accounts {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acc.Code, acc.Name, acc.Debit.StringFixed(2), acc.Credit.StringFixed(2))
					}
				}
				fmt.Fprintf(tw, "TOTAL\t\t%s\t%s\n", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "trial balance as of date (YYYY-MM-DD)")
	return cmd
}

func newReverseCommand(st *state) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "reverse <voucher-number>",
		Short: "Post the mirror image of a voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.requireActor(); err != nil {
				return err
			}
			ledger, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			number, err := ledger.Reverse(cmd.Context(), journals.ReverseInput{
				VoucherNumber: args[0],
				Description:   description,
				ActorID:       st.actorID,
			})
			if err != nil {
				return err
			}
			out := map[string]string{"reversed": args[0], "voucher_number": number}
			return st.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "reversed %s as %s\n", args[0], number)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "description for the reversal entries")
	return cmd
}

func newDepreciateCommand(st *state) *cobra.Command {
	var (
		runDate  string
		periodID int64
	)
	cmd := &cobra.Command{
		Use:   "depreciate",
		Short: "Run monthly depreciation for every active asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.requireActor(); err != nil {
				return err
			}
			date, err := parseDate(runDate)
			if err != nil {
				return err
			}
			in := assets.RunInput{ActorID: st.actorID}
			if date != nil {
				in.RunDate = *date
			}
			if periodID > 0 {
				in.FiscalPeriodID = &periodID
			}
			ledger, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			results, err := ledger.RunMonthlyDepreciation(cmd.Context(), in)
			if err != nil {
				return err
			}
			return st.print(cmd.OutOrStdout(), results, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ASSET\tAMOUNT\tACCUMULATED\tBOOK VALUE\tVOUCHER")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.AssetCode, r.Amount.StringFixed(2),
						r.Accumulated.StringFixed(2), r.BookValue.StringFixed(2), r.VoucherNumber)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&runDate, "run-date", "", "posting date (YYYY-MM-DD, default today)")
	cmd.Flags().Int64Var(&periodID, "period", 0, "fiscal period id recorded on the depreciation rows")
	return cmd
}

func newPeriodCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Lock, unlock or close fiscal periods",
	}
	add := func(use, short string, apply func(l Ledger, ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error)) {
		cmd.AddCommand(&cobra.Command{
			Use:   use + " <period-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := st.requireActor(); err != nil {
					return err
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid period id %q", args[0])
				}
				ledger, err := st.open(cmd.Context())
				if err != nil {
					return err
				}
				period, err := apply(ledger, cmd.Context(), id, st.actorID)
				if err != nil {
					return err
				}
				return st.print(cmd.OutOrStdout(), period, func(w io.Writer) {
					fmt.Fprintf(w, "%s\t%s\n", period.Name, period.Status())
				})
			},
		})
	}
	add("lock", "Temporarily block postings into a period", Ledger.LockPeriod)
	add("unlock", "Reopen a locked period", Ledger.UnlockPeriod)
	add("close", "Permanently close a period and its entries", Ledger.ClosePeriod)
	return cmd
}

func newMappingCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage the accounts used by sales, purchase, inventory and asset postings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "set <module> <key> <account-code>",
		Short:   "Point a posting key at another account",
		Example: "  ledgerctl mapping set SALES sales.revenue 4100",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			mapping, err := ledger.SetMapping(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return st.print(cmd.OutOrStdout(), mapping, func(w io.Writer) {
				fmt.Fprintf(w, "%s/%s -> %s\n", mapping.Module, mapping.Key, mapping.AccountCode)
			})
		},
	})
	return cmd
}
