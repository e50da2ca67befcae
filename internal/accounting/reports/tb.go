package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
)

// AccountBalance aggregates open ledger activity for one account.
type AccountBalance struct {
	Code   string
	Name   string
	Type   accounts.AccountType
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Balance applies the account type sign convention.
func (a AccountBalance) Balance() decimal.Decimal {
	return SignedBalance(a.Type, a.Debit, a.Credit)
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code    string
	Name    string
	Type    accounts.AccountType
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal
}

// TrialBalanceGroup aggregates accounts sharing a code prefix.
type TrialBalanceGroup struct {
	Key      string
	Accounts []TrialBalanceAccount
	Debit    decimal.Decimal
	Credit   decimal.Decimal
}

// TrialBalance lists every account with open activity.
type TrialBalance struct {
	Groups      []TrialBalanceGroup
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Balanced reports whether total debits equal total credits within tolerance.
func (tb TrialBalance) Balanced(tolerance decimal.Decimal) bool {
	return tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThanOrEqual(tolerance)
}

// BuildTrialBalance converts account balances into grouped trial balance data.
func BuildTrialBalance(rows []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range rows {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Accounts = append(grp.Accounts, TrialBalanceAccount{
			Code:    acc.Code,
			Name:    acc.Name,
			Type:    acc.Type,
			Debit:   acc.Debit,
			Credit:  acc.Credit,
			Balance: acc.Balance(),
		})
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
	}

	sort.Strings(keys)
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	return result
}
