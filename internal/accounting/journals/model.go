package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the side of the ledger an entry lands on.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Opposite swaps debit and credit.
func (t EntryType) Opposite() EntryType {
	if t == EntryDebit {
		return EntryCredit
	}
	return EntryDebit
}

// ReferenceGeneralLedger links reversal vouchers back to the ledger itself.
const ReferenceGeneralLedger = "general_ledger"

// BalanceTolerance is the largest accepted gap between voucher debits and credits.
var BalanceTolerance = decimal.New(1, -2)

// LedgerEntry is one append-only row of the general ledger.
type LedgerEntry struct {
	ID                int64           `json:"id"`
	VoucherNumber     string          `json:"voucher_number"`
	VoucherDate       time.Time       `json:"voucher_date"`
	AccountID         int64           `json:"account_id"`
	AccountCode       string          `json:"account_code"`
	EntryType         EntryType       `json:"entry_type"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	ReferenceType     string          `json:"reference_type,omitempty"`
	ReferenceID       string          `json:"reference_id,omitempty"`
	FiscalPeriodID    *int64          `json:"fiscal_period_id,omitempty"`
	IsClosed          bool            `json:"is_closed"`
	ReversalOfVoucher string          `json:"reversal_of_voucher,omitempty"`
	CreatedBy         int64           `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
}

// EntryInput is one requested line of a posting.
type EntryInput struct {
	AccountCode string          `validate:"required"`
	EntryType   EntryType       `validate:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal
	Description string
}

// PostInput groups a balanced set of entries with optional voucher metadata.
// An empty VoucherNumber mints one; a zero VoucherDate means today.
type PostInput struct {
	Entries       []EntryInput `validate:"min=2,dive"`
	ReferenceType string
	ReferenceID   string
	VoucherNumber string
	VoucherDate   time.Time
	ActorID       int64
	ReversalOf    string
}

// ReverseInput identifies the voucher to mirror. An empty Description
// prefixes each original description with "Reversal of ".
type ReverseInput struct {
	VoucherNumber string
	Description   string
	ActorID       int64
}

// Voucher is the result of a posting.
type Voucher struct {
	Number         string        `json:"number"`
	Date           time.Time     `json:"date"`
	FiscalPeriodID *int64        `json:"fiscal_period_id,omitempty"`
	Entries        []LedgerEntry `json:"entries"`
}

// Totals sums the debit and credit sides of the voucher.
func (v Voucher) Totals() (debit, credit decimal.Decimal) {
	return totals(v.Entries)
}

func totals(entries []LedgerEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.EntryType == EntryDebit {
			debit = debit.Add(e.Amount)
		} else {
			credit = credit.Add(e.Amount)
		}
	}
	return debit, credit
}
