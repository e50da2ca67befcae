package memstore

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// AddAccount seeds an active account.
func (s *Store) AddAccount(code, name string, typ accounts.AccountType) accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	acc := accounts.Account{
		ID:        s.data.id(),
		Code:      code,
		Name:      name,
		Type:      typ,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.data.accounts[code] = acc
	return acc
}

// AddRetailChart seeds the accounts referenced by mappings.DefaultRetailMappings.
func (s *Store) AddRetailChart() {
	for _, a := range []struct {
		code, name string
		typ        accounts.AccountType
	}{
		{"1010", "Cash", accounts.AccountTypeAsset},
		{"1100", "Accounts Receivable", accounts.AccountTypeAsset},
		{"1200", "Inventory", accounts.AccountTypeAsset},
		{"1300", "VAT Receivable", accounts.AccountTypeAsset},
		{"1500", "Equipment", accounts.AccountTypeAsset},
		{"1510", "Accumulated Depreciation", accounts.AccountTypeAsset},
		{"2010", "Accounts Payable", accounts.AccountTypeLiability},
		{"2200", "VAT Payable", accounts.AccountTypeLiability},
		{"3000", "Owner Equity", accounts.AccountTypeEquity},
		{"4000", "Sales Revenue", accounts.AccountTypeRevenue},
		{"5000", "Cost of Goods Sold", accounts.AccountTypeExpense},
		{"6100", "Depreciation Expense", accounts.AccountTypeExpense},
	} {
		s.AddAccount(a.code, a.name, a.typ)
	}
}

// AddMapping seeds an account_mappings row.
func (s *Store) AddMapping(module, key, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.mappings[strings.ToUpper(module)+"/"+key] = code
}

// AddPeriod seeds an open fiscal period.
func (s *Store) AddPeriod(name string, start, end time.Time) periods.FiscalPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := periods.FiscalPeriod{
		ID:        s.data.id(),
		Name:      name,
		StartDate: periods.DateOnly(start),
		EndDate:   periods.DateOnly(end),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.data.periods = append(s.data.periods, p)
	return p
}

// SetPeriodFlags overwrites a period's lock flags directly.
func (s *Store) SetPeriodFlags(id int64, locked, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.periods {
		if s.data.periods[i].ID == id {
			s.data.periods[i].IsLocked = locked
			s.data.periods[i].IsClosed = closed
		}
	}
}

// AddAsset seeds a fixed asset and returns it with its id.
func (s *Store) AddAsset(a assets.Asset) assets.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.data.id()
	s.data.assets[a.ID] = a
	return a
}

// AddLot seeds a lot without touching product_costs.
func (s *Store) AddLot(lot inventory.Lot) inventory.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot.ID = s.data.id()
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = s.now()
	}
	s.data.lots = append(s.data.lots, lot)
	return lot
}

// SetSequence seeds a document sequence row.
func (s *Store) SetSequence(seq sequences.Sequence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.sequences[seq.DocumentType] = seq
}

// Sequence returns the stored sequence row.
func (s *Store) Sequence(documentType string) (sequences.Sequence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.data.sequences[documentType]
	return seq, ok
}

// Entries returns every ledger entry in insertion order.
func (s *Store) Entries() []journals.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]journals.LedgerEntry(nil), s.data.entries...)
}

// VoucherEntries returns the entries of one voucher.
func (s *Store) VoucherEntries(number string) []journals.LedgerEntry {
	var out []journals.LedgerEntry
	for _, e := range s.Entries() {
		if e.VoucherNumber == number {
			out = append(out, e)
		}
	}
	return out
}

// Lots returns the lots of a product ordered by id.
func (s *Store) Lots(productID int64) []inventory.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Lot
	for _, lot := range s.data.lots {
		if lot.ProductID == productID {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProductCost returns the stored weighted average cost.
func (s *Store) ProductCost(productID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.costs[productID].WeightedAverageCost
}

// Period returns a fiscal period by id.
func (s *Store) Period(id int64) (periods.FiscalPeriod, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.data.periods {
		if p.ID == id {
			return p, true
		}
	}
	return periods.FiscalPeriod{}, false
}

// DepreciationRecords returns every asset_depreciation row.
func (s *Store) DepreciationRecords() []assets.DepreciationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]assets.DepreciationRecord(nil), s.data.depreciation...)
}

// AuditLogs returns recorded audit events.
func (s *Store) AuditLogs() []shared.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.AuditLog(nil), s.audit...)
}
