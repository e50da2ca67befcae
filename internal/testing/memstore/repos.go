package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/reports"
	acctshared "github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/integration"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/ledger"
	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// Stores returns every repository backed by s.
func (s *Store) Stores() ledger.Stores {
	return ledger.Stores{
		Accounts:    s.Accounts(),
		Mappings:    s.Mappings(),
		Sequences:   s.Sequences(),
		Periods:     s.Periods(),
		Journals:    s.Journals(),
		Reports:     s.Reports(),
		Inventory:   s.Inventory(),
		Assets:      s.Assets(),
		Integration: s.Integration(),
		Idempotency: s.Idempotency(),
		Audit:       s.Audit(),
	}
}

type accountRepo struct{ *Store }

// Accounts returns the chart of accounts repository.
func (s *Store) Accounts() accounts.Repository { return accountRepo{s} }

func (r accountRepo) FindByCode(ctx context.Context, code string) (accounts.Account, error) {
	var acc accounts.Account
	err := r.write("FindByCode", func(d *state) error {
		found, ok := d.accounts[code]
		if !ok {
			return accounts.ErrAccountNotFound
		}
		acc = found
		return nil
	})
	return acc, err
}

func (r accountRepo) List(ctx context.Context) ([]accounts.Account, error) {
	var out []accounts.Account
	err := r.read(func(d *state) error {
		for _, acc := range d.accounts {
			out = append(out, acc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

func (r accountRepo) Create(ctx context.Context, account accounts.Account) (accounts.Account, error) {
	err := r.write("Create", func(d *state) error {
		if _, ok := d.accounts[account.Code]; ok {
			return accounts.ErrDuplicateCode
		}
		account.ID = d.id()
		account.CreatedAt = r.now()
		account.UpdatedAt = account.CreatedAt
		d.accounts[account.Code] = account
		return nil
	})
	if err != nil {
		return accounts.Account{}, err
	}
	return account, nil
}

func (r accountRepo) SetActive(ctx context.Context, code string, active bool) error {
	return r.write("SetActive", func(d *state) error {
		acc, ok := d.accounts[code]
		if !ok {
			return accounts.ErrAccountNotFound
		}
		acc.IsActive = active
		acc.UpdatedAt = r.now()
		d.accounts[code] = acc
		return nil
	})
}

type mappingRepo struct{ *Store }

// Mappings returns the account mapping repository.
func (s *Store) Mappings() mappings.Repository { return mappingRepo{s} }

func (r mappingRepo) Get(ctx context.Context, module, key string) (mappings.AccountMapping, error) {
	var out mappings.AccountMapping
	err := r.read(func(d *state) error {
		code, ok := d.mappings[strings.ToUpper(module)+"/"+key]
		if !ok {
			return acctshared.ErrMappingNotFound
		}
		out = mappings.AccountMapping{Module: strings.ToUpper(module), Key: key, AccountCode: code}
		return nil
	})
	return out, err
}

func (r mappingRepo) Set(ctx context.Context, m mappings.AccountMapping) (mappings.AccountMapping, error) {
	err := r.write("SetMapping", func(d *state) error {
		if _, ok := d.accounts[m.AccountCode]; !ok {
			return &acctshared.UnknownAccountError{Code: m.AccountCode}
		}
		d.mappings[m.Module+"/"+m.Key] = m.AccountCode
		m.UpdatedAt = r.now()
		return nil
	})
	if err != nil {
		return mappings.AccountMapping{}, err
	}
	return m, nil
}

type sequenceRepo struct{ *Store }

// Sequences returns the document sequence repository.
func (s *Store) Sequences() sequences.Repository { return sequenceRepo{s} }

func (r sequenceRepo) WithTx(ctx context.Context, fn func(context.Context, sequences.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *txView) error { return fn(ctx, tx) })
}

type periodRepo struct{ *Store }

// Periods returns the fiscal period repository.
func (s *Store) Periods() periods.Repository { return periodRepo{s} }

func (r periodRepo) List(ctx context.Context) ([]periods.FiscalPeriod, error) {
	var out []periods.FiscalPeriod
	err := r.read(func(d *state) error {
		out = append(out, d.periods...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, err
}

func (r periodRepo) WithTx(ctx context.Context, fn func(context.Context, periods.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *txView) error { return fn(ctx, tx) })
}

type journalRepo struct{ *Store }

// Journals returns the general ledger repository.
func (s *Store) Journals() journals.Repository { return journalRepo{s} }

func (r journalRepo) ListVoucher(ctx context.Context, voucherNumber string) ([]journals.LedgerEntry, error) {
	return r.VoucherEntries(voucherNumber), nil
}

func (r journalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *txView) error { return fn(ctx, tx) })
}

type reportRepo struct{ *Store }

// Reports returns the balance reader.
func (s *Store) Reports() reports.Repository { return reportRepo{s} }

func includeEntry(e journals.LedgerEntry, asOf *time.Time) bool {
	if e.IsClosed {
		return false
	}
	return asOf == nil || !e.VoucherDate.After(periods.DateOnly(*asOf))
}

func (r reportRepo) AccountTotals(ctx context.Context, code string, asOf *time.Time) (reports.AccountBalance, bool, error) {
	var (
		row   reports.AccountBalance
		found bool
	)
	err := r.read(func(d *state) error {
		acc, ok := d.accounts[code]
		if !ok {
			return nil
		}
		found = true
		row = reports.AccountBalance{Code: acc.Code, Name: acc.Name, Type: acc.Type}
		for _, e := range d.entries {
			if e.AccountID != acc.ID || !includeEntry(e, asOf) {
				continue
			}
			if e.EntryType == journals.EntryDebit {
				row.Debit = row.Debit.Add(e.Amount)
			} else {
				row.Credit = row.Credit.Add(e.Amount)
			}
		}
		return nil
	})
	return row, found, err
}

func (r reportRepo) AccountActivity(ctx context.Context, asOf *time.Time) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	err := r.read(func(d *state) error {
		byCode := map[string]*reports.AccountBalance{}
		for _, e := range d.entries {
			if !includeEntry(e, asOf) {
				continue
			}
			row, ok := byCode[e.AccountCode]
			if !ok {
				acc := d.accounts[e.AccountCode]
				row = &reports.AccountBalance{Code: e.AccountCode, Name: acc.Name, Type: acc.Type}
				byCode[e.AccountCode] = row
			}
			if e.EntryType == journals.EntryDebit {
				row.Debit = row.Debit.Add(e.Amount)
			} else {
				row.Credit = row.Credit.Add(e.Amount)
			}
		}
		for _, row := range byCode {
			out = append(out, *row)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

func (r reportRepo) UnbalancedVouchers(ctx context.Context, tolerance decimal.Decimal) ([]reports.VoucherImbalance, error) {
	var out []reports.VoucherImbalance
	err := r.read(func(d *state) error {
		byVoucher := map[string]*reports.VoucherImbalance{}
		for _, e := range d.entries {
			v, ok := byVoucher[e.VoucherNumber]
			if !ok {
				v = &reports.VoucherImbalance{VoucherNumber: e.VoucherNumber}
				byVoucher[e.VoucherNumber] = v
			}
			if e.EntryType == journals.EntryDebit {
				v.Debit = v.Debit.Add(e.Amount)
			} else {
				v.Credit = v.Credit.Add(e.Amount)
			}
		}
		for _, v := range byVoucher {
			if v.Debit.Sub(v.Credit).Abs().GreaterThan(tolerance) {
				out = append(out, *v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].VoucherNumber < out[j].VoucherNumber })
	return out, err
}

// InjectEntry appends a raw ledger row, bypassing posting validation. Tests
// use it to simulate corrupted data for the integrity scan.
func (s *Store) InjectEntry(e journals.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.data.id()
	if acc, ok := s.data.accounts[e.AccountCode]; ok {
		e.AccountID = acc.ID
	}
	s.data.entries = append(s.data.entries, e)
}

type inventoryRepo struct{ *Store }

// Inventory returns the cost lot repository.
func (s *Store) Inventory() inventory.Repository { return inventoryRepo{s} }

func (r inventoryRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *txView) error { return fn(ctx, tx) })
}

func (r inventoryRepo) InventoryValue(ctx context.Context, productID *int64) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.read(func(d *state) error {
		for _, lot := range d.lots {
			if lot.IsSold || (productID != nil && lot.ProductID != *productID) {
				continue
			}
			total = total.Add(lot.TotalCost)
		}
		return nil
	})
	return total, err
}

func (r inventoryRepo) ListProductsWithStock(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.read(func(d *state) error {
		seen := map[int64]bool{}
		for _, lot := range d.lots {
			if !lot.IsSold && !seen[lot.ProductID] {
				seen[lot.ProductID] = true
				ids = append(ids, lot.ProductID)
			}
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, err
}

type assetRepo struct{ *Store }

// Assets returns the fixed asset repository.
func (s *Store) Assets() assets.Repository { return assetRepo{s} }

func (r assetRepo) ListDepreciableAssets(ctx context.Context) ([]assets.Asset, error) {
	var out []assets.Asset
	err := r.read(func(d *state) error {
		for _, a := range d.assets {
			if a.IsActive && a.DepreciationRate.IsPositive() {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r assetRepo) WithTx(ctx context.Context, fn func(context.Context, assets.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *txView) error { return fn(ctx, tx) })
}

type integrationRepo struct{ *Store }

// Integration returns the combined ledger and inventory repository.
func (s *Store) Integration() integration.Repository { return integrationRepo{s} }

func (r integrationRepo) WithTx(ctx context.Context, fn func(context.Context, integration.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *txView) error { return fn(ctx, tx) })
}

type idempotencyStore struct{ *Store }

// Idempotency returns the processed event key store.
func (s *Store) Idempotency() integration.IdempotencyPort { return idempotencyStore{s} }

func (r idempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CheckAndInsert"); err != nil {
		return err
	}
	if _, ok := r.idempotency[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	r.idempotency[key] = module
	return nil
}

func (r idempotencyStore) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.idempotency, key)
	return nil
}

type auditStore struct{ *Store }

// Audit returns the audit log sink.
func (s *Store) Audit() ledger.AuditPort { return auditStore{s} }

func (r auditStore) Record(ctx context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, log)
	return nil
}
