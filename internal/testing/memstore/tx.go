package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	acctshared "github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
)

// txView implements every TxRepository against the store. Row locks are
// implied by the store-wide transaction lock.
type txView struct {
	store *Store
}

func (t *txView) write(op string, fn func(d *state) error) error { return t.store.write(op, fn) }

// sequences

func (t *txView) EnsureSequence(ctx context.Context, seq sequences.Sequence) error {
	return t.write("EnsureSequence", func(d *state) error {
		if _, ok := d.sequences[seq.DocumentType]; !ok {
			seq.CurrentNumber = 0
			d.sequences[seq.DocumentType] = seq
		}
		return nil
	})
}

func (t *txView) LockSequence(ctx context.Context, documentType string) (sequences.Sequence, error) {
	var seq sequences.Sequence
	err := t.write("LockSequence", func(d *state) error {
		found, ok := d.sequences[documentType]
		if !ok {
			return sequences.ErrSequenceNotFound
		}
		seq = found
		return nil
	})
	return seq, err
}

func (t *txView) UpdateSequenceNumber(ctx context.Context, documentType string, number int64) error {
	return t.write("UpdateSequenceNumber", func(d *state) error {
		seq, ok := d.sequences[documentType]
		if !ok {
			return sequences.ErrSequenceNotFound
		}
		seq.CurrentNumber = number
		d.sequences[documentType] = seq
		return nil
	})
}

// periods

func (t *txView) FindPeriodForPosting(ctx context.Context, date time.Time) (periods.FiscalPeriod, error) {
	var out periods.FiscalPeriod
	err := t.write("FindPeriodForPosting", func(d *state) error {
		found := false
		for _, p := range d.periods {
			if !p.Contains(date) {
				continue
			}
			if !found || p.StartDate.After(out.StartDate) {
				out, found = p, true
			}
		}
		if !found {
			return acctshared.ErrPeriodNotFound
		}
		return nil
	})
	return out, err
}

func (t *txView) GetPeriodForUpdate(ctx context.Context, id int64) (periods.FiscalPeriod, error) {
	var out periods.FiscalPeriod
	err := t.write("GetPeriodForUpdate", func(d *state) error {
		for _, p := range d.periods {
			if p.ID == id {
				out = p
				return nil
			}
		}
		return acctshared.ErrPeriodNotFound
	})
	return out, err
}

func (t *txView) PeriodOverlaps(ctx context.Context, start, end time.Time) (bool, error) {
	overlaps := false
	err := t.write("PeriodOverlaps", func(d *state) error {
		start, end := periods.DateOnly(start), periods.DateOnly(end)
		for _, p := range d.periods {
			if !p.StartDate.After(end) && !p.EndDate.Before(start) {
				overlaps = true
			}
		}
		return nil
	})
	return overlaps, err
}

func (t *txView) InsertPeriod(ctx context.Context, in periods.CreateInput) (periods.FiscalPeriod, error) {
	var out periods.FiscalPeriod
	err := t.write("InsertPeriod", func(d *state) error {
		now := t.store.now()
		out = periods.FiscalPeriod{
			ID:        d.id(),
			Name:      in.Name,
			StartDate: periods.DateOnly(in.StartDate),
			EndDate:   periods.DateOnly(in.EndDate),
			CreatedAt: now,
			UpdatedAt: now,
		}
		d.periods = append(d.periods, out)
		return nil
	})
	return out, err
}

func (t *txView) UpdatePeriodFlags(ctx context.Context, id int64, locked, closed bool, actorID int64, at time.Time) error {
	return t.write("UpdatePeriodFlags", func(d *state) error {
		for i := range d.periods {
			p := &d.periods[i]
			if p.ID != id {
				continue
			}
			p.IsLocked, p.IsClosed, p.UpdatedAt = locked, closed, at
			if closed && p.ClosedAt == nil {
				closedAt := at
				p.ClosedAt = &closedAt
				if actorID != 0 {
					by := actorID
					p.ClosedBy = &by
				}
			}
			return nil
		}
		return acctshared.ErrPeriodNotFound
	})
}

func (t *txView) CloseLedgerEntries(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := t.write("CloseLedgerEntries", func(d *state) error {
		for i := range d.entries {
			e := &d.entries[i]
			if e.FiscalPeriodID != nil && *e.FiscalPeriodID == id && !e.IsClosed {
				e.IsClosed = true
				n++
			}
		}
		return nil
	})
	return n, err
}

// journals

// LockVoucherNumber needs no lock of its own; memstore transactions are serialised.
func (t *txView) LockVoucherNumber(ctx context.Context, voucherNumber string) (bool, error) {
	exists := false
	err := t.write("LockVoucherNumber", func(d *state) error {
		for _, e := range d.entries {
			if e.VoucherNumber == voucherNumber {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (t *txView) InsertEntries(ctx context.Context, entries []journals.LedgerEntry) ([]journals.LedgerEntry, error) {
	out := make([]journals.LedgerEntry, 0, len(entries))
	err := t.write("InsertEntries", func(d *state) error {
		now := t.store.now()
		for _, e := range entries {
			e.ID = d.id()
			e.CreatedAt = now
			e.IsClosed = false
			d.entries = append(d.entries, e)
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (t *txView) ListVoucherEntries(ctx context.Context, voucherNumber string) ([]journals.LedgerEntry, error) {
	var out []journals.LedgerEntry
	err := t.write("ListVoucherEntries", func(d *state) error {
		for _, e := range d.entries {
			if e.VoucherNumber == voucherNumber {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (t *txView) ReversalExists(ctx context.Context, voucherNumber string) (bool, error) {
	exists := false
	err := t.write("ReversalExists", func(d *state) error {
		for _, e := range d.entries {
			if e.ReversalOfVoucher == voucherNumber {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

// inventory

func (t *txView) LockProductCost(ctx context.Context, productID int64) (inventory.ProductCost, error) {
	var out inventory.ProductCost
	err := t.write("LockProductCost", func(d *state) error {
		cost, ok := d.costs[productID]
		if !ok {
			cost = inventory.ProductCost{ProductID: productID, WeightedAverageCost: decimal.Zero, UpdatedAt: t.store.now()}
			d.costs[productID] = cost
		}
		out = cost
		return nil
	})
	return out, err
}

func (t *txView) UpsertProductCost(ctx context.Context, cost inventory.ProductCost) error {
	return t.write("UpsertProductCost", func(d *state) error {
		d.costs[cost.ProductID] = cost
		return nil
	})
}

func (t *txView) ListUnsoldLotsForUpdate(ctx context.Context, productID int64) ([]inventory.Lot, error) {
	var out []inventory.Lot
	err := t.write("ListUnsoldLotsForUpdate", func(d *state) error {
		for _, lot := range d.lots {
			if lot.ProductID == productID && !lot.IsSold {
				out = append(out, lot)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (t *txView) ListSoldLotsForUpdate(ctx context.Context, referenceType, referenceID string) ([]inventory.Lot, error) {
	var out []inventory.Lot
	err := t.write("ListSoldLotsForUpdate", func(d *state) error {
		for _, lot := range d.lots {
			if lot.IsSold && lot.ReferenceType == referenceType && lot.ReferenceID == referenceID {
				out = append(out, lot)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (t *txView) InsertLot(ctx context.Context, lot inventory.Lot) (int64, error) {
	err := t.write("InsertLot", func(d *state) error {
		lot.ID = d.id()
		lot.CreatedAt = t.store.now()
		d.lots = append(d.lots, lot)
		return nil
	})
	return lot.ID, err
}

func (t *txView) UpdateLot(ctx context.Context, lot inventory.Lot) error {
	return t.write("UpdateLot", func(d *state) error {
		for i := range d.lots {
			if d.lots[i].ID == lot.ID {
				cur := &d.lots[i]
				cur.Quantity, cur.UnitCost, cur.TotalCost = lot.Quantity, lot.UnitCost, lot.TotalCost
				cur.IsSold, cur.CostMethod = lot.IsSold, lot.CostMethod
				cur.ReferenceType, cur.ReferenceID = lot.ReferenceType, lot.ReferenceID
				return nil
			}
		}
		return nil
	})
}

// assets

func (t *txView) LockAsset(ctx context.Context, id int64) (assets.Asset, error) {
	var out assets.Asset
	err := t.write("LockAsset", func(d *state) error {
		a, ok := d.assets[id]
		if !ok {
			return assets.ErrAssetNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (t *txView) LatestAccumulated(ctx context.Context, assetID int64) (decimal.Decimal, error) {
	accumulated := decimal.Zero
	err := t.write("LatestAccumulated", func(d *state) error {
		var latest *assets.DepreciationRecord
		for i := range d.depreciation {
			rec := &d.depreciation[i]
			if rec.AssetID != assetID {
				continue
			}
			if latest == nil || rec.DepreciationDate.After(latest.DepreciationDate) ||
				(rec.DepreciationDate.Equal(latest.DepreciationDate) && rec.ID > latest.ID) {
				latest = rec
			}
		}
		if latest != nil {
			accumulated = latest.AccumulatedDepreciation
		}
		return nil
	})
	return accumulated, err
}

func (t *txView) RecordExistsForMonth(ctx context.Context, assetID int64, month time.Time) (bool, error) {
	exists := false
	err := t.write("RecordExistsForMonth", func(d *state) error {
		target := assets.MonthStart(month)
		for _, rec := range d.depreciation {
			if rec.AssetID == assetID && assets.MonthStart(rec.DepreciationDate).Equal(target) {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (t *txView) InsertDepreciationRecord(ctx context.Context, rec assets.DepreciationRecord) (int64, error) {
	err := t.write("InsertDepreciationRecord", func(d *state) error {
		rec.ID = d.id()
		rec.CreatedAt = t.store.now()
		d.depreciation = append(d.depreciation, rec)
		return nil
	})
	return rec.ID, err
}
