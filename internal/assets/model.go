package assets

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceDepreciation links depreciation vouchers to their asset.
const ReferenceDepreciation = "asset_depreciation"

// Asset is a fixed asset depreciated straight-line at an annual percentage rate.
type Asset struct {
	ID               int64
	Code             string
	Name             string
	PurchaseValue    decimal.Decimal
	DepreciationRate decimal.Decimal
	PurchaseDate     time.Time
	IsActive         bool
}

// DepreciationRecord is one monthly depreciation of an asset.
type DepreciationRecord struct {
	ID                      int64
	AssetID                 int64
	DepreciationDate        time.Time
	Amount                  decimal.Decimal
	AccumulatedDepreciation decimal.Decimal
	BookValue               decimal.Decimal
	FiscalPeriodID          *int64
	VoucherNumber           string
	CreatedBy               int64
	CreatedAt               time.Time
}

// RunInput parameterises a monthly run. A zero RunDate means today.
type RunInput struct {
	FiscalPeriodID *int64
	RunDate        time.Time
	ActorID        int64
}

// Result reports one posted depreciation.
type Result struct {
	AssetID       int64
	AssetCode     string
	Amount        decimal.Decimal
	Accumulated   decimal.Decimal
	BookValue     decimal.Decimal
	VoucherNumber string
}

// MonthlyAmount is purchaseValue x (annualRate/12) / 100, rounded to cents
// and capped so accumulated depreciation never exceeds the purchase value.
func MonthlyAmount(asset Asset, priorAccumulated decimal.Decimal) decimal.Decimal {
	if !asset.DepreciationRate.IsPositive() || !asset.PurchaseValue.IsPositive() {
		return decimal.Zero
	}
	monthly := asset.PurchaseValue.Mul(asset.DepreciationRate).Div(decimal.NewFromInt(1200)).Round(2)
	remaining := asset.PurchaseValue.Sub(priorAccumulated)
	if !remaining.IsPositive() {
		return decimal.Zero
	}
	if monthly.GreaterThan(remaining) {
		return remaining
	}
	return monthly
}

// MonthStart truncates t to the first day of its month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
