package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CostMethod tags how a consumed quantity was costed.
type CostMethod string

const (
	// CostMethodFIFO costs units at the consumed lot's own unit cost.
	CostMethodFIFO CostMethod = "FIFO"
	// CostMethodWAC costs units at the product's weighted average cost.
	CostMethodWAC CostMethod = "WAC"
	// CostMethodWACShortfall costs units that no lot could supply at the weighted average.
	CostMethodWACShortfall CostMethod = "WAC_SHORTFALL"
)

// Decimal places kept for unit costs and totals.
const (
	UnitCostPlaces = 6
	TotalPlaces    = 4
)

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must not be negative")
	// ErrProductRequired indicates a missing product id.
	ErrProductRequired = errors.New("inventory: product required")
)

// Lot is one purchase cost layer. Lots are split, never deleted. A sold lot
// carries the reference of the document that consumed it.
type Lot struct {
	ID              int64
	ProductID       int64
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	IsSold          bool
	CostMethod      CostMethod
	TransactionDate time.Time
	ReferenceType   string
	ReferenceID     string
	CreatedAt       time.Time
}

// ProductCost holds the running weighted average cost of a product.
type ProductCost struct {
	ProductID           int64
	WeightedAverageCost decimal.Decimal
	UpdatedAt           time.Time
}

// PurchaseInput records received stock. A zero TotalCost defaults to
// Quantity x UnitCost; a zero TransactionDate means now.
type PurchaseInput struct {
	ProductID       int64
	PurchaseID      string
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	TransactionDate time.Time
	ActorID         int64
}

// ConsumeInput requests the cost of quantity units leaving stock.
type ConsumeInput struct {
	ProductID     int64
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Date          time.Time
}

// ConsumedSlice is the part of a consumption attributed to one lot, or to the
// shortfall when LotID is zero.
type ConsumedSlice struct {
	LotID     int64
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	TotalCost decimal.Decimal
	Method    CostMethod
}

// Consumption is the costed result of a sale.
type Consumption struct {
	ProductID int64
	Quantity  decimal.Decimal
	TotalCost decimal.Decimal
	Shortfall decimal.Decimal
	Slices    []ConsumedSlice
}

// Restoration reports the stock put back when a sale is voided.
type Restoration struct {
	Lots     int
	Quantity decimal.Decimal
	Value    decimal.Decimal
}

// Revaluation reports a recomputed weighted average cost.
type Revaluation struct {
	ProductID int64
	Previous  decimal.Decimal
	Current   decimal.Decimal
}
