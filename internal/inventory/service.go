package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives costing fallbacks.
type Metrics interface {
	CostingShortfall(units float64)
}

// Service maintains purchase lots and costs consumption under FIFO or
// weighted average policy.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, metrics Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordPurchase inserts an unsold lot and recomputes the product's weighted average cost.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (int64, error) {
	var lotID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		lotID, err = s.RecordPurchaseInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "inventory.purchase",
			Entity:   "inventory_lot",
			EntityID: fmt.Sprintf("%d", lotID),
			Meta: map[string]any{
				"product_id":  in.ProductID,
				"purchase_id": in.PurchaseID,
				"quantity":    in.Quantity.String(),
				"unit_cost":   in.UnitCost.String(),
			},
			At: s.now(),
		}); err != nil {
			s.logger.Warn("audit purchase lot", slog.Int64("lot_id", lotID), slog.Any("error", err))
		}
	}
	return lotID, nil
}

// RecordPurchaseInTx records a purchase inside a transaction owned by the caller.
func (s *Service) RecordPurchaseInTx(ctx context.Context, tx TxRepository, in PurchaseInput) (int64, error) {
	if in.ProductID == 0 {
		return 0, ErrProductRequired
	}
	if !in.Quantity.IsPositive() {
		return 0, ErrInvalidQuantity
	}
	if in.UnitCost.IsNegative() || in.TotalCost.IsNegative() {
		return 0, ErrInvalidUnitCost
	}
	total := in.TotalCost
	if total.IsZero() {
		total = in.Quantity.Mul(in.UnitCost).Round(TotalPlaces)
	}
	date := in.TransactionDate
	if date.IsZero() {
		date = s.now()
	}
	cost, err := tx.LockProductCost(ctx, in.ProductID)
	if err != nil {
		return 0, err
	}
	lotID, err := tx.InsertLot(ctx, Lot{
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		TotalCost:       total,
		TransactionDate: date,
		ReferenceType:   "purchase",
		ReferenceID:     in.PurchaseID,
	})
	if err != nil {
		return 0, err
	}
	lots, err := tx.ListUnsoldLotsForUpdate(ctx, in.ProductID)
	if err != nil {
		return 0, err
	}
	if wac, ok := WeightedAverage(lots); ok {
		cost.WeightedAverageCost = wac
	}
	cost.UpdatedAt = s.now()
	if err := tx.UpsertProductCost(ctx, cost); err != nil {
		return 0, err
	}
	return lotID, nil
}

// WeightedAverage returns sum(qty x unit cost) / sum(qty) over unsold lots.
// ok is false when no unsold quantity remains.
func WeightedAverage(lots []Lot) (decimal.Decimal, bool) {
	qty, value := decimal.Zero, decimal.Zero
	for _, lot := range lots {
		if lot.IsSold {
			continue
		}
		qty = qty.Add(lot.Quantity)
		value = value.Add(lot.Quantity.Mul(lot.UnitCost))
	}
	if !qty.IsPositive() {
		return decimal.Zero, false
	}
	return value.DivRound(qty, UnitCostPlaces), true
}

// ConsumeFIFO costs a sale from the oldest unsold lots.
func (s *Service) ConsumeFIFO(ctx context.Context, in ConsumeInput) (Consumption, error) {
	return s.consume(ctx, in, CostMethodFIFO)
}

// ConsumeWAC costs a sale at the product's weighted average cost.
func (s *Service) ConsumeWAC(ctx context.Context, in ConsumeInput) (Consumption, error) {
	return s.consume(ctx, in, CostMethodWAC)
}

// ConsumeFIFOInTx is ConsumeFIFO inside a transaction owned by the caller.
func (s *Service) ConsumeFIFOInTx(ctx context.Context, tx TxRepository, in ConsumeInput) (Consumption, error) {
	return s.consumeInTx(ctx, tx, in, CostMethodFIFO)
}

// ConsumeWACInTx is ConsumeWAC inside a transaction owned by the caller.
func (s *Service) ConsumeWACInTx(ctx context.Context, tx TxRepository, in ConsumeInput) (Consumption, error) {
	return s.consumeInTx(ctx, tx, in, CostMethodWAC)
}

func (s *Service) consume(ctx context.Context, in ConsumeInput, method CostMethod) (Consumption, error) {
	var result Consumption
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = s.consumeInTx(ctx, tx, in, method)
		return err
	})
	if err != nil {
		return Consumption{}, err
	}
	return result, nil
}

// consumeInTx walks unsold lots oldest first, marking whole lots sold and
// splitting the last partially consumed lot. Demand no lot can supply is
// costed at the weighted average instead of failing the sale.
func (s *Service) consumeInTx(ctx context.Context, tx TxRepository, in ConsumeInput, method CostMethod) (Consumption, error) {
	if in.ProductID == 0 {
		return Consumption{}, ErrProductRequired
	}
	if !in.Quantity.IsPositive() {
		return Consumption{}, ErrInvalidQuantity
	}
	cost, err := tx.LockProductCost(ctx, in.ProductID)
	if err != nil {
		return Consumption{}, err
	}
	wac := cost.WeightedAverageCost
	lots, err := tx.ListUnsoldLotsForUpdate(ctx, in.ProductID)
	if err != nil {
		return Consumption{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	result := Consumption{ProductID: in.ProductID, Quantity: in.Quantity, TotalCost: decimal.Zero, Shortfall: decimal.Zero}
	remaining := in.Quantity
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		unit := lot.UnitCost
		if method == CostMethodWAC {
			unit = wac
		}
		if lot.Quantity.LessThanOrEqual(remaining) {
			sliceCost := lot.TotalCost
			if method == CostMethodWAC {
				sliceCost = lot.Quantity.Mul(wac).Round(TotalPlaces)
				lot.UnitCost = wac
				lot.TotalCost = sliceCost
			}
			lot.IsSold = true
			lot.CostMethod = method
			if in.ReferenceType != "" {
				lot.ReferenceType, lot.ReferenceID = in.ReferenceType, in.ReferenceID
			}
			if err := tx.UpdateLot(ctx, lot); err != nil {
				return Consumption{}, err
			}
			result.add(ConsumedSlice{LotID: lot.ID, Quantity: lot.Quantity, UnitCost: unit, TotalCost: sliceCost, Method: method})
			remaining = remaining.Sub(lot.Quantity)
			continue
		}

		consumedCost := remaining.Mul(unit).Round(TotalPlaces)
		leftover := lot.Quantity.Sub(remaining)
		if method == CostMethodWAC {
			lot.UnitCost = wac
			lot.TotalCost = leftover.Mul(wac).Round(TotalPlaces)
		} else {
			lot.TotalCost = lot.TotalCost.Sub(consumedCost)
		}
		lot.Quantity = leftover
		if err := tx.UpdateLot(ctx, lot); err != nil {
			return Consumption{}, err
		}
		soldID, err := tx.InsertLot(ctx, Lot{
			ProductID:       in.ProductID,
			Quantity:        remaining,
			UnitCost:        unit,
			TotalCost:       consumedCost,
			IsSold:          true,
			CostMethod:      method,
			TransactionDate: lot.TransactionDate,
			ReferenceType:   in.ReferenceType,
			ReferenceID:     in.ReferenceID,
		})
		if err != nil {
			return Consumption{}, err
		}
		result.add(ConsumedSlice{LotID: soldID, Quantity: remaining, UnitCost: unit, TotalCost: consumedCost, Method: method})
		remaining = decimal.Zero
	}

	if remaining.IsPositive() {
		shortfallCost := remaining.Mul(wac).Round(TotalPlaces)
		result.Shortfall = remaining
		result.add(ConsumedSlice{Quantity: remaining, UnitCost: wac, TotalCost: shortfallCost, Method: CostMethodWACShortfall})
		units, _ := remaining.Float64()
		if s.metrics != nil {
			s.metrics.CostingShortfall(units)
		}
		s.logger.Warn("insufficient inventory, costing shortfall at weighted average",
			slog.Int64("product_id", in.ProductID),
			slog.String("requested", in.Quantity.String()),
			slog.String("shortfall", remaining.String()),
			slog.String("wac", wac.String()),
			slog.String("method", string(method)))
	}
	if method == CostMethodWAC {
		result.TotalCost = in.Quantity.Mul(wac).Round(TotalPlaces)
	}
	return result, nil
}

func (c *Consumption) add(slice ConsumedSlice) {
	c.Slices = append(c.Slices, slice)
	c.TotalCost = c.TotalCost.Add(slice.TotalCost)
}

// RestoreSoldInTx puts back into stock every lot consumed by the given
// document and recomputes the weighted average of each affected product.
// Restored lots keep their transaction date, so FIFO order is unchanged.
// Quantities costed as shortfall have no lot and are not restored.
func (s *Service) RestoreSoldInTx(ctx context.Context, tx TxRepository, referenceType, referenceID string) (Restoration, error) {
	result := Restoration{Quantity: decimal.Zero, Value: decimal.Zero}
	if referenceType == "" || referenceID == "" {
		return result, nil
	}
	sold, err := tx.ListSoldLotsForUpdate(ctx, referenceType, referenceID)
	if err != nil {
		return Restoration{}, err
	}
	byProduct := make(map[int64][]Lot)
	var products []int64
	for _, lot := range sold {
		if _, ok := byProduct[lot.ProductID]; !ok {
			products = append(products, lot.ProductID)
		}
		byProduct[lot.ProductID] = append(byProduct[lot.ProductID], lot)
	}
	slices.Sort(products)
	for _, productID := range products {
		cost, err := tx.LockProductCost(ctx, productID)
		if err != nil {
			return Restoration{}, err
		}
		for _, lot := range byProduct[productID] {
			lot.IsSold = false
			lot.CostMethod = ""
			if err := tx.UpdateLot(ctx, lot); err != nil {
				return Restoration{}, err
			}
			result.Lots++
			result.Quantity = result.Quantity.Add(lot.Quantity)
			result.Value = result.Value.Add(lot.TotalCost)
		}
		lots, err := tx.ListUnsoldLotsForUpdate(ctx, productID)
		if err != nil {
			return Restoration{}, err
		}
		if wac, ok := WeightedAverage(lots); ok {
			cost.WeightedAverageCost = wac
		}
		cost.UpdatedAt = s.now()
		if err := tx.UpsertProductCost(ctx, cost); err != nil {
			return Restoration{}, err
		}
	}
	if result.Lots > 0 {
		s.logger.Info("sold lots restored",
			slog.String("reference_type", referenceType),
			slog.String("reference_id", referenceID),
			slog.Int("lots", result.Lots),
			slog.String("value", result.Value.String()))
	}
	return result, nil
}

// InventoryValue sums the cost of unsold lots, optionally for one product.
func (s *Service) InventoryValue(ctx context.Context, productID *int64) (decimal.Decimal, error) {
	return s.repo.InventoryValue(ctx, productID)
}

// RevalueAll recomputes the weighted average cost of every product that
// still has unsold lots and returns the products whose cost changed.
func (s *Service) RevalueAll(ctx context.Context) ([]Revaluation, error) {
	products, err := s.repo.ListProductsWithStock(ctx)
	if err != nil {
		return nil, err
	}
	var changed []Revaluation
	for _, productID := range products {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			cost, err := tx.LockProductCost(ctx, productID)
			if err != nil {
				return err
			}
			lots, err := tx.ListUnsoldLotsForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			wac, ok := WeightedAverage(lots)
			if !ok || wac.Equal(cost.WeightedAverageCost) {
				return nil
			}
			changed = append(changed, Revaluation{ProductID: productID, Previous: cost.WeightedAverageCost, Current: wac})
			cost.WeightedAverageCost = wac
			cost.UpdatedAt = s.now()
			return tx.UpsertProductCost(ctx, cost)
		})
		if err != nil {
			return changed, fmt.Errorf("inventory: revalue product %d: %w", productID, err)
		}
	}
	return changed, nil
}
