package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	acctshared "github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// Reference types written on hook vouchers.
const (
	ReferenceSale     = "sales_invoice"
	ReferencePurchase = "purchase"
)

// Ledger exposes the posting operations required by integrations.
type Ledger interface {
	PostInTx(ctx context.Context, tx journals.TxRepository, in journals.PostInput) (journals.Voucher, error)
	ReverseInTx(ctx context.Context, tx journals.TxRepository, in journals.ReverseInput) (journals.Voucher, error)
}

// Costing exposes the lot operations required by integrations.
type Costing interface {
	ConsumeFIFOInTx(ctx context.Context, tx inventory.TxRepository, in inventory.ConsumeInput) (inventory.Consumption, error)
	ConsumeWACInTx(ctx context.Context, tx inventory.TxRepository, in inventory.ConsumeInput) (inventory.Consumption, error)
	RecordPurchaseInTx(ctx context.Context, tx inventory.TxRepository, in inventory.PurchaseInput) (int64, error)
	RestoreSoldInTx(ctx context.Context, tx inventory.TxRepository, referenceType, referenceID string) (inventory.Restoration, error)
}

// AccountMapper resolves module keys to account codes.
type AccountMapper interface {
	AccountCode(ctx context.Context, module, key string) (string, error)
}

// IdempotencyPort guards against processing one event twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Hooks turns sales, purchase and void events into ledger postings.
type Hooks struct {
	repo        Repository
	ledger      Ledger
	costing     Costing
	mapper      AccountMapper
	idempotency IdempotencyPort
	retry       acctshared.RetryPolicy
	logger      *slog.Logger
}

// NewHooks constructs integration hooks.
func NewHooks(repo Repository, ledger Ledger, costing Costing, mapper AccountMapper, idem IdempotencyPort, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		repo:        repo,
		ledger:      ledger,
		costing:     costing,
		mapper:      mapper,
		idempotency: idem,
		retry:       acctshared.DefaultRetryPolicy,
		logger:      logger,
	}
}

func (h *Hooks) resolve(ctx context.Context, module string, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		code, err := h.mapper.AccountCode(ctx, module, key)
		if err != nil {
			return nil, err
		}
		out[key] = code
	}
	return out, nil
}

// once runs fn unless key was already processed. A failed fn releases the key.
func (h *Hooks) once(ctx context.Context, key, module string, fn func(context.Context) (string, error)) (string, error) {
	if h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(ctx, key, module); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.logger.Info("integration event already processed", slog.String("key", key), slog.String("module", module))
				return "", nil
			}
			return "", err
		}
	}
	voucher, err := fn(ctx)
	if err != nil && h.idempotency != nil {
		if delErr := h.idempotency.Delete(ctx, key); delErr != nil {
			h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
		}
	}
	return voucher, err
}

// HandleSaleCompleted costs the sold stock and posts revenue, VAT and COGS
// as one voucher. A sale without revenue still posts its COGS. It returns the
// voucher number, or "" when the event was already processed or carries
// neither revenue nor cost.
func (h *Hooks) HandleSaleCompleted(ctx context.Context, evt SaleCompletedEvent) (string, error) {
	if evt.ID == 0 || len(evt.Lines) == 0 {
		return "", acctshared.Invalid("sale", "sale id and lines are required")
	}
	debitKey := mappings.KeySalesCash
	if evt.PaymentMethod == PaymentCredit {
		debitKey = mappings.KeySalesReceivable
	}
	sales, err := h.resolve(ctx, mappings.ModuleSales, debitKey, mappings.KeySalesRevenue, mappings.KeySalesVAT)
	if err != nil {
		return "", err
	}
	stock, err := h.resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryAsset, mappings.KeyInventoryCOGS)
	if err != nil {
		return "", err
	}
	key := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("SALE:%d", evt.ID))).String()
	ref := strconv.FormatInt(evt.ID, 10)
	return h.once(ctx, key, "integration.sales", func(ctx context.Context) (string, error) {
		var number string
		err := acctshared.Retry(ctx, h.retry, func(ctx context.Context) error {
			return h.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				net, cogs := decimal.Zero, decimal.Zero
				for _, line := range evt.Lines {
					in := inventory.ConsumeInput{
						ProductID:     line.ProductID,
						Quantity:      line.Quantity,
						ReferenceType: ReferenceSale,
						ReferenceID:   ref,
						Date:          evt.SoldAt,
					}
					var consumed inventory.Consumption
					var err error
					if evt.CostMethod == inventory.CostMethodWAC {
						consumed, err = h.costing.ConsumeWACInTx(ctx, tx, in)
					} else {
						consumed, err = h.costing.ConsumeFIFOInTx(ctx, tx, in)
					}
					if err != nil {
						return fmt.Errorf("integration: cost product %d: %w", line.ProductID, err)
					}
					net = net.Add(monetary(line.Quantity, line.UnitPrice))
					cogs = cogs.Add(consumed.TotalCost)
				}
				cogs = round2(cogs)
				memo := fmt.Sprintf("Sale %s", evt.Number)
				var entries []journals.EntryInput
				if net.IsPositive() {
					vat := vatOf(net, evt.VATRate)
					entries = append(entries,
						journals.EntryInput{AccountCode: sales[debitKey], EntryType: journals.EntryDebit, Amount: net.Add(vat), Description: memo},
						journals.EntryInput{AccountCode: sales[mappings.KeySalesRevenue], EntryType: journals.EntryCredit, Amount: net, Description: memo},
					)
					if vat.IsPositive() {
						entries = append(entries, journals.EntryInput{AccountCode: sales[mappings.KeySalesVAT], EntryType: journals.EntryCredit, Amount: vat, Description: "VAT " + memo})
					}
				}
				if cogs.IsPositive() {
					entries = append(entries,
						journals.EntryInput{AccountCode: stock[mappings.KeyInventoryCOGS], EntryType: journals.EntryDebit, Amount: cogs, Description: "COGS " + memo},
						journals.EntryInput{AccountCode: stock[mappings.KeyInventoryAsset], EntryType: journals.EntryCredit, Amount: cogs, Description: "COGS " + memo},
					)
				}
				if len(entries) == 0 {
					return nil
				}
				voucher, err := h.ledger.PostInTx(ctx, tx, journals.PostInput{
					Entries:       entries,
					ReferenceType: ReferenceSale,
					ReferenceID:   ref,
					VoucherDate:   evt.SoldAt,
					ActorID:       evt.ActorID,
				})
				if err != nil {
					return err
				}
				number = voucher.Number
				return nil
			})
		})
		return number, err
	})
}

// HandlePurchaseReceived records one lot per line and posts inventory and
// VAT receivable against payables, or cash for cash purchases.
func (h *Hooks) HandlePurchaseReceived(ctx context.Context, evt PurchaseReceivedEvent) (string, error) {
	if evt.ID == 0 || len(evt.Lines) == 0 {
		return "", acctshared.Invalid("purchase", "purchase id and lines are required")
	}
	creditKey := mappings.KeyPurchasePayable
	if evt.PaymentMethod == PaymentCash {
		creditKey = mappings.KeyPurchaseCash
	}
	purchase, err := h.resolve(ctx, mappings.ModulePurchase, creditKey, mappings.KeyPurchaseVAT)
	if err != nil {
		return "", err
	}
	stock, err := h.resolve(ctx, mappings.ModuleInventory, mappings.KeyInventoryAsset)
	if err != nil {
		return "", err
	}
	key := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PURCHASE:%d", evt.ID))).String()
	ref := strconv.FormatInt(evt.ID, 10)
	return h.once(ctx, key, "integration.purchases", func(ctx context.Context) (string, error) {
		var number string
		err := acctshared.Retry(ctx, h.retry, func(ctx context.Context) error {
			return h.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				net := decimal.Zero
				for _, line := range evt.Lines {
					if _, err := h.costing.RecordPurchaseInTx(ctx, tx, inventory.PurchaseInput{
						ProductID:       line.ProductID,
						PurchaseID:      ref,
						Quantity:        line.Quantity,
						UnitCost:        line.UnitCost,
						TransactionDate: evt.ReceivedAt,
						ActorID:         evt.ActorID,
					}); err != nil {
						return fmt.Errorf("integration: record product %d: %w", line.ProductID, err)
					}
					net = net.Add(monetary(line.Quantity, line.UnitCost))
				}
				if !net.IsPositive() {
					return nil
				}
				vat := vatOf(net, evt.VATRate)
				memo := fmt.Sprintf("Purchase %s", evt.Number)
				entries := []journals.EntryInput{
					{AccountCode: stock[mappings.KeyInventoryAsset], EntryType: journals.EntryDebit, Amount: net, Description: memo},
				}
				if vat.IsPositive() {
					entries = append(entries, journals.EntryInput{AccountCode: purchase[mappings.KeyPurchaseVAT], EntryType: journals.EntryDebit, Amount: vat, Description: "VAT " + memo})
				}
				entries = append(entries, journals.EntryInput{AccountCode: purchase[creditKey], EntryType: journals.EntryCredit, Amount: net.Add(vat), Description: memo})
				voucher, err := h.ledger.PostInTx(ctx, tx, journals.PostInput{
					Entries:       entries,
					ReferenceType: ReferencePurchase,
					ReferenceID:   ref,
					VoucherDate:   evt.ReceivedAt,
					ActorID:       evt.ActorID,
				})
				if err != nil {
					return err
				}
				number = voucher.Number
				return nil
			})
		})
		return number, err
	})
}

// HandleDocumentVoided reverses the document's voucher. When the voucher
// belongs to a sale, the lots that sale consumed go back into stock in the
// same transaction. A voucher that is already reversed is treated as done.
func (h *Hooks) HandleDocumentVoided(ctx context.Context, evt DocumentVoidedEvent) (string, error) {
	if evt.VoucherNumber == "" {
		return "", acctshared.Invalid("voucher_number", "voided document has no voucher")
	}
	description := ""
	if evt.Reason != "" {
		description = fmt.Sprintf("Void %s %d: %s", evt.Module, evt.DocumentID, evt.Reason)
	}
	var number string
	err := acctshared.Retry(ctx, h.retry, func(ctx context.Context) error {
		return h.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			original, err := tx.ListVoucherEntries(ctx, evt.VoucherNumber)
			if err != nil {
				return err
			}
			voucher, err := h.ledger.ReverseInTx(ctx, tx, journals.ReverseInput{
				VoucherNumber: evt.VoucherNumber,
				Description:   description,
				ActorID:       evt.ActorID,
			})
			if err != nil {
				return err
			}
			if len(original) > 0 && original[0].ReferenceType == ReferenceSale {
				if _, err := h.costing.RestoreSoldInTx(ctx, tx, ReferenceSale, original[0].ReferenceID); err != nil {
					return fmt.Errorf("integration: restore sold stock: %w", err)
				}
			}
			number = voucher.Number
			return nil
		})
	})
	if errors.Is(err, acctshared.ErrAlreadyReversed) {
		h.logger.Info("voided voucher already reversed", slog.String("voucher", evt.VoucherNumber))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}
