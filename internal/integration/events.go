package integration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
)

// Payment methods understood by the hooks.
const (
	PaymentCash   = "cash"
	PaymentCredit = "credit"
)

// SaleLine is one sold product.
type SaleLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SaleCompletedEvent is emitted by the point of sale once an invoice is final.
// VATRate is a plain percentage. An empty CostMethod means FIFO.
type SaleCompletedEvent struct {
	ID            int64                `json:"id"`
	Number        string               `json:"number"`
	SoldAt        time.Time            `json:"sold_at"`
	PaymentMethod string               `json:"payment_method"`
	VATRate       decimal.Decimal      `json:"vat_rate"`
	CostMethod    inventory.CostMethod `json:"cost_method"`
	Lines         []SaleLine           `json:"lines"`
	ActorID       int64                `json:"actor_id"`
}

// PurchaseLine is one received product.
type PurchaseLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// PurchaseReceivedEvent is emitted when purchased stock arrives.
type PurchaseReceivedEvent struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	ReceivedAt    time.Time       `json:"received_at"`
	PaymentMethod string          `json:"payment_method"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	Lines         []PurchaseLine  `json:"lines"`
	ActorID       int64           `json:"actor_id"`
}

// DocumentVoidedEvent cancels the voucher posted for a business document.
type DocumentVoidedEvent struct {
	Module        string `json:"module"`
	DocumentID    int64  `json:"document_id"`
	VoucherNumber string `json:"voucher_number"`
	Reason        string `json:"reason"`
	ActorID       int64  `json:"actor_id"`
}
