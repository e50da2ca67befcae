package mappings

import "time"

// Modules and keys used by the posting workflows.
const (
	ModuleSales     = "SALES"
	ModulePurchase  = "PURCHASE"
	ModuleInventory = "INVENTORY"
	ModuleAssets    = "ASSETS"

	KeySalesCash       = "sales.cash"
	KeySalesReceivable = "sales.receivable"
	KeySalesRevenue    = "sales.revenue"
	KeySalesVAT        = "sales.vat_payable"

	KeyPurchasePayable = "purchase.payable"
	KeyPurchaseCash    = "purchase.cash"
	KeyPurchaseVAT     = "purchase.vat_receivable"

	KeyInventoryAsset = "inventory.asset"
	KeyInventoryCOGS  = "inventory.cogs"

	KeyDepreciationExpense     = "depreciation.expense"
	KeyAccumulatedDepreciation = "depreciation.accumulated"
)

// AccountMapping links integration keys to ledger account codes.
type AccountMapping struct {
	Module      string
	Key         string
	AccountCode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DefaultRetailMappings is the fallback chart used when account_mappings has
// no row for a key.
var DefaultRetailMappings = map[string]string{
	ModuleSales + "/" + KeySalesCash:                "1010",
	ModuleSales + "/" + KeySalesReceivable:          "1100",
	ModuleSales + "/" + KeySalesRevenue:             "4000",
	ModuleSales + "/" + KeySalesVAT:                 "2200",
	ModulePurchase + "/" + KeyPurchasePayable:       "2010",
	ModulePurchase + "/" + KeyPurchaseCash:          "1010",
	ModulePurchase + "/" + KeyPurchaseVAT:           "1300",
	ModuleInventory + "/" + KeyInventoryAsset:       "1200",
	ModuleInventory + "/" + KeyInventoryCOGS:        "5000",
	ModuleAssets + "/" + KeyDepreciationExpense:     "6100",
	ModuleAssets + "/" + KeyAccumulatedDepreciation: "1510",
}
