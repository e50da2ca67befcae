package sequences

import (
	"fmt"
	"strings"
)

// Template placeholders.
const (
	PlaceholderPrefix = "{PREFIX}"
	PlaceholderNumber = "{NUMBER}"
)

// DefaultFormat renders numbers such as VOU-000001.
const DefaultFormat = PlaceholderPrefix + "-" + PlaceholderNumber

// DefaultPadWidth zero-pads the counter in rendered numbers.
const DefaultPadWidth = 6

// Document types minted by the ledger and its collaborators.
const (
	DocumentVoucher  = "VOU"
	DocumentInvoice  = "INV"
	DocumentPurchase = "PUR"
	DocumentPayment  = "PAY"
)

// Sequence is the per-document-type counter row.
type Sequence struct {
	DocumentType  string
	Prefix        string
	CurrentNumber int64
	Format        string
}

// Render formats the current counter with the sequence template.
func (s Sequence) Render(padWidth int) string {
	format := s.Format
	if format == "" {
		format = DefaultFormat
	}
	number := fmt.Sprintf("%0*d", padWidth, s.CurrentNumber)
	return strings.NewReplacer(PlaceholderPrefix, s.Prefix, PlaceholderNumber, number).Replace(format)
}

// NormalizeType upper-cases and trims a document type.
func NormalizeType(documentType string) string {
	return strings.ToUpper(strings.TrimSpace(documentType))
}
