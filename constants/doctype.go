package constants

// DocumentType is the canonical document classification for a processing run.
type DocumentType string

// Stable values (store these exact strings in DB).
const (
	Invoice    DocumentType = "INVOICE"
	Receipt    DocumentType = "RECEIPT"
	Bill       DocumentType = "BILL"
	CreditNote DocumentType = "CREDIT_NOTE"
)

// DocumentTypes lists every known type, in prompt order.
var DocumentTypes = []DocumentType{Invoice, Receipt, Bill, CreditNote}

// ParseDocumentType maps a raw label to a canonical type.
func ParseDocumentType(s string) (DocumentType, bool) {
	for _, t := range DocumentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}
