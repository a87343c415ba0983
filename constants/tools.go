package constants

// Tool names exposed to the agent. These exact strings appear in trace steps,
// so renaming one invalidates fallback recovery for old traces.
const (
	ToolGetDocumentImage     = "get_document_image"
	ToolGetParsedExtraction  = "get_parsed_extraction"
	ToolClassifyDocument     = "classify_document"
	ToolExtractInvoice       = "extract_invoice"
	ToolExtractReceipt       = "extract_receipt"
	ToolExtractBill          = "extract_bill"
	ToolExtractCreditNote    = "extract_credit_note"
	ToolValidateExtraction   = "validate_extraction"
	ToolGenerateDescription  = "generate_description"
	ToolGenerateKeywords     = "generate_keywords"
	ToolLookupContact        = "lookup_contact"
	ToolCreateContact        = "create_contact"
	ToolLookupLegalEntity    = "lookup_legal_entity"
	ToolStoreExtraction      = "store_extraction"
	ToolStoreChunks          = "store_chunks"
	ToolIndexExample         = "index_example"
	ToolUpdateIndexingStatus = "update_indexing_status"
)

// ExtractionToolTypes maps per-type extraction tools to the document type
// they produce. Used by trace-based fallback reconstruction.
var ExtractionToolTypes = map[string]DocumentType{
	ToolExtractInvoice:    Invoice,
	ToolExtractReceipt:    Receipt,
	ToolExtractBill:       Bill,
	ToolExtractCreditNote: CreditNote,
}

// NonCriticalTools fail a tool call without failing the run; their errors are
// surfaced as issues on the final result.
var NonCriticalTools = map[string]struct{}{
	ToolStoreChunks:          {},
	ToolIndexExample:         {},
	ToolUpdateIndexingStatus: {},
}
