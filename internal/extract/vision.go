// Package extract implements the concrete document-analysis collaborators
// (classification, per-type field extraction, description and keyword
// generation) on one-shot vision model calls.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/orchestrator"
)

// Generator is the one-shot model call the vision helpers run on.
// *gemini.Factory satisfies it.
type Generator interface {
	Generate(ctx context.Context, system string, parts []*genai.Part, jsonOutput bool) (string, error)
}

// Vision builds the extraction/enrichment collaborator functions.
type Vision struct {
	gen    Generator
	logger *slog.Logger
}

func NewVision(gen Generator, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vision{gen: gen, logger: logger}
}

const classifySystem = `You classify financial documents. ` +
	`Given a document image, answer with a JSON object {"documentType": one of "INVOICE", "RECEIPT", "BILL", "CREDIT_NOTE", "confidence": number between 0 and 1}. ` +
	`An invoice is issued to the tenant and requests payment; a receipt proves a completed payment; a bill is a utility/telecom statement; a credit note reverses a prior invoice.`

// ClassifyFunc returns the classify_document collaborator.
func (v *Vision) ClassifyFunc() orchestrator.ClassifyFunc {
	return func(ctx context.Context, image []byte, mimeType string) (string, float64, error) {
		parts := []*genai.Part{
			genai.NewPartFromText("Classify this document."),
			genai.NewPartFromBytes(image, mimeType),
		}
		text, err := v.gen.Generate(ctx, classifySystem, parts, true)
		if err != nil {
			return "", 0, err
		}
		var out struct {
			DocumentType string  `json:"documentType"`
			Confidence   float64 `json:"confidence"`
		}
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return "", 0, fmt.Errorf("classify: unmarshal response: %w", err)
		}
		docType := strings.ToUpper(strings.TrimSpace(out.DocumentType))
		if _, ok := constants.ParseDocumentType(docType); !ok {
			return "", 0, fmt.Errorf("classify: unknown document type %q", out.DocumentType)
		}
		v.logger.Info("extract.classify.ok", "document_type", docType, "confidence", out.Confidence)
		return docType, out.Confidence, nil
	}
}

// Per-type field guidance appended to the extraction prompt.
var extractFieldHints = map[constants.DocumentType]string{
	constants.Invoice:    `invoiceNumber, invoiceDate, dueDate, supplier, supplierVatNumber, supplierIban, structuredCommunication, currency, totalAmount, vatAmount, lineItems`,
	constants.Receipt:    `merchant, transactionDate, paymentMethod, currency, totalAmount, vatAmount, lineItems`,
	constants.Bill:       `provider, providerVatNumber, billingPeriod, dueDate, supplierIban, structuredCommunication, currency, totalAmount, vatAmount`,
	constants.CreditNote: `creditNoteNumber, creditNoteDate, supplier, supplierVatNumber, originalInvoiceNumber, currency, totalAmount, vatAmount`,
}

func extractSystem(docType constants.DocumentType) string {
	return fmt.Sprintf(`You extract structured data from %s documents. `+
		`Answer with one JSON object of extracted fields. Expected fields where present: %s. `+
		`Always include "extractedText" holding the full visible text of the document and "confidence" (0..1) for the extraction as a whole. `+
		`Use strings for amounts exactly as printed. Omit fields that are not on the document; never use placeholder values.`,
		docType, extractFieldHints[docType])
}

// ExtractFunc returns the extraction collaborator for one document type.
func (v *Vision) ExtractFunc(docType constants.DocumentType) orchestrator.ExtractFunc {
	system := extractSystem(docType)
	return func(ctx context.Context, image []byte, mimeType string, hints map[string]any) (map[string]any, error) {
		prompt := "Extract all fields from this document."
		if len(hints) > 0 {
			b, err := json.Marshal(hints)
			if err == nil {
				prompt += " Hints: " + string(b)
			}
		}
		parts := []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}
		text, err := v.gen.Generate(ctx, system, parts, true)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(text), &fields); err != nil {
			return nil, fmt.Errorf("extract %s: unmarshal response: %w", docType, err)
		}
		v.logger.Info("extract.fields.ok", "document_type", docType, "fields", len(fields))
		return fields, nil
	}
}

// Extractors builds the full tool-name→extractor map the orchestrator wires
// into its toolset.
func (v *Vision) Extractors() map[string]orchestrator.ExtractFunc {
	m := make(map[string]orchestrator.ExtractFunc, len(constants.ExtractionToolTypes))
	for tool, docType := range constants.ExtractionToolTypes {
		m[tool] = v.ExtractFunc(docType)
	}
	return m
}

const describeSystem = `You summarize financial documents. ` +
	`Given the extracted fields of a document, answer with one short plain-text sentence describing it (counterparty, what for, amount). No JSON, no markdown.`

// DescribeFunc returns the generate_description collaborator.
func (v *Vision) DescribeFunc() orchestrator.DescribeFunc {
	return func(ctx context.Context, extraction map[string]any) (string, error) {
		b, err := json.Marshal(extraction)
		if err != nil {
			return "", fmt.Errorf("describe: marshal extraction: %w", err)
		}
		parts := []*genai.Part{genai.NewPartFromText("Extracted fields:\n" + string(b))}
		text, err := v.gen.Generate(ctx, describeSystem, parts, false)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	}
}

const keywordsSystem = `You index financial documents for search. ` +
	`Given the extracted fields of a document, answer with a JSON array of 3 to 8 lowercase keyword strings (counterparty, document kind, notable items).`

// KeywordsFunc returns the generate_keywords collaborator.
func (v *Vision) KeywordsFunc() orchestrator.KeywordsFunc {
	return func(ctx context.Context, extraction map[string]any) ([]string, error) {
		b, err := json.Marshal(extraction)
		if err != nil {
			return nil, fmt.Errorf("keywords: marshal extraction: %w", err)
		}
		parts := []*genai.Part{genai.NewPartFromText("Extracted fields:\n" + string(b))}
		text, err := v.gen.Generate(ctx, keywordsSystem, parts, true)
		if err != nil {
			return nil, err
		}
		var keywords []string
		if err := json.Unmarshal([]byte(text), &keywords); err != nil {
			return nil, fmt.Errorf("keywords: unmarshal response: %w", err)
		}
		return keywords, nil
	}
}
