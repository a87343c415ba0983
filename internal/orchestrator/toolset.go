package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/tools"
	"github.com/fintrack-io/docpipe/internal/trace"
	"github.com/fintrack-io/docpipe/internal/validate"
)

// documentImage caches the rendered image for the run so the classify and
// extract tools don't re-fetch it per call.
type documentImage struct {
	once sync.Once
	data []byte
	mime string
	err  error
}

// buildToolset assembles the per-run capability registry: every tool the
// agent may call, bound to this run's document, tenant and trace.
func (o *Orchestrator) buildToolset(tr *trace.Collector, req ProcessRequest, runID string, logger *slog.Logger) *tools.Registry {
	reg := tools.NewRegistry(tr, logger)
	img := &documentImage{}

	fetchImage := func(ctx context.Context) ([]byte, string, error) {
		img.once.Do(func() {
			img.data, img.mime, img.err = o.collab.Images.FetchImage(ctx, req.DocumentID, req.TenantID)
		})
		return img.data, img.mime, img.err
	}

	extractionHints := map[string]any{}
	if req.MaxPages > 0 {
		extractionHints["maxPages"] = req.MaxPages
	}
	if req.DPI > 0 {
		extractionHints["dpi"] = req.DPI
	}

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolGetDocumentImage,
		Description: "Fetch the rendered image of the document being processed. Returns base64 data and its MIME type.",
		Parameters:  tools.Schema{Properties: map[string]tools.Property{}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			data, mime, err := fetchImage(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch image: %w", err)
			}
			return map[string]any{
				"mimeType":    mime,
				"sizeBytes":   len(data),
				"imageBase64": base64.StdEncoding.EncodeToString(data),
			}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolGetParsedExtraction,
		Description: "Return the pre-parsed extraction for documents that arrived already structured (e.g. PEPPOL). found=false means the document must be extracted from its image.",
		Parameters:  tools.Schema{Properties: map[string]tools.Property{}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			extraction, found, err := o.collab.Parsed.FetchParsedExtraction(ctx, req.DocumentID)
			if err != nil {
				return nil, fmt.Errorf("fetch parsed extraction: %w", err)
			}
			if !found {
				return map[string]any{"found": false}, nil
			}
			return map[string]any{"found": true, "extraction": extraction}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolClassifyDocument,
		Description: "Classify the document into INVOICE, RECEIPT, BILL or CREDIT_NOTE with a confidence score.",
		Parameters:  tools.Schema{Properties: map[string]tools.Property{}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			data, mime, err := fetchImage(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch image: %w", err)
			}
			docType, confidence, err := o.collab.Classify(ctx, data, mime)
			if err != nil {
				return nil, fmt.Errorf("classify: %w", err)
			}
			return map[string]any{"documentType": docType, "confidence": confidence}, nil
		},
	})

	// Fixed registration order so the declaration list sent to the model is
	// stable across runs.
	for _, name := range []string{
		constants.ToolExtractInvoice,
		constants.ToolExtractReceipt,
		constants.ToolExtractBill,
		constants.ToolExtractCreditNote,
	} {
		extractor, ok := o.collab.Extractors[name]
		if !ok {
			continue
		}
		docType := constants.ExtractionToolTypes[name]
		reg.MustRegister(&tools.Tool{
			Name:        name,
			Description: fmt.Sprintf("Extract all structured fields from a %s document image.", docType),
			Parameters:  tools.Schema{Properties: map[string]tools.Property{}},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				data, mime, err := fetchImage(ctx)
				if err != nil {
					return nil, fmt.Errorf("fetch image: %w", err)
				}
				extraction, err := extractor(ctx, data, mime, extractionHints)
				if err != nil {
					return nil, err
				}
				// The extraction map is returned as-is: its trace snapshot
				// is what fallback reconstruction recovers.
				return extraction, nil
			},
		})
	}

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolValidateExtraction,
		Description: "Validate extracted payment fields: IBAN (mod-97), Belgian structured communication (OGM) and VAT number format.",
		Parameters: tools.Schema{
			Properties: map[string]tools.Property{
				"iban":      {Type: "string", Description: "extracted IBAN, if any"},
				"ogm":       {Type: "string", Description: "extracted structured communication, if any"},
				"vatNumber": {Type: "string", Description: "extracted counterparty VAT number, if any"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			checks := map[string]any{}
			var issues []string
			if v, ok := args["iban"].(string); ok && v != "" {
				valid := validate.IBAN(v)
				checks["iban"] = valid
				if !valid {
					issues = append(issues, fmt.Sprintf("IBAN %q failed mod-97 check", v))
				}
			}
			if v, ok := args["ogm"].(string); ok && v != "" {
				valid := validate.OGM(v)
				checks["ogm"] = valid
				if !valid {
					issues = append(issues, fmt.Sprintf("structured communication %q has invalid check digits", v))
				}
			}
			if v, ok := args["vatNumber"].(string); ok && v != "" {
				valid := validate.VAT(v)
				checks["vatNumber"] = valid
				if !valid {
					issues = append(issues, fmt.Sprintf("VAT number %q is not valid", v))
				}
			}
			return map[string]any{"valid": len(issues) == 0, "checks": checks, "issues": issues}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolGenerateDescription,
		Description: "Generate a short human-readable description of the document from its extraction.",
		Parameters: tools.Schema{
			Required:   []string{"extraction"},
			Properties: map[string]tools.Property{"extraction": {Type: "object", Description: "the extracted fields"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			extraction := asMap(args["extraction"])
			desc, err := o.collab.Describe(ctx, extraction)
			if err != nil {
				return nil, err
			}
			return map[string]any{"description": desc}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolGenerateKeywords,
		Description: "Generate search keywords for the document from its extraction.",
		Parameters: tools.Schema{
			Required:   []string{"extraction"},
			Properties: map[string]tools.Property{"extraction": {Type: "object", Description: "the extracted fields"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			keywords, err := o.collab.Keywords(ctx, asMap(args["extraction"]))
			if err != nil {
				return nil, err
			}
			return map[string]any{"keywords": keywords}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolLookupContact,
		Description: "Look up an existing contact of the tenant by VAT number. matchType EXACT means the normalized VAT numbers are equal.",
		Parameters: tools.Schema{
			Required:   []string{"vatNumber"},
			Properties: map[string]tools.Property{"vatNumber": {Type: "string", Description: "counterparty VAT number"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			vat, _ := args["vatNumber"].(string)
			info, err := o.collab.Contacts.LookupContact(ctx, req.TenantID, vat)
			if err != nil {
				return nil, fmt.Errorf("lookup contact: %w", err)
			}
			if info == nil {
				return map[string]any{"found": false}, nil
			}
			return map[string]any{
				"found":     true,
				"contactId": info.ID,
				"name":      info.Name,
				"vatNumber": info.VATNumber,
				"matchType": info.MatchType,
			}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolCreateContact,
		Description: "Create a new contact for the tenant. Use only when the counterparty clearly does not exist yet.",
		Parameters: tools.Schema{
			Required: []string{"name"},
			Properties: map[string]tools.Property{
				"name":      {Type: "string", Description: "counterparty name"},
				"vatNumber": {Type: "string", Description: "counterparty VAT number"},
				"address":   {Type: "string", Description: "counterparty address"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			vat, _ := args["vatNumber"].(string)
			address, _ := args["address"].(string)
			res, err := o.collab.Contacts.CreateContact(ctx, req.TenantID, name, vat, address)
			if err != nil {
				return nil, fmt.Errorf("create contact: %w", err)
			}
			out := map[string]any{"success": res.Success}
			if res.ContactID != "" {
				out["contactId"] = res.ContactID
			}
			if res.Error != "" {
				out["error"] = res.Error
			}
			return out, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolLookupLegalEntity,
		Description: "Look up a legal entity in the company register (CBE) by VAT number.",
		Parameters: tools.Schema{
			Required:   []string{"vatNumber"},
			Properties: map[string]tools.Property{"vatNumber": {Type: "string", Description: "VAT/enterprise number"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			vat, _ := args["vatNumber"].(string)
			entity, found, err := o.collab.LegalEntities.LookupLegalEntity(ctx, vat)
			if err != nil {
				return nil, fmt.Errorf("lookup legal entity: %w", err)
			}
			if !found {
				return map[string]any{"found": false}, nil
			}
			return map[string]any{"found": true, "entity": entity}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolStoreExtraction,
		Description: "Durably persist the final extraction. Must be called once per run with the complete result.",
		Parameters: tools.Schema{
			Required: []string{"documentType", "extraction"},
			Properties: map[string]tools.Property{
				"documentType":       {Type: "string", Enum: []any{"INVOICE", "RECEIPT", "BILL", "CREDIT_NOTE"}},
				"extraction":         {Type: "object", Description: "the extracted fields"},
				"description":        {Type: "string"},
				"keywords":           {Type: "array", Items: &tools.PropertyItems{Type: "string"}},
				"confidence":         {Type: "number"},
				"rawText":            {Type: "string"},
				"contactId":          {Type: "string", Description: "confirmed (auto-linked) contact id"},
				"suggestedContactId": {Type: "string", Description: "suggested but unconfirmed contact id"},
				"contactCreated":     {Type: "boolean"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			docType, _ := args["documentType"].(string)
			extraction := asMap(args["extraction"])
			if docType == "" || extraction == nil {
				return nil, fmt.Errorf("store_extraction requires documentType and extraction")
			}
			store := StoreExtractionRequest{
				DocumentID:   req.DocumentID,
				TenantID:     req.TenantID,
				RunID:        runID,
				DocumentType: constants.DocumentType(docType),
				Extraction:   extraction,
				Keywords:     []string{},
			}
			if v, ok := args["description"].(string); ok {
				store.Description = v
			}
			if kw, ok := asStringList(args["keywords"]); ok {
				store.Keywords = kw
			}
			if v, ok := asFloat(args["confidence"]); ok {
				store.Confidence = v
			}
			if v, ok := args["rawText"].(string); ok {
				store.RawText = v
			}
			if v, ok := args["contactId"].(string); ok {
				store.ContactID = v
			}
			if v, ok := args["contactCreated"].(bool); ok {
				store.ContactCreated = v
			}
			ok, err := o.collab.Store.StoreExtraction(ctx, store)
			if err != nil {
				return nil, fmt.Errorf("store extraction: %w", err)
			}
			out := map[string]any{"success": ok}
			if store.ContactID != "" {
				out["linkedContactId"] = store.ContactID
			}
			return out, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolStoreChunks,
		Description: "Store text chunks of the document for retrieval indexing. Non-critical.",
		NonCritical: true,
		Parameters: tools.Schema{
			Required: []string{"chunks"},
			Properties: map[string]tools.Property{
				"chunks": {Type: "array", Items: &tools.PropertyItems{Type: "string"}},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			chunks, _ := asStringList(args["chunks"])
			if err := o.collab.Indexer.StoreChunks(ctx, req.DocumentID, chunks); err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "count": len(chunks)}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolIndexExample,
		Description: "Index this document's extraction as a few-shot example for future runs. Non-critical.",
		NonCritical: true,
		Parameters: tools.Schema{
			Required: []string{"documentType", "extraction"},
			Properties: map[string]tools.Property{
				"documentType": {Type: "string"},
				"extraction":   {Type: "object"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			docType, _ := args["documentType"].(string)
			if err := o.collab.Indexer.IndexExample(ctx, req.DocumentID, constants.DocumentType(docType), asMap(args["extraction"])); err != nil {
				return nil, err
			}
			return map[string]any{"success": true}, nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        constants.ToolUpdateIndexingStatus,
		Description: "Update the document's indexing status. Non-critical.",
		NonCritical: true,
		Parameters: tools.Schema{
			Required: []string{"status"},
			Properties: map[string]tools.Property{
				"status": {Type: "string", Enum: []any{"QUEUED", "RUNNING", "INDEXED", "FAILED", "REVIEWED"}},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			status, _ := args["status"].(string)
			if err := o.collab.Indexer.UpdateIndexingStatus(ctx, req.DocumentID, constants.IndexingStatus(status)); err != nil {
				return nil, err
			}
			return map[string]any{"success": true}, nil
		},
	})

	return reg
}
