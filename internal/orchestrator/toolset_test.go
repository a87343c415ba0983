package orchestrator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/trace"
)

func TestBuildToolsetRegistersFullSurface(t *testing.T) {
	o := newTestOrchestrator(t, &scriptFactory{}, testCollaborators(&fakeStore{ok: true}, nil))
	tr := trace.NewCollector()
	reg := o.buildToolset(tr, ProcessRequest{DocumentID: uuid.New(), TenantID: uuid.New()}, "run-1", o.logger)

	decls := reg.Declarations()
	require.Len(t, decls, 17)
	assert.Equal(t, constants.ToolGetDocumentImage, decls[0].Name, "registration order is stable")
	assert.Equal(t, constants.ToolUpdateIndexingStatus, decls[len(decls)-1].Name)

	for _, name := range []string{
		constants.ToolClassifyDocument,
		constants.ToolExtractInvoice,
		constants.ToolExtractReceipt,
		constants.ToolExtractBill,
		constants.ToolExtractCreditNote,
		constants.ToolValidateExtraction,
		constants.ToolLookupContact,
		constants.ToolCreateContact,
		constants.ToolLookupLegalEntity,
		constants.ToolStoreExtraction,
		constants.ToolStoreChunks,
		constants.ToolIndexExample,
	} {
		assert.True(t, reg.Has(name), name)
	}
}

func TestValidateExtractionTool(t *testing.T) {
	o := newTestOrchestrator(t, &scriptFactory{}, testCollaborators(&fakeStore{ok: true}, nil))
	tr := trace.NewCollector()
	reg := o.buildToolset(tr, ProcessRequest{DocumentID: uuid.New(), TenantID: uuid.New()}, "run-1", o.logger)

	out, err := reg.Invoke(context.Background(), constants.ToolValidateExtraction, map[string]any{
		"iban":      "BE68539007547034",
		"ogm":       "+++000/0000/00101+++",
		"vatNumber": "BE0411905847",
	})
	require.NoError(t, err)
	res := out.(map[string]any)
	assert.Equal(t, true, res["valid"])

	out, err = reg.Invoke(context.Background(), constants.ToolValidateExtraction, map[string]any{
		"iban": "BE68539007547035",
	})
	require.NoError(t, err)
	res = out.(map[string]any)
	assert.Equal(t, false, res["valid"])
	assert.NotEmpty(t, res["issues"])
}

func TestStoreExtractionToolReportsLinkedContact(t *testing.T) {
	store := &fakeStore{ok: true}
	o := newTestOrchestrator(t, &scriptFactory{}, testCollaborators(store, nil))
	tr := trace.NewCollector()
	documentID, tenantID := uuid.New(), uuid.New()
	reg := o.buildToolset(tr, ProcessRequest{DocumentID: documentID, TenantID: tenantID}, "run-1", o.logger)

	out, err := reg.Invoke(context.Background(), constants.ToolStoreExtraction, map[string]any{
		"documentType": "INVOICE",
		"extraction":   map[string]any{"totalAmount": "1234.56"},
		"contactId":    "contact-9",
		"keywords":     []any{"acme"},
	})
	require.NoError(t, err)
	res := out.(map[string]any)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "contact-9", res["linkedContactId"])

	require.Len(t, store.calls, 1)
	assert.Equal(t, "run-1", store.calls[0].RunID)
	assert.Equal(t, []string{"acme"}, store.calls[0].Keywords)

	_, err = reg.Invoke(context.Background(), constants.ToolStoreExtraction, map[string]any{
		"documentType": "INVOICE",
	})
	assert.Error(t, err, "extraction is mandatory")
}

func TestSystemPromptCarriesContractAndPolicy(t *testing.T) {
	o := newTestOrchestrator(t, &scriptFactory{}, testCollaborators(&fakeStore{ok: true}, nil))
	sys := o.systemPrompt()
	assert.Contains(t, sys, `"needs_review"`)
	assert.Contains(t, sys, "additionalProperties")
	assert.Contains(t, sys, o.policy.PromptRules())

	task := o.taskPrompt(ProcessRequest{
		DocumentID: uuid.New(), TenantID: uuid.New(),
		TenantVAT: "BE0411905847", CompanyName: "Fintrack BV",
	}, "run-42")
	assert.Contains(t, task, "run-42")
	assert.Contains(t, task, "BE0411905847")
	assert.Contains(t, task, "Fintrack BV")
}
