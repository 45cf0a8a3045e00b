package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/invoice"
)

func onboardedCLI(t *testing.T) *fakeAPI {
	t.Helper()
	api := newFakeAPI(t)
	api.onboarded = true
	setupCLI(t, api)
	login(t)
	return api
}

func writeDocument(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestInvoicesListEmpty(t *testing.T) {
	onboardedCLI(t)

	out, errOut, err := runCLI(t, "invoices", "list")
	require.NoError(t, err)
	assert.Contains(t, errOut, "No invoices yet")
	assert.Contains(t, out, "NUMBER")
}

func TestInvoicesListJSON(t *testing.T) {
	api := onboardedCLI(t)
	api.mu.Lock()
	api.invoices = []invoice.Invoice{
		{ID: "inv-1", Number: 7, Date: "2024-01-10", Total: 100, Status: invoice.StatusValidated},
		{ID: "inv-2", Number: 8, Date: "2024-02-10", Total: 250.5, Status: invoice.StatusPending},
	}
	api.mu.Unlock()

	out, _, err := runCLI(t, "invoices", "list", "--format", "json")
	require.NoError(t, err)

	var page struct {
		Items      []invoice.Invoice  `json:"items"`
		Pagination invoice.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "inv-2", page.Items[1].ID)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestInvoicesListPageOutOfRange(t *testing.T) {
	onboardedCLI(t)

	_, _, err := runCLI(t, "invoices", "list", "--page", "3")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "out of range")
}

func TestInvoicesShow(t *testing.T) {
	onboardedCLI(t)

	out, _, err := runCLI(t, "invoices", "show", "inv-9", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "number: 42")
	assert.Contains(t, out, "id: inv-9")
}

func TestInvoicesUploadCreatesTaggedInvoice(t *testing.T) {
	api := onboardedCLI(t)
	content := []byte("%PDF-1.4\n% factura de prueba\n")
	path := writeDocument(t, "factura.pdf", content)

	out, errOut, err := runCLI(t, "invoices", "upload", path,
		"--tag", "tag-logistica", "--description", "Consultoría", "--yes", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Invoice 42 created")

	var created invoice.Invoice
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "inv-9", created.ID)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, content, api.uploads["file-1"])
	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, int64(42), req.Number)
	assert.Equal(t, "2024-03-01", req.Date)
	assert.InDelta(t, 1210.0, req.Total, 0.001)
	assert.Equal(t, "tag-logistica", api.assigned["inv-9"])
}

func TestInvoicesUploadFlagsOverrideExtraction(t *testing.T) {
	api := onboardedCLI(t)
	path := writeDocument(t, "scan.pdf", []byte("%PDF-1.7\n"))

	_, _, err := runCLI(t, "invoices", "upload", path,
		"--tag", "tag-1", "--number", "77", "--date", "2024-04-02", "--yes")
	require.NoError(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.created, 1)
	assert.Equal(t, int64(77), api.created[0].Number)
	assert.Equal(t, "2024-04-02", api.created[0].Date)
}

func TestInvoicesUploadNeedsTagWithoutTerminal(t *testing.T) {
	api := onboardedCLI(t)
	path := writeDocument(t, "factura.pdf", []byte("%PDF-1.4\n"))

	_, _, err := runCLI(t, "invoices", "upload", path, "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tag")
	assert.False(t, api.called("POST", "/parties/me/invoices"))
}

func TestInvoicesUploadRejectsUnsupportedFile(t *testing.T) {
	api := onboardedCLI(t)
	path := writeDocument(t, "notes.txt", []byte("hola"))

	_, _, err := runCLI(t, "invoices", "upload", path, "--tag", "tag-1", "--yes")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFile))
	assert.False(t, api.called("POST", "/invoices/presigned-urls"))
}

func TestInvoicesUploadBeforeOnboarding(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)
	login(t)
	path := writeDocument(t, "factura.pdf", []byte("%PDF-1.4\n"))

	_, _, err := runCLI(t, "invoices", "upload", path, "--tag", "tag-1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotOnboarded))
	assert.False(t, api.called("POST", "/invoices/presigned-urls"))
}
