package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bankAccount struct {
	Bank string `json:"bank" yaml:"bank"`
	CBU  string `json:"cbu" yaml:"cbu"`
}

func render(t *testing.T, format string, compact bool, data any) string {
	t.Helper()
	var buf bytes.Buffer
	f, err := NewFormatter(format, &FormatterOptions{Writer: &buf, NoColor: true, Compact: compact})
	require.NoError(t, err)
	require.NoError(t, f.Format(data))
	return buf.String()
}

func TestNewFormatterRejectsUnknownFormat(t *testing.T) {
	for _, format := range append([]string{""}, Formats...) {
		_, err := NewFormatter(format, nil)
		assert.NoError(t, err, format)
	}

	_, err := NewFormatter("xml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format: xml")
}

func TestStructuredFormats(t *testing.T) {
	acct := bankAccount{Bank: "Banco Nación", CBU: "0110599520000001234567"}

	out := render(t, "json", false, acct)
	assert.Contains(t, out, `"bank": "Banco Nación"`)

	out = render(t, "json", true, acct)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	out = render(t, "yaml", false, acct)
	assert.Contains(t, out, "cbu: \"0110599520000001234567\"")
}

func TestTextFormatterNeedsARenderableValue(t *testing.T) {
	assert.Equal(t, "Logged out\n", render(t, "text", false, "Logged out"))

	var buf bytes.Buffer
	f, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)
	err = f.Format(bankAccount{Bank: "Galicia"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ux.bankAccount")
}

func invoiceTable() Table {
	return Table{
		Headers: []string{"ID", "Total"},
		Rows:    [][]string{{"inv-1", "121.00"}, {"inv-2", "50.00"}},
	}
}

func TestTableText(t *testing.T) {
	out := render(t, "text", false, invoiceTable())
	for _, want := range []string{"ID", "Total", "inv-1", "121.00", "inv-2"} {
		assert.Contains(t, out, want)
	}
}

func TestTableStructured(t *testing.T) {
	out := render(t, "json", true, invoiceTable())
	assert.JSONEq(t, `[{"ID":"inv-1","Total":"121.00"},{"ID":"inv-2","Total":"50.00"}]`, out)

	tbl := invoiceTable()
	tbl.Source = []string{"inv-1", "inv-2"}
	out = render(t, "json", true, tbl)
	assert.JSONEq(t, `["inv-1","inv-2"]`, out)
}

func TestViewSplitsTextAndData(t *testing.T) {
	v := View{
		Value:  bankAccount{Bank: "Galicia"},
		Render: func(noColor bool) string { return "Galicia (plain)" },
	}

	assert.Contains(t, render(t, "yaml", false, v), "bank: Galicia")
	assert.Equal(t, "Galicia (plain)", strings.TrimSpace(render(t, "text", false, v)))
}
