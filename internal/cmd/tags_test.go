package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/tags"
)

func TestParseTagType(t *testing.T) {
	tests := []struct {
		in      string
		want    tags.Type
		wantErr bool
	}{
		{in: "invoice", want: tags.TypeInvoice},
		{in: " PARTY ", want: tags.TypeParty},
		{in: "Invoice", want: tags.TypeInvoice},
		{in: "vendor", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTagType(tt.in)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagsCreateThenListFromCache(t *testing.T) {
	api := onboardedCLI(t)

	out, _, err := runCLI(t, "tags", "create", "--name", "Logistica", "--color", "#2f80ed", "--format", "json")
	require.NoError(t, err)

	var created []tags.Tag
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created, 1)
	assert.Equal(t, "tag-logistica", created[0].ID)
	assert.Equal(t, tags.TypeInvoice, created[0].Type)

	out, _, err = runCLI(t, "tags", "list", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Logistica")
	assert.Contains(t, out, "#2f80ed")

	// The refresh after create filled the cache, so the listing did not
	// fetch again.
	api.mu.Lock()
	fetches := 0
	for _, c := range api.calls {
		if c == "GET /tags" {
			fetches++
		}
	}
	api.mu.Unlock()
	assert.Equal(t, 1, fetches)
}

func TestTagsListPartyType(t *testing.T) {
	api := onboardedCLI(t)
	api.mu.Lock()
	api.tags = []tags.Tag{
		{ID: "t1", Name: "Proveedores clave", Type: tags.TypeParty},
		{ID: "t2", Name: "Ventas", Type: tags.TypeInvoice},
	}
	api.mu.Unlock()

	out, _, err := runCLI(t, "tags", "list", "--type", "party", "--format", "json")
	require.NoError(t, err)

	var list []tags.Tag
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].ID)
}

func TestTagsAssignToInvoice(t *testing.T) {
	api := onboardedCLI(t)

	_, errOut, err := runCLI(t, "tags", "assign", "tag-7", "--invoice", "inv-9")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Tagged invoice inv-9")

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "tag-7", api.assigned["inv-9"])
}

func TestTagsAssignNeedsATarget(t *testing.T) {
	onboardedCLI(t)

	_, _, err := runCLI(t, "tags", "assign", "tag-7")
	require.Error(t, err)
}

func TestTagsUpdateNeedsAField(t *testing.T) {
	api := onboardedCLI(t)

	_, _, err := runCLI(t, "tags", "update", "tag-7")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.False(t, api.called("PUT", "/tags/tag-7"))
}

func TestTagsDeleteNeedsConfirmationWithoutTerminal(t *testing.T) {
	api := onboardedCLI(t)

	_, _, err := runCLI(t, "tags", "delete", "tag-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.False(t, api.called("DELETE", "/tags/tag-7"))
}
