package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/authsvc"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/invoice"
	"github.com/skaznowiecki/finpilot-sanos/internal/onboarding"
	"github.com/skaznowiecki/finpilot-sanos/internal/tags"
)

const testToken = "tok-1"

// fakeAPI is a small in-memory rendition of the back-office API.
type fakeAPI struct {
	srv *httptest.Server

	mu        sync.Mutex
	onboarded bool
	revoked   bool
	invoices  []invoice.Invoice
	tags      []tags.Tag
	created   []invoice.CreateRequest
	assigned  map[string]string
	uploads   map[string][]byte
	calls     []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{assigned: map[string]string{}, uploads: map[string][]byte{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) called(method, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == method+" "+path {
			return true
		}
	}
	return false
}

func (f *fakeAPI) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if strings.HasPrefix(r.URL.Path, "/storage/") {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		f.uploads[strings.TrimPrefix(r.URL.Path, "/storage/")] = buf.Bytes()
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Path == "/auth/login" {
		var req authsvc.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			f.write(w, http.StatusBadRequest, map[string]string{"message": "Credenciales inválidas"})
			return
		}
		f.revoked = false
		f.write(w, http.StatusOK, authsvc.TokenResponse{Token: testToken, User: f.user()})
		return
	}

	if f.revoked || r.Header.Get("Authorization") != "Bearer "+testToken {
		f.write(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/auth/me":
		resp := authsvc.MeResponse{User: f.user()}
		if f.onboarded {
			resp.Company = &domain.Company{ID: "c1", Name: "Acme SA"}
			resp.Party = f.party()
		}
		f.write(w, http.StatusOK, resp)

	case r.Method == http.MethodPost && r.URL.Path == "/users/onboard/party":
		var req onboarding.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.onboarded = true
		f.write(w, http.StatusCreated, onboarding.Response{ID: "p1", Name: req.Name, CompanyID: req.CompanyID})

	case r.Method == http.MethodGet && r.URL.Path == "/parties/me":
		f.write(w, http.StatusOK, f.party())

	case r.Method == http.MethodGet && r.URL.Path == "/parties/me/bank-accounts":
		f.write(w, http.StatusOK, []domain.BankAccount{{
			ID:            "b1",
			BankName:      domain.StringPtr("Banco Nación"),
			AccountNumber: domain.StringPtr("0110599520000001234567"),
			IsPrimary:     true,
		}})

	case r.Method == http.MethodGet && r.URL.Path == "/parties/me/invoices":
		f.write(w, http.StatusOK, invoice.ListResponse{
			Items:      f.invoices,
			Pagination: invoice.Pagination{Total: len(f.invoices), Page: 1, Limit: 10, TotalPages: 1},
		})

	case r.Method == http.MethodPost && r.URL.Path == "/parties/me/invoices":
		var req invoice.CreateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.created = append(f.created, req)
		inv := invoice.Invoice{ID: "inv-9", Number: req.Number, Date: req.Date, Total: req.Total, Status: invoice.StatusPending}
		f.invoices = append(f.invoices, inv)
		f.write(w, http.StatusCreated, inv)

	case r.Method == http.MethodPost && r.URL.Path == "/invoices/presigned-urls":
		f.write(w, http.StatusOK, invoice.PresignedURLsResponse{URLs: []invoice.PresignedURL{{
			URL: f.srv.URL + "/storage/file-1",
			Key: "uploads/file-1",
			ID:  "file-1",
		}}})

	case r.Method == http.MethodGet && r.URL.Path == "/invoices/file-1/extract":
		number := int64(42)
		total := 1210.0
		f.write(w, http.StatusOK, invoice.ExtractedData{
			Number: &number,
			Date:   "2024-03-01",
			Totals: &invoice.ExtractedTotals{Total: &total},
		})

	case r.Method == http.MethodGet && r.URL.Path == "/invoices/inv-9":
		f.write(w, http.StatusOK, invoice.Invoice{ID: "inv-9", Number: 42, Date: "2024-03-01", Total: 1210})

	case r.Method == http.MethodPost && r.URL.Path == "/invoices/inv-9/tags":
		var req struct {
			TagID string `json:"tagId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.assigned["inv-9"] = req.TagID
		f.write(w, http.StatusCreated, map[string]any{"invoiceTag": map[string]string{"id": "a1", "tagId": req.TagID}})

	case r.Method == http.MethodGet && r.URL.Path == "/tags":
		var out []tags.Tag
		for _, tag := range f.tags {
			if string(tag.Type) == r.URL.Query().Get("type") {
				out = append(out, tag)
			}
		}
		f.write(w, http.StatusOK, tags.ListResponse{Tags: out, Total: len(out), Page: 1, TotalPages: 1})

	case r.Method == http.MethodPost && r.URL.Path == "/tags":
		var req tags.CreateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		tag := tags.Tag{ID: "tag-" + strings.ToLower(req.Name), Name: req.Name, Color: req.Color, Type: req.Type}
		f.tags = append(f.tags, tag)
		f.write(w, http.StatusCreated, map[string]any{"tag": tag})

	default:
		f.write(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	}
}

func (f *fakeAPI) user() domain.User {
	u := domain.User{ID: "u1", Email: "ana@example.com", Type: domain.UserTypeParty, IsActive: true}
	if f.onboarded {
		u.CompanyID = domain.StringPtr("c1")
	}
	return u
}

func (f *fakeAPI) party() *domain.Party {
	return &domain.Party{ID: "p1", Name: "Ana Pérez", TaxID: "20123456789", TaxIDType: domain.TaxIDCUIT, IsOnboarded: true}
}

// setupCLI points the commands at api with a fresh state directory and
// prompts disabled.
func setupCLI(t *testing.T, api *fakeAPI) {
	t.Helper()
	t.Setenv("FINPILOT_STATE_DIR", t.TempDir())
	t.Setenv("FINPILOT_API_BASE_URL", api.srv.URL)
	t.Setenv("FINPILOT_COMPANY_ID", "c1")
	t.Setenv("FINPILOT_NO_PROMPT", "1")
}

// runCLI executes the root command with args and returns what it wrote.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// login runs 'auth login' and fails the test when it does not succeed.
func login(t *testing.T) {
	t.Helper()
	_, _, err := runCLI(t, "auth", "login", "--email", "ana@example.com", "--password", "secret")
	require.NoError(t, err)
}

// resetFlags restores every flag to its default. Flag variables are
// package globals, so values would otherwise leak between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
