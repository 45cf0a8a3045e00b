package onboarding

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
)

func validForm() Form {
	f := NewForm()
	f.Name = "Jane Doe"
	f.SetTaxID("20-12345678-9")
	return f
}

func TestSetTaxIDKeepsDigits(t *testing.T) {
	f := NewForm()
	f.SetTaxID("20-1234 5678/9a")
	assert.Equal(t, "20123456789", f.TaxID)
}

func TestValidate(t *testing.T) {
	es := i18n.New("es")
	tests := []struct {
		name    string
		mutate  func(*Form)
		wantMsg string
	}{
		{"valid cuit", func(*Form) {}, ""},
		{"empty name", func(f *Form) { f.Name = "   " }, "Por favor, ingresa tu nombre completo"},
		{"empty tax id", func(f *Form) { f.TaxID = "" }, "Por favor, ingresa tu número de identificación"},
		{"short cuit", func(f *Form) { f.TaxID = "2012345678" }, "El CUIT debe tener 11 dígitos"},
		{"short cuil", func(f *Form) { f.TaxIDType = domain.TaxIDCUIL; f.TaxID = "123" }, "El CUIL debe tener 11 dígitos"},
		{"long dni", func(f *Form) { f.TaxIDType = domain.TaxIDDNI; f.TaxID = "123456789" }, "El DNI debe tener 8 dígitos"},
		{"valid dni", func(f *Form) { f.TaxIDType = domain.TaxIDDNI; f.TaxID = "12345678" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := f.Validate(es)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestValidateEnglish(t *testing.T) {
	f := validForm()
	f.TaxIDType = domain.TaxIDDNI
	err := f.Validate(i18n.New("en"))
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "The DNI must have 8 digits", appErr.Message)
}

type fakeOnboarder struct {
	calls int
	last  Request
	err   error
}

func (f *fakeOnboarder) OnboardParty(_ context.Context, req Request) (*Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &Response{ID: "p1", IsOnboarded: true}, nil
}

type fixedConfirmer struct {
	outcome Outcome
	calls   int
}

func (c *fixedConfirmer) Confirm(context.Context) Outcome {
	c.calls++
	return c.outcome
}

func TestSubmitInvalidFormMakesNoCall(t *testing.T) {
	api := &fakeOnboarder{}
	flow := &Flow{API: api, CompanyID: "c1", Confirmer: &fixedConfirmer{}, Localizer: i18n.New("es"), Logger: log.Discard()}

	f := validForm()
	f.TaxID = "123"
	_, err := flow.Submit(context.Background(), f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "El CUIT debe tener 11 dígitos")
	assert.Equal(t, 0, api.calls)
}

func TestSubmitRequiresCompanyID(t *testing.T) {
	api := &fakeOnboarder{}
	flow := &Flow{API: api, Confirmer: &fixedConfirmer{}, Localizer: i18n.New("en"), Logger: log.Discard()}

	_, err := flow.Submit(context.Background(), validForm())
	assert.True(t, errors.HasCode(err, errors.ErrCodeCompanyIDMissing))
	assert.Contains(t, err.Error(), "Company ID not configured")
	assert.Equal(t, 0, api.calls)
}

func TestSubmitSendsSupplierRequest(t *testing.T) {
	api := &fakeOnboarder{}
	confirmer := &fixedConfirmer{outcome: OutcomeHome}
	flow := &Flow{API: api, CompanyID: "c1", Confirmer: confirmer, Localizer: i18n.New("es"), Logger: log.Discard()}

	outcome, err := flow.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, OutcomeHome, outcome)
	assert.Equal(t, 1, confirmer.calls)
	assert.Equal(t, Request{
		PartyType: domain.PartyTypeSupplier,
		TaxID:     "20123456789",
		TaxIDType: domain.TaxIDCUIT,
		Name:      "Jane Doe",
		Regimen:   domain.RegimenResponsableInscripto,
		CompanyID: "c1",
	}, api.last)
}

func TestSubmitReloadReinitializes(t *testing.T) {
	reinitialized := 0
	flow := &Flow{
		API:       &fakeOnboarder{},
		CompanyID: "c1",
		Confirmer: &fixedConfirmer{outcome: OutcomeReload},
		Reinitialize: func(context.Context) error {
			reinitialized++
			return nil
		},
		Localizer: i18n.New("es"),
		Logger:    log.Discard(),
	}

	outcome, err := flow.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReload, outcome)
	assert.Equal(t, 1, reinitialized)
}

func TestSubmitAPIErrorUsesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"body.taxId":["already registered"]}}`))
	}))
	defer srv.Close()

	confirmer := &fixedConfirmer{}
	flow := &Flow{
		API:       NewAPI(apiclient.New(srv.URL, apiclient.WithLogger(log.Discard()))),
		CompanyID: "c1",
		Confirmer: confirmer,
		Localizer: i18n.New("es"),
		Logger:    log.Discard(),
	}

	_, err := flow.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeOnboardingRejected))
	assert.Contains(t, err.Error(), "taxId: already registered")
	assert.Equal(t, 0, confirmer.calls)
}

func TestAPITrimsFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/onboard/party", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","isOnboarded":true}`))
	}))
	defer srv.Close()

	api := NewAPI(apiclient.New(srv.URL, apiclient.WithLogger(log.Discard())))
	resp, err := api.OnboardParty(context.Background(), Request{
		PartyType: domain.PartyTypeSupplier,
		TaxID:     " 20123456789 ",
		TaxIDType: domain.TaxIDCUIT,
		Name:      "  Jane ",
		Regimen:   domain.RegimenMonotributo,
		CompanyID: "c1",
	})
	require.NoError(t, err)
	assert.True(t, resp.IsOnboarded)
	assert.Equal(t, "Jane", got["name"])
	assert.Equal(t, "20123456789", got["taxId"])
	assert.Equal(t, "SUPPLIER", got["partyType"])
	assert.Equal(t, "c1", got["companyId"])
}

type fakeSession struct {
	refreshErr error
	onboarded  bool
}

func (s *fakeSession) RefreshUser(context.Context) error { return s.refreshErr }
func (s *fakeSession) IsOnboarded() bool                 { return s.onboarded }

func TestSessionConfirmer(t *testing.T) {
	assert.Equal(t, OutcomeHome, (&SessionConfirmer{Session: &fakeSession{onboarded: true}}).Confirm(context.Background()))
	assert.Equal(t, OutcomeReload, (&SessionConfirmer{Session: &fakeSession{}}).Confirm(context.Background()))
	assert.Equal(t, OutcomeReload, (&SessionConfirmer{
		Session: &fakeSession{refreshErr: stderrors.New("offline"), onboarded: true},
		Logger:  log.Discard(),
	}).Confirm(context.Background()))
}

type scriptedClaims struct {
	results []claimResult
	calls   int
}

type claimResult struct {
	onboarded bool
	err       error
}

func (s *scriptedClaims) RefreshOnboarded(context.Context) (bool, error) {
	r := s.results[s.calls]
	s.calls++
	return r.onboarded, r.err
}

func claimConfirmer(src ClaimSource, slept *[]time.Duration) *ClaimConfirmer {
	c := NewClaimConfirmer(src, log.Discard(), nil)
	c.Interval = time.Millisecond
	c.Sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return c
}

func TestClaimConfirmerWaitsForPropagation(t *testing.T) {
	var slept []time.Duration
	src := &scriptedClaims{results: []claimResult{{onboarded: false}, {onboarded: true}}}

	outcome := claimConfirmer(src, &slept).Confirm(context.Background())

	assert.Equal(t, OutcomeHome, outcome)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []time.Duration{DefaultPropagationDelay}, slept)
}

func TestClaimConfirmerExhaustedBudgetReloads(t *testing.T) {
	var slept []time.Duration
	src := &scriptedClaims{results: []claimResult{{}, {}, {}, {onboarded: true}}}

	outcome := claimConfirmer(src, &slept).Confirm(context.Background())

	assert.Equal(t, OutcomeReload, outcome)
	assert.Equal(t, DefaultClaimAttempts, src.calls)
}

func TestClaimConfirmerRefreshFailuresReload(t *testing.T) {
	var slept []time.Duration
	boom := stderrors.New("refresh failed")
	src := &scriptedClaims{results: []claimResult{{err: boom}, {err: boom}, {err: boom}}}

	assert.Equal(t, OutcomeReload, claimConfirmer(src, &slept).Confirm(context.Background()))
	assert.Equal(t, 3, src.calls)
}

func TestClaimConfirmerRecoversFromTransientFailure(t *testing.T) {
	var slept []time.Duration
	src := &scriptedClaims{results: []claimResult{{err: stderrors.New("timeout")}, {onboarded: true}}}

	assert.Equal(t, OutcomeHome, claimConfirmer(src, &slept).Confirm(context.Background()))
}

func TestClaimConfirmerCancelledDuringDelay(t *testing.T) {
	src := &scriptedClaims{}
	c := NewClaimConfirmer(src, log.Discard(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, OutcomeReload, c.Confirm(ctx))
	assert.Equal(t, 0, src.calls)
}
