package tags

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/storage"
)

type fakeAPI struct {
	listCalls int
	listReqs  []ListRequest
	listErr   error
	tags      []Tag
	assignErr error
	assigned  [][2]string
}

func (f *fakeAPI) List(_ context.Context, req ListRequest) (*ListResponse, error) {
	f.listCalls++
	f.listReqs = append(f.listReqs, req)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &ListResponse{Tags: f.tags, Total: len(f.tags)}, nil
}

func (f *fakeAPI) AssignToInvoice(_ context.Context, invoiceID, tagID string) (*Assignment, error) {
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	f.assigned = append(f.assigned, [2]string{invoiceID, tagID})
	return &Assignment{InvoiceID: invoiceID, TagID: tagID}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func invoiceTags() []Tag {
	return []Tag{
		{ID: "t1", Name: "Ventas", Type: TypeInvoice},
		{ID: "t2", Name: "Compras", Type: TypeInvoice},
		{ID: "t3", Name: "Proveedores", Type: TypeParty},
	}
}

func newCache(api Backend, st storage.Store, clk *clock, opts ...CacheOption) *Cache {
	opts = append([]CacheOption{WithClock(clk.now), WithLogger(log.Discard())}, opts...)
	return NewCache(api, st, opts...)
}

func TestCacheReusedWithinFreshness(t *testing.T) {
	api := &fakeAPI{tags: invoiceTags()}
	clk := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	c := newCache(api, storage.NewMemory(), clk, WithMetrics(m))
	ctx := context.Background()

	first, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, api.listCalls)
	assert.Equal(t, ListRequest{Type: TypeInvoice, Limit: 100}, api.listReqs[0])

	clk.advance(4*time.Minute + 59*time.Second)
	second, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.listCalls)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("tags")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("tags")))
}

func TestCacheRefetchesAfterFreshnessAndResetsTimer(t *testing.T) {
	api := &fakeAPI{tags: invoiceTags()}
	clk := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCache(api, storage.NewMemory(), clk)
	ctx := context.Background()

	_, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)

	clk.advance(5 * time.Minute)
	_, err = c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)

	fetched, ok := c.LastFetched(TypeInvoice)
	require.True(t, ok)
	assert.Equal(t, clk.t.UnixMilli(), fetched.UnixMilli())

	clk.advance(time.Minute)
	_, err = c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
}

func TestCacheForceRefresh(t *testing.T) {
	api := &fakeAPI{tags: invoiceTags()}
	c := newCache(api, storage.NewMemory(), &clock{t: time.Now()})
	ctx := context.Background()

	_, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	_, err = c.Get(ctx, TypeInvoice, true)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
}

func TestCacheEmptyListIsNotReused(t *testing.T) {
	api := &fakeAPI{}
	c := newCache(api, storage.NewMemory(), &clock{t: time.Now()})
	ctx := context.Background()

	_, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	_, err = c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
	assert.False(t, c.IsFresh(TypeInvoice))
}

func TestCacheTypesAreIndependent(t *testing.T) {
	api := &fakeAPI{tags: invoiceTags()}
	c := newCache(api, storage.NewMemory(), &clock{t: time.Now()})
	ctx := context.Background()

	_, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	party, err := c.Get(ctx, TypeParty, false)
	require.NoError(t, err)

	assert.Equal(t, 2, api.listCalls)
	require.Len(t, party, 1)
	assert.Equal(t, "t3", party[0].ID)
}

func TestCachePersistsAndRehydrates(t *testing.T) {
	api := &fakeAPI{tags: invoiceTags()}
	clk := &clock{t: time.Now()}
	st := storage.NewMemory()
	ctx := context.Background()

	_, err := newCache(api, st, clk).Get(ctx, TypeInvoice, false)
	require.NoError(t, err)

	data, err := st.Get(ctx, storage.KeyTags)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "entries")

	restored := newCache(api, st, clk)
	require.NoError(t, restored.Load(ctx))
	assert.True(t, restored.IsFresh(TypeInvoice))

	got, err := restored.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, api.listCalls)
}

func TestCacheLoadIgnoresCorruptDocument(t *testing.T) {
	st := storage.NewMemory()
	require.NoError(t, st.Put(context.Background(), storage.KeyTags, []byte("garbage")))

	c := newCache(&fakeAPI{}, st, &clock{t: time.Now()})
	require.NoError(t, c.Load(context.Background()))
	assert.False(t, c.IsFresh(TypeInvoice))
}

func TestCacheClear(t *testing.T) {
	api := &fakeAPI{tags: invoiceTags()}
	st := storage.NewMemory()
	c := newCache(api, st, &clock{t: time.Now()})
	ctx := context.Background()

	_, err := c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	c.Clear(ctx)

	assert.False(t, c.IsFresh(TypeInvoice))
	_, ok := c.LastFetched(TypeInvoice)
	assert.False(t, ok)

	_, err = c.Get(ctx, TypeInvoice, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
}

func TestCacheFetchErrorRecorded(t *testing.T) {
	boom := stderrors.New("timeout")
	c := newCache(&fakeAPI{listErr: boom}, storage.NewMemory(), &clock{t: time.Now()}, WithLocalizer(i18n.New("es")))

	_, err := c.Get(context.Background(), TypeInvoice, false)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "timeout", c.Err())
}

func TestCachePersistFailureIsNotFatal(t *testing.T) {
	st := storage.NewMemory()
	st.FailPuts(storage.KeyTags, stderrors.New("read-only"))
	c := newCache(&fakeAPI{tags: invoiceTags()}, st, &clock{t: time.Now()})

	got, err := c.Get(context.Background(), TypeInvoice, false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAssignToInvoice(t *testing.T) {
	api := &fakeAPI{}
	c := newCache(api, storage.NewMemory(), &clock{t: time.Now()})

	require.NoError(t, c.AssignToInvoice(context.Background(), "inv1", "t1"))
	assert.Equal(t, [][2]string{{"inv1", "t1"}}, api.assigned)

	api.assignErr = stderrors.New("denied")
	assert.Error(t, c.AssignToInvoice(context.Background(), "inv1", "t1"))
	assert.Equal(t, "denied", c.Err())
}

func TestAPIListQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tags", r.URL.Path)
		assert.Equal(t, "INVOICE", r.URL.Query().Get("type"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tags":[{"id":"t1","name":"Ventas","type":"INVOICE","_count":{"invoices":3}}],"total":1,"page":1,"limit":100,"totalPages":1}`))
	}))
	defer srv.Close()

	api := NewAPI(apiclient.New(srv.URL, apiclient.WithLogger(log.Discard())))
	resp, err := api.List(context.Background(), ListRequest{Type: TypeInvoice, Limit: 100})
	require.NoError(t, err)
	require.Len(t, resp.Tags, 1)
	assert.Equal(t, 3, resp.Tags[0].Count.Invoices)
}

func TestAPIAssignments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/invoices/inv1/tags":
			_, _ = w.Write([]byte(`{"invoiceTag":{"id":"a1","invoiceId":"inv1","tagId":"` + body["tagId"] + `"}}`))
		case "/parties/p1/tags":
			_, _ = w.Write([]byte(`{"partyTag":{"id":"a2","partyId":"p1","tagId":"` + body["tagId"] + `"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	api := NewAPI(apiclient.New(srv.URL, apiclient.WithLogger(log.Discard())))
	a, err := api.AssignToInvoice(context.Background(), "inv1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", a.TagID)

	a, err = api.AssignToParty(context.Background(), "p1", "t9")
	require.NoError(t, err)
	assert.Equal(t, "p1", a.PartyID)
	assert.Equal(t, "t9", a.TagID)
}
