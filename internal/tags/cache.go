package tags

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/storage"
)

// Freshness is how long fetched tags are reused.
const Freshness = 5 * time.Minute

// fetchLimit is large enough to fetch every tag in one page.
const fetchLimit = 100

// Lister fetches tags from the API.
type Lister interface {
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

// InvoiceAssigner tags invoices.
type InvoiceAssigner interface {
	AssignToInvoice(ctx context.Context, invoiceID, tagID string) (*Assignment, error)
}

// Backend is what the cache needs from the API.
type Backend interface {
	Lister
	InvoiceAssigner
}

type entry struct {
	Tags []Tag `json:"tags"`
	// LastFetched is unix milliseconds; 0 means never.
	LastFetched int64 `json:"lastFetched"`
}

type persisted struct {
	Entries map[Type]entry `json:"entries"`
}

// Cache reuses fetched tags per type for Freshness and persists them
// under tags-store.
type Cache struct {
	api     Backend
	storage storage.Store
	now     func() time.Time
	l10n    *i18n.Localizer
	logger  *log.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[Type]entry
	err     string
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records hits and misses.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithLocalizer sets the locale of recorded error messages.
func WithLocalizer(l *i18n.Localizer) CacheOption {
	return func(c *Cache) { c.l10n = l }
}

// NewCache creates an empty cache. Call Load to rehydrate it.
func NewCache(api Backend, st storage.Store, opts ...CacheOption) *Cache {
	c := &Cache{
		api:     api,
		storage: st,
		now:     time.Now,
		entries: map[Type]entry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrDefault(c.logger).WithComponent("tags")
	return c
}

// Load rehydrates the persisted cache. A missing or unreadable document
// leaves the cache empty.
func (c *Cache) Load(ctx context.Context) error {
	data, err := c.storage.Get(ctx, storage.KeyTags)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.WithError(err).Warn("discarding unreadable tag cache")
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Entries != nil {
		c.entries = p.Entries
	}
	return nil
}

func (c *Cache) fresh(e entry) bool {
	if e.LastFetched == 0 {
		return false
	}
	return c.now().Sub(time.UnixMilli(e.LastFetched)) < Freshness
}

// IsFresh reports whether tags of type t would be served from the cache.
func (c *Cache) IsFresh(t Type) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[t]
	return c.fresh(e) && len(e.Tags) > 0
}

// LastFetched returns when tags of type t were last fetched.
func (c *Cache) LastFetched(t Type) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[t]
	if !ok || e.LastFetched == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(e.LastFetched), true
}

// Err returns the last recorded error message.
func (c *Cache) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Get returns tags of type t. Within the freshness window a non-empty
// cached list is reused; otherwise, or when force is set, the tags are
// fetched and the window restarts.
func (c *Cache) Get(ctx context.Context, t Type, force bool) ([]Tag, error) {
	if t == "" {
		t = TypeInvoice
	}

	c.mu.Lock()
	e := c.entries[t]
	if !force && c.fresh(e) && len(e.Tags) > 0 {
		c.mu.Unlock()
		c.metrics.ObserveCache("tags", true)
		return filter(e.Tags, t), nil
	}
	c.mu.Unlock()
	c.metrics.ObserveCache("tags", false)

	resp, err := c.api.List(ctx, ListRequest{Type: t, Limit: fetchLimit})
	if err != nil {
		c.mu.Lock()
		c.err = apiclient.ExtractErrorMessage(err, c.l10n.T(i18n.TagsLoadFailed))
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.entries[t] = entry{Tags: resp.Tags, LastFetched: c.now().UnixMilli()}
	c.err = ""
	c.mu.Unlock()
	c.persist(ctx)

	return filter(resp.Tags, t), nil
}

// AssignToInvoice tags an invoice, recording the error on failure.
func (c *Cache) AssignToInvoice(ctx context.Context, invoiceID, tagID string) error {
	if _, err := c.api.AssignToInvoice(ctx, invoiceID, tagID); err != nil {
		c.mu.Lock()
		c.err = apiclient.ExtractErrorMessage(err, c.l10n.T(i18n.TagsAssignFailed))
		c.mu.Unlock()
		return err
	}
	return nil
}

// Clear empties the cache and its persisted copy.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = map[Type]entry{}
	c.err = ""
	c.mu.Unlock()
	c.persist(ctx)
}

// persist writes the cache. Failures are logged; the cache stays usable.
func (c *Cache) persist(ctx context.Context) {
	c.mu.Lock()
	data, err := json.Marshal(persisted{Entries: c.entries})
	c.mu.Unlock()
	if err == nil {
		err = c.storage.Put(ctx, storage.KeyTags, data)
	}
	if err != nil {
		c.logger.WithError(err).Warn("failed to persist tag cache")
	}
}

func filter(all []Tag, t Type) []Tag {
	out := make([]Tag, 0, len(all))
	for _, tag := range all {
		if tag.Type == t {
			out = append(out, tag)
		}
	}
	return out
}
