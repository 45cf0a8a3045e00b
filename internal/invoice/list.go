package invoice

import (
	"context"
	"sync"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
)

// DefaultPageSize is the page size of a new List.
const DefaultPageSize = 10

// Lister is the API surface List drives.
type Lister interface {
	ListInvoices(ctx context.Context, page, limit int) (*ListResponse, error)
	DownloadURL(ctx context.Context, id string) (string, error)
}

// List holds one page of invoices. Fetch failures are recorded in Err
// and logged, never returned.
type List struct {
	api    Lister
	l10n   *i18n.Localizer
	logger *log.Logger

	mu         sync.RWMutex
	invoices   []Invoice
	loading    bool
	err        string
	pagination Pagination
}

// NewList creates a holder positioned on page 1.
func NewList(api Lister, l10n *i18n.Localizer, logger *log.Logger) *List {
	return &List{
		api:        api,
		l10n:       l10n,
		logger:     log.OrDefault(logger).WithComponent("invoices"),
		pagination: Pagination{Page: 1, Limit: DefaultPageSize},
	}
}

// ListSnapshot is a copy of the holder state.
type ListSnapshot struct {
	Invoices   []Invoice
	Loading    bool
	Err        string
	Pagination Pagination
}

// Snapshot returns the current state.
func (l *List) Snapshot() ListSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ListSnapshot{
		Invoices:   append([]Invoice(nil), l.invoices...),
		Loading:    l.loading,
		Err:        l.err,
		Pagination: l.pagination,
	}
}

// Err returns the last recorded error message.
func (l *List) Err() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// HasInvoices reports whether the current page is non-empty.
func (l *List) HasInvoices() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.invoices) > 0
}

// IsEmpty reports a finished load that returned nothing.
func (l *List) IsEmpty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.loading && len(l.invoices) == 0
}

// SetLimit changes the page size for the next fetch.
func (l *List) SetLimit(limit int) {
	if limit <= 0 {
		return
	}
	l.mu.Lock()
	l.pagination.Limit = limit
	l.mu.Unlock()
}

// Fetch loads the current page and replaces the pagination state with the
// server's.
func (l *List) Fetch(ctx context.Context) {
	l.mu.Lock()
	l.loading = true
	l.err = ""
	page, limit := l.pagination.Page, l.pagination.Limit
	l.mu.Unlock()

	resp, err := l.api.ListInvoices(ctx, page, limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.err = apiclient.ExtractErrorMessage(err, l.l10n.T(i18n.InvoiceFetchFailed))
		l.logger.WithError(err).Error("error fetching invoices", "page", page)
		return
	}
	l.invoices = resp.Items
	l.pagination = resp.Pagination
}

// GoToPage fetches page when it lies within the known page range and
// reports whether it did.
func (l *List) GoToPage(ctx context.Context, page int) bool {
	l.mu.Lock()
	if page < 1 || page > l.pagination.TotalPages {
		l.mu.Unlock()
		return false
	}
	l.pagination.Page = page
	l.mu.Unlock()

	l.Fetch(ctx)
	return true
}

// Refresh reloads the current page.
func (l *List) Refresh(ctx context.Context) {
	l.Fetch(ctx)
}

// Download returns the document link of an invoice.
func (l *List) Download(ctx context.Context, id string) (string, error) {
	u, err := l.api.DownloadURL(ctx, id)
	if err != nil {
		l.logger.WithError(err).Error("error downloading invoice", "invoice_id", id)
		return "", err
	}
	return u, nil
}
