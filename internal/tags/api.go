// Package tags manages company tags, their assignment to parties and
// invoices, and a persisted five-minute tag cache.
package tags

import (
	"context"
	"net/url"
	"strconv"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
)

// Type scopes a tag to parties or invoices.
type Type string

const (
	TypeParty   Type = "PARTY"
	TypeInvoice Type = "INVOICE"
)

// Tag is a company tag. Invoice tags act as business units.
type Tag struct {
	ID        string         `json:"id" yaml:"id"`
	CompanyID string         `json:"companyId" yaml:"company_id"`
	Name      string         `json:"name" yaml:"name"`
	Color     *string        `json:"color,omitempty" yaml:"color,omitempty"`
	Type      Type           `json:"type" yaml:"type"`
	Settings  map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
	CreatedAt string         `json:"createdAt" yaml:"created_at"`
	UpdatedAt string         `json:"updatedAt" yaml:"updated_at"`
	Count     *Count         `json:"_count,omitempty" yaml:"count,omitempty"`
}

// Count is the usage count returned with tag listings.
type Count struct {
	Parties  int `json:"parties,omitempty" yaml:"parties,omitempty"`
	Invoices int `json:"invoices,omitempty" yaml:"invoices,omitempty"`
}

// CreateRequest is the body of POST /tags.
type CreateRequest struct {
	Name     string         `json:"name"`
	Color    *string        `json:"color,omitempty"`
	Type     Type           `json:"type,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// UpdateRequest is the body of PUT /tags/:id.
type UpdateRequest struct {
	Name     *string        `json:"name,omitempty"`
	Color    *string        `json:"color,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// ListRequest filters GET /tags.
type ListRequest struct {
	Page   int
	Limit  int
	Search string
	Type   Type
}

func (r ListRequest) values() url.Values {
	q := url.Values{}
	if r.Page > 0 {
		q.Set("page", strconv.Itoa(r.Page))
	}
	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Search != "" {
		q.Set("search", r.Search)
	}
	if r.Type != "" {
		q.Set("type", string(r.Type))
	}
	return q
}

// ListResponse is a page of tags.
type ListResponse struct {
	Tags       []Tag `json:"tags"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// Assignment links a tag to a party or an invoice.
type Assignment struct {
	ID        string `json:"id"`
	PartyID   string `json:"partyId,omitempty"`
	InvoiceID string `json:"invoiceId,omitempty"`
	TagID     string `json:"tagId"`
	CreatedAt string `json:"createdAt"`
}

type assignRequest struct {
	TagID string `json:"tagId"`
}

// API maps the tag endpoints.
type API struct {
	client *apiclient.Client
}

// NewAPI creates the tag API.
func NewAPI(client *apiclient.Client) *API {
	return &API{client: client}
}

func tagPath(id string) string {
	return "/tags/" + url.PathEscape(id)
}

// Create creates a tag.
func (a *API) Create(ctx context.Context, req CreateRequest) (*Tag, error) {
	var resp struct {
		Tag Tag `json:"tag"`
	}
	if err := a.client.Post(ctx, "/tags", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Tag, nil
}

// List lists tags.
func (a *API) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	var resp ListResponse
	if err := a.client.Get(ctx, "/tags", req.values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get fetches one tag with its usage count.
func (a *API) Get(ctx context.Context, id string) (*Tag, error) {
	var resp struct {
		Tag Tag `json:"tag"`
	}
	if err := a.client.Get(ctx, tagPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Tag, nil
}

// Update updates a tag.
func (a *API) Update(ctx context.Context, id string, req UpdateRequest) (*Tag, error) {
	var resp struct {
		Tag Tag `json:"tag"`
	}
	if err := a.client.Put(ctx, tagPath(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Tag, nil
}

// Delete deletes a tag.
func (a *API) Delete(ctx context.Context, id string) error {
	return a.client.Delete(ctx, tagPath(id), nil)
}

// AssignToParty tags a party.
func (a *API) AssignToParty(ctx context.Context, partyID, tagID string) (*Assignment, error) {
	var resp struct {
		PartyTag Assignment `json:"partyTag"`
	}
	path := "/parties/" + url.PathEscape(partyID) + "/tags"
	if err := a.client.Post(ctx, path, assignRequest{TagID: tagID}, &resp); err != nil {
		return nil, err
	}
	return &resp.PartyTag, nil
}

// ListPartyTags lists a party's tags.
func (a *API) ListPartyTags(ctx context.Context, partyID string) ([]Tag, error) {
	var resp struct {
		Tags []Tag `json:"tags"`
	}
	if err := a.client.Get(ctx, "/parties/"+url.PathEscape(partyID)+"/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

// UnassignFromParty removes a tag from a party.
func (a *API) UnassignFromParty(ctx context.Context, partyID, tagID string) error {
	return a.client.Delete(ctx, "/parties/"+url.PathEscape(partyID)+"/tags/"+url.PathEscape(tagID), nil)
}

// AssignToInvoice tags an invoice.
func (a *API) AssignToInvoice(ctx context.Context, invoiceID, tagID string) (*Assignment, error) {
	var resp struct {
		InvoiceTag Assignment `json:"invoiceTag"`
	}
	path := "/invoices/" + url.PathEscape(invoiceID) + "/tags"
	if err := a.client.Post(ctx, path, assignRequest{TagID: tagID}, &resp); err != nil {
		return nil, err
	}
	return &resp.InvoiceTag, nil
}

// UnassignFromInvoice removes a tag from an invoice.
func (a *API) UnassignFromInvoice(ctx context.Context, invoiceID, tagID string) error {
	return a.client.Delete(ctx, "/invoices/"+url.PathEscape(invoiceID)+"/tags/"+url.PathEscape(tagID), nil)
}
