package invoice

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
)

// API maps the invoice endpoints.
type API struct {
	client *apiclient.Client
}

// NewAPI creates the invoice API.
func NewAPI(client *apiclient.Client) *API {
	return &API{client: client}
}

func invoicePath(id string) string {
	return "/invoices/" + url.PathEscape(id)
}

// ListInvoices fetches a page of the current party's invoices. Zero page or
// limit leaves the server default.
func (a *API) ListInvoices(ctx context.Context, page, limit int) (*ListResponse, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp ListResponse
	if err := a.client.Get(ctx, "/parties/me/invoices", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetInvoice fetches one invoice.
func (a *API) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := a.client.Get(ctx, invoicePath(id), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// PresignedURLs requests upload targets for invoice documents.
func (a *API) PresignedURLs(ctx context.Context, req PresignedURLsRequest) (*PresignedURLsResponse, error) {
	var resp PresignedURLsResponse
	if err := a.client.Post(ctx, "/invoices/presigned-urls", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload sends a document straight to object storage.
func (a *API) Upload(ctx context.Context, presignedURL, contentType string, r io.Reader, size int64) error {
	return a.client.Upload(ctx, presignedURL, contentType, r, size)
}

// Extract reads the invoice fields from an uploaded file.
func (a *API) Extract(ctx context.Context, fileID string) (*ExtractedData, error) {
	var data ExtractedData
	if err := a.client.Get(ctx, invoicePath(fileID)+"/extract", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Create registers an invoice for the current party.
func (a *API) Create(ctx context.Context, req CreateRequest) (*Invoice, error) {
	var inv Invoice
	if err := a.client.Post(ctx, "/parties/me/invoices", req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// DownloadURL returns a link to the invoice document.
func (a *API) DownloadURL(ctx context.Context, id string) (string, error) {
	var resp DownloadURL
	if err := a.client.Get(ctx, invoicePath(id)+"/download-url", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ListComments lists the comments of an invoice.
func (a *API) ListComments(ctx context.Context, invoiceID string) ([]Comment, error) {
	var resp CommentListResponse
	if err := a.client.Get(ctx, invoicePath(invoiceID)+"/comments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateComment posts a comment on an invoice.
func (a *API) CreateComment(ctx context.Context, invoiceID string, req CreateCommentRequest) (*Comment, error) {
	var c Comment
	if err := a.client.Post(ctx, invoicePath(invoiceID)+"/comments", req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CommentAttachmentURLs requests upload targets for comment attachments.
func (a *API) CommentAttachmentURLs(ctx context.Context, invoiceID string, req PresignedURLsRequest) (*PresignedURLsResponse, error) {
	var resp PresignedURLsResponse
	if err := a.client.Post(ctx, invoicePath(invoiceID)+"/comments/presigned-urls", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CommentAttachmentDownloadURL returns a link to a comment attachment.
func (a *API) CommentAttachmentDownloadURL(ctx context.Context, attachmentID string) (string, error) {
	var resp DownloadURL
	path := "/invoices/comments/attachments/" + url.PathEscape(attachmentID) + "/download-url"
	if err := a.client.Get(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
