package invoice

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
)

// MaxFileSize is the largest accepted invoice document.
const MaxFileSize = 10 * 1024 * 1024

const (
	defaultInvoiceType     = "FACTURA"
	defaultItemDescription = "Servicio"
)

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
}

// Document is a local file chosen for upload.
type Document struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// OpenDocument describes the file at path. The content type is sniffed
// from the first bytes and falls back to the extension.
func OpenDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFile, "cannot open "+path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFile, "cannot stat "+path, err)
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	contentType := http.DetectContentType(head[:n])
	if !allowedContentTypes[contentType] {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			contentType = byExt
		}
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	return &Document{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FileTypeOf maps a file name's extension to an upload type.
func FileTypeOf(name string) (FileType, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return FileTypePDF, true
	case "png":
		return FileTypePNG, true
	case "jpg":
		return FileTypeJPG, true
	case "jpeg":
		return FileTypeJPEG, true
	}
	return "", false
}

// Uploader is the API surface Upload drives.
type Uploader interface {
	PresignedURLs(ctx context.Context, req PresignedURLsRequest) (*PresignedURLsResponse, error)
	Upload(ctx context.Context, presignedURL, contentType string, r io.Reader, size int64) error
	Extract(ctx context.Context, fileID string) (*ExtractedData, error)
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
}

// TagAssigner tags an invoice once it exists.
type TagAssigner interface {
	AssignToInvoice(ctx context.Context, invoiceID, tagID string) error
}

// FormData holds the values the user confirms after extraction.
type FormData struct {
	Number      int64
	Date        string
	Amount      float64
	Description string
	TagID       string
}

// Upload walks a document through presign, upload, extraction and
// invoice creation.
type Upload struct {
	api    Uploader
	tags   TagAssigner
	l10n   *i18n.Localizer
	logger *log.Logger

	mu         sync.RWMutex
	selected   *Document
	uploading  bool
	extracting bool
	creating   bool
	extracted  *ExtractedData
	fileID     string
	err        string
}

// NewUpload creates an idle flow. tags may be nil.
func NewUpload(api Uploader, tags TagAssigner, l10n *i18n.Localizer, logger *log.Logger) *Upload {
	return &Upload{
		api:    api,
		tags:   tags,
		l10n:   l10n,
		logger: log.OrDefault(logger).WithComponent("invoice-upload"),
	}
}

// UploadSnapshot is a copy of the flow state.
type UploadSnapshot struct {
	Selected   *Document
	Uploading  bool
	Extracting bool
	Creating   bool
	Extracted  *ExtractedData
	FileID     string
	Err        string
}

// Snapshot returns the current state.
func (u *Upload) Snapshot() UploadSnapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return UploadSnapshot{
		Selected:   u.selected,
		Uploading:  u.uploading,
		Extracting: u.extracting,
		Creating:   u.creating,
		Extracted:  u.extracted,
		FileID:     u.fileID,
		Err:        u.err,
	}
}

func (u *Upload) processing() bool {
	return u.uploading || u.extracting || u.creating
}

// IsProcessing reports whether a step is running.
func (u *Upload) IsProcessing() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.processing()
}

// CanProceed reports whether a file is selected and nothing is running.
func (u *Upload) CanProceed() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.selected != nil && !u.processing()
}

// CanConfirm reports whether extracted data awaits confirmation.
func (u *Upload) CanConfirm() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.extracted != nil && !u.processing()
}

func (u *Upload) validate(doc *Document) string {
	if doc.Size > MaxFileSize {
		return u.l10n.T(i18n.UploadTooLarge)
	}
	if !allowedContentTypes[doc.ContentType] {
		return u.l10n.T(i18n.UploadUnsupportedType)
	}
	return ""
}

// SelectFile validates and selects doc. A rejected file leaves the
// previous selection and records the reason.
func (u *Upload) SelectFile(doc *Document) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = ""

	if doc == nil {
		u.err = u.l10n.T(i18n.UploadNoFile)
		return errors.New(errors.ErrCodeInvalidFile, u.err)
	}
	if msg := u.validate(doc); msg != "" {
		u.err = msg
		return errors.New(errors.ErrCodeInvalidFile, msg)
	}
	u.selected = doc
	return nil
}

// UploadAndExtract uploads the selected file and reads its invoice data.
func (u *Upload) UploadAndExtract(ctx context.Context) (*ExtractedData, error) {
	u.mu.Lock()
	doc := u.selected
	if doc == nil {
		u.mu.Unlock()
		return nil, errors.New(errors.ErrCodeInvalidFile, u.l10n.T(i18n.UploadNoFile))
	}
	u.uploading = true
	u.extracting = true
	u.err = ""
	u.mu.Unlock()

	data, err := u.uploadAndExtract(ctx, doc)
	if err != nil {
		u.mu.Lock()
		u.uploading = false
		u.extracting = false
		u.err = apiclient.ExtractErrorMessage(err, u.l10n.T(i18n.UploadUnknownError))
		u.mu.Unlock()
		u.logger.WithError(err).Error("upload failed", "file", doc.Name)
		return nil, err
	}
	return data, nil
}

func (u *Upload) uploadAndExtract(ctx context.Context, doc *Document) (*ExtractedData, error) {
	fileType, ok := FileTypeOf(doc.Name)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFile, u.l10n.T(i18n.UploadUnsupportedType))
	}

	presigned, err := u.api.PresignedURLs(ctx, PresignedURLsRequest{
		Files: []FileRequest{{FileType: fileType, Count: 1}},
	})
	if err != nil {
		return nil, err
	}
	if len(presigned.URLs) == 0 || presigned.URLs[0].URL == "" {
		return nil, errors.New(errors.ErrCodeUploadFailed, u.l10n.T(i18n.UploadNoURL))
	}
	target := presigned.URLs[0]

	u.mu.Lock()
	u.fileID = target.ID
	u.mu.Unlock()

	r, err := doc.Open()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFile, "cannot read "+doc.Name, err)
	}
	err = u.api.Upload(ctx, target.URL, doc.ContentType, r, doc.Size)
	_ = r.Close()
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	u.uploading = false
	u.mu.Unlock()

	data, err := u.api.Extract(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	u.extracted = data
	u.extracting = false
	u.mu.Unlock()
	return data, nil
}

// CreateFromData creates the invoice from the extracted data, falling back
// to form values for missing amounts, then assigns the tag best effort.
func (u *Upload) CreateFromData(ctx context.Context, form FormData) (*Invoice, error) {
	u.mu.Lock()
	extracted, fileID := u.extracted, u.fileID
	if extracted == nil || fileID == "" {
		u.mu.Unlock()
		return nil, errors.New(errors.ErrCodeValidation, u.l10n.T(i18n.UploadNoExtractedData))
	}
	if form.TagID == "" {
		u.mu.Unlock()
		return nil, errors.New(errors.ErrCodeValidation, u.l10n.T(i18n.UploadTagRequired))
	}
	u.creating = true
	u.err = ""
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.creating = false
		u.mu.Unlock()
	}()

	inv, err := u.api.Create(ctx, BuildCreateRequest(extracted, fileID, form))
	if err != nil {
		u.mu.Lock()
		u.err = apiclient.ExtractErrorMessage(err, u.l10n.T(i18n.InvoiceCreateFailed))
		u.mu.Unlock()
		u.logger.WithError(err).Error("error creating invoice")
		return nil, err
	}

	if u.tags != nil && inv.ID != "" {
		if err := u.tags.AssignToInvoice(ctx, inv.ID, form.TagID); err != nil {
			u.logger.WithError(err).Warn("error assigning tag to invoice", "invoice_id", inv.ID, "tag_id", form.TagID)
		}
	}
	return inv, nil
}

// BuildCreateRequest merges extracted data with the confirmed form. Zero or
// missing extracted amounts fall back to the form amount.
func BuildCreateRequest(data *ExtractedData, fileID string, form FormData) CreateRequest {
	req := CreateRequest{
		Number:      form.Number,
		InvoiceType: data.InvoiceType,
		Date:        form.Date,
		DueDate:     data.DueDate,
		FileID:      fileID,
		Subtotal:    form.Amount,
		Total:       form.Amount,
	}
	if req.InvoiceType == "" {
		req.InvoiceType = defaultInvoiceType
	}
	if data.Totals != nil {
		req.Subtotal = orDefault(data.Totals.Subtotal, form.Amount)
		req.Tax = orDefault(data.Totals.Tax, 0)
		req.Total = orDefault(data.Totals.Total, form.Amount)
	}

	description := defaultItemDescription
	if form.Description != "" {
		description = form.Description
	}
	for _, item := range data.Items {
		it := Item{
			Description: description,
			Quantity:    orDefault(item.Quantity, 1),
			UnitPrice:   orDefault(item.UnitPrice, form.Amount),
			Subtotal:    orDefault(item.Subtotal, form.Amount),
		}
		if item.Description != nil && *item.Description != "" {
			it.Description = *item.Description
		}
		req.Items = append(req.Items, it)
	}
	return req
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil || *v == 0 {
		return fallback
	}
	return *v
}

// Reset returns the flow to its initial state.
func (u *Upload) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.selected = nil
	u.uploading = false
	u.extracting = false
	u.creating = false
	u.extracted = nil
	u.fileID = ""
	u.err = ""
}
