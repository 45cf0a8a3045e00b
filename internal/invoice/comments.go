package invoice

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
)

// Comment attachments additionally accept office and plain text files.
const (
	FileTypeTXT  FileType = "txt"
	FileTypeDOCX FileType = "docx"
	FileTypeXLSX FileType = "xlsx"
)

// AttachmentTypeOf maps a file name's extension to a comment attachment type.
func AttachmentTypeOf(name string) (FileType, bool) {
	if t, ok := FileTypeOf(name); ok {
		return t, true
	}
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "txt":
		return FileTypeTXT, true
	case "docx":
		return FileTypeDOCX, true
	case "xlsx":
		return FileTypeXLSX, true
	}
	return "", false
}

// Commenter is the API surface Comments drives.
type Commenter interface {
	ListComments(ctx context.Context, invoiceID string) ([]Comment, error)
	CreateComment(ctx context.Context, invoiceID string, req CreateCommentRequest) (*Comment, error)
	CommentAttachmentURLs(ctx context.Context, invoiceID string, req PresignedURLsRequest) (*PresignedURLsResponse, error)
	Upload(ctx context.Context, presignedURL, contentType string, r io.Reader, size int64) error
}

// Comments lists and posts the comments of an invoice.
type Comments struct {
	api    Commenter
	logger *log.Logger
}

// NewComments creates a comment service.
func NewComments(api Commenter, logger *log.Logger) *Comments {
	return &Comments{
		api:    api,
		logger: log.OrDefault(logger).WithComponent("invoice-comments"),
	}
}

// List returns the comments of an invoice, oldest first as the API sends
// them.
func (c *Comments) List(ctx context.Context, invoiceID string) ([]Comment, error) {
	items, err := c.api.ListComments(ctx, invoiceID)
	if err != nil {
		c.logger.WithError(err).Error("error fetching comments", "invoice_id", invoiceID)
		return nil, err
	}
	return items, nil
}

// Post uploads docs as attachments and then creates the comment. Nothing
// is posted when any attachment fails.
func (c *Comments) Post(ctx context.Context, invoiceID, message string, docs []*Document) (*Comment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New(errors.ErrCodeValidation, "comment message is required")
	}

	req := PresignedURLsRequest{Files: make([]FileRequest, 0, len(docs))}
	for _, doc := range docs {
		t, ok := AttachmentTypeOf(doc.Name)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFile, fmt.Sprintf("unsupported attachment %s", doc.Name))
		}
		if doc.Size > MaxFileSize {
			return nil, errors.New(errors.ErrCodeInvalidFile, fmt.Sprintf("attachment %s exceeds 10MB", doc.Name))
		}
		req.Files = append(req.Files, FileRequest{FileType: t, Count: 1})
	}

	var attachments []NewAttachment
	if len(docs) > 0 {
		resp, err := c.api.CommentAttachmentURLs(ctx, invoiceID, req)
		if err != nil {
			return nil, err
		}
		if len(resp.URLs) < len(docs) {
			return nil, errors.New(errors.ErrCodeUploadFailed,
				fmt.Sprintf("requested %d upload URLs, got %d", len(docs), len(resp.URLs)))
		}

		for i, doc := range docs {
			target := resp.URLs[i]
			if err := c.upload(ctx, target, doc); err != nil {
				return nil, err
			}
			attachments = append(attachments, NewAttachment{
				FileID:        target.ID,
				FileName:      doc.Name,
				ContentType:   doc.ContentType,
				FileSizeBytes: doc.Size,
			})
		}
	}

	comment, err := c.api.CreateComment(ctx, invoiceID, CreateCommentRequest{
		Message:     message,
		Attachments: attachments,
	})
	if err != nil {
		c.logger.WithError(err).Error("error creating comment", "invoice_id", invoiceID)
		return nil, err
	}
	return comment, nil
}

func (c *Comments) upload(ctx context.Context, target PresignedURL, doc *Document) error {
	r, err := doc.Open()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFile, "cannot read "+doc.Name, err)
	}
	defer r.Close()

	if err := c.api.Upload(ctx, target.URL, doc.ContentType, r, doc.Size); err != nil {
		c.logger.WithError(err).Error("attachment upload failed", "file", doc.Name)
		return err
	}
	return nil
}
