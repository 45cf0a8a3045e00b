// Package invoice lists, uploads, creates and comments on the current
// party's invoices.
package invoice

// Status is the processing status of an invoice.
type Status string

// State is the approval state of an invoice.
type State string

const (
	StatusPending    Status = "PENDING"
	StatusValidated  Status = "VALIDATED"
	StatusRejected   Status = "REJECTED"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"

	StatePending     State = "PENDING"
	StatePreApproved State = "PRE_APPROVED"
	StateApproved    State = "APPROVED"
	StateRejected    State = "REJECTED"
	StatePaid        State = "PAID"
)

// Item is one invoice line.
type Item struct {
	Description string  `json:"description" yaml:"description"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	UnitPrice   float64 `json:"unitPrice" yaml:"unit_price"`
	Subtotal    float64 `json:"subtotal" yaml:"subtotal"`
}

// Ref is a short reference to a related entity.
type Ref struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	TaxID string `json:"taxId,omitempty" yaml:"tax_id,omitempty"`
}

// File is the stored document behind an invoice.
type File struct {
	ID       string `json:"id" yaml:"id"`
	S3Key    string `json:"s3Key" yaml:"s3_key"`
	FileType string `json:"fileType" yaml:"file_type"`
}

// Invoice is an invoice of the current party.
type Invoice struct {
	ID             string         `json:"id" yaml:"id"`
	Number         int64          `json:"number" yaml:"number"`
	InvoiceType    string         `json:"invoiceType" yaml:"invoice_type"`
	Date           string         `json:"date" yaml:"date"`
	DueDate        string         `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
	PaymentDate    string         `json:"paymentDate,omitempty" yaml:"payment_date,omitempty"`
	PartyID        string         `json:"partyId" yaml:"party_id"`
	Subtotal       float64        `json:"subtotal" yaml:"subtotal"`
	Tax            float64        `json:"tax" yaml:"tax"`
	Total          float64        `json:"total" yaml:"total"`
	CompanyID      string         `json:"companyId" yaml:"company_id"`
	OrganizationID string         `json:"organizationId" yaml:"organization_id"`
	Status         Status         `json:"status" yaml:"status"`
	InvoiceState   State          `json:"invoiceState" yaml:"invoice_state"`
	RejectReason   string         `json:"rejectReason,omitempty" yaml:"reject_reason,omitempty"`
	CustomFields   map[string]any `json:"customFields,omitempty" yaml:"custom_fields,omitempty"`
	CreatedAt      string         `json:"createdAt" yaml:"created_at"`
	UpdatedAt      string         `json:"updatedAt" yaml:"updated_at"`
	Party          *Ref           `json:"party,omitempty" yaml:"party,omitempty"`
	Organization   *Ref           `json:"organization,omitempty" yaml:"organization,omitempty"`
	InvoiceFile    *File          `json:"invoiceFile,omitempty" yaml:"invoice_file,omitempty"`
	Items          []Item         `json:"items,omitempty" yaml:"items,omitempty"`
}

// Pagination describes a page of results.
type Pagination struct {
	Total      int `json:"total" yaml:"total"`
	Page       int `json:"page" yaml:"page"`
	Limit      int `json:"limit" yaml:"limit"`
	TotalPages int `json:"totalPages" yaml:"total_pages"`
}

// ListResponse is a page of invoices.
type ListResponse struct {
	Items      []Invoice  `json:"items" yaml:"items"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}

// FileType is an accepted upload format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
)

// FileRequest asks for count upload URLs of one type.
type FileRequest struct {
	FileType FileType `json:"fileType"`
	Count    int      `json:"count"`
}

// PresignedURLsRequest is the body of the presigned URL endpoints.
type PresignedURLsRequest struct {
	Files []FileRequest `json:"files"`
}

// PresignedURL is a one-shot object storage upload target.
type PresignedURL struct {
	URL string `json:"url"`
	Key string `json:"key"`
	ID  string `json:"id"`
}

// PresignedURLsResponse lists upload targets.
type PresignedURLsResponse struct {
	URLs []PresignedURL `json:"urls"`
}

// ExtractedCustomer is the counterpart read from the document.
type ExtractedCustomer struct {
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	TaxID   float64 `json:"taxId,omitempty" yaml:"tax_id,omitempty"`
	TaxType string  `json:"taxType,omitempty" yaml:"tax_type,omitempty"`
	Address string  `json:"address,omitempty" yaml:"address,omitempty"`
}

// ExtractedItem is a line read from the document. Missing values are nil.
type ExtractedItem struct {
	Description *string  `json:"description,omitempty" yaml:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty" yaml:"unit_price,omitempty"`
	Subtotal    *float64 `json:"subtotal,omitempty" yaml:"subtotal,omitempty"`
}

// ExtractedTotals are the amounts read from the document.
type ExtractedTotals struct {
	Subtotal *float64 `json:"subtotal,omitempty" yaml:"subtotal,omitempty"`
	Tax      *float64 `json:"tax,omitempty" yaml:"tax,omitempty"`
	Total    *float64 `json:"total,omitempty" yaml:"total,omitempty"`
}

// ExtractedData is what the server read from an uploaded document.
type ExtractedData struct {
	Number      *int64             `json:"number,omitempty" yaml:"number,omitempty"`
	InvoiceType string             `json:"invoiceType,omitempty" yaml:"invoice_type,omitempty"`
	Date        string             `json:"date,omitempty" yaml:"date,omitempty"`
	DueDate     string             `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
	Customer    *ExtractedCustomer `json:"customer,omitempty" yaml:"customer,omitempty"`
	Items       []ExtractedItem    `json:"items,omitempty" yaml:"items,omitempty"`
	Totals      *ExtractedTotals   `json:"totals,omitempty" yaml:"totals,omitempty"`
}

// CustomField is a free-form name/value pair.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CreateRequest is the body of POST /parties/me/invoices.
type CreateRequest struct {
	Number       int64         `json:"number"`
	InvoiceType  string        `json:"invoiceType"`
	PointOfSale  string        `json:"pointOfSale,omitempty"`
	Date         string        `json:"date"`
	DueDate      string        `json:"dueDate,omitempty"`
	PaymentDate  string        `json:"paymentDate,omitempty"`
	FileID       string        `json:"fileId,omitempty"`
	Items        []Item        `json:"items,omitempty"`
	Subtotal     float64       `json:"subtotal"`
	Tax          float64       `json:"tax"`
	Total        float64       `json:"total"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// Author wrote a comment.
type Author struct {
	UserID string `json:"userId" yaml:"user_id"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email" yaml:"email"`
}

// Attachment is a file attached to a comment.
type Attachment struct {
	ID            string `json:"id" yaml:"id"`
	FileName      string `json:"fileName" yaml:"file_name"`
	ContentType   string `json:"contentType" yaml:"content_type"`
	FileSizeBytes int64  `json:"fileSizeBytes" yaml:"file_size_bytes"`
	CreatedAt     string `json:"createdAt" yaml:"created_at"`
}

// Comment is a message on an invoice.
type Comment struct {
	ID             string       `json:"id" yaml:"id"`
	Message        string       `json:"message" yaml:"message"`
	Author         Author       `json:"author" yaml:"author"`
	CreatedAt      string       `json:"createdAt" yaml:"created_at"`
	UpdatedAt      string       `json:"updatedAt" yaml:"updated_at"`
	Edited         bool         `json:"edited" yaml:"edited"`
	Attachments    []Attachment `json:"attachments" yaml:"attachments"`
	IsDeleted      bool         `json:"isDeleted" yaml:"is_deleted"`
	DeletedMessage string       `json:"deletedMessage,omitempty" yaml:"deleted_message,omitempty"`
}

// NewAttachment references an uploaded comment attachment.
type NewAttachment struct {
	FileID        string `json:"fileId"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
}

// CreateCommentRequest is the body of POST /invoices/:id/comments.
type CreateCommentRequest struct {
	Message     string          `json:"message"`
	Attachments []NewAttachment `json:"attachments,omitempty"`
}

// CommentListResponse lists the comments of an invoice.
type CommentListResponse struct {
	Items []Comment `json:"items" yaml:"items"`
}

// DownloadURL is a short-lived link to a stored file.
type DownloadURL struct {
	URL string `json:"url" yaml:"url"`
}
