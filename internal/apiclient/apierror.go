package apiclient

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

const maxErrorBody = 64 << 10

// FieldError is one per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status     int
	StatusText string
	Message    string
	Fields     []FieldError
	RequestID  string
	Body       []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Summary())
}

// Summary renders the most specific message available: joined field
// errors, then the payload message, then the HTTP status text.
func (e *APIError) Summary() string {
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			if f.Field == "" {
				msgs = append(msgs, f.Message)
				continue
			}
			msgs = append(msgs, f.Field+": "+f.Message)
		}
		return strings.Join(msgs, ". ")
	}
	if e.Message != "" {
		return e.Message
	}
	return e.StatusText
}

// AppError wraps e in a coded error chosen by status.
func (e *APIError) AppError() *errors.AppError {
	code := errors.ErrCodeAPIResponse
	switch e.Status {
	case http.StatusUnauthorized:
		code = errors.ErrCodeUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = errors.ErrCodeAPIValidation
	}
	appErr := errors.Wrap(code, e.Summary(), e)
	if e.Status == http.StatusUnauthorized {
		appErr.WithSuggestion("Run 'finpilot auth login' to start a new session")
	}
	return appErr
}

type errorPayload struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func parseError(resp *http.Response, requestID string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		RequestID:  requestID,
		Body:       body,
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	apiErr.Message = payload.Message
	if apiErr.Message == "" {
		apiErr.Message = payload.Error
	}
	apiErr.Fields = parseFieldErrors(payload.Errors)
	return apiErr
}

// parseFieldErrors accepts {field: [msgs]} (in document order) or
// [{path: [...], message}] payloads. Location prefixes body/query/params
// are dropped from field names.
func parseFieldErrors(raw json.RawMessage) []FieldError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '{':
		return parseFieldMap(raw)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		var out []FieldError
		for _, item := range items {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, FieldError{Message: s})
				continue
			}
			var issue struct {
				Path    []any   `json:"path"`
				Message *string `json:"message"`
			}
			if err := json.Unmarshal(item, &issue); err != nil || issue.Message == nil || issue.Path == nil {
				continue
			}
			var parts []string
			for _, p := range issue.Path {
				s := fmt.Sprint(p)
				if s == "body" || s == "query" || s == "params" {
					continue
				}
				parts = append(parts, s)
			}
			field := "campo"
			if len(parts) > 0 {
				field = strings.Join(parts, ".")
			}
			out = append(out, FieldError{Field: field, Message: *issue.Message})
		}
		return out
	}
	return nil
}

func parseFieldMap(raw json.RawMessage) []FieldError {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil
	}

	var out []FieldError
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := tok.(string)
		var msgs []string
		if err := dec.Decode(&msgs); err != nil {
			return out
		}
		field := stripLocation(key)
		for _, m := range msgs {
			out = append(out, FieldError{Field: field, Message: m})
		}
	}
	return out
}

func stripLocation(field string) string {
	for _, prefix := range []string{"body.", "query.", "params."} {
		if strings.HasPrefix(field, prefix) {
			return strings.TrimPrefix(field, prefix)
		}
	}
	return field
}

// ExtractErrorMessage turns any error into a message fit for display.
func ExtractErrorMessage(err error, defaultMessage string) string {
	if err == nil {
		return defaultMessage
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		if s := apiErr.Summary(); s != "" {
			return s
		}
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultMessage
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
