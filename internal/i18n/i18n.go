// Package i18n holds the user-facing message catalogs (Spanish and English).
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Key identifies a catalog message.
type Key string

// Message keys.
const (
	OnboardingNameRequired   Key = "onboarding.name_required"
	OnboardingTaxIDRequired  Key = "onboarding.tax_id_required"
	OnboardingTaxIDLength    Key = "onboarding.tax_id_length"
	OnboardingSubmitFailed   Key = "onboarding.submit_failed"
	OnboardingCompanyMissing Key = "onboarding.company_missing"

	UploadTooLarge        Key = "upload.too_large"
	UploadUnsupportedType Key = "upload.unsupported_type"
	UploadNoURL           Key = "upload.no_url"
	UploadNoFile          Key = "upload.no_file"
	UploadNoExtractedData Key = "upload.no_extracted_data"
	UploadTagRequired     Key = "upload.tag_required"
	UploadUnknownError    Key = "upload.unknown_error"

	InvoiceCreateFailed Key = "invoice.create_failed"
	InvoiceFetchFailed  Key = "invoice.fetch_failed"

	TagsLoadFailed   Key = "tags.load_failed"
	TagsAssignFailed Key = "tags.assign_failed"

	PartyFetchFailed        Key = "party.fetch_failed"
	PartyUpdateFailed       Key = "party.update_failed"
	BankAccountCreateFailed Key = "bank_account.create_failed"
	BankAccountUpdateFailed Key = "bank_account.update_failed"
	BankAccountDeleteFailed Key = "bank_account.delete_failed"
	PasswordChangeFailed    Key = "password.change_failed"
	PasswordMismatch        Key = "password.mismatch"

	AuthLoginFailed Key = "auth.login_failed"
)

// DefaultLocale is used when no supported locale matches.
const DefaultLocale = "es"

//go:embed locales/*.yaml
var localesFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

var (
	supported      = []language.Tag{language.Spanish, language.English}
	matcher        = language.NewMatcher(supported)
	defaultCatalog = mustLoad()
)

func mustLoad() catalog.Catalog {
	c, err := Load(localesFS)
	if err != nil {
		panic(fmt.Sprintf("i18n: %v", err))
	}
	return c
}

// Load builds a catalog from locales/*.yaml in fsys.
func Load(fsys fs.FS) (catalog.Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		for key, msg := range file.Messages {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("catalog %s: key %q: %w", path, key, err)
			}
		}
	}
	return b, nil
}

// Supported returns the supported locales.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match returns the supported tag closest to locale.
func Match(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.Spanish
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

// Localizer renders catalog messages for one locale.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a localizer for the best match of locale.
func New(locale string) *Localizer {
	tag := Match(locale)
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(defaultCatalog))}
}

// Tag returns the resolved locale.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// T renders key with args.
func (l *Localizer) T(key Key, args ...any) string {
	if l == nil {
		l = New(DefaultLocale)
	}
	return l.printer.Sprintf(string(key), args...)
}
