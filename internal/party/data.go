package party

import (
	"context"
	"sync"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
)

// Backend is the API surface Data drives.
type Backend interface {
	GetMyParty(ctx context.Context) (*domain.Party, error)
	UpdateMyParty(ctx context.Context, req UpdateRequest) (*domain.Party, error)
	ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error)
	CreateBankAccount(ctx context.Context, req BankAccountRequest) (*domain.BankAccount, error)
	UpdateBankAccount(ctx context.Context, id string, req BankAccountRequest) (*domain.BankAccount, error)
	DeleteBankAccount(ctx context.Context, id string) error
	ChangePassword(ctx context.Context, password, confirm string) error
}

// Data holds the party profile and bank accounts with loading, saving and
// error state. Failed operations record the error and return it.
type Data struct {
	api    Backend
	l10n   *i18n.Localizer
	logger *log.Logger

	mu           sync.RWMutex
	party        *domain.Party
	bankAccounts []domain.BankAccount
	loading      bool
	saving       bool
	err          string
}

// NewData creates an empty holder.
func NewData(api Backend, l10n *i18n.Localizer, logger *log.Logger) *Data {
	return &Data{
		api:    api,
		l10n:   l10n,
		logger: log.OrDefault(logger).WithComponent("party"),
	}
}

// Snapshot is a copy of the holder state.
type Snapshot struct {
	Party        *domain.Party
	BankAccounts []domain.BankAccount
	Loading      bool
	Saving       bool
	Err          string
}

// Snapshot returns the current state.
func (d *Data) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Party:        d.party,
		BankAccounts: append([]domain.BankAccount(nil), d.bankAccounts...),
		Loading:      d.loading,
		Saving:       d.saving,
		Err:          d.err,
	}
}

// HasParty reports whether a party was loaded.
func (d *Data) HasParty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.party != nil
}

// ClearError resets the recorded error.
func (d *Data) ClearError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = ""
}

func (d *Data) begin(flag *bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*flag = true
	d.err = ""
}

func (d *Data) end(flag *bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*flag = false
}

func (d *Data) fail(err error, key i18n.Key, msg string) error {
	d.mu.Lock()
	d.err = apiclient.ExtractErrorMessage(err, d.l10n.T(key))
	d.mu.Unlock()
	d.logger.WithError(err).Error(msg)
	return err
}

// FetchParty loads the party and, best effort, its bank accounts. A bank
// account failure is logged and leaves an empty list.
func (d *Data) FetchParty(ctx context.Context) (*domain.Party, error) {
	d.begin(&d.loading)
	defer d.end(&d.loading)

	p, err := d.api.GetMyParty(ctx)
	if err != nil {
		return nil, d.fail(err, i18n.PartyFetchFailed, "error fetching party")
	}

	var accounts []domain.BankAccount
	if p.ID != "" {
		accounts, err = d.api.ListBankAccounts(ctx)
		if err != nil {
			d.logger.WithError(err).Warn("failed to fetch bank accounts")
			accounts = nil
		}
	}

	d.mu.Lock()
	d.party = p
	d.bankAccounts = accounts
	d.mu.Unlock()
	return p, nil
}

// UpdateParty saves profile changes.
func (d *Data) UpdateParty(ctx context.Context, req UpdateRequest) (*domain.Party, error) {
	d.begin(&d.saving)
	defer d.end(&d.saving)

	p, err := d.api.UpdateMyParty(ctx, req)
	if err != nil {
		return nil, d.fail(err, i18n.PartyUpdateFailed, "error updating party")
	}
	d.mu.Lock()
	d.party = p
	d.mu.Unlock()
	return p, nil
}

// CreateBankAccount adds an account; the local list changes only on success.
func (d *Data) CreateBankAccount(ctx context.Context, req BankAccountRequest) (*domain.BankAccount, error) {
	d.begin(&d.saving)
	defer d.end(&d.saving)

	acc, err := d.api.CreateBankAccount(ctx, req)
	if err != nil {
		return nil, d.fail(err, i18n.BankAccountCreateFailed, "error creating bank account")
	}
	d.mu.Lock()
	d.bankAccounts = append(d.bankAccounts, *acc)
	d.mu.Unlock()
	return acc, nil
}

// UpdateBankAccount replaces the account in the local list, or appends it
// when it was not known.
func (d *Data) UpdateBankAccount(ctx context.Context, id string, req BankAccountRequest) (*domain.BankAccount, error) {
	d.begin(&d.saving)
	defer d.end(&d.saving)

	acc, err := d.api.UpdateBankAccount(ctx, id, req)
	if err != nil {
		return nil, d.fail(err, i18n.BankAccountUpdateFailed, "error updating bank account")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.bankAccounts {
		if d.bankAccounts[i].ID == id {
			d.bankAccounts[i] = *acc
			return acc, nil
		}
	}
	d.bankAccounts = append(d.bankAccounts, *acc)
	return acc, nil
}

// DeleteBankAccount removes the account remotely, then locally.
func (d *Data) DeleteBankAccount(ctx context.Context, id string) error {
	d.begin(&d.saving)
	defer d.end(&d.saving)

	if err := d.api.DeleteBankAccount(ctx, id); err != nil {
		return d.fail(err, i18n.BankAccountDeleteFailed, "error deleting bank account")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.bankAccounts {
		if d.bankAccounts[i].ID == id {
			d.bankAccounts = append(d.bankAccounts[:i], d.bankAccounts[i+1:]...)
			break
		}
	}
	return nil
}

// ChangePassword checks the confirmation locally before calling the API.
func (d *Data) ChangePassword(ctx context.Context, password, confirm string) error {
	d.ClearError()
	if password != confirm {
		msg := d.l10n.T(i18n.PasswordMismatch)
		d.mu.Lock()
		d.err = msg
		d.mu.Unlock()
		return errors.New(errors.ErrCodeValidation, msg)
	}
	if err := d.api.ChangePassword(ctx, password, confirm); err != nil {
		return d.fail(err, i18n.PasswordChangeFailed, "error changing password")
	}
	return nil
}
