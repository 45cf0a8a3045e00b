// Package party manages the current user's party profile, bank accounts
// and password.
package party

import (
	"context"
	"net/url"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
)

// UpdateRequest is the body of PUT /parties/me.
type UpdateRequest struct {
	Name     *string         `json:"name,omitempty"`
	Email    *string         `json:"email,omitempty"`
	Address  *string         `json:"address,omitempty"`
	Category *string         `json:"category,omitempty"`
	Regimen  *domain.Regimen `json:"regimen,omitempty"`
}

// BankAccountRequest creates or updates a bank account.
type BankAccountRequest struct {
	BankName      *string `json:"bankName,omitempty"`
	AccountNumber *string `json:"accountNumber,omitempty"`
	IsPrimary     *bool   `json:"isPrimary,omitempty"`
}

type changePasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// API maps the /parties/me endpoints.
type API struct {
	client *apiclient.Client
}

// NewAPI creates the party API.
func NewAPI(client *apiclient.Client) *API {
	return &API{client: client}
}

// GetMyParty fetches the current party.
func (a *API) GetMyParty(ctx context.Context) (*domain.Party, error) {
	var p domain.Party
	if err := a.client.Get(ctx, "/parties/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateMyParty updates the current party.
func (a *API) UpdateMyParty(ctx context.Context, req UpdateRequest) (*domain.Party, error) {
	var p domain.Party
	if err := a.client.Put(ctx, "/parties/me", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBankAccounts lists the current party's bank accounts.
func (a *API) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	var accounts []domain.BankAccount
	if err := a.client.Get(ctx, "/parties/me/bank-accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateBankAccount adds a bank account.
func (a *API) CreateBankAccount(ctx context.Context, req BankAccountRequest) (*domain.BankAccount, error) {
	var acc domain.BankAccount
	if err := a.client.Post(ctx, "/parties/me/bank-accounts", req, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpdateBankAccount updates a bank account.
func (a *API) UpdateBankAccount(ctx context.Context, id string, req BankAccountRequest) (*domain.BankAccount, error) {
	var acc domain.BankAccount
	if err := a.client.Put(ctx, "/parties/me/bank-accounts/"+url.PathEscape(id), req, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// DeleteBankAccount removes a bank account.
func (a *API) DeleteBankAccount(ctx context.Context, id string) error {
	return a.client.Delete(ctx, "/parties/me/bank-accounts/"+url.PathEscape(id), nil)
}

// ChangePassword sets a new password for the current user.
func (a *API) ChangePassword(ctx context.Context, password, confirm string) error {
	return a.client.Post(ctx, "/parties/me/change-password", changePasswordRequest{
		Password:        password,
		ConfirmPassword: confirm,
	}, nil)
}
