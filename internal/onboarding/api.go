package onboarding

import (
	"context"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
)

// Request is the body of POST /users/onboard/party.
type Request struct {
	PartyType domain.PartyType `json:"partyType"`
	TaxID     string           `json:"taxId"`
	TaxIDType domain.TaxIDType `json:"taxIdType"`
	Name      string           `json:"name"`
	Regimen   domain.Regimen   `json:"regimen"`
	CompanyID string           `json:"companyId"`
}

// Response is the onboarded party.
type Response struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	PartyType   domain.PartyType `json:"partyType"`
	TaxID       string           `json:"taxId"`
	TaxIDType   domain.TaxIDType `json:"taxIdType"`
	Regimen     domain.Regimen   `json:"regimen"`
	CompanyID   string           `json:"companyId"`
	UserID      string           `json:"userId"`
	Email       string           `json:"email"`
	IsOnboarded bool             `json:"isOnboarded"`
	OnboardedAt string           `json:"onboardedAt"`
	CreatedAt   string           `json:"createdAt"`
	UpdatedAt   string           `json:"updatedAt"`
}

// API calls the onboarding endpoint.
type API struct {
	client *apiclient.Client
}

// NewAPI creates the onboarding API.
func NewAPI(client *apiclient.Client) *API {
	return &API{client: client}
}

// OnboardParty registers the party profile of the current user.
func (a *API) OnboardParty(ctx context.Context, req Request) (*Response, error) {
	req.TaxID = strings.TrimSpace(req.TaxID)
	req.Name = strings.TrimSpace(req.Name)

	var resp Response
	if err := a.client.Post(ctx, "/users/onboard/party", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
