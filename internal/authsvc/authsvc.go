// Package authsvc maps the /auth endpoints of the API.
package authsvc

import (
	"context"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
)

// LoginRequest carries email/password credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name,omitempty"`
	Type     domain.UserType `json:"type,omitempty"`
}

// TokenResponse is returned by login and register.
type TokenResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// MeResponse is the full profile of the authenticated user.
type MeResponse struct {
	User    domain.User     `json:"user"`
	Company *domain.Company `json:"company"`
	Party   *domain.Party   `json:"party"`
}

// Service calls the authentication endpoints.
type Service struct {
	client *apiclient.Client
}

// New returns a Service using client.
func New(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Login exchanges credentials for a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := s.client.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := s.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the user, company and party of the current token.
func (s *Service) Me(ctx context.Context) (*MeResponse, error) {
	var resp MeResponse
	if err := s.client.Get(ctx, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestPasswordReset emails a reset code.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	return s.client.Post(ctx, "/auth/request-password-reset", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using the emailed code.
func (s *Service) ResetPassword(ctx context.Context, code, password string) error {
	return s.client.Post(ctx, "/auth/reset-password", map[string]string{"code": code, "password": password}, nil)
}
