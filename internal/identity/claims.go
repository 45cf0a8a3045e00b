package identity

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the decoded ID token claims.
type Claims jwt.MapClaims

// AppMetadataKey is the namespaced claim carrying application metadata.
func AppMetadataKey(audience string) string {
	return audience + "/app_metadata"
}

// Onboarded reports whether <audience>/app_metadata.onboarded is true.
func (c Claims) Onboarded(audience string) bool {
	meta, ok := c[AppMetadataKey(audience)].(map[string]any)
	if !ok {
		return false
	}
	onboarded, _ := meta["onboarded"].(bool)
	return onboarded
}

// Subject returns the sub claim.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// Email returns the email claim.
func (c Claims) Email() string {
	s, _ := c["email"].(string)
	return s
}

// parseUnverified decodes the payload of a JWT without checking its
// signature. The token came straight from the token endpoint over TLS.
func parseUnverified(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return Claims(claims), nil
}
