// Package identity extracts the viewer's id from the identity provider's
// token. Verification is the provider's job; the client only needs the
// subject to compute self-relative state.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UserID returns the subject claim of the provider token.
func UserID(token string) (string, error) {
	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("parsing identity token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("identity token has no subject")
	}
	return claims.Subject, nil
}
