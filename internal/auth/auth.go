// File: internal/auth/auth.go
package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crispud/semgrep/internal/config"
)

// TokenEnvVar is the environment variable consulted when no token is
// passed explicitly to login, and by ci when no token was saved.
const TokenEnvVar = "SEMGREP_APP_TOKEN"

// ErrAlreadyLoggedIn is returned when login finds a saved token.
var ErrAlreadyLoggedIn = fmt.Errorf("an access token is already saved; run `semgrep logout` first")

// Login validates and persists an app access token, returning the
// deployment name extracted from the token when available.
func Login(settings *config.Settings, token string) (string, error) {
	if settings.APIToken != "" {
		return "", ErrAlreadyLoggedIn
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("no access token given; pass --token or set %s", TokenEnvVar)
	}

	deployment := deploymentFromToken(token)

	settings.APIToken = token
	if err := settings.Save(); err != nil {
		return "", fmt.Errorf("failed to persist access token: %w", err)
	}
	return deployment, nil
}

// Logout removes any saved token. Logging out while logged out is fine.
func Logout(settings *config.Settings) error {
	if settings.APIToken == "" {
		return nil
	}
	settings.APIToken = ""
	if err := settings.Save(); err != nil {
		return fmt.Errorf("failed to remove access token: %w", err)
	}
	return nil
}

// deploymentFromToken pulls a human-readable deployment name out of
// JWT-shaped tokens. The claims are read unverified: the server is the
// authority on the token, this is purely for display. Opaque tokens are
// accepted as-is.
func deploymentFromToken(token string) string {
	if strings.Count(token, ".") != 2 {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if name, ok := claims["deployment_name"].(string); ok {
		return name
	}
	return ""
}
