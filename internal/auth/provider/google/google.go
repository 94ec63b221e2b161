package google

import (
	"context"
	"errors"

	"github.com/clay/amphora-auth/internal/auth/provider/openid"
)

const issuer = "https://accounts.google.com"

// New returns the Google provider for one callback url. Google's email
// claim becomes the username, so only verified addresses are accepted.
func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*openid.Provider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	return openid.New(ctx, openid.Config{
		Name:                 "google",
		Issuer:               issuer,
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		RedirectURL:          redirectURL,
		Scopes:               []string{"profile", "email"},
		RequireVerifiedEmail: true,
	})
}
