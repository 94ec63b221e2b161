package keycloak

import (
	"context"

	"github.com/clay/amphora-auth/internal/auth/provider/openid"
)

// New initializes a Keycloak provider using discovery. issuer must be the
// realm issuer URL, e.g. http://keycloak:8080/realms/clay. Keycloak clients
// are public, so no secret is sent.
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	redirectURL string,
	publicBaseURL string,
) (*openid.Provider, error) {
	return openid.New(ctx, openid.Config{
		Name:          "keycloak",
		Issuer:        issuer,
		ClientID:      clientID,
		RedirectURL:   redirectURL,
		Scopes:        []string{"email", "profile"},
		PublicBaseURL: publicBaseURL,
	})
}
