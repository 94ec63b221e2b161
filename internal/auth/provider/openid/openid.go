// Package openid is the OAuth 2.0 + OpenID Connect client shared by the
// redirect providers. It returns verified ID token claims and makes no
// decisions about users or sessions.
package openid

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/logger"
)

type Config struct {
	// Name labels errors and logs, e.g. "google".
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// PublicBaseURL, when set, replaces the origin of the browser-facing
	// authorization endpoint. Discovery often runs against an internal
	// address the browser cannot reach.
	PublicBaseURL string

	// RequireVerifiedEmail rejects tokens whose email_verified claim is
	// not true.
	RequireVerifiedEmail bool
}

type Provider struct {
	name        string
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	verifyEmail bool
}

// New runs discovery against cfg.Issuer.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("%s oauth config missing required fields", cfg.Name)
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s oidc provider: %w", cfg.Name, err)
	}

	ep := oidcProvider.Endpoint()
	if cfg.PublicBaseURL != "" {
		authURL, err := rebase(ep.AuthURL, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		ep.AuthURL = authURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"profile", "email"}
	}

	return &Provider{
		name: cfg.Name,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       append([]string{oidc.ScopeOpenID}, scopes...),
		},
		verifier:    oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		verifyEmail: cfg.RequireVerifiedEmail,
	}, nil
}

// rebase keeps the path of endpoint and swaps its origin for base.
func rebase(endpoint, base string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("auth url: %w", err)
	}
	out := strings.TrimSuffix(base, "/") + u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out, nil
}

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (resolver.Profile, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", p.name, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s did not return id_token", p.name)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id_token verification failed: %w", p.name, err)
	}

	claims := resolver.Profile{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s id_token claims parse failed: %w", p.name, err)
	}

	if p.verifyEmail {
		// an unverified address must not become a username
		if verified, _ := claims["email_verified"].(bool); !verified {
			return nil, errors.New(p.name + " email is not verified")
		}
	}

	logger.Debug("oidc token verified", map[string]any{
		"provider":    p.name,
		"issuer":      idToken.Issuer,
		"audience":    idToken.Audience,
		"expiry_unix": idToken.Expiry.Unix(),
	})

	return claims, nil
}
