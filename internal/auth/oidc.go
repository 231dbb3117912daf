package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/joestump/newswire/internal/config"
)

// ErrNoEmail is returned when the identity provider does not release an
// email address; accounts are keyed on it for the admin grant.
var ErrNoEmail = errors.New("identity has no email claim")

// Claims is the subset of ID token claims used to provision a user.
type Claims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// DisplayName prefers the full name claim, then given/family names, then the
// email address.
func (c Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if n := strings.TrimSpace(c.GivenName + " " + c.FamilyName); n != "" {
		return n
	}
	return c.Email
}

// Identity is a verified sign-in: the issuing provider plus its claims.
type Identity struct {
	Issuer string
	Claims
}

// Provider signs readers in against one OIDC issuer.
type Provider struct {
	verifier *gooidc.IDTokenVerifier
	oauth    oauth2.Config
}

// NewProvider discovers cfg.OIDC.Issuer and configures the code flow.
func NewProvider(ctx context.Context, cfg *config.Config) (*Provider, error) {
	discovered, err := gooidc.NewProvider(ctx, cfg.OIDC.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC issuer %s: %w", cfg.OIDC.Issuer, err)
	}
	return &Provider{
		verifier: discovered.Verifier(&gooidc.Config{ClientID: cfg.OIDC.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
			Endpoint:     discovered.Endpoint(),
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// LoginAttempt holds the per-attempt secrets kept in short-lived cookies
// between Login and Callback.
type LoginAttempt struct {
	State    string
	Verifier string
}

// NewLoginAttempt returns a fresh state value and PKCE verifier.
func NewLoginAttempt() (LoginAttempt, error) {
	state, err := randomString(32)
	if err != nil {
		return LoginAttempt{}, err
	}
	verifier, err := randomString(64)
	if err != nil {
		return LoginAttempt{}, err
	}
	return LoginAttempt{State: state, Verifier: verifier}, nil
}

// Challenge is the S256 PKCE challenge for the attempt's verifier.
func (a LoginAttempt) Challenge() string {
	sum := sha256.Sum256([]byte(a.Verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuthCodeURL is where Login sends the browser for attempt a.
func (p *Provider) AuthCodeURL(a LoginAttempt) string {
	return p.oauth.AuthCodeURL(a.State,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", a.Challenge()),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange redeems code, verifies the ID token and decodes its claims.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*Identity, error) {
	tok, err := p.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("token response carries no id_token")
	}
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	id := &Identity{Issuer: idToken.Issuer}
	if err := idToken.Claims(&id.Claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if id.Email == "" {
		return nil, ErrNoEmail
	}
	return id, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
