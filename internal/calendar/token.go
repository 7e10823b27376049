package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/inesp/standup-report/internal/config"
)

// Scope is the only permission the report needs.
const Scope = "https://www.googleapis.com/auth/calendar.readonly"

// savedToken is the on-disk shape of an authorized user token.
type savedToken struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// AuthStatus describes whether calendar access is usable.
type AuthStatus string

const (
	AuthMissingCredentials AuthStatus = "missing_credentials"
	AuthNeedsAuth          AuthStatus = "needs_auth"
	AuthAuthenticated      AuthStatus = "authenticated"
)

// Status inspects the configured token file without touching the network.
func Status(cfg config.Google) (AuthStatus, string) {
	if cfg.TokenFile == "" {
		return AuthMissingCredentials, "google.token_file is not set"
	}
	tok, err := readToken(cfg.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return AuthMissingCredentials, fmt.Sprintf("token file %s does not exist", cfg.TokenFile)
	}
	if err != nil {
		return AuthNeedsAuth, err.Error()
	}
	if tok.Token == "" && tok.RefreshToken == "" {
		return AuthNeedsAuth, "token file holds no access or refresh token"
	}
	if !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now()) && tok.RefreshToken == "" {
		return AuthNeedsAuth, "access token expired and there is no refresh token"
	}
	return AuthAuthenticated, "connected to calendar"
}

func readToken(path string) (*savedToken, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok savedToken
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	return &tok, nil
}

// TokenSource loads the saved token. When a refresh token and client
// credentials are known, expired access tokens are refreshed transparently.
func TokenSource(ctx context.Context, cfg config.Google) (oauth2.TokenSource, error) {
	saved, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("load calendar token: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  saved.Token,
		RefreshToken: saved.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       saved.Expiry,
	}

	clientID := firstNonEmpty(cfg.ClientID, saved.ClientID)
	clientSecret := firstNonEmpty(cfg.ClientSecret, saved.ClientSecret)
	if saved.RefreshToken == "" || clientID == "" {
		return oauth2.StaticTokenSource(tok), nil
	}

	scopes := saved.Scopes
	if len(scopes) == 0 {
		scopes = []string{Scope}
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: firstNonEmpty(saved.TokenURI, config.DefaultTokenURL)},
		Scopes:       scopes,
	}
	return conf.TokenSource(ctx, tok), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
