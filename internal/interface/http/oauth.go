package http

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

// ══════════════════════════════════════════════════════════════════════════════
// OAUTH FLOW
// Authorization-code flow against the 42 Intra OAuth endpoints. The flow
// only produces tokens; profile fetching stays in the Intra client.
// ══════════════════════════════════════════════════════════════════════════════

// OAuthConfig holds the settings of the 42 OAuth application.
type OAuthConfig struct {
	// BaseURL of the Intra API, e.g. https://api.intra.42.fr.
	BaseURL string

	// ClientID / ClientSecret of the registered OAuth application.
	ClientID     string
	ClientSecret string

	// RedirectURL is the absolute callback URL.
	RedirectURL string
}

// OAuthFlow wraps the oauth2 configuration for the login handlers.
type OAuthFlow struct {
	config oauth2.Config
}

// NewOAuthFlow builds the flow from the Intra OAuth settings.
func NewOAuthFlow(cfg OAuthConfig) *OAuthFlow {
	base := strings.TrimRight(cfg.BaseURL, "/")

	return &OAuthFlow{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"public"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth/authorize",
				TokenURL: base + "/oauth/token",
			},
		},
	}
}

// AuthCodeURL returns the Intra authorization URL for the given state nonce.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return f.config.Exchange(ctx, code)
}
