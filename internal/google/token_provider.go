package google

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth token sources per Google account.
type TokenProvider interface {
	// TokenSource returns a refreshing token source for the account.
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)

	// HasAccount reports whether the account is configured.
	HasAccount(account string) bool
}

// RefreshTokenProvider builds token sources from long-lived refresh tokens
// held in configuration.
type RefreshTokenProvider struct {
	conf   *oauth2.Config
	tokens map[string]string
}

// NewRefreshTokenProvider creates a provider for the given account → refresh
// token map. The map is copied.
func NewRefreshTokenProvider(conf *oauth2.Config, refreshTokens map[string]string) *RefreshTokenProvider {
	tokens := make(map[string]string, len(refreshTokens))
	for account, rt := range refreshTokens {
		if rt != "" {
			tokens[account] = rt
		}
	}
	return &RefreshTokenProvider{conf: conf, tokens: tokens}
}

// TokenSource returns a token source that refreshes the access token on
// demand and caches it until expiry.
func (p *RefreshTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	rt, ok := p.tokens[account]
	if !ok {
		return nil, fmt.Errorf("no refresh token configured for google account %q", account)
	}
	return oauth2.ReuseTokenSource(nil, p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rt})), nil
}

// HasAccount reports whether a refresh token exists for the account.
func (p *RefreshTokenProvider) HasAccount(account string) bool {
	_, ok := p.tokens[account]
	return ok
}

// Accounts returns the configured account names, sorted.
func (p *RefreshTokenProvider) Accounts() []string {
	out := make([]string, 0, len(p.tokens))
	for account := range p.tokens {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}
