package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultRedirectURL is the loopback redirect registered for desktop OAuth
// clients. After consent the browser lands on a page that fails to load;
// the code query parameter in its address is what `calbot auth` asks for.
const DefaultRedirectURL = "http://localhost"

// OAuthConfig returns the OAuth2 configuration for the calendar scopes.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       CalendarScopes,
	}
}

// AuthURL returns the consent URL. It asks for offline access and forces
// the consent screen so Google always issues a refresh token.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ErrNoRefreshToken is returned when an exchange succeeds but Google did not
// hand out a refresh token, usually because consent was not forced.
var ErrNoRefreshToken = errors.New("no refresh token in response; revoke the app's access and try again")

// Exchange trades an authorization code for a token that carries a refresh token.
func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: 30 * time.Second})

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return tok, nil
}

// ValidateAccountName checks that an account name is safe to use as a
// config key: letters, digits, hyphen and underscore only.
func ValidateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	for _, r := range account {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return fmt.Errorf("account name %q contains invalid character %q", account, r)
		}
	}
	return nil
}
