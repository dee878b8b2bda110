package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrProfileNotFound means no profile is configured for the user.
	ErrProfileNotFound = errors.New("no profile configured")

	// ErrInvalidProfile means the profile exists but cannot be used.
	ErrInvalidProfile = errors.New("invalid profile")
)

// ProfileError is returned when a user's profile cannot be resolved.
// It unwraps to ErrProfileNotFound or ErrInvalidProfile.
type ProfileError struct {
	UserID string
	Reason string
	Err    error
}

func (e *ProfileError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("profile %s: %v: %s", e.UserID, e.Err, e.Reason)
	}
	return fmt.Sprintf("profile %s: %v", e.UserID, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// Profile returns the resolved profile for a chat user: account, time zone
// and route defaults are filled in. The returned value is a copy.
func (c *Config) Profile(userID string) (*UserProfile, error) {
	for i := range c.Users {
		if c.Users[i].ID == userID {
			return c.resolve(&c.Users[i])
		}
	}
	return nil, &ProfileError{UserID: userID, Err: ErrProfileNotFound}
}

// DigestProfiles returns every valid profile that has a digest channel.
// Invalid ones are returned separately so callers can log them.
func (c *Config) DigestProfiles() ([]*UserProfile, []error) {
	var (
		out  []*UserProfile
		errs []error
	)
	for i := range c.Users {
		if c.Users[i].DigestChannel == "" {
			continue
		}
		p, err := c.resolve(&c.Users[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errs
}

func (c *Config) resolve(u *UserProfile) (*UserProfile, error) {
	if err := validate.Struct(u); err != nil {
		reason := err.Error()
		if fe := fieldErrors("user", err); len(fe) > 0 {
			reason = fe[0].Error()
		}
		return nil, &ProfileError{UserID: u.ID, Reason: reason, Err: ErrInvalidProfile}
	}

	p := *u
	p.Routes = slices.Clone(u.Routes)

	if p.Account == "" {
		p.Account = DefaultAccount
	}
	if p.Timezone == "" {
		p.Timezone = c.Digest.Timezone
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if _, err := p.Location(); err != nil {
		return nil, &ProfileError{UserID: u.ID, Reason: err.Error(), Err: ErrInvalidProfile}
	}

	if len(c.Google.Accounts) > 0 {
		if _, ok := c.Google.Accounts[p.Account]; !ok {
			return nil, &ProfileError{
				UserID: u.ID,
				Reason: fmt.Sprintf("google account %q is not configured", p.Account),
				Err:    ErrInvalidProfile,
			}
		}
	}

	return &p, nil
}

// Allowed reports whether a chat user may talk to the assistant. With an
// explicit allow-list only listed users pass; without one, exactly the users
// that have a profile pass.
func (c *Config) Allowed(userID string) bool {
	if userID == "" {
		return false
	}
	if len(c.Slack.AllowedUserIDs) > 0 {
		return slices.Contains(c.Slack.AllowedUserIDs, userID)
	}
	return slices.ContainsFunc(c.Users, func(u UserProfile) bool { return u.ID == userID })
}
