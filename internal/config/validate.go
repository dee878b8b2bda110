package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type section struct {
	name  string
	value any
}

// Validate checks everything the long-running server needs.
// It collects all problems into a single joined error.
func (c *Config) Validate() error {
	err := c.check(
		section{"server", &c.Server},
		section{"slack", &c.Slack},
		section{"google", &c.Google},
		section{"agent", &c.Agent},
		section{"weather", &c.Weather},
		section{"digest", &c.Digest},
		section{"conversation", &c.Conversation},
	)
	c.warnProfiles()
	return err
}

// ValidateCalendarAccess checks only what is needed to reach Google Calendar.
func (c *Config) ValidateCalendarAccess() error {
	return c.check(section{"google", &c.Google})
}

// ValidateDigest checks what a one-shot digest run needs.
func (c *Config) ValidateDigest() error {
	err := c.check(
		section{"google", &c.Google},
		section{"weather", &c.Weather},
		section{"digest", &c.Digest},
	)
	c.warnProfiles()
	return err
}

func (c *Config) check(sections ...section) error {
	var errs []error

	for _, s := range sections {
		errs = append(errs, fieldErrors(s.name, validate.Struct(s.value))...)

		if s.name == "digest" && c.Digest.Cron != "" {
			if _, err := cron.ParseStandard(c.Digest.Cron); err != nil {
				errs = append(errs, fmt.Errorf("digest.cron: %w", err))
			}
		}
	}

	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if u.ID != "" && seen[u.ID] {
			errs = append(errs, fmt.Errorf("users: duplicate id %q", u.ID))
		}
		seen[u.ID] = true
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// warnProfiles logs profiles that would fail resolution. A broken profile
// only locks out its own user, so it does not prevent startup.
func (c *Config) warnProfiles() {
	for i := range c.Users {
		if _, err := c.resolve(&c.Users[i]); err != nil {
			slog.Warn("user profile is invalid and will be rejected",
				"index", i,
				"error", err.Error())
		}
	}
}

// fieldErrors flattens validator output into one error per field.
func fieldErrors(prefix string, err error) []error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{fmt.Errorf("%s: %w", prefix, err)}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Errorf("%s.%s: %s", prefix, fieldPath(fe), describe(fe)))
	}
	return out
}

// fieldPath strips the struct type name validator puts first.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "timezone":
		return fmt.Sprintf("unknown time zone %q", fe.Value())
	case "url":
		return "must be a URL"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("must satisfy %s", fe.Tag())
	}
}
