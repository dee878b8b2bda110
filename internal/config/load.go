package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every calbot environment variable. Nested keys are
// separated by a double underscore: CALBOT_SLACK__BOT_TOKEN sets
// slack.bot_token.
const EnvPrefix = "CALBOT_"

// wellKnownEnv maps the conventional unprefixed variable names to config keys.
var wellKnownEnv = map[string]string{
	"SLACK_BOT_TOKEN":      "slack.bot_token",
	"SLACK_SIGNING_SECRET": "slack.signing_secret",
	"ALLOWED_USER_IDS":     "slack.allowed_user_ids",
	"GOOGLE_CLIENT_ID":     "google.client_id",
	"GOOGLE_CLIENT_SECRET": "google.client_secret",
	"GOOGLE_REFRESH_TOKEN": "google.accounts." + DefaultAccount,
	"ANTHROPIC_API_KEY":    "agent.api_key",
	"WEATHER_API_KEY":      "weather.api_key",
	"DAILY_SUMMARY_CRON":   "digest.cron",
	"TIMEZONE":             "digest.timezone",
}

// envKey maps an environment variable name to a config key, or "" to skip it.
func envKey(name string) string {
	if strings.HasPrefix(name, EnvPrefix) {
		key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}
	return wellKnownEnv[name]
}

// listKeys are config keys whose environment values are comma-separated.
var listKeys = map[string]bool{
	"slack.allowed_user_ids": true,
}

// envValue maps an environment variable to its config key and value. List
// keys are split on commas. An empty key means the variable is skipped.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if key == "" || !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Options control where Load reads from.
type Options struct {
	// Path is an optional YAML config file.
	Path string
	// DotEnv is an optional .env file. A missing file is not an error.
	DotEnv string
}

// Load reads configuration from the YAML file, then the .env file, then the
// process environment, each layer overriding the previous one. Defaults are
// applied to anything left unset. The result is not validated.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", opts.Path, err)
		}
	}

	if opts.DotEnv != "" {
		if err := loadDotEnv(k, opts.DotEnv); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// loadDotEnv reads a .env file and copies recognised variables into k.
func loadDotEnv(k *koanf.Koanf, path string) error {
	dk := koanf.New(".")
	if err := dk.Load(file.Provider(path), dotenv.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}

	for name, raw := range dk.All() {
		key, value := envValue(name, fmt.Sprint(raw))
		if key == "" {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("applying %s from %s: %w", name, path, err)
		}
	}
	return nil
}
