package config

import (
	"strings"
	"time"
)

// Config is the process configuration, loaded once at startup.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Slack        SlackConfig        `koanf:"slack"`
	Google       GoogleConfig       `koanf:"google"`
	Agent        AgentConfig        `koanf:"agent"`
	Weather      WeatherConfig      `koanf:"weather"`
	Digest       DigestConfig       `koanf:"digest"`
	Conversation ConversationConfig `koanf:"conversation"`

	// Users are validated individually when a profile is resolved, so one
	// broken entry only affects that user.
	Users []UserProfile `koanf:"users"`
}

type ServerConfig struct {
	Addr        string `koanf:"addr" validate:"required"`
	MetricsAddr string `koanf:"metrics_addr"`
	// TriggerRateLimit is the number of manual digest triggers allowed per
	// client IP per minute.
	TriggerRateLimit int `koanf:"trigger_rate_limit" validate:"gte=1"`
}

type SlackConfig struct {
	BotToken       string   `koanf:"bot_token" validate:"required"`
	SigningSecret  string   `koanf:"signing_secret" validate:"required"`
	AllowedUserIDs []string `koanf:"allowed_user_ids"`
	APIURL         string   `koanf:"api_url" validate:"omitempty,url"`
}

type GoogleConfig struct {
	ClientID     string `koanf:"client_id" validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`
	RedirectURL  string `koanf:"redirect_url" validate:"omitempty,url"`
	// Accounts maps an account name to its OAuth refresh token.
	Accounts map[string]string `koanf:"accounts"`
}

type AgentConfig struct {
	Provider  string        `koanf:"provider" validate:"oneof=anthropic openai"`
	APIKey    string        `koanf:"api_key" validate:"required"`
	Model     string        `koanf:"model" validate:"required"`
	BaseURL   string        `koanf:"base_url" validate:"omitempty,url"`
	MaxTokens int           `koanf:"max_tokens" validate:"gte=1"`
	MaxRounds int           `koanf:"max_rounds" validate:"gte=1,lte=50"`
	Persona   string        `koanf:"persona"`
	// Timeout bounds one model request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// ExchangeTimeout bounds all model rounds and tool calls for one message.
	ExchangeTimeout time.Duration `koanf:"exchange_timeout" validate:"gt=0"`
}

type WeatherConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Units   string        `koanf:"units" validate:"oneof=imperial metric standard"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type DigestConfig struct {
	Cron     string `koanf:"cron" validate:"required"`
	Timezone string `koanf:"timezone" validate:"required,timezone"`
}

type ConversationConfig struct {
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	MaxTurns      int           `koanf:"max_turns" validate:"gte=2"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

// Route maps a logical calendar label to a concrete calendar id.
type Route struct {
	Label    string   `koanf:"label" validate:"required"`
	Calendar string   `koanf:"calendar" validate:"required"`
	Keywords []string `koanf:"keywords"`
}

// UserProfile is the read-only per-user configuration.
type UserProfile struct {
	ID              string  `koanf:"id" validate:"required"`
	Name            string  `koanf:"name"`
	Calendar        string  `koanf:"calendar" validate:"required"`
	Account         string  `koanf:"account"`
	Timezone        string  `koanf:"timezone" validate:"omitempty,timezone"`
	WeatherLocation string  `koanf:"weather_location"`
	DigestChannel   string  `koanf:"digest_channel"`
	Routes          []Route `koanf:"routes" validate:"dive"`
}

// Location returns the profile's time zone. Profiles returned by
// Config.Profile always carry a loadable zone name.
func (p *UserProfile) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

// DisplayName returns the configured name, falling back to the user id.
func (p *UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Defaults.
const (
	DefaultAddr             = ":3006"
	DefaultMetricsAddr      = ":9090"
	DefaultTriggerRateLimit = 5
	DefaultProvider         = "anthropic"
	DefaultAnthropicModel   = "claude-sonnet-4-20250514"
	DefaultOpenAIModel      = "gpt-4o"
	DefaultMaxTokens        = 1024
	DefaultMaxRounds        = 10
	DefaultPersona          = "Michelle"
	DefaultAgentTimeout     = 2 * time.Minute
	DefaultExchangeTimeout  = 3 * time.Minute
	DefaultWeatherBaseURL   = "https://api.openweathermap.org"
	DefaultWeatherUnits     = "imperial"
	DefaultWeatherTimeout   = 10 * time.Second
	DefaultDigestCron       = "0 7 * * *"
	DefaultTimezone         = "America/Denver"
	DefaultTTL              = 30 * time.Minute
	DefaultMaxTurns         = 20
	DefaultSweepInterval    = 10 * time.Minute
	DefaultAccount          = "default"
)

func (c *Config) applyDefaults() {
	ids := c.Slack.AllowedUserIDs[:0]
	for _, id := range c.Slack.AllowedUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.Slack.AllowedUserIDs = ids

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = DefaultMetricsAddr
	}
	if c.Server.TriggerRateLimit == 0 {
		c.Server.TriggerRateLimit = DefaultTriggerRateLimit
	}
	if c.Agent.Provider == "" {
		c.Agent.Provider = DefaultProvider
	}
	if c.Agent.Model == "" {
		c.Agent.Model = DefaultAnthropicModel
		if c.Agent.Provider == "openai" {
			c.Agent.Model = DefaultOpenAIModel
		}
	}
	if c.Agent.MaxTokens == 0 {
		c.Agent.MaxTokens = DefaultMaxTokens
	}
	if c.Agent.MaxRounds == 0 {
		c.Agent.MaxRounds = DefaultMaxRounds
	}
	if c.Agent.Persona == "" {
		c.Agent.Persona = DefaultPersona
	}
	if c.Agent.Timeout == 0 {
		c.Agent.Timeout = DefaultAgentTimeout
	}
	if c.Agent.ExchangeTimeout == 0 {
		c.Agent.ExchangeTimeout = DefaultExchangeTimeout
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = DefaultWeatherBaseURL
	}
	if c.Weather.Units == "" {
		c.Weather.Units = DefaultWeatherUnits
	}
	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = DefaultWeatherTimeout
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = DefaultDigestCron
	}
	if c.Digest.Timezone == "" {
		c.Digest.Timezone = DefaultTimezone
	}
	if c.Conversation.TTL == 0 {
		c.Conversation.TTL = DefaultTTL
	}
	if c.Conversation.MaxTurns == 0 {
		c.Conversation.MaxTurns = DefaultMaxTurns
	}
	if c.Conversation.SweepInterval == 0 {
		c.Conversation.SweepInterval = DefaultSweepInterval
	}
}
