// Package config loads and validates calbot's configuration.
//
// Configuration is layered with koanf: an optional YAML file, an optional
// .env file, then environment variables. Variables prefixed with CALBOT_
// address any key (CALBOT_AGENT__MAX_ROUNDS sets agent.max_rounds); the
// conventional names SLACK_BOT_TOKEN, ANTHROPIC_API_KEY, GOOGLE_REFRESH_TOKEN
// and friends are also recognised.
//
// Per-user profiles are validated lazily by Profile, so a broken profile
// yields a ProfileError for that user instead of failing startup.
package config
