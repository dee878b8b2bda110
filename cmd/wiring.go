package cmd

import (
	"context"
	"log/slog"

	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/digest"
	"github.com/teemow/calbot/internal/google"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/server"
	"github.com/teemow/calbot/internal/slack"
	"github.com/teemow/calbot/internal/tools"
	"github.com/teemow/calbot/internal/weather"
)

// newServerContext builds the shared Google calendar client cache from the
// configured accounts.
func newServerContext(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) *server.ServerContext {
	conf := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	sc := server.NewServerContext(ctx, google.NewRefreshTokenProvider(conf, cfg.Google.Accounts), logger)
	sc.SetMetrics(metrics)
	return sc
}

func botCalendars(sc *server.ServerContext) func(context.Context, *config.UserProfile) (tools.CalendarGateway, error) {
	return func(ctx context.Context, p *config.UserProfile) (tools.CalendarGateway, error) {
		client, err := sc.CalendarFor(ctx, p)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func digestCalendars(sc *server.ServerContext) digest.CalendarFactory {
	return func(ctx context.Context, p *config.UserProfile) (digest.EventSource, error) {
		client, err := sc.CalendarFor(ctx, p)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func newSlackClient(cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) *slack.Client {
	return slack.New(cfg.Slack.BotToken,
		slack.WithAPIURL(cfg.Slack.APIURL),
		slack.WithMetrics(metrics),
		slack.WithLogger(logger),
	)
}

func newWeatherClient(cfg *config.Config) *weather.Client {
	return weather.New(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.Units, cfg.Weather.Timeout)
}
