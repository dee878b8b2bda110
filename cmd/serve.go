package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calbot/internal/agent"
	"github.com/teemow/calbot/internal/bot"
	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/conversation"
	"github.com/teemow/calbot/internal/digest"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/server"
)

// startupTimeout bounds how long a listener may take to come up.
const startupTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr           string
		metricsAddr    string
		metricsEnabled bool
		noDigest       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Slack events server and the daily digest scheduler",
		Long: `Start the HTTP server that receives Slack Events API callbacks, answers
direct messages through the language model and posts the daily summary on
the configured cron schedule.

Endpoints:
  GET  /                  Liveness banner
  GET  /healthz, /readyz  Health checks
  POST /slack/events      Slack Events API callback
  GET  /trigger-summary   Post the daily summary now (rate limited)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Server.MetricsAddr = metricsAddr
			}
			if !metricsEnabled {
				cfg.Server.MetricsAddr = ""
			}
			return runServe(cfg, !noDigest)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP listen address. Overrides server.addr.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Overrides server.metrics_addr.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().BoolVar(&noDigest, "no-digest", false, "Do not schedule the daily summary (the trigger endpoint still works)")

	return cmd
}

func runServe(cfg *config.Config, scheduleDigest bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := slog.Default()

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("Error during instrumentation shutdown", "error", err)
		}
	}()
	metrics := provider.Metrics()
	audit := instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)

	// Start metrics server if enabled
	if cfg.Server.MetricsAddr != "" && provider.Enabled() && provider.PrometheusEnabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Server.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if err := startListener(metricsServer.StartWithReadySignal); err != nil {
			return fmt.Errorf("metrics server failed to start: %w", err)
		}
		logger.Info("Metrics server started", "addr", metricsServer.Addr())
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down metrics server", "error", err)
			}
		}()
	}

	sc := newServerContext(shutdownCtx, cfg, metrics, logger)
	sc.SetAuditLogger(audit)
	defer func() {
		_ = sc.Shutdown()
	}()

	slackClient := newSlackClient(cfg, metrics, logger)

	model, err := agent.NewModel(agent.ModelConfig{
		Provider: cfg.Agent.Provider,
		APIKey:   cfg.Agent.APIKey,
		Model:    cfg.Agent.Model,
		BaseURL:  cfg.Agent.BaseURL,
		Timeout:  cfg.Agent.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}
	loop := agent.NewLoop(model,
		agent.WithMaxRounds(cfg.Agent.MaxRounds),
		agent.WithMaxTokens(cfg.Agent.MaxTokens),
		agent.WithMetrics(metrics),
		agent.WithLogger(logger),
	)

	store := conversation.NewStore(
		conversation.WithTTL(cfg.Conversation.TTL),
		conversation.WithMaxTurns(cfg.Conversation.MaxTurns),
		conversation.WithMetrics(metrics),
		conversation.WithLogger(logger),
	)
	store.Start(cfg.Conversation.SweepInterval)
	defer store.Stop()

	assistant := bot.New(cfg, botCalendars(sc), slackClient, loop, store,
		bot.WithPersona(cfg.Agent.Persona),
		bot.WithTimeout(cfg.Agent.ExchangeTimeout),
		bot.WithMetrics(metrics),
		bot.WithAudit(audit),
		bot.WithLogger(logger),
	)
	webhook := bot.NewWebhook(cfg.Slack.SigningSecret, assistant, logger)

	scheduler := digest.New(cfg, digestCalendars(sc), newWeatherClient(cfg), slackClient,
		digest.WithMetrics(metrics),
		digest.WithLogger(logger),
	)
	if scheduleDigest {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start digest scheduler: %w", err)
		}
		defer func() {
			<-scheduler.Stop().Done()
		}()
		logger.Info("Daily summary scheduled", "cron", cfg.Digest.Cron, "timezone", cfg.Digest.Timezone)
	}

	health := server.NewHealthChecker(sc)
	httpServer, err := server.NewHTTPServer(server.HTTPConfig{
		Addr:   cfg.Server.Addr,
		Events: webhook,
		Trigger: func(ctx context.Context) error {
			return scheduler.Run(ctx, true)
		},
		TriggerRateLimit: cfg.Server.TriggerRateLimit,
		Health:           health,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serverDone := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
		health.SetReady(true)
		logger.Info("Calendar bot started",
			"addr", httpServer.Addr(),
			"users", len(cfg.Users),
			"provider", cfg.Agent.Provider,
			"model", cfg.Agent.Model)
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return fmt.Errorf("HTTP server startup timed out")
	}

	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	// Let in-flight replies finish before the calendar clients go away.
	webhook.Close()
	logger.Info("HTTP server gracefully stopped")
	return nil
}

// startListener runs start in the background and waits until it signals
// readiness, fails, or times out.
func startListener(start func(ready chan<- struct{}) error) error {
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := start(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ready:
		return nil
	case err := <-errCh:
		if err == nil {
			return fmt.Errorf("listener stopped before it was ready")
		}
		return err
	case <-time.After(startupTimeout):
		return fmt.Errorf("startup timed out")
	}
}
