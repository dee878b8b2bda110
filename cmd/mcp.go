package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/tools"
)

func newMCPCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the calendar tools over MCP stdio for one user",
		Long: `Expose the same calendar tools the Slack assistant uses as an MCP
(Model Context Protocol) server on stdin/stdout. Calls act on the calendars
of the configured user given with --user, in that user's time zone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runMCP(cfg, userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Slack user id of the configured profile to act for")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runMCP(cfg *config.Config, userID string) error {
	if err := cfg.ValidateCalendarAccess(); err != nil {
		return err
	}
	logger := slog.Default()

	p, err := cfg.Profile(userID)
	if err != nil {
		return err
	}
	loc, err := p.Location()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sc := newServerContext(ctx, cfg, nil, logger)
	defer func() {
		_ = sc.Shutdown()
	}()

	cal, err := sc.CalendarFor(ctx, p)
	if err != nil {
		return err
	}

	dispatcher, err := tools.NewDispatcher(tools.Options{
		Calendar: cal,
		Router:   tools.ProfileRouter(p),
		Location: loc,
		UserID:   p.ID,
		Audit:    instrumentation.NewAuditLogger(logger, instrumentation.DefaultConfig().AuditLogging),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	mcpSrv := mcpserver.NewMCPServer("calbot", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := tools.RegisterMCP(mcpSrv, dispatcher); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
