package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/digest"
)

func newDigestCmd() *cobra.Command {
	var (
		userID string
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build and post the daily summary once",
		Long: `Build today's summary for every user with a digest channel, or for a
single user with --user, and post it to Slack.

Without --force a user whose channel already shows today's summary is
skipped, so the command is safe to run from an external scheduler. With
--dry-run the summaries are printed to stdout and nothing is posted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runDigest(cmd.OutOrStdout(), cfg, userID, dryRun, force)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Only run for this Slack user id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the summaries instead of posting them")
	cmd.Flags().BoolVar(&force, "force", false, "Post even if today's summary is already in the channel")

	return cmd
}

func runDigest(out io.Writer, cfg *config.Config, userID string, dryRun, force bool) error {
	if err := cfg.ValidateDigest(); err != nil {
		return err
	}
	if !dryRun && cfg.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required to post the summary (use --dry-run to print it)")
	}
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelRun := context.WithTimeout(ctx, digest.RunTimeout)
	defer cancelRun()

	sc := newServerContext(ctx, cfg, nil, logger)
	defer func() {
		_ = sc.Shutdown()
	}()

	scheduler := digest.New(cfg, digestCalendars(sc), newWeatherClient(cfg), newSlackClient(cfg, nil, logger),
		digest.WithLogger(logger),
	)

	var profiles []*config.UserProfile
	if userID != "" {
		p, err := cfg.Profile(userID)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
	} else if !dryRun {
		return scheduler.Run(ctx, force)
	} else {
		var invalid []error
		profiles, invalid = cfg.DigestProfiles()
		for _, err := range invalid {
			logger.Warn("Skipping user with invalid profile", "error", err)
		}
	}

	for _, p := range profiles {
		if dryRun {
			d, err := scheduler.Build(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# %s -> %s\n%s\n", p.ID, d.Channel, d.Text)
			continue
		}
		if err := scheduler.RunUser(ctx, p, force); err != nil {
			return err
		}
	}
	return nil
}
