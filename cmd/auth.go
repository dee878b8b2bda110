package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a Google refresh token for a calendar account",
		Long: `Print the Google consent URL for calendar access, read the authorization
code you paste back, and print the refresh token to store in the config
under google.accounts.<account>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runAuth(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, account)
		},
	}

	cmd.Flags().StringVar(&account, "account", config.DefaultAccount, "Account name the token will be stored under")

	return cmd
}

func runAuth(ctx context.Context, in io.Reader, out io.Writer, cfg *config.Config, account string) error {
	if err := google.ValidateAccountName(account); err != nil {
		return err
	}
	if err := cfg.ValidateCalendarAccess(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	conf := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	fmt.Fprintf(out, "Open this URL in your browser and authorize calendar access:\n\n%s\n\n", google.AuthURL(conf, uuid.NewString()))
	fmt.Fprint(out, "Paste the authorization code: ")

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	tok, err := google.Exchange(ctx, conf, code)
	if err != nil {
		return err
	}

	envName := config.EnvPrefix + "GOOGLE__ACCOUNTS__" + strings.ToUpper(account)
	fmt.Fprintf(out, "\nRefresh token for account %q:\n\n%s\n\n", account, tok.RefreshToken)
	fmt.Fprintf(out, "Store it under google.accounts.%s in the config file or set %s.\n", account, envName)
	return nil
}
