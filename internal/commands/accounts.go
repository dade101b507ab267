package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/guilleripa/itau-cli/internal/itau"
)

func newAccountsCommand() *cobra.Command {
	var user string
	var configPath string
	var verbosity int

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Log in and list the discovered accounts and credit cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccounts(cmd.Context(), cmd.OutOrStdout(), user, configPath, verbosity)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "document number used to log in (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&configPath, "config", "", "path to itau.yaml (defaults apply when absent)")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")

	return cmd
}

func runAccounts(ctx context.Context, out io.Writer, user, configPath string, verbosity int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	password, err := passwordFromEnv()
	if err != nil {
		return err
	}

	log := buildLogger(verbosity)
	client, err := itau.NewClient(itau.ClientConfig{
		BaseURL: cfg.Bank.BaseURL,
		Timeout: cfg.Bank.Timeout(),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	session, err := client.Login(ctx, user, password)
	if err != nil {
		return err
	}

	for _, acct := range session.Accounts() {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s %s\n",
			acct.ID, acct.Type, acct.Currency.ISO, acct.Currency.Display, acct.Balance.StringFixed(2))
	}
	for _, card := range session.Cards() {
		fmt.Fprintf(out, "%s\t%s\texpires %s\n",
			card.Number, card.Brand, card.Expiration.Format("01/2006"))
	}
	return nil
}
