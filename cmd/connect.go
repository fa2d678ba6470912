package cmd

import (
	"context"
	"fmt"
	"io"

	"rtmbot/pkg/rtm"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Check the bot token with a handshake",
	Long:  "Performs only the session handshake and prints the account and workspace the token belongs to. No socket is opened.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args
		return checkConnection(cmd.Context(), envFile, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func checkConnection(ctx context.Context, envPath string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, appLogger, err := loadRuntime(envPath)
	if err != nil {
		return err
	}

	credential, err := cfg.Credential()
	if err != nil {
		return err
	}

	endpoint, err := rtm.Connect(ctx, credential, sessionOptions(cfg, appLogger)...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "account:   %s (%s)\nworkspace: %s (%s, %s.slack.com)\n",
		endpoint.Account.Name, endpoint.Account.ID,
		endpoint.Workspace.Name, endpoint.Workspace.ID, endpoint.Workspace.Domain,
	)
	return err
}
