package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
)

// defaultEnvFile is read on startup and on SIGHUP when present.
const defaultEnvFile = ".env"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "prpoller",
		Short: "Poll GitHub pull requests and record one change per new head revision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), envFile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file to load before reading PRPOLLER_ variables")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the poller and the status API until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServer(cmd.Context(), envFile)
			},
		},
		&cobra.Command{
			Use:   "poll",
			Short: "Run a single poll cycle and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), envFile)
			},
		},
		&cobra.Command{
			Use:   "healthcheck",
			Short: "Exit 0 when the status API on PRPOLLER_LISTEN_ADDR reports healthy",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return healthcheck(cmd.Context(), os.Getenv("PRPOLLER_LISTEN_ADDR"))
			},
		},
	)

	return root
}
