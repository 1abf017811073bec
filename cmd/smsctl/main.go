package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang-sms-gateway/internal/bootstrap"
	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/ports"

	"github.com/spf13/cobra"
)

// cli carries what every subcommand needs.
type cli struct {
	conf      config.Config
	providers ports.ProviderFactory
	log       *slog.Logger
	out       io.Writer
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	conf, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	c := &cli{conf: conf, providers: bootstrap.Providers(conf), log: log, out: os.Stdout}
	if err := c.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "smsctl",
		Short:        "Diagnostics for the SMS gateway",
		Long:         "smsctl queries the messaging provider and the gateway store with the gateway's own configuration.",
		SilenceUsage: true,
	}
	root.SetOut(c.out)

	root.AddCommand(c.queryMessageCmd())
	root.AddCommand(c.lookupCmd())
	root.AddCommand(c.syncCmd())
	root.AddCommand(c.statusCmd())
	root.AddCommand(c.blockCmd())
	return root
}
