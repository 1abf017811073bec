package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-sms-gateway/internal/adapters/db/postgres"
	"golang-sms-gateway/internal/app"
	"golang-sms-gateway/internal/bootstrap"
	"golang-sms-gateway/internal/ports"

	"github.com/spf13/cobra"
)

var errNoCredentials = errors.New("twilio credentials are not configured: set TWILIO_CLIENT_ID and TWILIO_AUTH_TOKEN or pass --client-id and --auth-token")

func (c *cli) queryMessageCmd() *cobra.Command {
	var clientID, authToken string

	cmd := &cobra.Command{
		Use:   "query-message <sid>",
		Short: "Print the provider's raw resource for a message SID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" {
				clientID = c.conf.Twilio.ClientID
			}
			if authToken == "" {
				authToken = c.conf.Twilio.AuthToken
			}
			if clientID == "" || authToken == "" {
				return errNoCredentials
			}

			provider := c.providers.ForCredentials(ports.Credentials{ClientID: clientID, AuthToken: authToken})
			raw, err := provider.FetchMessage(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch message %s: %w", args[0], err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				return fmt.Errorf("format message: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "account SID overriding TWILIO_CLIENT_ID")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "auth token overriding TWILIO_AUTH_TOKEN")
	return cmd
}

func (c *cli) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <number>...",
		Short: "Look up line type and carrier for phone numbers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := app.NewLookup(c.conf, c.providers, nil, c.log).LookupNumbers(cmd.Context(), args)
			if results == nil {
				return errNoCredentials
			}
			return writeJSON(cmd, results)
		},
	}
}

func (c *cli) syncCmd() *cobra.Command {
	var since time.Duration
	var store bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile provider history and print the sync events",
		RunE: func(cmd *cobra.Command, args []string) error {
			reconciler := app.NewReconciler(c.conf, c.providers, nil, c.log)
			from := time.Now().Add(-since)

			if !store {
				rec, err := reconciler.Reconcile(cmd.Context(), from)
				if err != nil {
					return err
				}
				return writeJSON(cmd, rec)
			}

			repo, err := postgres.New(c.conf.DatabaseURL, nil)
			if err != nil {
				return err
			}
			defer repo.Close()

			channels, err := bootstrap.Channels(c.conf, repo)
			if err != nil {
				return err
			}
			reconciler = app.NewReconciler(c.conf, c.providers, channels, c.log)
			res, err := app.NewSyncJob(reconciler, repo, nil, c.log).Run(cmd.Context(), from)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}

	cmd.Flags().DurationVar(&since, "since", c.conf.SyncLookback, "how far back to reconcile")
	cmd.Flags().BoolVar(&store, "store", false, "upsert the events into the database instead of printing them")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	var windowDays int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize daily traffic and account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := app.NewDashboard(c.conf, c.providers, c.log).Summarize(cmd.Context(), windowDays, app.DashboardOverrides{})
			if summary == nil {
				return errors.New("status unavailable: provider not configured or unreachable")
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.DisplayValue)
			return nil
		},
	}

	cmd.Flags().IntVar(&windowDays, "window-days", c.conf.DashboardWindowDays, "number of past days to count")
	return cmd
}

func (c *cli) blockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <sender>",
		Short: "Stop storing messages from a sender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := postgres.New(c.conf.DatabaseURL, nil)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.BlockSender(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blocked %s\n", args[0])
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
