package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/forge-sparks/internal/app"
	"github.com/nhle/forge-sparks/internal/desktop"
	"github.com/nhle/forge-sparks/internal/logger"
	"github.com/nhle/forge-sparks/internal/model"
)

var (
	headless bool
	hidden   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch notifications",
	Long: `Poll all accounts and raise desktop notifications.

By default the notification list is shown in the terminal. With --headless
only desktop notifications are sent; with --hidden the list is shown but
never counts as focused, so desktop notifications are always raised.

Examples:
  forge-sparks run
  forge-sparks run --headless
  forge-sparks run --hidden`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, app.Options{Hidden: hidden || headless})
		if err != nil {
			return err
		}
		defer a.Close()

		if headless {
			logger.Info("running headless")
			return a.Serve(ctx)
		}
		return a.RunTUI(ctx)
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one polling cycle and print the notifications",
	Long: `Run a single polling cycle without desktop notifications and print the
resulting list, newest first.

Examples:
  forge-sparks poll
  forge-sparks poll --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := app.New(ctx, cfg, app.Options{
			Notifier: desktop.NewLogNotifier(logger.WithModule("desktop")),
		})
		if err != nil {
			return err
		}
		defer a.Close()

		p := a.Poller()
		p.Poll(ctx)
		items := p.List().Items()

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		for _, s := range p.Statuses() {
			if s.Error != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", s.Name, s.Error)
			}
		}
		if len(items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		for _, n := range items {
			printNotification(n)
		}
		return nil
	},
}

func printNotification(n model.Notification) {
	marker := " "
	if n.Unread {
		marker = "*"
	}
	fmt.Printf("%s %-12s %s\n", marker, n.Type, n.Title)
	fmt.Printf("  %s  %s  %s\n", n.Repository, n.UpdatedAt, n.URL)
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal UI")
	runCmd.Flags().BoolVar(&hidden, "hidden", false, "start with the list treated as hidden")
}
