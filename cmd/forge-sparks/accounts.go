package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/forge-sparks/internal/app"
	"github.com/nhle/forge-sparks/internal/desktop"
	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/logger"
	"github.com/nhle/forge-sparks/internal/ui/accounts"
)

var (
	addForge string
	addURL   string
	addToken string
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"account"},
	Short:   "Manage forge accounts",
}

var accountsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list := a.Registry().List()
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				fmt.Println("No accounts configured. Add one with 'forge-sparks accounts add'.")
				return nil
			}
			for _, acct := range list {
				fmt.Printf("%s  %-8s %s\n", acct.ID, forge.Kind(acct.Forge), acct.DisplayName())
			}
			return nil
		})
	},
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	Long: `Add a forge account. The token is checked against the forge before the
account is saved. Without --token an interactive form asks for the details.

Examples:
  forge-sparks accounts add
  forge-sparks accounts add --forge gitlab --url gitlab.example.com --token glpat-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := &accounts.Fields{Kind: addForge, URL: addURL, Token: addToken}
		if fields.Token == "" {
			if err := accounts.NewForm(fields, false).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
		}

		kind, err := forge.ParseKind(fields.Kind)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			acct, err := a.Registry().Add(ctx, kind, fields.URL, fields.Token)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s (%s)\n", acct.DisplayName(), acct.ID)
			return nil
		})
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an account and its token",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Registry().Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		})
	},
}

// withApp builds the application for a one-shot command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, app.Options{
		Hidden:   true,
		Notifier: desktop.NewLogNotifier(logger.WithModule("desktop")),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func init() {
	accountsAddCmd.Flags().StringVar(&addForge, "forge", "", "forge kind (github, gitlab, gitea, forgejo)")
	accountsAddCmd.Flags().StringVar(&addURL, "url", "", "instance host for self-hosted forges")
	accountsAddCmd.Flags().StringVar(&addToken, "token", "", "access token")

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
}
