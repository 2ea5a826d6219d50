package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krasmussen37/ess/internal/app"
	"github.com/krasmussen37/ess/internal/cliout"
	"github.com/krasmussen37/ess/internal/domain"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage account configuration and state",
	}
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsAddCmd())
	cmd.AddCommand(newAccountsRemoveCmd())
	cmd.AddCommand(newAccountsSyncStatusCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				accounts, err := a.Store.ListAccounts(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, accounts)
				}
				if len(accounts) == 0 {
					fmt.Println("No accounts configured.")
					return nil
				}
				for _, account := range accounts {
					fmt.Printf("%s  %s  %s  provider=%s\n", account.ID, account.Address, account.Kind, account.Provider)
				}
				return nil
			})
		},
	}
}

func newAccountsAddCmd() *cobra.Command {
	var tenantFlag, providerFlag, nameFlag string

	cmd := &cobra.Command{
		Use:   "add <email> <professional|personal>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				kind, err := parseAccountKind(args[1])
				if err != nil {
					return err
				}

				address := strings.TrimSpace(args[0])
				provider := providerFlag
				if provider == "" {
					provider = "graph_api"
					if tenantFlag == "" && strings.HasSuffix(strings.ToLower(address), "@gmail.com") {
						provider = "gmail_api"
					}
				}
				if _, ok := a.Registry.Get(provider); !ok {
					return fmt.Errorf("unknown provider %q", provider)
				}

				account := domain.Account{
					ID:          strings.ToLower(address),
					Address:     address,
					DisplayName: nameFlag,
					Tenant:      tenantFlag,
					Kind:        kind,
					Provider:    provider,
					Enabled:     true,
				}
				if err := a.Store.UpsertAccount(ctx, &account); err != nil {
					return err
				}
				fmt.Printf("Added account: %s\n", account.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tenantFlag, "tenant-id", "", "Microsoft tenant id (Graph accounts)")
	cmd.Flags().StringVar(&providerFlag, "provider", "", "connector name (graph_api, gmail_api); inferred when omitted")
	cmd.Flags().StringVar(&nameFlag, "display-name", "", "display name")
	return cmd
}

func parseAccountKind(value string) (domain.AccountKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "professional", "pro":
		return domain.KindProfessional, nil
	case "personal":
		return domain.KindPersonal, nil
	default:
		return "", fmt.Errorf("invalid account type %q (use professional or personal)", value)
	}
}

func newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account_id>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				removed, err := a.Store.RemoveAccount(ctx, args[0])
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Printf("No account found: %s\n", args[0])
					return nil
				}
				fmt.Printf("Removed account: %s\n", args[0])
				return nil
			})
		},
	}
}

func newAccountsSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-status",
		Short: "Show per-account sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				accounts, err := a.Store.ListAccounts(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, accounts)
				}
				if len(accounts) == 0 {
					fmt.Println("No accounts configured.")
					return nil
				}
				for _, account := range accounts {
					lastSync := "never"
					if !account.LastSync.IsZero() {
						lastSync = account.LastSync.UTC().Format("2006-01-02 15:04:05")
					}
					fmt.Printf("%s  enabled=%t  last_sync=%s\n", account.ID, account.Enabled, lastSync)
				}
				return nil
			})
		},
	}
}
