// Package cli is the cobra command tree over the core: search, list,
// show, thread, sync, import, contacts, accounts, stats, reindex, and
// the stdio tool server.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krasmussen37/ess/internal/app"
	"github.com/krasmussen37/ess/internal/filter"
)

var (
	// version is set via ldflags at build time.
	version = "dev"

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool

	// scopeFlag filters account scope everywhere (pro|personal|all).
	scopeFlag string
)

// NewRootCmd builds the ess command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ess",
		Short:         "Email Search Service",
		Long:          "Personal email search: sync from Microsoft Graph and Gmail, import JSON archives, and search everything locally.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("ess %s\n", version))
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output structured JSON")
	root.PersistentFlags().StringVar(&scopeFlag, "scope", "all", "filter account scope (pro, personal, all)")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newThreadCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newContactsCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newReindexCmd())
	root.AddCommand(newMCPCmd())
	return root
}

// Execute runs the command tree, exiting 1 on any error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp opens the shared App for one command invocation and closes it
// when the command returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// scope parses the global --scope flag.
func scope() (filter.Scope, error) {
	return filter.ParseScope(scopeFlag)
}
