package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krasmussen37/ess/internal/app"
	"github.com/krasmussen37/ess/internal/cliout"
	"github.com/krasmussen37/ess/internal/mcp"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store and index stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Store.Stats(ctx)
				if err != nil {
					return err
				}
				ixStats, err := a.Index.Stats()
				if err != nil {
					return err
				}

				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, struct {
						Accounts  int    `json:"accounts"`
						Emails    int    `json:"emails"`
						Contacts  int    `json:"contacts"`
						IndexDocs uint64 `json:"index_docs"`
						IndexSize uint64 `json:"index_size_bytes"`
					}{st.Accounts, st.Emails, st.Contacts, ixStats.DocCount, ixStats.SizeBytes})
				}
				return cliout.WriteStats(os.Stdout, st, ixStats)
			})
		},
	}
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				indexed, err := a.Index.Reindex(ctx, a.Store)
				if err != nil {
					return err
				}
				fmt.Printf("Reindex complete: %d emails indexed.\n", indexed)
				return nil
			})
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the tool server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			// The server opens the store and index on demand, so starting it
			// against an empty data directory is valid.
			return mcp.NewServer().Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
