package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/krasmussen37/ess/internal/app"
	"github.com/krasmussen37/ess/internal/cliout"
	"github.com/krasmussen37/ess/internal/domain"
)

func newSyncCmd() *cobra.Command {
	var accountFlag string
	var fullFlag, watchFlag bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync from configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				accounts, err := a.ResolveAccounts(ctx, accountFlag)
				if err != nil {
					return err
				}

				if fullFlag {
					fmt.Fprintln(os.Stderr, "--full requested: stored sync cursors are kept, so this runs the same pass as a plain sync")
				}

				if !watchFlag {
					return runSyncCycle(ctx, a, accounts)
				}

				interval := a.WatchInterval()
				for {
					if err := runSyncCycle(ctx, a, accounts); err != nil {
						return err
					}
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(interval):
					}
				}
			})
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "sync only this account id")
	cmd.Flags().BoolVar(&fullFlag, "full", false, "accepted, but stored sync cursors are not reset: the pass is the same as a plain sync")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "keep syncing on an interval until interrupted")
	return cmd
}

func runSyncCycle(ctx context.Context, a *app.App, accounts []domain.Account) error {
	results := a.SyncAccounts(ctx, accounts)

	if jsonFlag {
		type jsonResult struct {
			AccountID string   `json:"account_id"`
			Added     int      `json:"added"`
			Updated   int      `json:"updated"`
			Removed   int      `json:"removed"`
			Errors    []string `json:"errors"`
			Fatal     string   `json:"fatal,omitempty"`
		}
		out := make([]jsonResult, 0, len(results))
		for _, r := range results {
			row := jsonResult{
				AccountID: r.Account.ID,
				Added:     r.Report.Added,
				Updated:   r.Report.Updated,
				Removed:   r.Report.Removed,
				Errors:    r.Report.Errors,
			}
			if r.Err != nil {
				row.Fatal = r.Err.Error()
			}
			out = append(out, row)
		}
		if err := cliout.PrintJSON(os.Stdout, out); err != nil {
			return err
		}
	} else {
		summaries := make([]cliout.AccountSummary, 0, len(results))
		for _, r := range results {
			summaries = append(summaries, cliout.AccountSummary{
				AccountID: r.Account.ID,
				Added:     r.Report.Added,
				Updated:   r.Report.Updated,
				Removed:   r.Report.Removed,
				Errors:    len(r.Report.Errors),
				Err:       r.Err,
			})
		}
		cliout.WriteSyncReports(os.Stdout, summaries)
	}

	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("sync failed for account %s: %w", r.Account.ID, r.Err)
		}
	}
	return nil
}

func newImportCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import emails from a JSON archive path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				account, err := a.ResolveSingleAccount(ctx, accountFlag)
				if err != nil {
					return err
				}

				conn, ok := a.Registry.Get("json_archive")
				if !ok {
					return fmt.Errorf("json_archive connector is not registered")
				}

				report, err := conn.Import(ctx, a.Store, a.Index, args[0], account)
				if err != nil {
					return fmt.Errorf("failed to import archive path %s: %w", args[0], err)
				}

				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, struct {
						FilesProcessed int      `json:"files_processed"`
						EmailsImported int      `json:"emails_imported"`
						Errors         []string `json:"errors"`
					}{report.FilesProcessed, report.Imported, report.Errors})
				}

				fmt.Println("Import complete")
				fmt.Printf("Files processed: %d\n", report.FilesProcessed)
				fmt.Printf("Emails imported: %d\n", report.Imported)
				fmt.Printf("Errors: %d\n", len(report.Errors))
				for _, line := range report.Errors {
					fmt.Printf("- %s\n", line)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account id to import into")
	return cmd
}
