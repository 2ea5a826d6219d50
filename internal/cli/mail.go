package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/krasmussen37/ess/internal/app"
	"github.com/krasmussen37/ess/internal/cliout"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/filter"
	"github.com/krasmussen37/ess/internal/store"
)

func parseDateFlag(label, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q, expected YYYY-MM-DD", label, value)
	}
	return &t, nil
}

func newSearchCmd() *cobra.Command {
	var fromFlag, sinceFlag, untilFlag, accountFlag, folderFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed emails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sc, err := scope()
				if err != nil {
					return err
				}
				since, err := parseDateFlag("since", sinceFlag)
				if err != nil {
					return err
				}
				until, err := parseDateFlag("until", untilFlag)
				if err != nil {
					return err
				}

				results, err := a.Search.Search(ctx, filter.Filter{
					Query:   args[0],
					Scope:   sc,
					From:    fromFlag,
					Since:   since,
					Until:   until,
					Account: accountFlag,
					Folder:  folderFlag,
					Limit:   limitFlag,
				})
				if err != nil {
					return err
				}

				if jsonFlag {
					type jsonResult struct {
						Email   domain.Email `json:"email"`
						Score   float64      `json:"score"`
						Snippet string       `json:"snippet,omitempty"`
					}
					out := make([]jsonResult, 0, len(results))
					for _, r := range results {
						out = append(out, jsonResult{Email: r.Email, Score: r.Score, Snippet: r.Snippet})
					}
					return cliout.PrintJSON(os.Stdout, out)
				}
				return cliout.WriteSearchResults(os.Stdout, results)
			})
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "filter by sender address")
	cmd.Flags().StringVar(&sinceFlag, "since", "", "only emails received on/after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&untilFlag, "until", "", "only emails received on/before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&accountFlag, "account", "", "filter by account id")
	cmd.Flags().StringVar(&folderFlag, "folder", "", "filter by folder label")
	cmd.Flags().IntVar(&limitFlag, "limit", 25, "max results")
	return cmd
}

func newListCmd() *cobra.Command {
	var fromFlag, accountFlag string
	var unreadFlag bool
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List emails with optional filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sc, err := scope()
				if err != nil {
					return err
				}

				var kind domain.AccountKind
				switch sc {
				case filter.ScopeProfessional:
					kind = domain.KindProfessional
				case filter.ScopePersonal:
					kind = domain.KindPersonal
				}

				emails, err := a.Store.SearchEmails(ctx, store.SearchFilters{
					AccountID:   accountFlag,
					Kind:        kind,
					FromAddress: fromFlag,
					Limit:       limitFlag,
				})
				if err != nil {
					return err
				}

				if unreadFlag {
					filtered := emails[:0]
					for _, e := range emails {
						if !e.IsRead {
							filtered = append(filtered, e)
						}
					}
					emails = filtered
				}

				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, emails)
				}
				return cliout.WriteEmailList(os.Stdout, emails)
			})
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "filter by sender address")
	cmd.Flags().BoolVar(&unreadFlag, "unread", false, "only unread emails")
	cmd.Flags().StringVar(&accountFlag, "account", "", "filter by account id")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "max emails to show")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one email by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				email, err := a.Store.GetEmail(ctx, args[0])
				if err != nil {
					return err
				}
				if email == nil {
					return fmt.Errorf("email not found for id %q", args[0])
				}
				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, email)
				}
				return cliout.WriteEmail(os.Stdout, *email)
			})
		},
	}
}

func newThreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thread <conversation_id>",
		Short: "Show all messages in a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				emails, err := a.Store.GetEmailsByConversation(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, emails)
				}
				return cliout.WriteThread(os.Stdout, emails)
			})
		},
	}
}

func newContactsCmd() *cobra.Command {
	var queryFlag string

	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List or search contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				contacts, err := a.Store.GetContacts(ctx, queryFlag)
				if err != nil {
					return err
				}
				if jsonFlag {
					return cliout.PrintJSON(os.Stdout, contacts)
				}
				return cliout.WriteContacts(os.Stdout, contacts)
			})
		},
	}

	cmd.Flags().StringVar(&queryFlag, "query", "", "substring match on address or name")
	return cmd
}
