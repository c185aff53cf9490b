package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/history"
	"github.com/brolyroly007/contentforge/internal/llm"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	list := func(cmd *cobra.Command, args []string) error {
		var entries []history.Entry
		if exists(history.Path(a.home)) {
			store, err := history.Open(cmd.Context(), history.Path(a.home))
			if err != nil {
				return err
			}
			defer store.Close()

			if entries, err = store.List(cmd.Context(), limit); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No history yet.")
			if cfg, err := config.Load(); err == nil && !cfg.SaveHistory {
				fmt.Fprintln(out, dimStyle.Render("Enable it with: contentforge config set save_history true"))
			}
			return nil
		}

		var rows [][]string
		for _, e := range entries {
			rows = append(rows, []string{
				shortID(e.ID),
				humanize.Time(e.CreatedAt),
				e.Template,
				e.Provider + "/" + e.Model,
				humanize.Comma(int64(e.TokensUsed)),
			})
		}
		printTable(out, "Generation History", []string{"ID", "When", "Template", "Model", "Tokens"}, rows)
		return nil
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past generations",
		Long: `Browse past generations. Recording is off by default; turn it on with
"contentforge config set save_history true".`,
		Args: cobra.NoArgs,
		RunE: list,
	}
	cmd.PersistentFlags().IntVarP(&limit, "limit", "n", 20, "Number of entries to list (0 for all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recent generations",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a past generation (an id prefix is enough)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !exists(history.Path(a.home)) {
					return fmt.Errorf("%w: %s", history.ErrNotFound, args[0])
				}
				store, err := history.Open(cmd.Context(), history.Path(a.home))
				if err != nil {
					return err
				}
				defer store.Close()

				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("%s • %s/%s • %s • %s tokens",
					e.Template, e.Provider, e.Model, e.CreatedAt.Local().Format("2006-01-02 15:04"), humanize.Comma(int64(e.TokensUsed)))))

				title := e.Template
				if tpl, err := a.registry.Get(e.Template); err == nil {
					title = tpl.Name
				}
				res := llm.NewResult(e.Provider, e.Model, e.Content, e.TokensUsed, "")
				return a.renderer(cmd).Render(res, e.Format, title)
			},
		},
	)
	return cmd
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
