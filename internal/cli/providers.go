package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/providers"
)

func newProvidersCmd(a *app) *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		var rows [][]string
		for _, p := range providers.List(cmd.Context(), cfg) {
			status := badStyle.Render("not configured")
			if p.Available {
				status = okStyle.Render("available")
			}
			models := p.Models
			more := ""
			if len(models) > 3 {
				models, more = models[:3], "..."
			}
			def := ""
			if p.Default {
				def = "*"
			}
			rows = append(rows, []string{p.Name, status, p.DefaultModel, strings.Join(models, ", ") + more, def})
		}
		out := cmd.OutOrStdout()
		printTable(out, "LLM Providers", []string{"Provider", "Status", "Default Model", "Models", "Default"}, rows)
		fmt.Fprintln(out, dimStyle.Render("Default provider: "+cfg.DefaultProvider))
		return nil
	}

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List LLM providers and their status",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List LLM providers and their status",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "check",
			Short: "Test connectivity to all providers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range providers.List(cmd.Context(), cfg) {
					if p.Available {
						fmt.Fprintf(out, "  %s %s: connected\n", okStyle.Render("✓"), p.Name)
					} else {
						fmt.Fprintf(out, "  %s %s: not available\n", badStyle.Render("✗"), p.Name)
					}
				}
				return nil
			},
		},
	)
	return cmd
}
