package cli

import (
	"fmt"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/brolyroly007/contentforge/internal/templates"
)

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and inspect content templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplatesList(a, cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTemplatesList(a, cmd)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a template's fields and an example command",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tpl, err := a.registry.Get(args[0])
				if err != nil {
					return err
				}
				showTemplate(cmd, tpl)
				return nil
			},
		},
		&cobra.Command{
			Use:   "export <id>",
			Short: "Print a template as a YAML pack",
			Long: `Print a template as a YAML pack. Save it under the templates directory
of the contentforge home with a new id to create your own template.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tpl, err := a.registry.Get(args[0])
				if err != nil {
					return err
				}
				data, err := templates.Export(tpl)
				if err != nil {
					return fmt.Errorf("export %s: %w", tpl.ID, err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
	)
	return cmd
}

func runTemplatesList(a *app, cmd *cobra.Command) error {
	var rows [][]string
	for _, tpl := range a.registry.List() {
		id := tpl.ID
		if !a.registry.IsBuiltin(id) {
			id += " *"
		}
		rows = append(rows, []string{id, tpl.Name, tpl.Category, tpl.Description})
	}
	out := cmd.OutOrStdout()
	printTable(out, "Content Templates", []string{"ID", "Name", "Category", "Description"}, rows)
	fmt.Fprintln(out, dimStyle.Render("Usage: contentforge generate <id> --help"))
	return nil
}

func showTemplate(cmd *cobra.Command, tpl templates.Template) {
	out := cmd.OutOrStdout()

	header := titleStyle.Render(tpl.Name) + "\n" + tpl.Description + "\n" +
		dimStyle.Render(fmt.Sprintf("Category: %s  •  Output: %s", tpl.Category, orDash(tpl.OutputFormat)))
	fmt.Fprintln(out, panelStyle.Render(header))

	var rows [][]string
	for _, f := range tpl.Fields {
		required := "no"
		if f.Required && f.Default == "" {
			required = "yes"
		}
		detail := f.Default
		if len(f.Options) > 0 {
			detail = strings.Join(f.Options, ", ")
			if f.Default != "" {
				detail += " (default " + f.Default + ")"
			}
		}
		rows = append(rows, []string{"--" + f.FlagName(), string(f.Type), required, orDash(detail)})
	}
	printTable(out, "Fields", []string{"Flag", "Type", "Required", "Default / Options"}, rows)

	fmt.Fprintln(out, titleStyle.Render("Example"))
	fmt.Fprintln(out, "  "+exampleCommand(tpl))
	if tpl.Example != "" {
		fmt.Fprintln(out, "  "+tpl.Example)
	}
}

// exampleCommand builds a runnable command line from the required fields.
func exampleCommand(tpl templates.Template) string {
	args := []string{"contentforge", "generate", tpl.ID}
	for _, f := range tpl.RequiredFields() {
		v := strings.TrimPrefix(f.Placeholder, "e.g. ")
		if v == "" || v == "comma-separated" {
			v = strings.ToUpper(f.Name)
		}
		args = append(args, "--"+f.FlagName(), v)
	}
	return shellquote.Join(args...)
}
