package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/logging"
)

func newConfigCmd(a *app) *cobra.Command {
	var reveal bool

	show := func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		var rows [][]string
		for _, key := range config.Keys() {
			value := cfg.Display(key)
			if !reveal && value != "" {
				value = config.Mask(key, value)
			}
			rows = append(rows, []string{key, orDash(value), cfg.Source(key)})
		}
		out := cmd.OutOrStdout()
		printTable(out, "ContentForge Configuration", []string{"Key", "Value", "Source"}, rows)
		fmt.Fprintln(out, dimStyle.Render("Config file: "+config.Path()))
		return nil
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change configuration",
		Args:  cobra.NoArgs,
		RunE:  show,
	}
	cmd.PersistentFlags().BoolVar(&reveal, "reveal", false, "Show API keys unmasked")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long:  "Set a configuration value and save it.\n\nKeys: " + strings.Join(config.SortedKeys(), ", "),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, value := args[0], args[1]
				cfg, err := config.Set(key, value)
				if err != nil {
					return err
				}
				logging.UserLog("config set %s", key)
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, config.Mask(key, cfg.Display(key)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), config.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a config file with defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := config.Path()
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", path)
					return nil
				}
				if err := config.Save(config.Default()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created config at %s\n", path)
				return nil
			},
		},
	)
	return cmd
}
