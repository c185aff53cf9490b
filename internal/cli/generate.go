package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/generate"
	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/templates"
)

type generateFlags struct {
	provider    string
	model       string
	output      string
	format      string
	copy        bool
	stream      bool
	noStream    bool
	temperature float64
	maxTokens   int
	interactive bool
}

// reservedFlags are the shared generation flags; template fields may not reuse them.
var reservedFlags = map[string]bool{
	"provider": true, "model": true, "output": true, "format": true, "copy": true,
	"stream": true, "no-stream": true, "temperature": true, "max-tokens": true,
	"interactive": true, "verbose": true, "log-json": true, "help": true,
}

func newGenerateCmd(a *app) *cobra.Command {
	gf := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate <template> [flags]",
		Short: "Generate content from a template",
		Long: `Generate content from one of the templates. Each template is a subcommand
with its own field flags; see "contentforge templates show <id>".`,
		Args: cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{
			UnknownFlags: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			// Only reached for ids without a subcommand.
			_, err := a.registry.Get(args[0])
			return err
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&gf.provider, "provider", "p", "", "LLM provider (openai/gemini/ollama)")
	pf.StringVarP(&gf.model, "model", "m", "", "Model override")
	pf.StringVarP(&gf.output, "output", "o", "", "Save to file")
	pf.StringVarP(&gf.format, "format", "f", "", "Output format (markdown/plain/json)")
	pf.BoolVar(&gf.copy, "copy", false, "Copy result to clipboard")
	pf.BoolVar(&gf.stream, "stream", false, "Stream the response as it is generated")
	pf.BoolVar(&gf.noStream, "no-stream", false, "Wait for the full response before printing")
	pf.Float64Var(&gf.temperature, "temperature", 0, "Sampling temperature (0.0-2.0)")
	pf.IntVar(&gf.maxTokens, "max-tokens", 0, "Max output tokens")
	pf.BoolVarP(&gf.interactive, "interactive", "i", false, "Prompt for fields not given as flags")
	cmd.MarkFlagsMutuallyExclusive("stream", "no-stream")

	for _, tpl := range a.registry.List() {
		cmd.AddCommand(newTemplateCmd(a, tpl, gf))
	}
	return cmd
}

func newTemplateCmd(a *app, tpl templates.Template, gf *generateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   tpl.ID,
		Short: tpl.Description,
		Args:  cobra.NoArgs,
	}
	if tpl.Example != "" {
		cmd.Example = "  " + tpl.Example
	}

	flagFields := map[string]templates.Field{}
	for _, f := range tpl.Fields {
		name := f.FlagName()
		if reservedFlags[name] {
			logging.DevLog("generate: field %s.%s hidden, --%s is a shared flag", tpl.ID, f.Name, name)
			continue
		}
		cmd.Flags().String(name, f.Default, fieldUsage(f))
		flagFields[name] = f
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		values, err := fieldValues(cmd.Flags(), flagFields)
		if err != nil {
			return err
		}
		if gf.interactive {
			if err := promptMissing(tpl, cmd.Flags(), values); err != nil {
				return err
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		opts := generate.Options{
			TemplateID: tpl.ID,
			Values:     values,
			Provider:   gf.provider,
			Model:      gf.model,
			Output:     gf.output,
			Format:     gf.format,
			Copy:       gf.copy,
		}
		flags := cmd.Flags()
		switch {
		case flags.Changed("stream"):
			opts.Stream = boolPtr(gf.stream)
		case flags.Changed("no-stream"):
			opts.Stream = boolPtr(!gf.noStream)
		}
		if flags.Changed("temperature") {
			t := gf.temperature
			opts.Temperature = &t
		}
		if flags.Changed("max-tokens") {
			n := gf.maxTokens
			opts.MaxTokens = &n
		}

		runner := generate.NewRunner(cfg, a.registry, a.renderer(cmd), a.home, a.logger("generate"))
		_, err = runner.Run(cmd.Context(), opts)
		return err
	}
	return cmd
}

func fieldUsage(f templates.Field) string {
	usage := f.Label
	if usage == "" {
		usage = f.Name
	}
	if len(f.Options) > 0 {
		usage += ": " + strings.Join(f.Options, "/")
	} else if f.Placeholder != "" {
		usage += " (" + f.Placeholder + ")"
	}
	if f.Required && f.Default == "" {
		usage += " (required)"
	}
	return usage
}

// fieldValues reads every template flag, keyed by field name.
func fieldValues(flags *pflag.FlagSet, fields map[string]templates.Field) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for name, f := range fields {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		v = strings.TrimSpace(v)
		if f.Type == templates.FieldNumber && v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("--%s must be a whole number (got %q)", name, v)
			}
		}
		values[f.Name] = v
	}
	return values, nil
}

func boolPtr(b bool) *bool { return &b }
