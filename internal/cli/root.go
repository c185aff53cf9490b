// Package cli holds the contentforge command tree.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/output"
	"github.com/brolyroly007/contentforge/internal/templates"
)

// TemplatesDirName is the directory under the home holding user template packs.
const TemplatesDirName = "templates"

// app is the state shared by every command of one invocation.
type app struct {
	version  string
	home     string
	registry *templates.Registry
	// packProblems are reported once a command actually runs.
	packProblems []error

	verbose bool
	logJSON bool
	closer  io.Closer
}

func newApp(version string) *app {
	a := &app{
		version:  version,
		home:     config.Dir(),
		registry: templates.Builtin(),
	}
	_, a.packProblems = a.registry.LoadDir(filepath.Join(a.home, TemplatesDirName))
	return a
}

func (a *app) renderer(cmd *cobra.Command) *output.Renderer {
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func (a *app) logger(component string) *logging.StructuredLogger {
	return logging.NewStructuredLogger(nil, component, a.logJSON)
}

// NewRootCmd builds the full command tree. Each call returns an independent
// tree, so tests can run commands side by side.
func NewRootCmd(version string) *cobra.Command {
	a := newApp(version)

	root := &cobra.Command{
		Use:   "contentforge",
		Short: "Generate marketing content with LLMs from prompt templates",
		Long: `contentforge fills prompt templates (blog posts, social posts, emails, ads,
SEO tags and more) and sends them to OpenAI, Gemini or a local Ollama server.

Configuration lives in ` + config.Path() + ` and can be overridden with
CONTENTFORGE_<KEY> environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Stdout = cmd.OutOrStdout()
			logging.Stderr = cmd.ErrOrStderr()
			a.closer = logging.Setup(a.home, a.verbose)
			logging.DevLog("contentforge %s: %s %v", a.version, cmd.CommandPath(), args)
			for _, p := range a.packProblems {
				logging.UserWarning("Template pack skipped: %v", p)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closer != nil {
				a.closer.Close()
			}
		},
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Mirror debug logging to stderr")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Write structured log lines as JSON")

	root.AddCommand(
		newGenerateCmd(a),
		newTemplatesCmd(a),
		newProvidersCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// Execute runs the command tree against os.Args. Interrupts cancel the
// command context.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd(version).ExecuteContext(ctx)
}
