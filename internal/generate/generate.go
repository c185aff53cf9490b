// Package generate runs one content generation: template lookup, prompt
// fill, provider selection, rendering and the optional save/copy/history
// side effects.
package generate

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/history"
	"github.com/brolyroly007/contentforge/internal/llm"
	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/output"
	"github.com/brolyroly007/contentforge/internal/providers"
	"github.com/brolyroly007/contentforge/internal/templates"
)

// Options carries what the caller asked for. Nil pointers and empty strings
// fall back to the effective config.
type Options struct {
	TemplateID  string
	Values      map[string]string
	Provider    string
	Model       string
	Output      string
	Format      string
	Copy        bool
	Stream      *bool
	Temperature *float64
	MaxTokens   *int
}

// Outcome describes a finished generation.
type Outcome struct {
	Result   llm.Result
	Prompt   string
	Format   string
	Streamed bool
	SavedTo  string
	Copied   bool
}

// ProviderFactory builds the backend for a provider name and model override.
type ProviderFactory func(cfg *config.Config, name, model string) (llm.Provider, error)

// Runner holds the collaborators shared by every generation.
type Runner struct {
	Config    *config.Config
	Templates *templates.Registry
	Renderer  *output.Renderer

	// HomeDir locates the history database.
	HomeDir string

	NewProvider ProviderFactory
	Clipboard   func(string) error
	Log         *logging.StructuredLogger
}

// NewRunner wires the default provider factory and clipboard.
func NewRunner(cfg *config.Config, reg *templates.Registry, r *output.Renderer, homeDir string, log *logging.StructuredLogger) *Runner {
	if log == nil {
		log = logging.NewStructuredLogger(nil, "generate", false)
	}
	return &Runner{
		Config:      cfg,
		Templates:   reg,
		Renderer:    r,
		HomeDir:     homeDir,
		NewProvider: providers.New,
		Clipboard:   output.Copy,
		Log:         log,
	}
}

type settings struct {
	format      string
	stream      bool
	temperature float64
	maxTokens   int
}

func (r *Runner) resolve(opts Options) (settings, error) {
	s := settings{
		format:      strings.ToLower(opts.Format),
		stream:      r.Config.Stream,
		temperature: r.Config.DefaultTemperature,
		maxTokens:   r.Config.DefaultMaxTokens,
	}
	if s.format == "" {
		s.format = r.Config.DefaultFormat
	}
	if !config.ValidFormat(s.format) {
		return s, fmt.Errorf("Unknown format: %q. Available: %s", s.format, strings.Join(config.Formats, ", "))
	}
	if opts.Stream != nil {
		s.stream = *opts.Stream
	}
	if opts.Temperature != nil {
		s.temperature = *opts.Temperature
	}
	if s.temperature < 0 || s.temperature > 2 {
		return s, fmt.Errorf("temperature must be between 0.0 and 2.0 (got %g)", s.temperature)
	}
	if opts.MaxTokens != nil {
		s.maxTokens = *opts.MaxTokens
	}
	if s.maxTokens <= 0 {
		return s, fmt.Errorf("max tokens must be positive (got %d)", s.maxTokens)
	}
	return s, nil
}

// Run performs one generation. User input, configuration and backend errors
// are returned; clipboard and history failures only produce warnings.
func (r *Runner) Run(ctx context.Context, opts Options) (*Outcome, error) {
	s, err := r.resolve(opts)
	if err != nil {
		return nil, err
	}

	tpl, err := r.Templates.Get(opts.TemplateID)
	if err != nil {
		return nil, err
	}
	log := r.Log.WithTemplate(tpl.ID)

	prompt, err := tpl.Render(opts.Values)
	if err != nil {
		return nil, err
	}

	prov, err := r.NewProvider(r.Config, opts.Provider, opts.Model)
	if err != nil {
		return nil, err
	}
	logging.UserDim("Using %s/%s • template: %s", prov.Name(), prov.Model(), tpl.ID)

	req := llm.Request{
		Prompt:       prompt,
		SystemPrompt: tpl.SystemPrompt,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
	}
	out := &Outcome{Prompt: prompt, Format: s.format}

	start := time.Now()
	log.Info("generation started", map[string]interface{}{
		"provider": prov.Name(),
		"model":    prov.Model(),
		"format":   s.format,
		"stream":   s.stream && s.format != output.FormatJSON,
	})

	if s.stream && s.format != output.FormatJSON {
		out.Streamed = true
		content, err := r.Renderer.Stream(ctx, func(ctx context.Context) iter.Seq2[string, error] {
			return prov.Stream(ctx, req)
		}, s.format, tpl.Name)
		if err != nil {
			log.Error("stream failed", map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		out.Result = llm.NewResult(prov.Name(), prov.Model(), content, 0, "")
	} else {
		err := r.Renderer.Wait(ctx, "Generating...", func(ctx context.Context) error {
			res, err := prov.Generate(ctx, req)
			out.Result = res
			return err
		})
		if err != nil {
			log.Error("generation failed", map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		if err := r.Renderer.Render(out.Result, s.format, tpl.Name); err != nil {
			return nil, fmt.Errorf("render output: %w", err)
		}
	}

	log.Info("generation finished", map[string]interface{}{
		"tokens":      out.Result.TokensUsed,
		"chars":       len(out.Result.Content),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	logging.UserLog("generated %s with %s/%s", tpl.ID, prov.Name(), prov.Model())

	if opts.Output != "" {
		abs, err := output.Save(out.Result.Content, opts.Output)
		if err != nil {
			return nil, err
		}
		out.SavedTo = abs
		logging.UserSuccess("Saved to %s", abs)
	}

	if opts.Copy {
		if err := r.Clipboard(out.Result.Content); err != nil {
			logging.UserWarning("Could not copy to clipboard: %v", err)
			log.Warn("clipboard copy failed", map[string]interface{}{"error": err.Error()})
		} else {
			out.Copied = true
			logging.UserSuccess("Copied to clipboard")
		}
	}

	if r.Config.SaveHistory {
		r.record(ctx, tpl.ID, out)
	}
	return out, nil
}

func (r *Runner) record(ctx context.Context, templateID string, out *Outcome) {
	store, err := history.Open(ctx, history.Path(r.HomeDir))
	if err != nil {
		logging.UserWarning("History not saved: %v", err)
		return
	}
	defer store.Close()

	err = store.Record(ctx, &history.Entry{
		Template:   templateID,
		Provider:   out.Result.Provider,
		Model:      out.Result.Model,
		Format:     out.Format,
		Prompt:     out.Prompt,
		Content:    out.Result.Content,
		TokensUsed: out.Result.TokensUsed,
	})
	if err != nil {
		logging.UserWarning("History not saved: %v", err)
	}
}
