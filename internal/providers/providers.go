// Package providers builds the configured LLM backend. A provider is
// constructed fresh for each command; nothing is cached between calls.
package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/gemini"
	"github.com/brolyroly007/contentforge/internal/llm"
	"github.com/brolyroly007/contentforge/internal/llm/mockclient"
	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/ollama"
	"github.com/brolyroly007/contentforge/internal/openai"
	"github.com/brolyroly007/contentforge/internal/suggest"
)

// Names lists the supported providers in display order.
var Names = []string{openai.Name, gemini.Name, ollama.Name}

var knownModels = map[string][]string{
	openai.Name: openai.Models,
	gemini.Name: gemini.Models,
	ollama.Name: ollama.Models,
}

// credentialKeys maps key-based providers to the config field holding their key.
var credentialKeys = map[string]string{
	openai.Name: "openai_api_key",
	gemini.Name: "gemini_api_key",
}

var displayNames = map[string]string{
	openai.Name: "OpenAI",
	gemini.Name: "Gemini",
	ollama.Name: "Ollama",
}

var ErrUnknownProvider = errors.New("unknown provider")

// UnknownProviderError is returned for a provider name outside Names.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("Unknown provider: %q. Available: %s.%s",
		e.Name, strings.Join(Names, ", "), suggest.Hint(e.Name, Names))
}

func (e *UnknownProviderError) Is(target error) bool { return target == ErrUnknownProvider }

var ErrMissingCredential = errors.New("missing credential")

// MissingCredentialError names the config command that fixes it.
type MissingCredentialError struct {
	Provider string
	Key      string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s API key not configured. Run: contentforge config set %s YOUR_KEY",
		displayNames[e.Provider], e.Key)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

// Normalize lower-cases name and falls back to the configured default.
// It fails for names that are not supported.
func Normalize(cfg *config.Config, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = strings.ToLower(cfg.DefaultProvider)
	}
	if _, ok := knownModels[name]; !ok {
		return "", &UnknownProviderError{Name: name}
	}
	return name, nil
}

// New resolves name (or the configured default) and builds the backend with
// model, or the provider's configured default model when model is empty.
func New(cfg *config.Config, name, model string) (llm.Provider, error) {
	name, err := Normalize(cfg, name)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = cfg.ModelFor(name)
	}

	if mockEnabled() {
		logging.DevLog("providers: %s=1, using mock client for %s/%s", mockclient.EnvVar, name, model)
		return mockclient.New(name, model), nil
	}

	if key, ok := credentialKeys[name]; ok {
		if v, _ := cfg.Get(key); v == "" {
			return nil, &MissingCredentialError{Provider: name, Key: key}
		}
	}
	return build(cfg, name, model), nil
}

func build(cfg *config.Config, name, model string) llm.Provider {
	switch name {
	case openai.Name:
		return openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model, cfg.Timeout(), logging.Logger)
	case gemini.Name:
		return gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, model, cfg.Timeout(), logging.Logger)
	default:
		return ollama.NewClient(cfg.OllamaBaseURL, model, cfg.Timeout(), logging.Logger)
	}
}

func mockEnabled() bool {
	return os.Getenv(mockclient.EnvVar) == "1"
}

// Info describes one provider for `providers list` and `providers check`.
type Info struct {
	Name         string
	DefaultModel string
	Models       []string
	Available    bool
	Default      bool
}

// List reports every provider with its availability. Probes run concurrently;
// key-based providers answer without a network call.
func List(ctx context.Context, cfg *config.Config) []Info {
	infos := make([]Info, len(Names))
	def := strings.ToLower(cfg.DefaultProvider)

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range Names {
		model := cfg.ModelFor(name)
		infos[i] = Info{
			Name:         name,
			DefaultModel: model,
			Models:       knownModels[name],
			Default:      name == def,
		}

		var p llm.Provider
		if mockEnabled() {
			p = mockclient.New(name, model)
		} else {
			p = build(cfg, name, model)
		}
		g.Go(func() error {
			infos[i].Available = p.Available(ctx)
			logging.DevLog("providers: %s available=%v", name, infos[i].Available)
			return nil
		})
	}
	_ = g.Wait()
	return infos
}
