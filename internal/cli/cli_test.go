package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brolyroly007/contentforge/internal/config"
	"github.com/brolyroly007/contentforge/internal/history"
	"github.com/brolyroly007/contentforge/internal/llm/mockclient"
	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/providers"
	"github.com/brolyroly007/contentforge/internal/templates"
)

// setupHome points the contentforge home at a temp dir and enables the mock
// provider. It returns the home path.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	t.Setenv(mockclient.EnvVar, "1")
	for _, key := range config.Keys() {
		name := config.EnvName(key)
		if _, ok := os.LookupEnv(name); ok {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}

	stdout, stderr := logging.Stdout, logging.Stderr
	t.Cleanup(func() {
		logging.Stdout, logging.Stderr = stdout, stderr
	})
	return home
}

// run executes one command line and returns what it wrote to stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd("test")
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersionFlag(t *testing.T) {
	setupHome(t)

	out, _, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if strings.TrimSpace(out) != "contentforge test" {
		t.Errorf("version output = %q", out)
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	setupHome(t)

	_, _, err := run(t, "generate", "blg")
	if !errors.Is(err, templates.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	msg := err.Error()
	for _, id := range []string{"blog", "social", "email", "tweet-thread", "ad", "seo", "product", "youtube"} {
		if !strings.Contains(msg, id) {
			t.Errorf("error %q does not list %q", msg, id)
		}
	}
	if !strings.Contains(msg, `Did you mean "blog"?`) {
		t.Errorf("error %q has no suggestion", msg)
	}
}

func TestGenerateWithMockProvider(t *testing.T) {
	setupHome(t)

	out, errOut, err := run(t, "generate", "blog", "--topic", "AI tools", "-f", "plain")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "MOCK RESPONSE:") || !strings.Contains(out, "AI tools") {
		t.Errorf("stdout = %q, want the mock echo of the prompt", out)
	}
	if !strings.Contains(errOut, "Using openai/gpt-4o-mini") {
		t.Errorf("stderr = %q, want provider banner", errOut)
	}
}

func TestGenerateJSONFormat(t *testing.T) {
	setupHome(t)

	out, _, err := run(t, "generate", "tweet-thread", "--topic", "Go", "-f", "json", "-p", "gemini")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{`"provider": "gemini"`, `"model": "gemini-2.0-flash"`, `"tokens_used": 49`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %s:\n%s", want, out)
		}
	}
}

func TestGenerateMissingField(t *testing.T) {
	setupHome(t)

	_, _, err := run(t, "generate", "ad", "--product", "Widget", "-f", "plain")
	if !errors.Is(err, templates.ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
}

func TestGenerateInvalidNumberField(t *testing.T) {
	setupHome(t)

	_, _, err := run(t, "generate", "blog", "--topic", "x", "--word-count", "many")
	if err == nil || !strings.Contains(err.Error(), "whole number") {
		t.Fatalf("err = %v, want number validation error", err)
	}
}

func TestGenerateStreamFlagsExclusive(t *testing.T) {
	setupHome(t)

	_, _, err := run(t, "generate", "blog", "--topic", "x", "--stream", "--no-stream")
	if err == nil {
		t.Fatal("expected an error for --stream with --no-stream")
	}
}

func TestGenerateMissingCredential(t *testing.T) {
	setupHome(t)
	t.Setenv(mockclient.EnvVar, "")

	_, _, err := run(t, "generate", "blog", "--topic", "x", "-p", "openai")
	if !errors.Is(err, providers.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if !strings.Contains(err.Error(), "contentforge config set openai_api_key") {
		t.Errorf("error %q has no setup hint", err)
	}
}

func TestGenerateUnknownProvider(t *testing.T) {
	setupHome(t)

	_, _, err := run(t, "generate", "blog", "--topic", "x", "-p", "claude")
	if !errors.Is(err, providers.ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestGenerateSavesOutput(t *testing.T) {
	setupHome(t)
	dest := filepath.Join(t.TempDir(), "out", "post.md")

	_, errOut, err := run(t, "generate", "blog", "--topic", "x", "-f", "plain", "-o", dest)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "MOCK RESPONSE") {
		t.Errorf("saved content = %q", data)
	}
	if !strings.Contains(errOut, "Saved to") {
		t.Errorf("stderr = %q, want save notice", errOut)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	home := setupHome(t)

	out, _, err := run(t, "config", "set", "default_provider", "gemini")
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	if !strings.Contains(out, "Set default_provider = gemini") {
		t.Errorf("set output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(home, config.FileName)); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, _, err = run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "gemini") {
		t.Errorf("show output missing new default:\n%s", out)
	}
	if !strings.Contains(out, filepath.Join(home, config.FileName)) {
		t.Errorf("show output missing config path:\n%s", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	setupHome(t)
	key := "sk-abcdefghijklmnopqrstuvwxyz"

	if _, _, err := run(t, "config", "set", "openai_api_key", key); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, _, err := run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, key) {
		t.Errorf("secret shown unmasked:\n%s", out)
	}
	if !strings.Contains(out, "sk-abcd...wxyz") {
		t.Errorf("masked secret missing:\n%s", out)
	}

	out, _, err = run(t, "config", "show", "--reveal")
	if err != nil {
		t.Fatalf("config show --reveal: %v", err)
	}
	if !strings.Contains(out, key) {
		t.Errorf("--reveal did not show the secret:\n%s", out)
	}
}

func TestConfigSetUnknownKey(t *testing.T) {
	setupHome(t)

	_, _, err := run(t, "config", "set", "default_provder", "gemini")
	if !errors.Is(err, config.ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
}

func TestConfigInit(t *testing.T) {
	home := setupHome(t)

	out, _, err := run(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Created config at") {
		t.Errorf("first init output = %q", out)
	}
	out, _, err = run(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Config already exists at "+filepath.Join(home, config.FileName)) {
		t.Errorf("second init output = %q", out)
	}
}

func TestTemplatesCommands(t *testing.T) {
	setupHome(t)

	out, _, err := run(t, "templates", "list")
	if err != nil {
		t.Fatalf("templates list: %v", err)
	}
	for _, want := range []string{"blog", "Blog Post", "youtube", "generate <id> --help"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q", want)
		}
	}

	out, _, err = run(t, "templates", "show", "blog")
	if err != nil {
		t.Fatalf("templates show: %v", err)
	}
	for _, want := range []string{"--topic", "--word-count", "professional", "contentforge generate blog --topic 'AI trends in 2026'"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, _, err = run(t, "templates", "export", "seo")
	if err != nil {
		t.Fatalf("templates export: %v", err)
	}
	if !strings.Contains(out, "id: seo") {
		t.Errorf("export output = %q", out)
	}

	if _, _, err := run(t, "templates", "show", "nope"); !errors.Is(err, templates.ErrNotFound) {
		t.Errorf("show nope: err = %v, want ErrNotFound", err)
	}
}

func TestUserTemplatePack(t *testing.T) {
	home := setupHome(t)
	dir := filepath.Join(home, TemplatesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	pack := `templates:
  - id: haiku
    name: Haiku
    description: Write a haiku.
    category: fun
    fields:
      - name: subject
    user_prompt: Write a haiku about {subject}.
`
	if err := os.WriteFile(filepath.Join(dir, "haiku.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, "templates")
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	if !strings.Contains(out, "haiku *") {
		t.Errorf("user template not marked in list:\n%s", out)
	}

	out, _, err = run(t, "generate", "haiku", "--subject", "rain", "-f", "plain")
	if err != nil {
		t.Fatalf("generate haiku: %v", err)
	}
	if !strings.Contains(out, "Write a haiku about rain.") {
		t.Errorf("stdout = %q", out)
	}
}

func TestProvidersCommands(t *testing.T) {
	setupHome(t)

	out, _, err := run(t, "providers")
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	for _, want := range []string{"openai", "gemini", "ollama", "gpt-4o-mini", "Default provider: openai"} {
		if !strings.Contains(out, want) {
			t.Errorf("providers output missing %q:\n%s", want, out)
		}
	}

	out, _, err = run(t, "providers", "check")
	if err != nil {
		t.Fatalf("providers check: %v", err)
	}
	if got := strings.Count(out, "connected"); got != 3 {
		t.Errorf("check reported %d connected providers, want 3:\n%s", got, out)
	}
}

func TestHistoryCommands(t *testing.T) {
	home := setupHome(t)

	out, _, err := run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No history yet") || !strings.Contains(out, "save_history true") {
		t.Errorf("empty history output = %q", out)
	}
	if _, err := os.Stat(history.Path(home)); !os.IsNotExist(err) {
		t.Errorf("browsing history created the database: %v", err)
	}
	if _, _, err := run(t, "history", "show", "abc"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("show without database: err = %v, want ErrNotFound", err)
	}

	if _, _, err := run(t, "config", "set", "save_history", "true"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, _, err := run(t, "generate", "seo", "--keyword", "golang", "-f", "plain", "--no-stream"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	out, _, err = run(t, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	for _, want := range []string{"seo", "openai/gpt-4o-mini", "49"} {
		if !strings.Contains(out, want) {
			t.Errorf("history list missing %q:\n%s", want, out)
		}
	}

	store, err := history.Open(context.Background(), history.Path(home))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	entries, err := store.List(context.Background(), 1)
	store.Close()
	if err != nil || len(entries) != 1 {
		t.Fatalf("history entries = %v, %v", entries, err)
	}

	out, _, err = run(t, "history", "show", entries[0].ID[:8])
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(out, "golang") {
		t.Errorf("history show output = %q", out)
	}

	if _, _, err := run(t, "history", "show", "zzzzzzzz"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("show unknown id: err = %v, want ErrNotFound", err)
	}
}
