package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinRegistrationOrder(t *testing.T) {
	r := Builtin()
	want := []string{"blog", "social", "email", "tweet-thread", "ad", "seo", "product", "youtube"}

	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("got %d templates, want %d", len(list), len(want))
	}
	for i, tpl := range list {
		if tpl.ID != want[i] {
			t.Errorf("position %d: got %q, want %q", i, tpl.ID, want[i])
		}
		if !r.IsBuiltin(tpl.ID) {
			t.Errorf("%s should be marked built-in", tpl.ID)
		}
	}
}

func TestGetUnknownListsSortedIDs(t *testing.T) {
	r := Builtin()
	_, err := r.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	want := "ad, blog, email, product, seo, social, tweet-thread, youtube"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should list %q", err, want)
	}
}

func TestGetSuggestsCloseMatch(t *testing.T) {
	_, err := Builtin().Get("youtub")
	if err == nil || !strings.Contains(err.Error(), `Did you mean "youtube"?`) {
		t.Errorf("expected suggestion, got %v", err)
	}
}

func TestEveryPlaceholderResolvable(t *testing.T) {
	for _, tpl := range Builtin().List() {
		t.Run(tpl.ID, func(t *testing.T) {
			// Only required fields without defaults are supplied by the caller.
			supplied := map[string]string{}
			for _, f := range tpl.RequiredFields() {
				supplied[f.Name] = "x"
			}
			if _, err := tpl.Render(supplied); err != nil {
				t.Errorf("Render with required fields only: %v", err)
			}
			for _, f := range tpl.Fields {
				if f.Type == FieldSelect && len(f.Options) == 0 {
					t.Errorf("select field %s has no options", f.Name)
				}
			}
		})
	}
}

func TestBlogScenario(t *testing.T) {
	tpl, err := Builtin().Get("blog")
	if err != nil {
		t.Fatal(err)
	}
	got, err := tpl.Render(map[string]string{"topic": "AI", "keywords": ""})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Write a professional blog post about: AI\n\nTarget approximately 800 words.\n"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	got, err = tpl.Render(map[string]string{"topic": "AI", "keywords": "llm, agents", "tone": "casual"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "Write a casual blog post about: AI") {
		t.Errorf("tone not applied: %q", got)
	}
	if !strings.HasSuffix(got, "Include these SEO keywords naturally: llm, agents") {
		t.Errorf("keywords line missing: %q", got)
	}
}

func TestRenderMissingRequiredField(t *testing.T) {
	tpl, _ := Builtin().Get("email")
	_, err := tpl.Render(map[string]string{"type": "newsletter"})

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != "subject" {
		t.Errorf("Field = %q, want subject", missing.Field)
	}
	if !errors.Is(err, ErrMissingField) {
		t.Error("errors.Is(ErrMissingField) should hold")
	}
}

func TestResolve(t *testing.T) {
	tpl, _ := Builtin().Get("product")
	values := Resolve(tpl, map[string]string{"name": "Widget", "tone": ""})

	tests := map[string]string{
		"name":       "Widget",
		"tone":       "friendly", // empty supplied value falls back to the default
		"audience":   "",
		KeywordsLine: "",
	}
	for k, want := range tests {
		if got, ok := values[k]; !ok || got != want {
			t.Errorf("%s = %q (present=%v), want %q", k, got, ok, want)
		}
	}
	if _, ok := values["features"]; ok {
		t.Error("required field without default must stay unresolved")
	}
}

func TestFill(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		values  map[string]string
		want    string
		wantErr bool
	}{
		{"simple", "Hi {name}!", map[string]string{"name": "Ann"}, "Hi Ann!", false},
		{"repeat", "{a}-{a}", map[string]string{"a": "x"}, "x-x", false},
		{"escaped braces", "{{literal}} {a}", map[string]string{"a": "x"}, "{literal} x", false},
		{"extra values ignored", "{a}", map[string]string{"a": "1", "b": "2"}, "1", false},
		{"missing", "{a} {b}", map[string]string{"a": "1"}, "", true},
		{"unclosed", "{a", nil, "", true},
		{"malformed", "{a b}", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fill(tt.pattern, tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got, err := Placeholders("{b} {a} {b} {{c}}")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "b,a" {
		t.Errorf("got %v", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() Template {
		return Template{
			ID:         "t",
			Name:       "T",
			UserPrompt: "{a} {keywords_line}",
			Fields:     []Field{{Name: "a", Label: "A", Type: FieldText, Required: true}},
		}
	}
	tests := []struct {
		name   string
		modify func(*Template)
		errStr string
	}{
		{"valid", func(*Template) {}, ""},
		{"select without options", func(tp *Template) {
			tp.Fields = append(tp.Fields, Field{Name: "s", Type: FieldSelect})
		}, "has no options"},
		{"default not an option", func(tp *Template) {
			tp.Fields = append(tp.Fields, Field{Name: "s", Type: FieldSelect, Options: []string{"x"}, Default: "y"})
		}, "is not an option"},
		{"unresolvable placeholder", func(tp *Template) { tp.UserPrompt = "{a} {zzz}" }, "placeholder {zzz}"},
		{"duplicate field", func(tp *Template) { tp.Fields = append(tp.Fields, tp.Fields[0]) }, "duplicate field"},
		{"unknown type", func(tp *Template) { tp.Fields[0].Type = "date" }, "unknown type"},
		{"missing id", func(tp *Template) { tp.ID = "" }, "id must be set"},
		{"bad output format", func(tp *Template) { tp.OutputFormat = "html" }, "unknown output_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := base()
			tt.modify(&tpl)
			err := Validate(tpl)
			if tt.errStr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errStr) {
				t.Errorf("expected error containing %q, got %v", tt.errStr, err)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	good := `templates:
  - id: press-release
    name: Press Release
    description: Announce news.
    category: pr
    fields:
      - name: headline
        label: Headline
      - name: quote
        label: Quote
        required: false
    system_prompt: You write press releases.
    user_prompt: "Write a press release: {headline}\nQuote: {quote}"
`
	shadow := `templates:
  - id: blog
    name: Fake Blog
    user_prompt: "{topic}"
    fields:
      - name: topic
        label: Topic
`
	broken := "templates: [this is: not valid"

	for name, body := range map[string]string{"good.yaml": good, "shadow.yml": shadow, "broken.yaml": broken, "notes.txt": "ignored"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := Builtin()
	loaded, problems := r.LoadDir(dir)
	if len(loaded) != 1 || loaded[0] != "press-release" {
		t.Errorf("loaded = %v", loaded)
	}
	if len(problems) != 2 {
		t.Errorf("expected 2 problems, got %v", problems)
	}

	tpl, err := r.Get("press-release")
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := tpl.Field("headline"); !f.Required || f.Type != FieldText {
		t.Errorf("field defaults not applied: %+v", f)
	}
	if f, _ := tpl.Field("quote"); f.Required {
		t.Error("explicit required: false ignored")
	}
	if got, _ := r.Get("blog"); got.Name != "Blog Post" {
		t.Error("built-in template was replaced")
	}
	if ids := r.IDs(); len(ids) != 9 {
		t.Errorf("expected 9 ids, got %v", ids)
	}
}

func TestLoadDirMissing(t *testing.T) {
	loaded, problems := Builtin().LoadDir(filepath.Join(t.TempDir(), "absent"))
	if len(loaded) != 0 || len(problems) != 0 {
		t.Errorf("missing dir should be a no-op, got %v %v", loaded, problems)
	}
}

func TestExportRoundTrip(t *testing.T) {
	tpl, _ := Builtin().Get("social")
	data, err := Export(tpl)
	if err != nil {
		t.Fatal(err)
	}
	pack, err := parsePack(data)
	if err != nil {
		t.Fatalf("exported pack does not parse: %v\n%s", err, data)
	}
	got := pack.Templates[0]
	if got.UserPrompt != tpl.UserPrompt || got.SystemPrompt != tpl.SystemPrompt {
		t.Error("prompts changed through export")
	}
	if f, _ := got.Field("include_hashtags"); f.Required || f.FlagName() != "hashtags" {
		t.Errorf("field attributes lost: %+v", f)
	}
}

func TestFlagName(t *testing.T) {
	tpl, _ := Builtin().Get("seo")
	f, _ := tpl.Field("secondary_keywords")
	if f.FlagName() != "secondary-keywords" {
		t.Errorf("FlagName = %q", f.FlagName())
	}
}
