package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/suggest"
)

//go:embed builtin.yaml
var builtinYAML []byte

// ErrNotFound is matched by NotFoundError.
var ErrNotFound = errors.New("template not found")

// NotFoundError reports an unknown template id together with the valid ones.
type NotFoundError struct {
	ID    string
	Valid []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Unknown template: %q. Available: %s.%s",
		e.ID, strings.Join(e.Valid, ", "), suggest.Hint(e.ID, e.Valid))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Registry holds templates in registration order. It is filled once at startup
// and only read afterwards.
type Registry struct {
	order []string
	byID  map[string]Template
	// builtin marks ids that packs may not replace.
	builtin map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]Template{}, builtin: map[string]bool{}}
}

// Builtin returns a registry holding the bundled templates.
func Builtin() *Registry {
	r := NewRegistry()
	pack, err := parsePack(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("templates: bundled pack: %v", err))
	}
	for _, t := range pack.Templates {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("templates: bundled pack: %v", err))
		}
		r.builtin[t.ID] = true
	}
	return r
}

// Register validates t and appends it.
func (r *Registry) Register(t Template) error {
	if err := Validate(t); err != nil {
		return err
	}
	if _, exists := r.byID[t.ID]; exists {
		return fmt.Errorf("template %q already registered", t.ID)
	}
	r.order = append(r.order, t.ID)
	r.byID[t.ID] = t
	return nil
}

// Get returns the template with the given id.
func (r *Registry) Get(id string) (Template, error) {
	t, ok := r.byID[id]
	if !ok {
		return Template{}, &NotFoundError{ID: id, Valid: r.IDs()}
	}
	return t, nil
}

// List returns templates in registration order.
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns all ids sorted alphabetically.
func (r *Registry) IDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// IsBuiltin reports whether id is one of the bundled templates.
func (r *Registry) IsBuiltin(id string) bool {
	return r.builtin[id]
}

// LoadDir registers every *.yaml / *.yml pack in dir. A missing directory is
// not an error. Invalid packs are skipped and reported in the returned slice
// so one bad file does not hide the others.
func (r *Registry) LoadDir(dir string) (loaded []string, problems []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			problems = append(problems, fmt.Errorf("read template dir: %w", err))
		}
		return nil, problems
	}

	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		pack, err := parsePack(data)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		for _, t := range pack.Templates {
			if r.builtin[t.ID] {
				problems = append(problems, fmt.Errorf("%s: template %q shadows a built-in template", entry.Name(), t.ID))
				continue
			}
			if err := r.Register(t); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", entry.Name(), err))
				continue
			}
			logging.DevLog("templates: loaded %q from %s", t.ID, path)
			loaded = append(loaded, t.ID)
		}
	}
	return loaded, problems
}

// Export renders a template as a single-template pack document.
func Export(t Template) ([]byte, error) {
	return yaml.Marshal(Pack{Templates: []Template{t}})
}

func parsePack(data []byte) (Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return Pack{}, fmt.Errorf("parse template pack: %w", err)
	}
	if len(pack.Templates) == 0 {
		return Pack{}, errors.New("template pack defines no templates")
	}
	return pack, nil
}

// Validate checks the structural invariants of a template: unique field
// names, options on select fields, and a user prompt whose placeholders all
// resolve to a field or a derived value.
func Validate(t Template) error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("template id must be set")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template %q: name must be set", t.ID)
	}
	if strings.TrimSpace(t.UserPrompt) == "" {
		return fmt.Errorf("template %q: user_prompt must be set", t.ID)
	}
	switch t.OutputFormat {
	case "", FormatMarkdown, FormatStructured:
	default:
		return fmt.Errorf("template %q: unknown output_format %q", t.ID, t.OutputFormat)
	}

	seen := map[string]bool{}
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("template %q: field without a name", t.ID)
		}
		if seen[f.Name] {
			return fmt.Errorf("template %q: duplicate field %q", t.ID, f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case FieldText, FieldTextarea, FieldNumber, "":
		case FieldSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("template %q: select field %q has no options", t.ID, f.Name)
			}
			if f.Default != "" && !contains(f.Options, f.Default) {
				return fmt.Errorf("template %q: default %q of field %q is not an option", t.ID, f.Default, f.Name)
			}
		default:
			return fmt.Errorf("template %q: field %q has unknown type %q", t.ID, f.Name, f.Type)
		}
	}

	placeholders, err := Placeholders(t.UserPrompt)
	if err != nil {
		return fmt.Errorf("template %q: %w", t.ID, err)
	}
	for _, name := range placeholders {
		if !seen[name] && !isDerived(name) {
			return fmt.Errorf("template %q: placeholder {%s} has no field", t.ID, name)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
