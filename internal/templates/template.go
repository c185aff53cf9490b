package templates

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType tags how a field is collected and displayed.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldNumber   FieldType = "number"
)

// Output format hints carried by templates.
const (
	FormatMarkdown   = "markdown"
	FormatStructured = "structured"
)

// Field is one input of a template. Name is the key used in the user prompt.
type Field struct {
	Name        string    `yaml:"name"`
	Label       string    `yaml:"label"`
	Type        FieldType `yaml:"type,omitempty"`
	Required    bool      `yaml:"required"`
	Placeholder string    `yaml:"placeholder,omitempty"`
	Default     string    `yaml:"default,omitempty"`
	Options     []string  `yaml:"options,omitempty"`
	// Flag overrides the command-line flag name derived from Name.
	Flag string `yaml:"flag,omitempty"`
}

// UnmarshalYAML treats fields as required unless the document says otherwise.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	type plain Field
	raw := plain{Required: true, Type: FieldText}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*f = Field(raw)
	return nil
}

// FlagName is the command-line flag that fills this field.
func (f Field) FlagName() string {
	if f.Flag != "" {
		return f.Flag
	}
	return strings.ReplaceAll(f.Name, "_", "-")
}

// Template is a named prompt pattern and the fields that fill it.
type Template struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Description  string  `yaml:"description"`
	Category     string  `yaml:"category"`
	OutputFormat string  `yaml:"output_format,omitempty"`
	Example      string  `yaml:"example,omitempty"`
	Fields       []Field `yaml:"fields"`
	SystemPrompt string  `yaml:"system_prompt"`
	UserPrompt   string  `yaml:"user_prompt"`
}

// Field looks up a declared field by name.
func (t Template) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields lists fields that must be supplied because they have no default.
func (t Template) RequiredFields() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Required && f.Default == "" {
			out = append(out, f)
		}
	}
	return out
}

// Pack is the on-disk document holding one or more templates.
type Pack struct {
	Templates []Template `yaml:"templates"`
}
