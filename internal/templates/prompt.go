package templates

import (
	"errors"
	"fmt"
	"strings"
)

// KeywordsLine is derived from the "keywords" field before prompt fill.
const KeywordsLine = "keywords_line"

var derivedFields = map[string]bool{KeywordsLine: true}

func isDerived(name string) bool { return derivedFields[name] }

// ErrMissingField is matched by MissingFieldError.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError names a placeholder that had no value at fill time.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing required field: %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// segment is either literal text or a placeholder name.
type segment struct {
	text        string
	placeholder bool
}

// parse splits a pattern into literal and {name} segments. "{{" and "}}"
// produce literal braces.
func parse(pattern string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '{' && i+1 < len(pattern) && pattern[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(pattern) && pattern[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(pattern[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := pattern[i+1 : i+1+end]
			if !validName(name) {
				return nil, fmt.Errorf("malformed placeholder {%s}", name)
			}
			flush()
			segs = append(segs, segment{text: name, placeholder: true})
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Placeholders lists the distinct placeholder names in pattern, in order of
// first appearance.
func Placeholders(pattern string) ([]string, error) {
	segs, err := parse(pattern)
	if err != nil {
		return nil, err
	}
	var names []string
	seen := map[string]bool{}
	for _, s := range segs {
		if s.placeholder && !seen[s.text] {
			seen[s.text] = true
			names = append(names, s.text)
		}
	}
	return names, nil
}

// Fill substitutes every placeholder in pattern from values. Extra values are
// ignored; a placeholder without a value yields a MissingFieldError.
func Fill(pattern string, values map[string]string) (string, error) {
	segs, err := parse(pattern)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, s := range segs {
		if !s.placeholder {
			out.WriteString(s.text)
			continue
		}
		v, ok := values[s.text]
		if !ok {
			return "", &MissingFieldError{Field: s.text}
		}
		out.WriteString(v)
	}
	return out.String(), nil
}

// Resolve merges caller-supplied values with field defaults and derived
// values. Empty supplied values count as not supplied. Required fields
// without a default stay unset so Fill reports them.
func Resolve(t Template, supplied map[string]string) map[string]string {
	values := make(map[string]string, len(supplied)+len(t.Fields)+1)
	for k, v := range supplied {
		if v != "" {
			values[k] = v
		}
	}
	for _, f := range t.Fields {
		if _, ok := values[f.Name]; ok {
			continue
		}
		switch {
		case f.Default != "":
			values[f.Name] = f.Default
		case !f.Required:
			values[f.Name] = ""
		}
	}

	// Computed for every template; patterns that do not reference it drop it.
	if kw := values["keywords"]; kw != "" {
		values[KeywordsLine] = "Include these SEO keywords naturally: " + kw
	} else {
		values[KeywordsLine] = ""
	}
	return values
}

// Render builds the user prompt for t from the supplied field values.
func (t Template) Render(supplied map[string]string) (string, error) {
	return Fill(t.UserPrompt, Resolve(t, supplied))
}
