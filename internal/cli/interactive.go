package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/brolyroly007/contentforge/internal/templates"
)

// readField asks for one value; swapped out in tests.
var readField = func(label string, suggestions []prompt.Suggest) string {
	completer := func(doc prompt.Document) []prompt.Suggest {
		if len(suggestions) == 0 {
			return nil
		}
		return prompt.FilterHasPrefix(suggestions, doc.GetWordBeforeCursor(), true)
	}
	return prompt.Input(label, completer,
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionShowCompletionAtStart(),
	)
}

var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptMissing asks for every field that was not given as a flag. An empty
// answer keeps the field's default.
func promptMissing(tpl templates.Template, flags *pflag.FlagSet, values map[string]string) error {
	if !stdinIsTerminal() {
		return errors.New("--interactive needs a terminal on stdin")
	}

	// go-prompt leaves the terminal in raw mode if it panics mid-read.
	fd := int(os.Stdin.Fd())
	if state, err := term.GetState(fd); err == nil {
		defer term.Restore(fd, state)
	}

	for _, f := range tpl.Fields {
		name := f.FlagName()
		if flags.Lookup(name) != nil && flags.Changed(name) {
			continue
		}
		answer := strings.TrimSpace(readField(fieldPromptLabel(f), optionSuggestions(f)))
		if answer != "" {
			values[f.Name] = answer
		}
	}
	return nil
}

func fieldPromptLabel(f templates.Field) string {
	label := f.Label
	if label == "" {
		label = f.Name
	}
	switch {
	case f.Default != "":
		label += fmt.Sprintf(" [%s]", f.Default)
	case !f.Required:
		label += " (optional)"
	}
	return label + ": "
}

func optionSuggestions(f templates.Field) []prompt.Suggest {
	var out []prompt.Suggest
	for _, opt := range f.Options {
		s := prompt.Suggest{Text: opt}
		if opt == f.Default {
			s.Description = "default"
		}
		out = append(out, s)
	}
	return out
}
