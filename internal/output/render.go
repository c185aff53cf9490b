// Package output presents generated content: markdown panels, plain text,
// JSON documents, live streaming views, files and the clipboard.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/brolyroly007/contentforge/internal/llm"
	"github.com/brolyroly007/contentforge/internal/logging"
)

const (
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"
	FormatJSON     = "json"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(1, 2)
	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
)

// Renderer writes content to Out and transient status (spinners) to Err.
type Renderer struct {
	Out io.Writer
	Err io.Writer

	// OutTTY enables the live streaming view and styled markdown.
	OutTTY bool
	// ErrTTY enables the wait spinner.
	ErrTTY bool

	md *glamour.TermRenderer
}

// New builds a Renderer, detecting whether each writer is a terminal.
func New(out, errOut io.Writer) *Renderer {
	return &Renderer{
		Out:    out,
		Err:    errOut,
		OutTTY: IsTerminal(out),
		ErrTTY: IsTerminal(errOut),
	}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *Renderer) markdownRenderer() *glamour.TermRenderer {
	if r.md != nil {
		return r.md
	}
	style := glamour.WithStandardStyle("notty")
	if r.OutTTY {
		style = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(0))
	if err != nil {
		logging.ErrorLog("markdown renderer unavailable: %v", err)
		return nil
	}
	r.md = md
	return md
}

// renderMarkdown returns styled markdown, or the raw text when rendering fails.
func (r *Renderer) renderMarkdown(content string) string {
	md := r.markdownRenderer()
	if md == nil {
		return content
	}
	out, err := md.Render(content)
	if err != nil {
		logging.ErrorLog("markdown render failed: %v", err)
		return content
	}
	return strings.Trim(out, "\n")
}

// Markdown renders content, inside a titled panel when title is set.
func (r *Renderer) Markdown(content, title string) error {
	body := r.renderMarkdown(content)
	if title != "" {
		body = panelStyle.Render(panelTitleStyle.Render(title) + "\n\n" + body)
	}
	_, err := fmt.Fprintln(r.Out, body)
	return err
}

// Plain prints content verbatim.
func (r *Renderer) Plain(content string) error {
	_, err := fmt.Fprintln(r.Out, content)
	return err
}

type document struct {
	Content    string `json:"content"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// JSON prints the fixed-shape result document.
func (r *Renderer) JSON(res llm.Result) error {
	data, err := json.MarshalIndent(document{
		Content:    res.Content,
		Provider:   res.Provider,
		Model:      res.Model,
		TokensUsed: res.TokensUsed,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(r.Out, string(data))
	return err
}

// Render routes a finished result to the renderer for format.
func (r *Renderer) Render(res llm.Result, format, title string) error {
	switch format {
	case FormatJSON:
		return r.JSON(res)
	case FormatPlain:
		return r.Plain(res.Content)
	default:
		return r.Markdown(res.Content, title)
	}
}
