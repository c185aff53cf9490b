package output

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source opens a fragment stream bound to ctx.
type Source func(ctx context.Context) iter.Seq2[string, error]

type chunkMsg string

type doneMsg struct{ err error }

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// streamModel shows the rendered tail of the text received so far.
type streamModel struct {
	text   string
	render func(string) string
	cancel context.CancelFunc
	done   bool
	err    error
}

func (m streamModel) Init() tea.Cmd { return nil }

func (m streamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chunkMsg:
		m.text += string(msg)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m streamModel) View() string {
	if m.done {
		return ""
	}
	return m.render(m.text)
}

// Stream consumes src and returns the concatenated text. On a terminal the
// markdown is re-rendered as fragments arrive and the finished document is
// printed once the stream ends; otherwise fragments are written as they come.
func (r *Renderer) Stream(ctx context.Context, src Source, format, title string) (string, error) {
	if !r.OutTTY || format == FormatPlain {
		return r.streamPlain(ctx, src)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := streamModel{render: r.renderMarkdown, cancel: cancel}
	p := tea.NewProgram(m, tea.WithOutput(r.Out))

	go func() {
		for chunk, err := range src(ctx) {
			if err != nil {
				p.Send(doneMsg{err: err})
				return
			}
			p.Send(chunkMsg(chunk))
		}
		p.Send(doneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("live view: %w", err)
	}
	fm := final.(streamModel)
	if fm.err != nil {
		return fm.text, fm.err
	}
	return fm.text, r.Markdown(fm.text, title)
}

func (r *Renderer) streamPlain(ctx context.Context, src Source) (string, error) {
	var sb strings.Builder
	for chunk, err := range src(ctx) {
		if err != nil {
			fmt.Fprintln(r.Out)
			return sb.String(), err
		}
		sb.WriteString(chunk)
		if _, err := fmt.Fprint(r.Out, chunk); err != nil {
			return sb.String(), err
		}
	}
	_, err := fmt.Fprintln(r.Out)
	return sb.String(), err
}

// waitModel spins until the blocking call reports back.
type waitModel struct {
	spinner spinner.Model
	label   string
	cancel  context.CancelFunc
	done    bool
}

func (m waitModel) Init() tea.Cmd { return m.spinner.Tick }

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + labelStyle.Render(m.label)
}

// Wait runs fn, showing a spinner with label on Err while it blocks.
func (r *Renderer) Wait(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if !r.ErrTTY {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	p := tea.NewProgram(waitModel{spinner: sp, label: label, cancel: cancel}, tea.WithOutput(r.Err))

	errc := make(chan error, 1)
	go func() {
		errc <- fn(ctx)
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return fmt.Errorf("spinner: %w", err)
	}
	return <-errc
}
