// Package prompt asks the user to confirm overwriting existing files.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Confirmer asks a yes/no question before existing files are overwritten.
// On a terminal it runs a small Bubble Tea prompt; otherwise it reads one line.
type Confirmer struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	notify      func(paths []string)
}

// Option configures a Confirmer.
type Option func(*Confirmer)

// WithNotify registers a hook called with the conflicting paths before asking.
func WithNotify(fn func(paths []string)) Option {
	return func(c *Confirmer) { c.notify = fn }
}

// WithInteractive forces the terminal prompt on or off.
func WithInteractive(on bool) Option {
	return func(c *Confirmer) { c.interactive = on }
}

// New returns a Confirmer reading from in and writing to out.
func New(in io.Reader, out io.Writer, opts ...Option) *Confirmer {
	c := &Confirmer{in: in, out: out, interactive: isTerminal(in) && isTerminal(out)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConfirmOverwrite implements convert.Confirmer.
func (c *Confirmer) ConfirmOverwrite(paths []string) (bool, error) {
	if len(paths) == 0 {
		return true, nil
	}
	if c.notify != nil {
		c.notify(paths)
	}
	question := Question(paths)
	if c.interactive {
		return c.askTerminal(question)
	}
	return c.askLine(question)
}

// Question builds the prompt text for a set of conflicting paths.
func Question(paths []string) string {
	if len(paths) == 1 {
		return fmt.Sprintf("Output file %s already exists. Overwrite?", paths[0])
	}
	return fmt.Sprintf("Overwrite all %d existing files?", len(paths))
}

func (c *Confirmer) askTerminal(question string) (bool, error) {
	program := tea.NewProgram(NewModel(question), tea.WithInput(c.in), tea.WithOutput(c.out))
	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("failed to run prompt: %w", err)
	}
	m, ok := final.(*Model)
	if !ok {
		return false, nil
	}
	return m.Confirmed(), nil
}

func (c *Confirmer) askLine(question string) (bool, error) {
	if _, err := fmt.Fprintf(c.out, "%s (y/N) ", question); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	reader := bufio.NewReader(c.in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return ParseAnswer(line), nil
}

// ParseAnswer reports whether s is an affirmative answer.
func ParseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Model is the Bubble Tea confirmation prompt.
type Model struct {
	question  string
	input     textinput.Model
	done      bool
	confirmed bool
}

// NewModel constructs a prompt for question.
func NewModel(question string) *Model {
	ti := textinput.New()
	ti.Placeholder = "y/N"
	ti.CharLimit = 3
	ti.Width = 4
	ti.Focus()
	return &Model{question: question, input: ti}
}

// Confirmed reports whether the user answered yes.
func (m *Model) Confirmed() bool {
	return m.confirmed
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.done = true
			m.confirmed = false
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			m.confirmed = ParseAnswer(m.input.Value())
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.done {
		return ""
	}
	return questionStyle.Render(m.question) + " " + m.input.View() + "\n" +
		hintStyle.Render("enter to answer, esc to cancel") + "\n"
}
