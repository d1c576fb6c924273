// Package picker provides the file selection view for the TUI.
package picker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/styles"
)

// View asks for the path of the PDF to chat about.
type View struct {
	styles    *styles.Styles
	input     *input.PromptInput
	spinner   spinner.Model
	statusbar *status.Bar

	busy   bool
	err    error
	width  int
	height int
}

// NewView creates a new picker view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	return &View{
		styles:    s,
		input:     input.NewPromptInput(s, "PDF:", "path/to/policy.pdf"),
		spinner:   sp,
		statusbar: status.NewBar(s, km.PickerHelp()),
		width:     80,
		height:    24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.input.Focus())
}

// Update handles messages for the picker.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case spinner.TickMsg:
		if !v.busy {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.busy {
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg { return messages.Quit{} }

	case tea.KeyEnter:
		value := strings.TrimSpace(v.input.Value())
		if value == "" {
			return v, nil
		}
		if strings.EqualFold(value, "exit") {
			return v, func() tea.Msg { return messages.Quit{} }
		}
		path := expandHome(value)
		v.err = nil
		return v, func() tea.Msg { return messages.FileChosen{Path: path} }
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// View renders the picker.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("policyqa"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Ask claims questions about a policy PDF. Type 'exit' to quit."))
	b.WriteString("\n\n")
	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	switch {
	case v.busy:
		b.WriteString(v.spinner.View() + " " + v.styles.Normal.Render("Preparing the document index..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(v.err.Error()))
	}

	body := b.String()
	gap := v.height - lipgloss.Height(body) - 1
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return body + "\n" + v.statusbar.View()
}

// SetBusy shows or hides the indexing spinner.
func (v *View) SetBusy(busy bool) tea.Cmd {
	v.busy = busy
	if busy {
		v.statusbar.SetState(status.StateOpening)
		return v.spinner.Tick
	}
	v.statusbar.SetState(status.StateReady)
	return nil
}

// Busy reports whether a document is being opened.
func (v *View) Busy() bool {
	return v.busy
}

// SetError shows why the last document could not be opened.
func (v *View) SetError(err error) {
	v.busy = false
	v.err = err
	if err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage("could not open document")
	}
}

// Err returns the last open failure.
func (v *View) Err() error {
	return v.err
}

// Reset clears the input and any error.
func (v *View) Reset() {
	v.input.Reset()
	v.err = nil
	v.busy = false
	v.statusbar.Clear()
}

// Value returns the typed path.
func (v *View) Value() string {
	return v.input.Value()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
