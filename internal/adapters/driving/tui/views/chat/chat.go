// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

const (
	queryLabel         = "Question:"
	clarificationLabel = "More detail:"

	// chromeLines is the height taken by the header, input and status bar.
	chromeLines = 7
)

// View is a chat session over one document.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.PromptInput
	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *status.Bar
	ctx       context.Context

	session    driving.ChatSession
	transcript []string
	busy       bool
	width      int
	height     int
}

// NewView creates a new chat view.
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

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewPromptInput(s, queryLabel, "Is knee surgery covered?"),
		viewport:  viewport.New(80, 24-chromeLines),
		spinner:   sp,
		statusbar: status.NewBar(s, km.ChatHelp()),
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
	return v
}

// WithContext sets the context passed to the session.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetSession starts showing a new session. Any previous session is closed.
func (v *View) SetSession(session driving.ChatSession) {
	v.Close()
	v.session = session
	v.transcript = nil
	v.busy = false
	v.input.Reset()
	v.input.SetLabel(queryLabel)
	v.statusbar.Clear()
	if session != nil {
		v.statusbar.SetDocument(filepath.Base(session.Path()))
		v.append(v.styles.Muted.Render(
			"Ask a question about the policy. Commands: rebuild, skip, back, exit."))
	}
}

// Session returns the active session, or nil.
func (v *View) Session() driving.ChatSession {
	return v.session
}

// Close ends the active session.
func (v *View) Close() {
	if v.session != nil {
		_ = v.session.Close()
		v.session = nil
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.input.Focus())
}

// Update handles messages for the chat view.
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

	case messages.ReplyReceived:
		return v.handleReply(msg)

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.ScrollUp):
		v.viewport.ViewUp()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.ScrollDown):
		v.viewport.ViewDown()
		return v, nil
	}

	if v.busy {
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		v.Close()
		return v, changeView(messages.ViewPicker)

	case tea.KeyEnter:
		return v, v.submit()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the input line to the session.
func (v *View) submit() tea.Cmd {
	text := strings.TrimSpace(v.input.Value())
	if text == "" || v.session == nil {
		return nil
	}

	v.input.Reset()
	v.append(v.styles.User.Render("> " + text))
	v.busy = true
	v.statusbar.SetState(status.StateThinking)

	session, ctx := v.session, v.ctx
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		reply, err := session.Handle(ctx, text)
		return messages.ReplyReceived{Reply: reply, Err: err}
	})
}

func (v *View) handleReply(msg messages.ReplyReceived) (*View, tea.Cmd) {
	v.busy = false
	v.statusbar.SetState(status.StateReady)

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.append(v.styles.Error.Render("Error: " + msg.Err.Error()))
		return v, nil
	}

	switch msg.Reply.Command {
	case domain.CommandExit:
		v.Close()
		return v, func() tea.Msg { return messages.Quit{} }
	case domain.CommandBack:
		v.Close()
		return v, changeView(messages.ViewPicker)
	}

	v.statusbar.SetMessage("")
	if rendered := RenderReply(v.styles, msg.Reply); rendered != "" {
		v.append(rendered)
	}
	v.statusbar.SetPhase(msg.Reply.Phase)
	if msg.Reply.Phase == domain.PhaseAwaitingClarification {
		v.input.SetLabel(clarificationLabel)
	} else {
		v.input.SetLabel(queryLabel)
	}
	v.input.SetWidth(v.width)
	return v, nil
}

func (v *View) append(block string) {
	v.transcript = append(v.transcript, block)
	v.refresh()
}

func (v *View) refresh() {
	wrap := lipgloss.NewStyle().Width(v.width)
	v.viewport.SetContent(wrap.Render(strings.Join(v.transcript, "\n\n")))
	v.viewport.GotoBottom()
}

// View renders the chat.
func (v *View) View() string {
	header := v.styles.Title.Render("policyqa")
	if v.session != nil {
		header += v.styles.Muted.Render("  " + v.session.Path())
	}

	prompt := v.input.View()
	if v.busy {
		prompt = v.spinner.View() + " " + v.styles.Muted.Render("Reading the policy...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		v.viewport.View(),
		prompt,
		v.statusbar.View(),
	)
}

// Busy reports whether a reply is pending.
func (v *View) Busy() bool {
	return v.busy
}

// Transcript returns the rendered conversation blocks.
func (v *View) Transcript() []string {
	return v.transcript
}

// InputLabel returns the current input label.
func (v *View) InputLabel() string {
	return v.input.Label()
}

// SetInput sets the input text.
func (v *View) SetInput(text string) {
	v.input.SetValue(text)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-chromeLines, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// RenderReply formats a reply for the transcript.
func RenderReply(s *styles.Styles, reply domain.Reply) string {
	var blocks []string

	for _, n := range reply.Notices {
		blocks = append(blocks, s.Warning.Render("! "+n))
	}

	if v := reply.Verdict; v != nil {
		headline := string(v.Decision)
		if v.Status == domain.VerdictError {
			headline = "Error"
		}
		var b strings.Builder
		b.WriteString(s.Decision(*v).Render(headline))
		if v.Answer != "" {
			b.WriteString("\n")
			b.WriteString(s.Normal.Render(v.Answer))
		}
		for i, q := range v.Questions {
			b.WriteString("\n")
			b.WriteString(s.Question.Render(fmt.Sprintf("%d. %s", i+1, q)))
		}
		if pages := PageList(reply.Passages); pages != "" {
			b.WriteString("\n")
			b.WriteString(s.Muted.Render("Sources: " + pages))
		}
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n")
}

// PageList names the distinct pages of the passages in rank order.
func PageList(passages []domain.ScoredPassage) string {
	seen := make(map[string]bool)
	var labels []string
	for i := range passages {
		label := passages[i].Passage.Metadata.PageLabel()
		if seen[label] {
			continue
		}
		seen[label] = true
		if passages[i].Passage.Metadata.IsHeader() {
			labels = append(labels, label)
		} else {
			labels = append(labels, "page "+label)
		}
	}
	return strings.Join(labels, ", ")
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg { return messages.ViewChanged{View: view} }
}
