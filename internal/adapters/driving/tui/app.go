package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/views/picker"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	pickerView *picker.View
	chatView   *chat.View

	// initialPath is opened on start when set.
	initialPath string

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last open failure.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		pickerView:  picker.NewView(s, km),
		chatView:    chat.NewView(s, km),
		currentView: messages.ViewPicker,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// WithInitialPath opens the document at path as soon as the program starts.
func (a *App) WithInitialPath(path string) *App {
	a.initialPath = path
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle("policyqa"),
		a.pickerView.Init(),
	}
	if a.initialPath != "" {
		path := a.initialPath
		cmds = append(cmds, func() tea.Msg { return messages.FileChosen{Path: path} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			a.chatView.Close()
			return a, tea.Quit
		}

	case messages.FileChosen:
		a.currentView = messages.ViewPicker
		return a, tea.Batch(a.pickerView.SetBusy(true), a.openSession(msg.Path))

	case messages.SessionOpened:
		a.pickerView.SetBusy(false)
		if msg.Err != nil {
			a.err = msg.Err
			a.pickerView.SetError(msg.Err)
			return a, nil
		}
		a.err = nil
		a.chatView.SetSession(msg.Session)
		a.currentView = messages.ViewChat
		return a, a.chatView.Init()

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewPicker {
			a.pickerView.Reset()
			return a, a.pickerView.Init()
		}
		return a, a.chatView.Init()

	case messages.Quit:
		a.chatView.Close()
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewPicker:
		a.pickerView, cmd = a.pickerView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	}
	return a, cmd
}

// openSession indexes or loads the document off the UI goroutine.
func (a *App) openSession(path string) tea.Cmd {
	chatService, ctx := a.ports.Chat, a.ctx
	return func() tea.Msg {
		session, err := chatService.Open(ctx, path)
		return messages.SessionOpened{Session: session, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	if a.currentView == messages.ViewChat {
		return a.chatView.View()
	}
	return a.pickerView.View()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	a.chatView.Close()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// Picker returns the file selection view.
func (a *App) Picker() *picker.View {
	return a.pickerView
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.pickerView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
}
