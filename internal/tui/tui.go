// Package tui renders the mediation screens in the terminal using Bubble Tea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mindful-resolve/internal/viewstate"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

type focusField int

const (
	focusName focusField = iota
	focusPerspective
)

// Entry is what the program does on start.
type Entry struct {
	Create   bool
	JoinCode string
}

type stateChangedMsg struct{}

// Model adapts a viewstate.Controller to Bubble Tea. The controller owns all
// screen state; the inputs here only mirror what the user is typing.
type Model struct {
	ctrl    *viewstate.Controller
	changes chan struct{}
	done    chan struct{}
	entry   Entry

	screen      viewstate.Screen
	spinner     spinner.Model
	codeInput   textinput.Model
	nameInput   textinput.Model
	perspective textarea.Model
	focus       focusField
	width       int
}

// New builds the model. opts are passed to the controller after the
// change notifier.
func New(api viewstate.SessionAPI, entry Entry, opts ...viewstate.Option) Model {
	changes := make(chan struct{}, 1)
	notify := func(viewstate.State) {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	code := textinput.New()
	code.Placeholder = "ABC123"
	code.CharLimit = viewstate.CodeLength
	code.Width = 12
	code.Focus()

	name := textinput.New()
	name.Placeholder = "Your name (optional)"
	name.CharLimit = 64
	name.Width = 40

	ta := textarea.New()
	ta.Placeholder = "Describe the situation from your point of view..."
	ta.CharLimit = viewstate.MaxPerspectiveLength
	ta.SetWidth(70)
	ta.SetHeight(8)

	return Model{
		ctrl:        viewstate.NewController(api, notify, opts...),
		changes:     changes,
		done:        make(chan struct{}),
		entry:       entry,
		screen:      viewstate.ScreenHome,
		spinner:     s,
		codeInput:   code,
		nameInput:   name,
		perspective: ta,
		width:       80,
	}
}

// Close stops the controller and every goroutine it runs.
func (m Model) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	m.ctrl.Close()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForChange(), textinput.Blink}
	switch {
	case m.entry.Create:
		m.ctrl.Create()
	case m.entry.JoinCode != "":
		m.ctrl.Dispatch(viewstate.JoinCodeChanged{Code: m.entry.JoinCode})
		m.ctrl.Dispatch(viewstate.JoinRequested{})
	}
	return tea.Batch(cmds...)
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return stateChangedMsg{}
		case <-m.done:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case stateChangedMsg:
		cmd := m.syncScreen()
		return m, tea.Batch(m.waitForChange(), cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.ctrl.Dispatch(viewstate.StartOver{})
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.ctrl.State()
	switch s := state.(type) {
	case viewstate.Home:
		switch msg.String() {
		case "ctrl+n":
			m.ctrl.Create()
			return m, nil
		case "enter":
			m.ctrl.Dispatch(viewstate.JoinRequested{})
			return m, nil
		}
		if s.Checking {
			return m, nil
		}
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		m.ctrl.Dispatch(viewstate.JoinCodeChanged{Code: m.codeInput.Value()})
		return m, cmd

	case viewstate.Partner1Form, viewstate.Partner2Form:
		switch msg.String() {
		case "tab", "shift+tab":
			return m, m.toggleFocus()
		case "ctrl+s":
			m.ctrl.Dispatch(viewstate.SubmitRequested{})
			return m, nil
		}
		var cmd tea.Cmd
		if m.focus == focusName {
			m.nameInput, cmd = m.nameInput.Update(msg)
			m.ctrl.Dispatch(viewstate.NameChanged{Name: m.nameInput.Value()})
		} else {
			m.perspective, cmd = m.perspective.Update(msg)
			m.ctrl.Dispatch(viewstate.PerspectiveChanged{Perspective: m.perspective.Value()})
		}
		return m, cmd

	case viewstate.Waiting:
		if msg.String() == "r" {
			m.ctrl.Dispatch(viewstate.RetryRequested{})
		}
		return m, nil

	case viewstate.Solution:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "n":
			m.ctrl.Dispatch(viewstate.StartOver{})
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusName {
		m.focus = focusPerspective
		m.nameInput.Blur()
		return m.perspective.Focus()
	}
	m.focus = focusName
	m.perspective.Blur()
	return m.nameInput.Focus()
}

// syncScreen resets the inputs when the controller moves to another screen.
func (m *Model) syncScreen() tea.Cmd {
	state := m.ctrl.State()
	if state.Screen() == m.screen {
		return nil
	}
	m.screen = state.Screen()

	switch s := state.(type) {
	case viewstate.Home:
		m.codeInput.SetValue(s.JoinCode)
		m.nameInput.Blur()
		m.perspective.Blur()
		return m.codeInput.Focus()
	case viewstate.Partner1Form, viewstate.Partner2Form:
		m.codeInput.Blur()
		m.nameInput.Reset()
		m.perspective.Reset()
		m.focus = focusPerspective
		m.nameInput.Blur()
		return m.perspective.Focus()
	default:
		m.codeInput.Blur()
		m.nameInput.Blur()
		m.perspective.Blur()
		return nil
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mindful Couple Resolve"))
	b.WriteString("\n")

	switch s := m.ctrl.State().(type) {
	case viewstate.Home:
		b.WriteString(infoStyle.Render("A safe space for couples to share perspectives and find understanding."))
		b.WriteString("\n\n")
		b.WriteString("Join with a session code:\n")
		b.WriteString(m.codeInput.View())
		if s.Checking {
			b.WriteString(" " + m.spinner.View())
		}
		writeErr(&b, s.Err)
		b.WriteString(helpStyle.Render("enter join • ctrl+n start a new session as Partner 1 • ctrl+c quit"))

	case viewstate.Partner1Form:
		b.WriteString("Share this code with your partner:\n")
		b.WriteString(codeStyle.Render(s.Code))
		b.WriteString("\n\n")
		m.writeForm(&b, s.Submitting)
		writeErr(&b, s.Err)
		b.WriteString(helpStyle.Render("tab switch field • ctrl+s submit • esc start over"))

	case viewstate.Partner2Form:
		fmt.Fprintf(&b, "Joining session %s with %s\n\n", codeStyle.Render(s.Code), displayName(s.Partner1Name))
		switch {
		case s.Generating:
			b.WriteString(m.spinner.View() + " Generating your mediation...\n")
		case s.Submitted():
			b.WriteString(infoStyle.Render("Your perspective is saved.") + "\n")
		default:
			m.writeForm(&b, s.Submitting)
		}
		writeErr(&b, s.Err)
		help := "tab switch field • ctrl+s submit • esc start over"
		if s.Submitted() {
			help = "ctrl+s retry • esc start over"
		}
		b.WriteString(helpStyle.Render(help))

	case viewstate.Waiting:
		b.WriteString("Session code:\n")
		b.WriteString(codeStyle.Render(s.Code))
		b.WriteString("\n\n")
		switch s.Phase {
		case viewstate.AwaitingPartner:
			b.WriteString(m.spinner.View() + " Waiting for your partner to share their perspective...\n")
		case viewstate.Generating, viewstate.AwaitingSolution:
			b.WriteString(m.spinner.View() + " Generating your mediation...\n")
		}
		writeErr(&b, s.Err)
		help := "esc start over • ctrl+c quit"
		if s.Phase == viewstate.Failed || s.Phase == viewstate.AwaitingSolution {
			help = "r retry • " + help
		}
		b.WriteString(helpStyle.Render(help))

	case viewstate.Solution:
		b.WriteString(infoStyle.Render("Your personalized mediation") + "\n")
		width := m.width - 4
		if width < 20 {
			width = 20
		}
		b.WriteString(boxStyle.Width(width).Render(s.Text))
		b.WriteString(helpStyle.Render("n new session • q quit"))
	}

	b.WriteString("\n")
	return b.String()
}

func (m Model) writeForm(b *strings.Builder, submitting bool) {
	b.WriteString("Name\n")
	b.WriteString(m.nameInput.View())
	b.WriteString("\n\nYour perspective\n")
	b.WriteString(m.perspective.View())
	b.WriteString("\n")
	if submitting {
		b.WriteString(m.spinner.View() + " Submitting...\n")
	}
}

func writeErr(b *strings.Builder, msg string) {
	if msg == "" {
		b.WriteString("\n")
		return
	}
	b.WriteString("\n")
	b.WriteString(errorStyle.Render(msg))
	b.WriteString("\n")
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Partner 1"
	}
	return name
}
