package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type inputMode int

const (
	modeChoose inputMode = iota
	modeReason
	modeAnswer
)

type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	panel  lipgloss.Style
	dim    lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	answer lipgloss.Style
}

func defaultStyles() styles {
	brand := lipgloss.AdaptiveColor{Light: "26", Dark: "81"}
	subtle := lipgloss.AdaptiveColor{Light: "245", Dark: "244"}
	border := lipgloss.AdaptiveColor{Light: "250", Dark: "238"}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(brand),
		label:  lipgloss.NewStyle().Bold(true),
		panel:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		dim:    lipgloss.NewStyle().Foreground(subtle),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		answer: lipgloss.NewStyle(),
	}
}

type keyMap struct {
	Accept    key.Binding
	Reject    key.Binding
	Edit      key.Binding
	Skip      key.Binding
	Quit      key.Binding
	Interrupt key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Accept:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "accept")),
		Reject:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reject")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Skip:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Interrupt: key.NewBinding(key.WithKeys("ctrl+c")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k keyMap) choices() []key.Binding {
	return []key.Binding{k.Accept, k.Reject, k.Edit, k.Skip, k.Quit}
}

func (k keyMap) prompt() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// Model is the bubbletea model for an interactive review session
type Model struct {
	session *Session
	input   textinput.Model
	keys    keyMap
	help    help.Model
	mode    inputMode
	status  string
	width   int
	st      styles
	err     error
}

// NewModel wraps a session for the terminal UI
func NewModel(s *Session) Model {
	in := textinput.New()
	in.CharLimit = 2000
	in.Width = 72
	in.Blur()

	return Model{
		session: s,
		input:   in,
		keys:    defaultKeyMap(),
		help:    help.New(),
		width:   80,
		st:      defaultStyles(),
	}
}

// Session returns the underlying review session
func (m Model) Session() *Session {
	return m.session
}

// Err returns the first error raised by a decision
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	if m.session.Done() {
		return tea.Quit
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(24, min(96, msg.Width-8))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Interrupt) {
			m.session.Quit()
			return m, tea.Quit
		}
		if m.mode != modeChoose {
			return m.updateInput(msg)
		}
		return m.updateChoice(msg)
	}
	return m, nil
}

func (m Model) updateChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, err := ParseCommand(msg.String())
	if errors.Is(err, ErrInvalidChoice) {
		m.status = "Invalid choice, try again."
		return m, nil
	}
	m.status = ""

	switch cmd {
	case CommandAccept:
		m.record(m.session.Accept())
	case CommandSkip:
		m.record(m.session.Skip())
	case CommandQuit:
		m.session.Quit()
	case CommandReject:
		m.mode = modeReason
		m.input.Reset()
		m.input.Placeholder = "Reason (optional)"
		return m, m.input.Focus()
	case CommandEdit:
		m.mode = modeAnswer
		m.input.Reset()
		m.input.Placeholder = "New answer (or press Enter to keep)"
		return m, m.input.Focus()
	}

	if m.session.Done() {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeChoose
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		value := m.input.Value()
		if m.mode == modeReason {
			m.record(m.session.Reject(value))
		} else {
			m.record(m.session.Edit(value))
		}
		m.mode = modeChoose
		m.input.Blur()
		m.input.Reset()
		if m.session.Done() {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) record(err error) {
	if err != nil && m.err == nil {
		m.err = err
	}
}

func (m Model) View() string {
	if m.session.Done() {
		return m.st.ok.Render("Review finished.") + "\n"
	}

	pair, _ := m.session.Current()
	idx, total := m.session.Position()
	w := max(40, m.width-4)

	var body strings.Builder
	body.WriteString(m.st.label.Render("Q: "))
	body.WriteString(pair.Instruction)
	body.WriteString("\n\n")
	body.WriteString(m.st.label.Render("A: "))
	body.WriteString(m.st.answer.Render(m.session.Preview(pair.Output)))

	var sb strings.Builder
	sb.WriteString(m.st.title.Render(fmt.Sprintf("Pair %d/%d", idx, total)))
	sb.WriteString("\n")
	sb.WriteString(m.st.panel.Width(w).Render(body.String()))
	sb.WriteString("\n\n")

	switch m.mode {
	case modeReason:
		sb.WriteString(m.st.label.Render("Reason: "))
		sb.WriteString(m.input.View())
		sb.WriteString("\n" + m.help.ShortHelpView(m.keys.prompt()))
	case modeAnswer:
		sb.WriteString(m.st.dim.Render("Current answer: " + pair.Output))
		sb.WriteString("\n")
		sb.WriteString(m.st.label.Render("New answer: "))
		sb.WriteString(m.input.View())
		sb.WriteString("\n" + m.help.ShortHelpView(m.keys.prompt()))
	default:
		sb.WriteString(m.help.ShortHelpView(m.keys.choices()))
	}

	if m.status != "" {
		sb.WriteString("\n" + m.st.warn.Render(m.status))
	}
	return sb.String() + "\n"
}

// RunTUI runs the interactive review until the sample is exhausted or the
// reviewer quits
func RunTUI(s *Session, opts ...tea.ProgramOption) error {
	final, err := tea.NewProgram(NewModel(s), opts...).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
