// Package ui is the terminal front end of the chat widget: a collapsed button
// that opens a message panel with an input line.
package ui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/widget"
	"github.com/rs/zerolog/log"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// header, input, help line and the panel border
	panelChrome = 6
)

type Options struct {
	Title       string
	Placeholder string
	OpenOnStart bool
	// Renderer formats assistant replies. Nil shows them verbatim.
	Renderer render.Renderer
	// Clipboard receives the text copied with ctrl+y. Defaults to the system clipboard.
	Clipboard func(string) error
}

type Model struct {
	backend *Backend
	opts    Options

	state   widget.State
	pending []widget.Effect

	input    textinput.Model
	viewport viewport.Model
	spinner  bspinner.Model

	// rendered caches assistant output by message sequence
	rendered map[int]string
	status   string
	width    int
	height   int
}

func NewModel(backend *Backend, opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Placeholder = opts.Placeholder
	ti.Prompt = "> "
	ti.Cursor.SetMode(cursor.CursorStatic)

	sp := bspinner.New()
	sp.Spinner = bspinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := Model{
		backend:  backend,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(defaultWidth, defaultHeight-panelChrome),
		spinner:  sp,
		rendered: map[int]string{},
		width:    defaultWidth,
		height:   defaultHeight,
	}
	if opts.OpenOnStart {
		m.state, m.pending = widget.Reduce(m.state, widget.Toggle{})
	}
	m.syncInput()
	m.layout()
	return m
}

// State returns the widget state the model currently shows.
func (m Model) State() widget.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.backend.waitForEvent()}
	for _, effect := range m.pending {
		cmds = append(cmds, m.backend.Run(effect))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.MouseMsg:
		if !m.state.Open {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case backendEventMsg:
		cmd := m.apply(msg.event)
		return m, tea.Batch(cmd, m.backend.waitForEvent())

	case widget.Event:
		return m, m.apply(msg)

	case bspinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Open && m.state.Waiting() {
			m.refresh()
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+o":
		return m, m.apply(widget.Toggle{})
	case "esc":
		return m, m.apply(widget.Close{})
	case "ctrl+y":
		m.copyLastReply()
		return m, nil
	}

	if !m.state.Open {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m, m.apply(widget.Submit{})
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.state.CanSubmit() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(cmd, m.apply(widget.InputChanged{Value: m.input.Value()}))
}

// apply runs ev through the widget handlers and returns the commands for the
// resulting effects.
func (m *Model) apply(ev widget.Event) tea.Cmd {
	var effects []widget.Effect
	m.state, effects = widget.Reduce(m.state, ev)
	m.status = ""

	m.syncInput()
	m.refresh()

	cmds := make([]tea.Cmd, 0, len(effects))
	for _, effect := range effects {
		cmds = append(cmds, m.backend.Run(effect))
	}
	return tea.Batch(cmds...)
}

func (m *Model) syncInput() {
	if m.input.Value() != m.state.Input {
		m.input.SetValue(m.state.Input)
	}
	if m.state.Open && m.state.CanSubmit() {
		m.input.Placeholder = m.opts.Placeholder
		m.input.Focus()
	} else {
		m.input.Placeholder = "Waiting for reply..."
		m.input.Blur()
	}
}

func (m *Model) copyLastReply() {
	last, ok := m.state.LastAssistantMessage()
	if !ok {
		m.status = "nothing to copy yet"
		return
	}
	if err := m.opts.Clipboard(last.Content); err != nil {
		log.Warn().Err(err).Msg("could not copy to clipboard")
		m.status = "clipboard unavailable"
		return
	}
	m.status = "copied last reply"
}

func (m *Model) layout() {
	w := m.width - 4
	if w < 10 {
		w = 10
	}
	h := m.height - panelChrome
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - len(m.input.Prompt) - 1
	m.rendered = map[int]string{}
	m.refresh()
}

// refresh rebuilds the viewport content from the message log.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.transcript())
	if atBottom || m.state.Waiting() {
		m.viewport.GotoBottom()
	}
}

func (m *Model) transcript() string {
	width := m.viewport.Width
	parts := make([]string, 0, len(m.state.Messages)+1)
	for _, msg := range m.state.Messages {
		switch msg.Role {
		case exchange.RoleUser:
			parts = append(parts, userStyle.Width(width).Align(lipgloss.Right).Render(msg.Content))
		default:
			parts = append(parts, m.renderAssistant(msg))
		}
	}
	if m.state.Waiting() {
		parts = append(parts, waitingStyle.Render(m.spinner.View()+" waiting for a reply"))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderAssistant(msg exchange.Message) string {
	if out, ok := m.rendered[msg.Sequence]; ok {
		return out
	}
	out := assistantStyle.Render(strings.TrimRight(render.RenderOrPlain(m.opts.Renderer, msg.Content), "\n"))
	m.rendered[msg.Sequence] = out
	return out
}

func (m Model) View() string {
	if !m.state.Open {
		line := buttonStyle.Render("💬 "+m.opts.Title) + hintStyle.Render("  [ctrl+o to open]")
		if m.status != "" {
			line += "  " + statusStyle.Render(m.status)
		}
		return line + "\n"
	}

	header := headerStyle.Render(m.opts.Title)
	if m.state.ThreadID != "" {
		header += "  " + threadStyle.Render("thread "+m.state.ThreadID)
	}
	if m.state.Waiting() {
		header += "  " + m.spinner.View()
	}

	footer := hintStyle.Render("enter send • esc close • ctrl+y copy • ctrl+c quit")
	if m.status != "" {
		footer = statusStyle.Render(m.status)
	} else if m.state.LastError != nil && !m.state.Acquiring && m.state.ThreadID == "" {
		footer = errorStyle.Render("could not reach the chat service")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		footer,
	)
	return panelStyle.Render(body) + "\n"
}
