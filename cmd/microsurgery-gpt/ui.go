package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/microsurgery-gpt/pkg/conversation"
	"github.com/go-go-golems/microsurgery-gpt/pkg/events"
	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/go-go-golems/microsurgery-gpt/pkg/session"
	"github.com/muesli/reflow/wordwrap"
	"github.com/rs/zerolog/log"
)

type State string

const (
	StateUserInput State = "user_input"
	StateWaiting   State = "waiting"
	StateError     State = "error"
)

// sessionEventMsg carries a session event from the watermill router into the
// program.
type sessionEventMsg struct {
	Event *events.Event
}

type sendFinishedMsg struct {
	Err error
}

type errMsg error

type model struct {
	ctx     context.Context
	session *session.Session
	persona *persona.Settings

	viewport viewport.Model
	textArea textarea.Model
	spinner  spinner.Model
	help     help.Model

	glamourStyle string
	renderer     *glamour.TermRenderer

	// input sent on startup, from --topic
	initialQuery string

	err    error
	keyMap KeyMap
	style  *Style
	width  int
	height int

	state State
}

func initialModel(ctx context.Context, s *session.Session, glamourStyle string, initialQuery string) model {
	ret := model{
		ctx:          ctx,
		session:      s,
		persona:      s.Persona(),
		viewport:     viewport.New(0, 0),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		glamourStyle: glamourStyle,
		initialQuery: initialQuery,
		keyMap:       DefaultKeyMap,
		style:        DefaultStyles(),
		state:        StateUserInput,
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Ask about a microsurgical technique..."
	ret.textArea.ShowLineNumbers = false
	ret.textArea.SetHeight(3)
	ret.textArea.KeyMap.InsertNewline = ret.keyMap.InsertNewline
	ret.textArea.Focus()

	ret.updateKeyBindings()

	return ret
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick}
	if m.initialQuery != "" {
		cmds = append(cmds, func() tea.Msg {
			return askMsg{Text: m.initialQuery}
		})
	}
	return tea.Batch(cmds...)
}

// askMsg sends Text as if it had been typed into the input.
type askMsg struct {
	Text string
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()
			return m, nil

		case key.Matches(msg, m.keyMap.DismissError):
			m.err = nil
			m.state = m.currentState()
			m.updateKeyBindings()
			m.recomputeSize()
			return m, nil

		case key.Matches(msg, m.keyMap.ScrollUp):
			m.viewport.HalfViewUp()
			return m, nil

		case key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport.HalfViewDown()
			return m, nil

		case key.Matches(msg, m.keyMap.AskTopic):
			if len(msg.Runes) == 0 {
				return m, nil
			}
			idx := int(msg.Runes[len(msg.Runes)-1] - '0')
			topic, ok := m.persona.Topic(idx)
			if !ok {
				return m, nil
			}
			cmd = m.submit(topic.Query)
			m.recomputeSize()
			return m, cmd

		case key.Matches(msg, m.keyMap.SubmitMessage):
			text := m.textArea.Value()
			cmd = m.submit(text)
			if cmd != nil {
				m.textArea.Reset()
				m.recomputeSize()
			}
			return m, cmd

		default:
			if m.state == StateUserInput {
				m.textArea, cmd = m.textArea.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = m.newRenderer()
		m.recomputeSize()

	case askMsg:
		cmds = append(cmds, m.submit(msg.Text))

	case sessionEventMsg:
		log.Trace().Str("type", string(msg.Event.Type)).Msg("session event")
		m.state = m.currentState()
		m.updateKeyBindings()
		m.recomputeSize()

	case sendFinishedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.setError(msg.Err))
		}
		m.state = m.currentState()
		m.updateKeyBindings()
		m.recomputeSize()

	case errMsg:
		cmds = append(cmds, m.setError(msg))

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	default:
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) currentState() State {
	switch {
	case m.err != nil:
		return StateError
	case m.session.IsBusy():
		return StateWaiting
	default:
		return StateUserInput
	}
}

func (m *model) updateKeyBindings() {
	m.keyMap.SubmitMessage.SetEnabled(m.state == StateUserInput)
	m.keyMap.AskTopic.SetEnabled(m.state == StateUserInput)
	m.keyMap.InsertNewline.SetEnabled(m.state == StateUserInput)
	m.keyMap.DismissError.SetEnabled(m.state == StateError)
	m.textArea.KeyMap.InsertNewline.SetEnabled(m.state == StateUserInput)
}

// submit returns the command sending text, or nil when there is nothing to
// send.
func (m *model) submit(text string) tea.Cmd {
	if conversation.IsBlank(text) {
		return nil
	}
	if m.session.IsBusy() {
		return nil
	}
	m.state = StateWaiting
	m.updateKeyBindings()

	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		_, err := s.Send(ctx, text)
		return sendFinishedMsg{Err: err}
	}
}

func (m *model) setError(err error) tea.Cmd {
	m.err = err
	m.state = StateError
	m.updateKeyBindings()
	m.recomputeSize()
	return nil
}

func (m model) newRenderer() *glamour.TermRenderer {
	w, _ := m.style.ModelMessage.GetFrameSize()
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.glamourStyle),
		glamour.WithWordWrap(max(m.width-w-2, 20)),
	)
	if err != nil {
		log.Warn().Err(err).Msg("could not create markdown renderer")
		return nil
	}
	return r
}

func (m *model) refresh() {
	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m *model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	textAreaHeight := lipgloss.Height(m.textAreaView())
	helpViewHeight := lipgloss.Height(m.help.View(m.keyMap))

	newHeight := m.height - textAreaHeight - headerHeight - helpViewHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight + 1

	h, _ := m.style.FocusedInput.GetFrameSize()
	m.textArea.SetWidth(m.width - h)
	m.help.Width = m.width

	m.refresh()
}

func (m model) headerView() string {
	header := m.style.Header.Render(m.persona.Name)
	if m.persona.Disclaimer == "" {
		return header
	}
	return header + "\n" + m.style.Disclaimer.Render(wrapWords(m.persona.Disclaimer, m.width))
}

func (m model) messageView() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		return m.topicsView()
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderMessage(msg conversation.Message) string {
	switch {
	case msg.IsError:
		w, _ := m.style.ErrorMessage.GetFrameSize()
		return m.style.ErrorMessage.Render(wrapWords(msg.Text, m.width-w))

	case msg.Role == conversation.RoleUser:
		w, _ := m.style.UserMessage.GetFrameSize()
		return m.style.UserMessage.Render(wrapWords(msg.Text, m.width-w))

	default:
		w, _ := m.style.ModelMessage.GetFrameSize()
		text := wrapWords(msg.Text, m.width-w)
		if m.renderer != nil {
			rendered, err := m.renderer.Render(msg.Text)
			if err == nil {
				text = strings.Trim(rendered, "\n")
			} else {
				log.Debug().Err(err).Msg("could not render model message")
			}
		}
		return m.style.ModelMessage.Render(text)
	}
}

func (m model) topicsView() string {
	var b strings.Builder
	b.WriteString("Suggested research topics:\n\n")
	for idx, topic := range m.persona.Topics {
		line := fmt.Sprintf("  alt+%d  %s", idx+1, topic.Title)
		b.WriteString(m.style.Topic.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) textAreaView() string {
	if m.err != nil {
		w, _ := m.style.ErrorMessage.GetFrameSize()
		return m.style.ErrorMessage.Render(wrapWords(m.err.Error(), m.width-w))
	}

	if m.state == StateWaiting {
		return m.style.UnfocusedInput.Render(
			m.spinner.View() + m.style.Busy.Render(" "+m.persona.Name+" is thinking..."),
		)
	}

	return m.style.FocusedInput.Render(m.textArea.View())
}

func (m model) View() string {
	return m.headerView() + "\n" +
		m.viewport.View() + "\n" +
		m.textAreaView() + "\n" +
		m.help.View(m.keyMap)
}

func wrapWords(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}
