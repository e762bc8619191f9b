package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/domain"
	"coursetutor/internal/httpapi"
	"coursetutor/internal/service"
)

// TutorPort is the TUI-facing subset of the tutor service.
type TutorPort interface {
	Answer(ctx context.Context, question string, history []domain.Message) (service.AnswerResponse, error)
}

// answerMsg carries a finished answer back into the update loop.
type answerMsg struct {
	question string
	resp     service.AnswerResponse
	err      error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	ctx      context.Context
	tutor    TutorPort
	input    textinput.Model
	viewport viewport.Model
	history  []domain.Message
	overview string
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. The overview is shown under the title.
func New(ctx context.Context, tutor TutorPort, overview string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the course and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		tutor:    tutor,
		input:    ti,
		viewport: viewport.New(0, 0),
		overview: overview,
		status:   "Ready. Ctrl+C to quit.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // title+overview, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = errorStatus(msg.err)
			m.refresh()
			return m, nil
		}
		m.history = append(m.history,
			domain.Message{Role: domain.RoleUser, Content: msg.question},
			domain.Message{Role: domain.RoleAssistant, Content: msg.resp.Answer},
		)
		m.status = "Ready."
		if msg.resp.OutOfScope {
			m.status = "Outside the course material."
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.input.SetValue("")
			m.status = fmt.Sprintf("Thinking about %q...", q)
			return m, m.ask(q)
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// errorStatus keeps provider details out of the terminal; they go to the log.
func errorStatus(err error) string {
	if errors.Is(err, service.ErrEmptyQuestion) {
		return "Please enter a question."
	}
	log.Error().Err(err).Bool("upstream", domain.IsUpstream(err)).Msg("tui: answer failed")
	return httpapi.MsgUnavailable
}

// ask runs the question off the update loop. The history is copied so later
// turns cannot race with the in-flight request.
func (m Model) ask(q string) tea.Cmd {
	history := append([]domain.Message(nil), m.history...)
	ctx, tutor := m.ctx, m.tutor
	return func() tea.Msg {
		resp, err := tutor.Answer(ctx, q, history)
		return answerMsg{question: q, resp: resp, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("Course Tutor")
	overview := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.overview)
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return title + "\n" + overview + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, msg := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == domain.RoleUser {
			b.WriteString(studentStyle.Render("You: "))
		} else {
			b.WriteString(tutorStyle.Render("Tutor: "))
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	studentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	tutorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
