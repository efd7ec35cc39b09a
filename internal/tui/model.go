package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"supportbot/internal/domain"
)

// ChatPort is the TUI-facing subset of the service.
type ChatPort interface {
	Reply(kind domain.Kind, message string) domain.Reply
}

type exchange struct {
	kind    domain.Kind
	message string
	reply   domain.Reply
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service  ChatPort
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	kind     domain.Kind
	status   string
	ready    bool
}

// New creates a chat model talking to the engine of the given kind.
func New(service ChatPort, kind domain.Kind) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a support question and press Enter"
	ti.Focus()
	ti.CharLimit = 1000
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, kind: kind, status: "Tab switches engine, Ctrl+C quits."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				r := m.service.Reply(m.kind, q)
				m.history = append(m.history, exchange{kind: m.kind, message: q, reply: r})
				m.status = describe(r)
				m.input.SetValue("")
				m.refresh()
				return m, nil
			}
		case "tab":
			if m.kind == domain.KindBasic {
				m.kind = domain.KindEnhanced
			} else {
				m.kind = domain.KindBasic
			}
			m.status = fmt.Sprintf("Using the %s engine.", m.kind)
			return m, nil
		case "pgup", "up":
			m.viewport.LineUp(1)
			return m, nil
		case "pgdown", "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Support Bot") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(fmt.Sprintf("  [%s]", m.kind))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No messages yet."
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(ex.message)
		b.WriteString("\n")
		b.WriteString(botStyle.Render(fmt.Sprintf("Bot (%s): ", ex.kind)))
		if ex.reply.Outcome == domain.OutcomeAnswered {
			b.WriteString(highlightBestSentence(ex.reply.Text, ex.message))
		} else {
			b.WriteString(ex.reply.Text)
		}
	}
	return b.String()
}

func describe(r domain.Reply) string {
	s := fmt.Sprintf("%s  similarity=%.3f", r.Outcome, r.Similarity)
	if r.Intent != "" {
		s += fmt.Sprintf("  intent=%s (%.2f)", r.Intent, r.Confidence)
	}
	return s
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe         = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence of text sharing the most words
// with query. Texts of a single sentence are returned unchanged.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) < 2 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestIdx := 0
	bestScore := 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return text
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
