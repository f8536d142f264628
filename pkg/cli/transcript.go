package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/callwaiting/voxbridge/pkg/transcript"
)

// Theme defines the colors used to render a conversation.
type Theme struct {
	User  lipgloss.Color
	Agent lipgloss.Color
	Dim   lipgloss.Color
	Error lipgloss.Color
}

// DefaultTheme is the default bright theme.
var DefaultTheme = Theme{
	User:  lipgloss.Color("#58a6ff"),
	Agent: lipgloss.Color("#00ff9f"),
	Dim:   lipgloss.Color("#6e7681"),
	Error: lipgloss.Color("#ff7b72"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	User    lipgloss.Style
	Agent   lipgloss.Style
	Text    lipgloss.Style
	Interim lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		User:    lipgloss.NewStyle().Bold(true).Foreground(t.User),
		Agent:   lipgloss.NewStyle().Bold(true).Foreground(t.Agent),
		Text:    lipgloss.NewStyle(),
		Interim: lipgloss.NewStyle().Italic(true).Foreground(t.Dim),
		Status:  lipgloss.NewStyle().Foreground(t.Dim),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// RenderMessage renders one message as "[hh:mm:ss] speaker: text". Interim
// messages are dimmed. A positive width truncates the line.
func (s Styles) RenderMessage(m transcript.Message, width int) string {
	label := s.User.Render(string(m.Speaker))
	if m.Speaker == transcript.SpeakerAgent {
		label = s.Agent.Render(string(m.Speaker))
	}
	stamp := s.Status.Render("[" + m.Timestamp.Time().Format("15:04:05") + "]")
	prefix := stamp + " " + label + ": "

	text := m.Text
	if width > 0 {
		if room := width - lipgloss.Width(prefix); room > 1 && lipgloss.Width(text) > room {
			text = truncateString(text, room-1) + "…"
		}
	}
	if m.IsInterim() {
		return prefix + s.Interim.Render(text)
	}
	return prefix + s.Text.Render(text)
}

// RenderTranscript renders every message, one per line.
func (s Styles) RenderTranscript(messages []transcript.Message, width int) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, s.RenderMessage(m, width))
	}
	return strings.Join(lines, "\n")
}

// LivePrinter writes a conversation to a terminal as it evolves. It is fed
// full transcript snapshots and prints each final message once.
type LivePrinter struct {
	w      io.Writer
	styles Styles

	// Interim makes the printer also show speech still being recognized.
	Interim bool

	mu          sync.Mutex
	printed     map[string]bool
	lastInterim string
}

// NewLivePrinter returns a printer writing to w.
func NewLivePrinter(w io.Writer, styles Styles) *LivePrinter {
	return &LivePrinter{
		w:       w,
		styles:  styles,
		printed: make(map[string]bool),
	}
}

// Update prints whatever in messages has not been printed yet.
func (p *LivePrinter) Update(messages []transcript.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range messages {
		if !m.IsFinal {
			if p.Interim && m.Text != p.lastInterim {
				p.lastInterim = m.Text
				fmt.Fprintln(p.w, p.styles.RenderMessage(m, 0))
			}
			continue
		}
		if p.printed[m.ID] {
			continue
		}
		p.printed[m.ID] = true
		p.lastInterim = ""
		fmt.Fprintln(p.w, p.styles.RenderMessage(m, 0))
	}
}

// Status prints a dimmed status line.
func (p *LivePrinter) Status(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.styles.Status.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *LivePrinter) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.styles.Error.Render("error: "+err.Error()))
}

// truncateString safely truncates a string to the given width,
// handling multi-byte characters correctly.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width {
			return string(runes[:i])
		}
		currentWidth += w
	}
	return s
}
