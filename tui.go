package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fluent/clipboard"
	"fluent/session"
)

// TUI message types
type StateMsg struct{ State session.State }
type NoticeMsg struct{ Notification session.Notification }
type AudioLevelMsg struct{ Level float64 }
type NoVoiceWarningMsg struct{}
type VoiceClearedMsg struct{}
type copiedMsg struct{ err error }
type tickMsg time.Time

const maxNotices = 4

// practice is the part of *session.Controller the TUI drives.
type practice interface {
	Start()
	Stop()
	Analyze()
	Reset()
	PlayReference()
	PlayRecording()
	SelectSentence(string) error
}

type tuiModel struct {
	ctrl practice
	st   session.State

	cursor        int
	notices       []session.Notification
	frame         int
	recStart      time.Time
	recDur        float64
	audioLevel    float64
	peakLevel     float64
	noVoice       bool
	copied        bool
	width, height int
	modeLine      string
	deviceLine    string
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	readyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	meterOn     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterHot    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	meterOff    = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

func newModel(ctrl practice, st session.State, deviceLine, modeLine string) tuiModel {
	cursor := session.Index(st.Sentence)
	if cursor < 0 {
		cursor = 0
	}
	return tuiModel{ctrl: ctrl, st: st, cursor: cursor, deviceLine: deviceLine, modeLine: modeLine}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// call runs a controller method off the Update goroutine, since the
// controller reports back through Program.Send.
func call(f func()) tea.Cmd {
	return func() tea.Msg {
		f()
		return nil
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		if m.st.Phase == session.Recording {
			m.recDur = time.Since(m.recStart).Seconds()
		}
		return m, tuiTick()

	case StateMsg:
		if msg.State.Phase == session.Recording && m.st.Phase != session.Recording {
			m.recStart = time.Now()
			m.recDur = 0
			m.audioLevel = 0
			m.peakLevel = 0
			m.noVoice = false
		}
		if msg.State.Feedback != m.st.Feedback {
			m.copied = false
		}
		m.st = msg.State
		if i := session.Index(m.st.Sentence); i >= 0 {
			m.cursor = i
		}

	case NoticeMsg:
		m.notices = append(m.notices, msg.Notification)
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}

	case AudioLevelMsg:
		if m.st.Phase == session.Recording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case NoVoiceWarningMsg:
		m.noVoice = true

	case VoiceClearedMsg:
		m.noVoice = false

	case copiedMsg:
		m.copied = msg.err == nil
		if msg.err != nil {
			m.notices = append(m.notices, session.Notification{Level: session.Error, Title: "Copy failed", Body: msg.err.Error()})
		}
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.ctrl
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(session.Catalog)-1 {
			m.cursor++
		}
	case "enter":
		s := session.Catalog[m.cursor]
		return m, call(func() { c.SelectSentence(s) })
	case "1", "2", "3", "4", "5":
		s, err := session.Sentence(int(key[0]-'1'))
		if err != nil {
			return m, nil
		}
		m.cursor = int(key[0] - '1')
		return m, call(func() { c.SelectSentence(s) })
	case " ", "r":
		if m.st.Phase == session.Recording {
			return m, call(c.Stop)
		}
		return m, call(c.Start)
	case "a":
		return m, call(c.Analyze)
	case "p":
		return m, call(c.PlayReference)
	case "l":
		return m, call(c.PlayRecording)
	case "x", "esc":
		return m, call(c.Reset)
	case "c":
		if m.st.Feedback == "" {
			return m, nil
		}
		text := m.st.Feedback
		return m, func() tea.Msg { return copiedMsg{err: clipboard.Copy(text)} }
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const leftWidth = 56
	var left []string

	left = append(left, titleStyle.Render("fluent")+dimStyle.Render("  pronunciation practice"), "")
	for i, s := range session.Catalog {
		line := fmt.Sprintf("%d. %s", i+1, s)
		switch {
		case i == m.cursor:
			left = append(left, cursorStyle.Render("▶ "+line))
		case s == m.st.Sentence:
			left = append(left, "  "+line)
		default:
			left = append(left, dimStyle.Render("  "+line))
		}
	}
	left = append(left, "", m.statusLine())

	if m.st.Phase == session.Recording {
		left = append(left, renderMeter(m.audioLevel, 30))
		if m.noVoice || (m.recDur > 1.0 && m.peakLevel < voiceLevel) {
			left = append(left, warnStyle.Render("  ⚠ no voice detected"))
		}
	}
	if m.st.PlayingReference {
		left = append(left, readyStyle.Render("♪ playing reference"))
	}
	if m.st.PlayingRecording {
		left = append(left, readyStyle.Render("♪ playing your recording"))
	}

	if m.modeLine != "" {
		left = append(left, "", dimStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		left = append(left, dimStyle.Render(m.deviceLine))
	}

	left = append(left, "")
	left = append(left, helpLine("space", "record/stop", "p", "reference", "l", "listen"))
	left = append(left, helpLine("a", "analyze", "x", "reset", "c", "copy"))
	left = append(left, helpLine("↑/↓ enter", "sentence", "q", "quit"))
	left = append(left, helpStyle.Render("fluent "+version))

	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	right := m.feedbackPanel(rightWidth - 2)

	leftPanel := lipgloss.NewStyle().Width(leftWidth).Height(m.height).Render(strings.Join(left, "\n"))
	rightPanel := lipgloss.NewStyle().Width(rightWidth).Height(m.height).PaddingLeft(1).Render(right)
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) statusLine() string {
	switch m.st.Phase {
	case session.Recording:
		return recStyle.Render(fmt.Sprintf("● REC %.1fs", m.recDur))
	case session.Analyzing:
		spin := []string{"◐", "◓", "◑", "◒"}[m.frame%4]
		return busyStyle.Render(spin + " analyzing...")
	case session.Ready:
		return readyStyle.Render("✓ feedback ready")
	default:
		return dimStyle.Render("○ STANDBY")
	}
}

func (m tuiModel) feedbackPanel(width int) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder

	if m.st.Feedback != "" {
		b.WriteString(dimStyle.Render("Feedback") + "\n\n")
		style := textStyle
		if m.st.FeedbackErr != "" {
			style = warnStyle
		}
		lines := wrapText(m.st.Feedback, width)
		for i, line := range lines {
			b.WriteString(style.Render(line))
			if i == len(lines)-1 && m.copied {
				b.WriteString(" " + readyStyle.Render("[✓ copied]"))
			}
			b.WriteString("\n")
		}
	} else if m.st.Phase == session.Analyzing {
		b.WriteString(dimStyle.Render("Analyzing your pronunciation...") + "\n")
	} else {
		b.WriteString(dimStyle.Render("Record yourself reading the sentence to get feedback") + "\n")
	}

	if len(m.notices) > 0 {
		b.WriteString("\n")
		for _, n := range m.notices {
			style := dimStyle
			if n.Level == session.Error {
				style = errorStyle
			}
			b.WriteString(style.Render(n.Title))
			if n.Body != "" {
				b.WriteString(dimStyle.Render(": " + n.Body))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, keyStyle.Render(pairs[i])+helpStyle.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, helpStyle.Render("  "))
}

// renderMeter draws level (0..1 RMS) as a bar. Speech sits around
// 0.05-0.3, so the scale is stretched.
func renderMeter(level float64, width int) string {
	filled := int(level * 4 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	hot := width * 9 / 10
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i >= filled:
			b.WriteString(meterOff.Render("▁"))
		case i >= hot:
			b.WriteString(meterHot.Render("█"))
		default:
			b.WriteString(meterOn.Render("█"))
		}
	}
	return b.String()
}

// wrapText breaks every line of text at spaces so no line is wider than
// width bytes. Words longer than width are split.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		for len(para) > width {
			splitAt := width
			for i := width; i > 0; i-- {
				if para[i] == ' ' {
					splitAt = i
					break
				}
			}
			lines = append(lines, para[:splitAt])
			para = strings.TrimLeft(para[splitAt:], " ")
		}
		if len(para) > 0 {
			lines = append(lines, para)
		}
	}
	return lines
}

// tui adapts a Bubble Tea program to session.Sink.
type tui struct {
	ctrl       practice
	deviceLine string
	modeLine   string

	mu   sync.Mutex
	prog *tea.Program
}

func newTUI(deviceLine, modeLine string) *tui {
	return &tui{deviceLine: deviceLine, modeLine: modeLine}
}

func (u *tui) StateChanged(st session.State)  { u.send(StateMsg{State: st}) }
func (u *tui) Notify(n session.Notification) { u.send(NoticeMsg{Notification: n}) }

// send drops messages while no program is running.
func (u *tui) send(msg tea.Msg) {
	u.mu.Lock()
	p := u.prog
	u.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (u *tui) quit() {
	u.mu.Lock()
	p := u.prog
	u.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (u *tui) run(initial session.State) error {
	p := tea.NewProgram(newModel(u.ctrl, initial, u.deviceLine, u.modeLine), tea.WithAltScreen())
	u.mu.Lock()
	u.prog = p
	u.mu.Unlock()

	_, err := p.Run()

	u.mu.Lock()
	u.prog = nil
	u.mu.Unlock()
	return err
}
