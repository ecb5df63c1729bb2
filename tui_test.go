package main

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"fluent/session"
)

type fakePractice struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakePractice) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakePractice) Start()         { f.record("start") }
func (f *fakePractice) Stop()          { f.record("stop") }
func (f *fakePractice) Analyze()       { f.record("analyze") }
func (f *fakePractice) Reset()         { f.record("reset") }
func (f *fakePractice) PlayReference() { f.record("reference") }
func (f *fakePractice) PlayRecording() { f.record("listen") }
func (f *fakePractice) SelectSentence(s string) error {
	f.record("select:" + s)
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tuiModel, k string) tuiModel {
	t.Helper()
	next, cmd := m.Update(key(k))
	if cmd != nil {
		cmd()
	}
	return next.(tuiModel)
}

func TestKeysDriveController(t *testing.T) {
	f := &fakePractice{}
	m := newModel(f, session.State{Phase: session.Idle, Sentence: session.DefaultSentence()}, "", "")

	m = press(t, m, " ")
	m.st.Phase = session.Recording
	m = press(t, m, " ")
	m = press(t, m, "a")
	m = press(t, m, "p")
	m = press(t, m, "l")
	m = press(t, m, "x")
	m = press(t, m, "3")

	want := []string{"start", "stop", "analyze", "reference", "listen", "reset", "select:" + session.Catalog[2]}
	if strings.Join(f.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
	if m.cursor != 2 {
		t.Errorf("cursor = %d", m.cursor)
	}
}

func TestCursorSelect(t *testing.T) {
	f := &fakePractice{}
	m := newModel(f, session.State{Sentence: session.DefaultSentence()}, "", "")

	m = press(t, m, "up")
	if m.cursor != 0 {
		t.Fatalf("cursor moved above first entry: %d", m.cursor)
	}
	m = press(t, m, "down")
	m = press(t, m, "down")
	press(t, m, "enter")

	if len(f.calls) != 1 || f.calls[0] != "select:"+session.Catalog[2] {
		t.Errorf("calls = %v", f.calls)
	}
}

func TestQuitKey(t *testing.T) {
	m := newModel(&fakePractice{}, session.State{}, "", "")
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestStateResetsRecordingView(t *testing.T) {
	m := newModel(&fakePractice{}, session.State{Sentence: session.DefaultSentence()}, "", "")
	m.noVoice = true
	m.peakLevel = 0.5

	next, _ := m.Update(StateMsg{State: session.State{Phase: session.Recording, Sentence: session.Catalog[4]}})
	m = next.(tuiModel)
	if m.noVoice || m.peakLevel != 0 {
		t.Error("recording view not reset")
	}
	if m.cursor != 4 {
		t.Errorf("cursor = %d, want 4", m.cursor)
	}

	next, _ = m.Update(AudioLevelMsg{Level: 0.2})
	if next.(tuiModel).peakLevel != 0.2 {
		t.Error("level ignored while recording")
	}
}

func TestNoticesAreCapped(t *testing.T) {
	m := newModel(&fakePractice{}, session.State{}, "", "")
	for i := 0; i < 10; i++ {
		next, _ := m.Update(NoticeMsg{Notification: session.Notification{Title: string(rune('a' + i))}})
		m = next.(tuiModel)
	}
	if len(m.notices) != maxNotices || m.notices[maxNotices-1].Title != "j" {
		t.Errorf("notices = %v", m.notices)
	}
}

func TestViewShowsFeedback(t *testing.T) {
	m := newModel(&fakePractice{}, session.State{
		Phase:    session.Ready,
		Sentence: session.Catalog[2],
		Feedback: "**Overall Accuracy**: 8/10",
	}, "mic: test", "[flac]")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	view := next.(tuiModel).View()

	for _, want := range []string{"She sells seashells", "Overall Accuracy", "feedback ready", "mic: test"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"short", 10, []string{"short"}},
		{"hello world again", 11, []string{"hello world", "again"}},
		{"hello world again", 8, []string{"hello", "world", "again"}},
		{"a\n\nb", 10, []string{"a", "", "b"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestRenderMeterClamps(t *testing.T) {
	if n := strings.Count(renderMeter(5, 10), "█"); n != 10 {
		t.Errorf("full meter has %d bars", n)
	}
	if n := strings.Count(renderMeter(0, 10), "█"); n != 0 {
		t.Errorf("empty meter has %d bars", n)
	}
}
