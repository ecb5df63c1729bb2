package main

import "testing"

func feedN(m *silenceMonitor, speech bool, n int) SilenceEvent {
	var last SilenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(speech)
	}
	return last
}

func TestSilenceWarnAfter3s(t *testing.T) {
	m := newSilenceMonitor(false)
	for i := 0; i < 29; i++ {
		if ev := m.Tick(false); ev != SilenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(false); ev != SilenceWarn {
		t.Fatalf("expected SilenceWarn at tick 30, got %d", ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := newSilenceMonitor(false)
	feedN(m, false, 30)

	for i := 0; i < 30; i++ {
		if m.Tick(true) == SilenceWarnClear {
			return
		}
	}
	t.Fatal("expected SilenceWarnClear after speech")
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := newSilenceMonitor(true)
	for i := 0; i < 300; i++ {
		if ev := m.Tick(true); ev == SilenceWarn || ev == SilenceAutoClose {
			t.Fatalf("unexpected event %d during speech at tick %d", ev, i)
		}
	}
}

func TestWarnOnlyOnce(t *testing.T) {
	m := newSilenceMonitor(false)
	warns := 0
	for i := 0; i < 300; i++ {
		if m.Tick(false) == SilenceWarn {
			warns++
		}
	}
	if warns != 1 {
		t.Fatalf("expected exactly 1 SilenceWarn, got %d", warns)
	}
}

func TestWarnStaysDuringNoise(t *testing.T) {
	m := newSilenceMonitor(false)
	feedN(m, false, 30)

	// a stray loud chunk (< 25% of the window) should not clear
	for i := 0; i < 30; i++ {
		if m.Tick(i%10 == 0) == SilenceWarnClear {
			t.Fatalf("warning cleared at tick %d with 10%% voice", i)
		}
	}
}

func TestAutoCloseOnce(t *testing.T) {
	m := newSilenceMonitor(true)
	closes := 0
	first := -1
	for i := 0; i < 400; i++ {
		if m.Tick(false) == SilenceAutoClose {
			closes++
			if first < 0 {
				first = i
			}
		}
	}
	if closes != 1 {
		t.Fatalf("expected one auto-close, got %d", closes)
	}
	if first != 149 {
		t.Errorf("auto-close at tick %d, want 149", first)
	}
}

func TestNoAutoCloseWhenDisabled(t *testing.T) {
	m := newSilenceMonitor(false)
	if feedN(m, false, 400) == SilenceAutoClose {
		t.Fatal("unexpected auto-close")
	}
	for i := 0; i < 400; i++ {
		if m.Tick(false) == SilenceAutoClose {
			t.Fatalf("unexpected auto-close at tick %d", i)
		}
	}
}

func TestAutoClosePreventedBySpeech(t *testing.T) {
	m := newSilenceMonitor(true)
	for i := 0; i < 500; i++ {
		if m.Tick(i%10 < 7) == SilenceAutoClose {
			t.Fatalf("unexpected auto-close with speech at tick %d", i)
		}
	}
}

func TestLevelWatcherReset(t *testing.T) {
	w := newLevelWatcher(false)
	var got SilenceEvent
	for i := 0; i < 30; i++ {
		got = w.Level(0)
	}
	if got != SilenceWarn {
		t.Fatalf("expected warn, got %d", got)
	}
	w.Reset()
	for i := 0; i < 29; i++ {
		if ev := w.Level(0.5); ev != SilenceNone {
			t.Fatalf("unexpected event after reset: %d", ev)
		}
	}
}
