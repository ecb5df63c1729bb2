package main

import (
	"sync"
	"time"

	"fluent/audio"
)

const (
	tickInterval        = audio.ChunkPeriod
	silenceWarnEvery    = 3 * time.Second
	silenceAutoCloseDur = 15 * time.Second
	voiceLevel          = 0.02 // chunk RMS at or above this counts as voice
	speechMinRatio      = 0.10
	speechClearRatio    = 0.25 // higher threshold to clear warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
	SilenceAutoClose              // long silence, stop the recording
)

// silenceMonitor keeps a sliding window of per-chunk voice flags.
type silenceMonitor struct {
	warnAt   int
	windowSz int
	autoStop bool

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	closed      bool
}

func newSilenceMonitor(autoStop bool) *silenceMonitor {
	warnAt := int(silenceWarnEvery / tickInterval)
	windowSz := int(silenceAutoCloseDur / tickInterval)
	return &silenceMonitor{
		warnAt:   warnAt,
		windowSz: windowSz,
		autoStop: autoStop,
		window:   make([]bool, windowSz),
	}
}

func (m *silenceMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *silenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)

	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}

	// fires once per recording
	if m.autoStop && !m.closed && m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < speechMinRatio {
		m.closed = true
		return SilenceAutoClose
	}
	return SilenceNone
}

// levelWatcher feeds chunk levels from the recorder into a monitor that is
// replaced at the start of every recording.
type levelWatcher struct {
	mu       sync.Mutex
	autoStop bool
	mon      *silenceMonitor
}

func newLevelWatcher(autoStop bool) *levelWatcher {
	return &levelWatcher{autoStop: autoStop, mon: newSilenceMonitor(autoStop)}
}

func (w *levelWatcher) Reset() {
	w.mu.Lock()
	w.mon = newSilenceMonitor(w.autoStop)
	w.mu.Unlock()
}

func (w *levelWatcher) Level(rms float64) SilenceEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mon.Tick(rms >= voiceLevel)
}
