package main

import (
	"sync"

	"fluent/beep"
	"fluent/session"
)

// cueSink adds audio cues to controller events before passing them on to
// the display.
type cueSink struct {
	next  session.Sink
	watch *levelWatcher

	mu   sync.Mutex
	last session.Phase
}

func newCueSink(next session.Sink, watch *levelWatcher) *cueSink {
	return &cueSink{next: next, watch: watch}
}

func (s *cueSink) StateChanged(st session.State) {
	s.mu.Lock()
	prev := s.last
	s.last = st.Phase
	s.mu.Unlock()

	switch {
	case st.Phase == session.Recording && prev != session.Recording:
		if s.watch != nil {
			s.watch.Reset()
		}
		beep.PlayStart()
	case prev == session.Recording && st.Phase != session.Recording:
		beep.PlayEnd()
	}
	s.next.StateChanged(st)
}

func (s *cueSink) Notify(n session.Notification) {
	if n.Level == session.Error {
		beep.PlayError()
	}
	s.next.Notify(n)
}
