package beep

import (
	"testing"
	"time"

	"fluent/playback"
)

func TestCuesReachPlayer(t *testing.T) {
	f := &playback.Fake{}
	Init(f)
	t.Cleanup(func() { Init(nil) })

	PlayStart()
	PlayError()

	deadline := time.Now().Add(time.Second)
	for len(f.Played()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	played := f.Played()
	if len(played) != 2 {
		t.Fatalf("played %d cues, want 2", len(played))
	}
	for _, p := range played {
		if p.SampleRate != sampleRate || p.Channels != 1 || len(p.Data) == 0 {
			t.Errorf("bad cue %d Hz x%d %d bytes", p.SampleRate, p.Channels, len(p.Data))
		}
	}
}

func TestErrorToneIsDoubleBeep(t *testing.T) {
	Init(nil)
	single := int(sampleRate * 0.08)
	gap := int(sampleRate * 0.05)
	if got := len(errorTone.Data) / 2; got != 2*single+gap {
		t.Errorf("error tone = %d samples, want %d", got, 2*single+gap)
	}
}
