// Package beep plays short cue tones when recording starts and stops.
package beep

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"fluent/playback"
)

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	mu       sync.Mutex
	player   playback.Player
	disabled bool

	startTone playback.PCM
	endTone   playback.PCM
	errorTone playback.PCM
	toneOnce  sync.Once
)

func Disable() {
	mu.Lock()
	disabled = true
	mu.Unlock()
}

// Init sets the output used for cues. A nil player disables them.
func Init(p playback.Player) {
	toneOnce.Do(initTones)
	mu.Lock()
	player = p
	disabled = p == nil
	mu.Unlock()
}

func initTones() {
	startTone = tone(generateTick(startFreq, 0.2, startVolume, startDecay))
	endTone = tone(generateTick(endFreq, 0.2, endVolume, endDecay))
	errorTone = tone(generateDoubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay))
}

func tone(samples []int16) playback.PCM {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return playback.PCM{Data: data, SampleRate: sampleRate, Channels: 1}
}

func generateTick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := generateTick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(b)*2+len(gap))
	result = append(result, b...)
	result = append(result, gap...)
	result = append(result, b...)
	return result
}

func play(pcm playback.PCM) {
	mu.Lock()
	p, off := player, disabled
	mu.Unlock()
	if off || p == nil {
		return
	}
	go p.Play(context.Background(), pcm)
}

func PlayStart() { play(startTone) }
func PlayEnd()   { play(endTone) }
func PlayError() { play(errorTone) }
