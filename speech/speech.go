// Package speech drives the operating system's offline text-to-speech
// engine. It is the last-resort voice for reference playback.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// ErrUnavailable means no local engine was found.
var ErrUnavailable = errors.New("no local text-to-speech engine")

// Speaker says text aloud and returns once speech has finished. Rate is a
// multiplier of the engine's normal speed; pitch and volume stay at their
// defaults.
type Speaker interface {
	Speak(ctx context.Context, text string, rate float64) error
}

// Local runs the platform engine as a child process. Cancelling ctx kills
// it mid-sentence.
type Local struct {
	name string
	path string
}

// NewLocal finds the platform engine on PATH.
func NewLocal() (*Local, error) {
	for _, name := range engines {
		if path, err := exec.LookPath(name); err == nil {
			return &Local{name: name, path: path}, nil
		}
	}
	return nil, ErrUnavailable
}

// Engine is the name of the program in use.
func (l *Local) Engine() string { return l.name }

func (l *Local) Speak(ctx context.Context, text string, rate float64) error {
	cmd := exec.CommandContext(ctx, l.path, args(l.name, text, rate)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", l.name, err, out)
	}
	return nil
}

// NoOp says nothing. Used when no engine is installed, so a fallback still
// completes.
type NoOp struct{}

func (NoOp) Speak(ctx context.Context, _ string, _ float64) error { return ctx.Err() }

// Fake records requests.
type Fake struct {
	Err error

	mu    sync.Mutex
	said  []string
	rates []float64
}

func (f *Fake) Speak(ctx context.Context, text string, rate float64) error {
	f.mu.Lock()
	f.said = append(f.said, text)
	f.rates = append(f.rates, rate)
	f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	return ctx.Err()
}

func (f *Fake) Said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.said...)
}

func (f *Fake) Rates() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.rates...)
}
