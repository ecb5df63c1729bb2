// Package playback plays decoded PCM through the default output device.
package playback

import (
	"context"
	"sync"
	"time"
)

// PCM is little-endian signed 16-bit audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

func (p PCM) Duration() time.Duration {
	if p.SampleRate == 0 || p.Channels == 0 {
		return 0
	}
	frames := len(p.Data) / (2 * p.Channels)
	return time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
}

// Player plays a clip to completion. Play blocks until the audio has been
// drained or ctx is done, and returns ctx.Err() in the latter case.
type Player interface {
	Play(ctx context.Context, pcm PCM) error
}

// Null discards audio instantly.
type Null struct{}

func (Null) Play(ctx context.Context, _ PCM) error {
	return ctx.Err()
}

// Fake records what it was asked to play. When Block is set, Play waits for
// ctx to be cancelled or Release to be called.
type Fake struct {
	Err   error
	Block bool

	mu      sync.Mutex
	played  []PCM
	active  int
	release chan struct{}
}

func (f *Fake) Play(ctx context.Context, pcm PCM) error {
	f.mu.Lock()
	f.played = append(f.played, pcm)
	f.active++
	if f.release == nil {
		f.release = make(chan struct{})
	}
	release := f.release
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.Err != nil {
		return f.Err
	}
	if !f.Block {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-release:
		return nil
	}
}

// Release lets every blocked Play return as finished.
func (f *Fake) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.release == nil {
		f.release = make(chan struct{})
	}
	close(f.release)
	f.release = nil
}

func (f *Fake) Played() []PCM {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PCM(nil), f.played...)
}

// Active is the number of Play calls in progress.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}
