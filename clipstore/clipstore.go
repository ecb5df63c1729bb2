// Package clipstore turns a recording into a playable handle: a temporary
// WAV file that lives until the handle is released.
package clipstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"fluent/encoder"
)

type Store struct {
	dir  string
	live atomic.Int32
}

// New keeps handles under dir, or the system temp dir when dir is empty.
func New(dir string) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir}
}

// Live is the number of handles not yet released.
func (s *Store) Live() int {
	return int(s.live.Load())
}

type Handle struct {
	path     string
	store    *Store
	released atomic.Bool
}

// Create writes 16-bit mono PCM at encoder.SampleRate as a WAV file.
func (s *Store) Create(pcm []byte) (*Handle, error) {
	path := filepath.Join(s.dir, "fluent-"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, encoder.WAV(pcm, encoder.SampleRate, encoder.Channels), 0600); err != nil {
		return nil, fmt.Errorf("write clip: %w", err)
	}
	s.live.Add(1)
	return &Handle{path: path, store: s}, nil
}

func (h *Handle) Path() string { return h.path }

// Release removes the file. Only the first call has any effect.
func (h *Handle) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	h.store.live.Add(-1)
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove clip: %w", err)
	}
	return nil
}

func (h *Handle) Released() bool {
	return h.released.Load()
}
