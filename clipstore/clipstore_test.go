package clipstore

import (
	"os"
	"sync"
	"testing"

	"fluent/encoder"
)

func TestCreateAndRelease(t *testing.T) {
	s := New(t.TempDir())
	pcm := []byte{1, 0, 2, 0}

	h, err := s.Create(pcm)
	if err != nil {
		t.Fatal(err)
	}
	if s.Live() != 1 {
		t.Errorf("Live = %d, want 1", s.Live())
	}

	data, err := os.ReadFile(h.Path())
	if err != nil {
		t.Fatal(err)
	}
	got, rate, _, err := encoder.ParseWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if rate != encoder.SampleRate || string(got) != string(pcm) {
		t.Errorf("file holds %d Hz %v", rate, got)
	}

	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(h.Path()); !os.IsNotExist(err) {
		t.Error("file still present after Release")
	}
	if !h.Released() || s.Live() != 0 {
		t.Errorf("Released = %v, Live = %d", h.Released(), s.Live())
	}
}

func TestReleaseExactlyOnce(t *testing.T) {
	s := New(t.TempDir())
	h, err := s.Create([]byte{0, 0})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Release()
		}()
	}
	wg.Wait()

	if s.Live() != 0 {
		t.Errorf("Live = %d after concurrent releases, want 0", s.Live())
	}
}

func TestHandlesAreDistinct(t *testing.T) {
	s := New(t.TempDir())
	a, _ := s.Create(nil)
	b, _ := s.Create(nil)
	if a.Path() == b.Path() {
		t.Error("two handles share a path")
	}
	a.Release()
	if _, err := os.Stat(b.Path()); err != nil {
		t.Error("releasing one handle removed the other")
	}
}

func TestCreateInMissingDir(t *testing.T) {
	s := New(t.TempDir() + "/missing/dir")
	if _, err := s.Create(nil); err == nil {
		t.Error("expected error")
	}
	if s.Live() != 0 {
		t.Error("failed create must not count as live")
	}
}
