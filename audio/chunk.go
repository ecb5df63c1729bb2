package audio

import (
	"bytes"
	"sync"
)

// ChunkBuffer accumulates the fragments of one recording in arrival order.
// Fragments are joined only by Drain, which also empties the buffer.
type ChunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

// Append stores a copy of chunk. Empty chunks are ignored.
func (b *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, c)
	b.size += len(c)
	b.mu.Unlock()
}

func (b *ChunkBuffer) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

func (b *ChunkBuffer) buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Drain returns the ordered concatenation of every chunk and the number of
// chunks it was built from, then discards them.
func (b *ChunkBuffer) Drain() ([]byte, int) {
	b.mu.Lock()
	chunks, size := b.chunks, b.size
	b.chunks, b.size = nil, 0
	b.mu.Unlock()

	out := bytes.NewBuffer(make([]byte, 0, size))
	for _, c := range chunks {
		out.Write(c)
	}
	return out.Bytes(), len(chunks)
}

func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	b.chunks, b.size = nil, 0
	b.mu.Unlock()
}

// slicer regroups device callbacks, whose size the backend picks, into
// fixed-period chunks. The remainder is emitted by flush.
type slicer struct {
	period  int
	pending []byte
	emit    func([]byte)
}

func (s *slicer) write(data []byte) {
	s.pending = append(s.pending, data...)
	for len(s.pending) >= s.period {
		s.emit(s.pending[:s.period])
		s.pending = s.pending[s.period:]
	}
	if len(s.pending) == 0 {
		s.pending = nil
	}
}

func (s *slicer) flush() {
	if len(s.pending) > 0 {
		s.emit(s.pending)
	}
	s.pending = nil
}
