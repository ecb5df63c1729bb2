package encoder

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096

	BytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
	MIMEType() string
}

// New returns an encoder for "flac" or "wav".
func New(format string) (Encoder, error) {
	switch format {
	case "flac":
		return NewFlac()
	case "wav":
		return NewWav(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// EncodePCM runs the whole of a little-endian 16-bit mono recording through
// the named encoder in BlockSize blocks.
func EncodePCM(format string, pcm []byte) ([]byte, string, time.Duration, error) {
	enc, err := New(format)
	if err != nil {
		return nil, "", 0, err
	}

	start := time.Now()
	samples := Samples(pcm)
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, "", 0, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, "", 0, fmt.Errorf("closing %s encoder: %w", format, err)
	}
	enc.AddEncodeTime(time.Since(start))
	return enc.Bytes(), enc.MIMEType(), enc.EncodeTime(), nil
}

// Samples reinterprets little-endian PCM bytes. A trailing odd byte is dropped.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Duration is the playing time of mono 16-bit PCM at SampleRate.
func Duration(pcmBytes int) time.Duration {
	return time.Duration(pcmBytes) * time.Second / BytesPerSecond
}
