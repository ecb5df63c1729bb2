package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"fluent/apperr"
	"fluent/encoder"
)

// ChunkPeriod is how much audio each buffered chunk holds.
const ChunkPeriod = 100 * time.Millisecond

// Clip is one finished recording.
type Clip struct {
	PCM      []byte // ordered concatenation of every captured chunk
	Data     []byte // PCM in the clip's Format
	Format   string
	MIMEType string
	Chunks   int
	Duration time.Duration
	Encode   time.Duration
}

// Recorder owns the microphone for the length of one recording. The capture
// device is opened by Start and released by Stop or Close on every path.
type Recorder struct {
	actx   Context
	device *DeviceInfo
	format string

	// OnLevel, when set, receives the RMS (0..1) of every chunk.
	OnLevel func(rms float64)

	// life serializes Start, Stop and Close so a new recording never
	// begins while the previous one is being torn down.
	life sync.Mutex

	mu     sync.Mutex
	dev    CaptureDevice
	active bool

	// smu guards slice; device callbacks take only smu, so a backend may
	// deliver data from inside Start.
	smu   sync.Mutex
	slice *slicer
	buf   ChunkBuffer
}

func NewRecorder(actx Context, device *DeviceInfo, format string) *Recorder {
	return &Recorder{actx: actx, device: device, format: format}
}

func (r *Recorder) isActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start opens the microphone and begins buffering. Calling Start while a
// recording is active does nothing.
func (r *Recorder) Start() error {
	r.life.Lock()
	defer r.life.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil
	}

	dev, err := r.actx.NewCapture(r.device, CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		EchoCancel: true,
	})
	if err != nil {
		return classifyOpenError(err)
	}

	period := int(encoder.BytesPerSecond * ChunkPeriod / time.Second)
	r.smu.Lock()
	r.buf.Reset()
	r.slice = &slicer{period: period, emit: r.emitChunk}
	r.smu.Unlock()

	dev.SetCallback(func(data []byte, _ uint32) {
		r.smu.Lock()
		defer r.smu.Unlock()
		if r.slice != nil {
			r.slice.write(data)
		}
	})
	if err := dev.Start(); err != nil {
		release(dev)
		r.smu.Lock()
		r.slice = nil
		r.buf.Reset()
		r.smu.Unlock()
		return classifyOpenError(err)
	}

	r.dev = dev
	r.active = true
	return nil
}

// emitChunk runs with r.smu held.
func (r *Recorder) emitChunk(chunk []byte) {
	r.buf.Append(chunk)
	if r.OnLevel != nil {
		r.OnLevel(RMS(chunk))
	}
}

// Stop finalizes the device, waits for the last callback, then joins the
// buffered chunks into a Clip. It returns a nil Clip when nothing was
// recorded or no recording was active.
func (r *Recorder) Stop() (*Clip, error) {
	r.life.Lock()
	defer r.life.Unlock()
	r.mu.Lock()
	dev := r.dev
	r.dev = nil
	wasActive := r.active
	r.active = false
	r.mu.Unlock()

	if !wasActive {
		return nil, nil
	}

	// no callback runs after release returns
	release(dev)

	r.smu.Lock()
	if r.slice != nil {
		r.slice.flush()
		r.slice = nil
	}
	pcm, chunks := r.buf.Drain()
	r.smu.Unlock()

	if len(pcm) == 0 {
		return nil, nil
	}

	data, mime, took, err := encoder.EncodePCM(r.format, pcm)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode recording", err)
	}
	return &Clip{
		PCM:      pcm,
		Data:     data,
		Format:   r.format,
		MIMEType: mime,
		Chunks:   chunks,
		Duration: encoder.Duration(len(pcm)),
		Encode:   took,
	}, nil
}

// Close releases the microphone and discards anything buffered.
func (r *Recorder) Close() {
	r.life.Lock()
	defer r.life.Unlock()
	r.mu.Lock()
	dev := r.dev
	r.dev = nil
	r.active = false
	r.mu.Unlock()

	release(dev)
	r.smu.Lock()
	r.slice = nil
	r.buf.Reset()
	r.smu.Unlock()
}

func release(dev CaptureDevice) {
	if dev == nil {
		return
	}
	dev.Stop()
	dev.ClearCallback()
	dev.Close()
}

// RMS of little-endian 16-bit PCM, normalized to 0..1.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

func classifyOpenError(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "denied") || strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized") {
		return apperr.Wrap(apperr.PermissionDenied, "microphone access denied", err)
	}
	return apperr.Wrap(apperr.DeviceUnavailable, "microphone unavailable", err)
}
