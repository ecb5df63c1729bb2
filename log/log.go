package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
	level    = zerolog.InfoLevel
)

// RequestMetrics describes one round trip to the remote model.
type RequestMetrics struct {
	Op          string // "analyze" or "synthesize"
	Model       string
	Status      int
	BytesSent   int64
	DNSTimeMs   float64
	ConnTimeMs  float64
	TLSTimeMs   float64
	TTFBMs      float64
	TotalTimeMs float64
	ConnReused  bool
	TLSProto    string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: FLUENT_LOG_PATH environment variable
	if envPath := os.Getenv("FLUENT_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

// SetLevel parses a zerolog level name. Unknown names leave the level unchanged.
func SetLevel(name string) error {
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	logMu.Lock()
	defer logMu.Unlock()
	level = l
	if logReady {
		diagLog = diagLog.Level(l)
	}
	return nil
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Debug(msg string) {
	if logReady {
		diagLog.Debug().Msg(msg)
	}
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Request(m RequestMetrics) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().
		Str("op", m.Op).
		Str("model", m.Model).
		Int("status", m.Status).
		Str("conn", connStatus)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	ev.Int64("sent_bytes", m.BytesSent).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("connect_ms", m.ConnTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("request")
}

// Recording logs the size of a finished capture.
func Recording(durationS float64, chunks int, rawKB, encodedKB float64, format string, encodeMs float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("audio_s", durationS).
		Int("chunks", chunks).
		Float64("raw_kb", rawKB).
		Float64("encoded_kb", encodedKB).
		Str("format", format).
		Float64("encode_ms", encodeMs).
		Msg("recording")
}

// Analysis records the outcome of one analysis, never the feedback text itself.
func Analysis(sentence int, chars int, kind string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().Int("sentence", sentence).Int("chars", chars)
	if kind != "" {
		ev = diagLog.Warn().Int("sentence", sentence).Str("error_kind", kind)
	}
	ev.Msg("analysis")
}

// Synthesis records which path produced the reference audio.
func Synthesis(source string, audioS float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("source", source).
		Float64("audio_s", audioS).
		Msg("synthesis")
}

func SessionStart(device, format, analysisModel, synthesisModel string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", device).
		Str("format", format).
		Str("analysis_model", analysisModel).
		Str("synthesis_model", synthesisModel).
		Msg("session_start")
}

func SessionEnd(recordings, analyses int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("recordings", recordings).
		Int("analyses", analyses).
		Msg("session_end")
}
