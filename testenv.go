package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fluent/audio"
	"fluent/beep"
	"fluent/clipboard"
	"fluent/clipstore"
	"fluent/config"
	"fluent/gemini"
	"fluent/log"
	"fluent/playback"
	"fluent/session"
)

// printer serializes event lines from the controller, player and speaker.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) line(format string, args ...any) {
	p.mu.Lock()
	fmt.Fprintf(p.w, format+"\n", args...)
	p.mu.Unlock()
}

type testSink struct{ out *printer }

func (s testSink) StateChanged(st session.State) {
	s.out.line("state phase=%s reference=%t listen=%t clip=%t", st.Phase, st.PlayingReference, st.PlayingRecording, st.Clip != nil)
	if st.Phase == session.Ready {
		s.out.line("feedback %q", st.Feedback)
	}
}

func (s testSink) Notify(n session.Notification) {
	level := "info"
	if n.Level == session.Error {
		level = "error"
	}
	kind := string(n.Kind)
	if kind == "" {
		kind = "-"
	}
	s.out.line("notify %s %s %s", level, kind, n.Title)
}

// testPlayer reports instead of making sound.
type testPlayer struct{ out *printer }

func (p testPlayer) Play(ctx context.Context, pcm playback.PCM) error {
	p.out.line("play rate=%d channels=%d duration=%.2fs", pcm.SampleRate, pcm.Channels, pcm.Duration().Seconds())
	return ctx.Err()
}

type testSpeaker struct{ out *printer }

func (s testSpeaker) Speak(ctx context.Context, text string, rate float64) error {
	s.out.line("speak rate=%.2f %q", rate, text)
	return ctx.Err()
}

// runTestMode drives a session from stdin with the microphone replaced by
// wavPath. One command per line:
//
//	SELECT n | START | STOP | ANALYZE | REFERENCE | PLAY | RESET | COPY
//	WAIT | WAIT_AUDIO_DONE | SLEEP ms | QUIT
func runTestMode(ctx context.Context, cfg *config.Config, client *gemini.Client, wavPath string, sentence int) int {
	beep.Disable()
	out := &printer{w: os.Stdout}

	fake, err := audio.NewFakeContext(wavPath, os.Getenv("FLUENT_TEST_REALTIME") != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	player := testPlayer{out: out}
	rec := audio.NewRecorder(fake, nil, cfg.Format)
	ctrl := session.New(session.Deps{
		Recorder:    rec,
		Analyzer:    client.Analyzer(),
		Synthesizer: client.Synthesizer(player, testSpeaker{out: out}, cfg.FallbackRate),
		Player:      player,
		Store:       clipstore.New(""),
		Sink:        testSink{out: out},
	})
	defer ctrl.Close()

	log.SessionStart("fake", cfg.Format, cfg.AnalysisModel, cfg.SynthesisModel)

	if sentence != 0 {
		s, err := session.Sentence(sentence - 1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		ctrl.SelectSentence(s)
	}

	var lastCapture *audio.FakeCapture
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		var cmd string
		select {
		case <-ctx.Done():
			return 0
		case line, ok := <-lines:
			if !ok {
				ctrl.Wait()
				return 0
			}
			cmd = line
		}

		name, arg, _ := strings.Cut(cmd, " ")
		switch name {
		case "":
		case "SELECT":
			n, err := strconv.Atoi(arg)
			if err != nil {
				out.line("error bad SELECT %q", arg)
				continue
			}
			s, err := session.Sentence(n - 1)
			if err != nil {
				out.line("error %v", err)
				continue
			}
			ctrl.SelectSentence(s)
		case "START":
			ctrl.Start()
			lastCapture = fake.LastCapture()
		case "STOP":
			ctrl.Stop()
		case "ANALYZE":
			ctrl.Analyze()
		case "REFERENCE":
			ctrl.PlayReference()
		case "PLAY":
			ctrl.PlayRecording()
		case "RESET":
			ctrl.Reset()
		case "COPY":
			text := ctrl.State().Feedback
			if err := clipboard.Copy(text); err != nil {
				out.line("error copy: %v", err)
				continue
			}
			out.line("copied %d", len(text))
		case "WAIT":
			ctrl.Wait()
		case "WAIT_AUDIO_DONE":
			if lastCapture != nil {
				<-lastCapture.AudioDone()
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			ctrl.Wait()
			return 0
		default:
			out.line("error unknown command %q", cmd)
		}
	}
}
