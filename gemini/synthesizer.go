package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"fluent/apperr"
	"fluent/log"
	"fluent/playback"
	"fluent/speech"
)

const synthesisPrompt = "Please generate clear, native-level English pronunciation for: %q. Speak slowly and clearly with proper intonation."

// DefaultFallbackRate slows the local voice down relative to its default.
const DefaultFallbackRate = 0.7

type Status int

const (
	Finished Status = iota
	Failed
)

func (s Status) String() string {
	if s == Failed {
		return "failed"
	}
	return "finished"
}

// Outcome is how a reference playback ended. Fallback is set when the local
// voice spoke instead of the remote audio, and Reason says why.
type Outcome struct {
	Status   Status
	Fallback bool
	Reason   error
}

// Source is which voice a reference playback uses.
type Source string

const (
	Remote Source = "remote"
	Local  Source = "local"
)

// Playback is an in-flight reference playback.
type Playback struct {
	started chan Source
	done    chan Outcome
}

// Started delivers the first Source that begins to play and is then closed.
// It is closed without a value if nothing ever plays.
func (p *Playback) Started() <-chan Source { return p.started }

// Done delivers exactly one Outcome and is then closed.
func (p *Playback) Done() <-chan Outcome { return p.done }

func (p *Playback) start(src Source) {
	p.started <- src
	close(p.started)
}

type Synthesizer struct {
	gen     generator
	model   string
	voice   string
	player  playback.Player
	speaker speech.Speaker
	rate    float64
}

func (c *Client) Synthesizer(player playback.Player, speaker speech.Speaker, fallbackRate float64) *Synthesizer {
	return newSynthesizer(c.models, c.cfg.SynthesisModel, c.cfg.Voice, player, speaker, fallbackRate)
}

func newSynthesizer(gen generator, model, voice string, player playback.Player, speaker speech.Speaker, rate float64) *Synthesizer {
	if rate <= 0 {
		rate = DefaultFallbackRate
	}
	if speaker == nil {
		speaker = speech.NoOp{}
	}
	return &Synthesizer{gen: gen, model: model, voice: voice, player: player, speaker: speaker, rate: rate}
}

// Synthesize plays the sentence in the background: remote audio when the
// API returns some, otherwise the local voice. Exactly one of the two plays.
// Cancelling ctx stops playback and resolves the Playback as Failed.
func (s *Synthesizer) Synthesize(ctx context.Context, sentence string) *Playback {
	p := &Playback{started: make(chan Source, 1), done: make(chan Outcome, 1)}
	go func() {
		p.done <- s.run(ctx, p, sentence)
		close(p.done)
	}()
	return p
}

func (s *Synthesizer) run(ctx context.Context, p *Playback, sentence string) Outcome {
	var once sync.Once
	started := func(src Source) { once.Do(func() { p.start(src) }) }
	defer once.Do(func() { close(p.started) })

	pcm, err := s.fetch(ctx, sentence)
	if err == nil {
		log.Synthesis(string(Remote), pcm.Duration().Seconds())
		started(Remote)
		if err = s.player.Play(ctx, pcm); err == nil {
			return Outcome{Status: Finished}
		}
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = apperr.Playback("play reference audio", err)
		}
	}
	if ctx.Err() != nil {
		return Outcome{Status: Failed, Reason: ctx.Err()}
	}

	log.Warnf("reference audio unavailable, using local voice: %v", err)
	log.Synthesis(string(Local), 0)
	started(Local)
	if serr := s.speaker.Speak(ctx, sentence, s.rate); serr != nil {
		if ctx.Err() != nil {
			return Outcome{Status: Failed, Reason: ctx.Err()}
		}
		log.Warnf("local voice failed: %v", serr)
	}
	return Outcome{Status: Finished, Fallback: true, Reason: err}
}

func (s *Synthesizer) fetch(ctx context.Context, sentence string) (playback.PCM, error) {
	ctx = withOp(ctx, "synthesize", s.model)

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(synthesisPrompt, sentence), genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
	}
	if s.voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		}
	}

	resp, err := s.gen.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Network("synthesis request", err)
		}
		return playback.PCM{}, err
	}

	part := firstPart(resp)
	if part == nil || part.InlineData == nil {
		return playback.PCM{}, apperr.Malformed("response carries no audio")
	}
	pcm, err := decodeAudio(part.InlineData.MIMEType, part.InlineData.Data)
	if err != nil {
		return playback.PCM{}, apperr.Wrap(apperr.MalformedResponse, "decode reference audio", err)
	}
	return pcm, nil
}
