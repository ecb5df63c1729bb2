package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/genai"

	"fluent/apperr"
	"fluent/playback"
	"fluent/speech"
)

const speechMIME = "audio/L16;codec=pcm;rate=24000"

func wait(t *testing.T, p *Playback) Outcome {
	t.Helper()
	select {
	case o := <-p.Done():
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("playback never resolved")
		return Outcome{}
	}
}

func TestSynthesizePlaysRemoteAudio(t *testing.T) {
	audio := make([]byte, 4800)
	gen := &fakeGen{resp: partsResponse(&genai.Part{InlineData: &genai.Blob{Data: audio, MIMEType: speechMIME}})}
	player := &playback.Fake{}
	speaker := &speech.Fake{}
	s := newSynthesizer(gen, "speech-model", "Kore", player, speaker, 0.7)

	p := s.Synthesize(context.Background(), "Peter Piper picked a peck of pickled peppers")
	o := wait(t, p)

	if o.Status != Finished || o.Fallback {
		t.Errorf("outcome = %+v, want remote finish", o)
	}
	if src, ok := <-p.Started(); !ok || src != Remote {
		t.Errorf("started = %q", src)
	}
	played := player.Played()
	if len(played) != 1 || played[0].SampleRate != 24000 || len(played[0].Data) != 4800 {
		t.Errorf("played = %+v", played)
	}
	if len(speaker.Said()) != 0 {
		t.Error("local voice must not speak when remote audio played")
	}
	if gen.cfg == nil || len(gen.cfg.ResponseModalities) != 1 || gen.cfg.ResponseModalities[0] != "AUDIO" {
		t.Errorf("config = %+v, want AUDIO modality", gen.cfg)
	}
	if gen.cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
		t.Error("voice not requested")
	}
}

func TestSynthesizeFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		gen       *fakeGen
		playerErr error
		wantKind  apperr.Kind
	}{
		{"request error", &fakeGen{err: errors.New("dial tcp: refused")}, nil, apperr.NetworkFailure},
		{"no candidates", &fakeGen{resp: &genai.GenerateContentResponse{}}, nil, apperr.MalformedResponse},
		{"text only", &fakeGen{resp: partsResponse(&genai.Part{Text: "I cannot speak"})}, nil, apperr.MalformedResponse},
		{"unsupported audio", &fakeGen{resp: partsResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte{1, 2}, MIMEType: "audio/ogg"}})}, nil, apperr.MalformedResponse},
		{"player error", &fakeGen{resp: partsResponse(&genai.Part{InlineData: &genai.Blob{Data: make([]byte, 10), MIMEType: speechMIME}})}, errors.New("no sink"), apperr.PlaybackFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := &speech.Fake{}
			s := newSynthesizer(tt.gen, "m", "Kore", &playback.Fake{Err: tt.playerErr}, speaker, 0.7)
			p := s.Synthesize(context.Background(), "She sells seashells by the seashore")
			o := wait(t, p)

			if o.Status != Finished || !o.Fallback {
				t.Errorf("outcome = %+v, want fallback finish", o)
			}
			if k := apperr.KindOf(o.Reason); k != tt.wantKind {
				t.Errorf("reason kind = %q, want %q", k, tt.wantKind)
			}
			want := Local
			if tt.playerErr != nil {
				want = Remote // remote audio started before the player failed
			}
			if src := <-p.Started(); src != want {
				t.Errorf("started = %q, want %q", src, want)
			}
			said := speaker.Said()
			if len(said) != 1 || said[0] != "She sells seashells by the seashore" {
				t.Errorf("said = %v", said)
			}
			if r := speaker.Rates(); r[0] != 0.7 {
				t.Errorf("rate = %v, want 0.7", r[0])
			}
			if tt.gen.Calls() != 1 {
				t.Errorf("requests = %d, want 1", tt.gen.Calls())
			}
		})
	}
}

func TestSynthesizeFallbackAlwaysFinishes(t *testing.T) {
	s := newSynthesizer(&fakeGen{err: errors.New("offline")}, "m", "", &playback.Fake{}, &speech.Fake{Err: speech.ErrUnavailable}, 0)
	o := wait(t, s.Synthesize(context.Background(), "x"))
	if o.Status != Finished || !o.Fallback {
		t.Errorf("outcome = %+v", o)
	}
}

func TestSynthesizeCancelled(t *testing.T) {
	gen := &fakeGen{resp: partsResponse(&genai.Part{InlineData: &genai.Blob{Data: make([]byte, 10), MIMEType: speechMIME}})}
	player := &playback.Fake{Block: true}
	speaker := &speech.Fake{}
	s := newSynthesizer(gen, "m", "", player, speaker, 0.7)

	ctx, cancel := context.WithCancel(context.Background())
	p := s.Synthesize(ctx, "x")

	deadline := time.Now().Add(time.Second)
	for player.Active() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	o := wait(t, p)
	if o.Status != Failed {
		t.Errorf("status = %v, want failed", o.Status)
	}
	if len(speaker.Said()) != 0 {
		t.Error("cancelled playback must not fall back")
	}
	if _, ok := <-p.Done(); ok {
		t.Error("Done should be closed after its single outcome")
	}
	if src := <-p.Started(); src != Remote {
		t.Errorf("started = %q, want remote", src)
	}
}

func TestSynthesizeOverHTTP(t *testing.T) {
	audio := make([]byte, 960)
	body := fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":%q,"data":%q}}]}}]}`,
		speechMIME, base64.StdEncoding.EncodeToString(audio))
	srv := newFakeServer(t, http.StatusOK, body)
	player := &playback.Fake{}

	s := srv.client(t).Synthesizer(player, &speech.Fake{}, 0.7)
	o := wait(t, s.Synthesize(context.Background(), "I scream, you scream, we all scream for ice cream"))

	if o.Fallback {
		t.Fatalf("fell back: %v", o.Reason)
	}
	if got := player.Played(); len(got) != 1 || len(got[0].Data) != 960 {
		t.Errorf("played = %+v", got)
	}
	cfg, _ := srv.lastRequest(t)["generationConfig"].(map[string]any)
	mods, _ := cfg["responseModalities"].([]any)
	if len(mods) != 1 || mods[0] != "AUDIO" {
		t.Errorf("generationConfig = %v", cfg)
	}
}

func TestSynthesizeCancelledBeforeAudio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	speaker := &speech.Fake{}
	s := newSynthesizer(&fakeGen{}, "m", "", &playback.Fake{}, speaker, 0.7)

	p := s.Synthesize(ctx, "x")
	if o := wait(t, p); o.Status != Failed {
		t.Errorf("status = %v", o.Status)
	}
	if _, ok := <-p.Started(); ok {
		t.Error("nothing should have started")
	}
	if len(speaker.Said()) != 0 {
		t.Error("local voice spoke after cancel")
	}
}
