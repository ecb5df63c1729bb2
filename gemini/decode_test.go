package gemini

import (
	"testing"

	"fluent/encoder"
)

func TestDecodeAudio(t *testing.T) {
	pcm := make([]byte, 4800)
	tests := []struct {
		name     string
		mime     string
		data     []byte
		rate     int
		channels int
		wantLen  int
		wantErr  bool
	}{
		{"l16 with rate", "audio/L16;codec=pcm;rate=24000", pcm, 24000, 1, 4800, false},
		{"l16 default rate", "audio/L16", pcm, defaultSpeechRate, 1, 4800, false},
		{"l16 odd length", "audio/L16;rate=16000", pcm[:7], 16000, 1, 6, false},
		{"l16 stereo", "audio/L16;rate=48000;channels=2", pcm, 48000, 2, 4800, false},
		{"wav", "audio/wav", encoder.WAV(pcm, 22050, 1), 22050, 1, 4800, false},
		{"riff without mime", "", encoder.WAV(pcm, 8000, 1), 8000, 1, 4800, false},
		{"bad rate", "audio/L16;rate=fast", pcm, 0, 0, 0, true},
		{"mp3", "audio/mpeg", pcm, 0, 0, 0, true},
		{"empty", "audio/L16", nil, 0, 0, 0, true},
		{"garbage mime", ";;", pcm, 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAudio(tt.mime, tt.data)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.SampleRate != tt.rate || got.Channels != tt.channels || len(got.Data) != tt.wantLen {
				t.Errorf("got %d Hz x%d %d bytes", got.SampleRate, got.Channels, len(got.Data))
			}
		})
	}
}
