package gemini

import (
	"bytes"
	"fmt"
	"mime"
	"strconv"

	"fluent/encoder"
	"fluent/playback"
)

const defaultSpeechRate = 24000

// decodeAudio turns an inline audio part into playable PCM. Gemini labels
// its speech "audio/L16;codec=pcm;rate=24000" but sends the samples
// little-endian.
func decodeAudio(mimeType string, data []byte) (playback.PCM, error) {
	if len(data) == 0 {
		return playback.PCM{}, fmt.Errorf("empty audio")
	}
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		// some responses omit the mime type; a RIFF header is unambiguous
		if isRIFF(data) {
			return decodeWAV(data)
		}
		return playback.PCM{}, fmt.Errorf("audio mime type %q: %w", mimeType, err)
	}

	switch mediaType {
	case "audio/l16", "audio/pcm":
		rate := defaultSpeechRate
		if v, ok := params["rate"]; ok {
			if rate, err = strconv.Atoi(v); err != nil || rate <= 0 {
				return playback.PCM{}, fmt.Errorf("bad sample rate %q", v)
			}
		}
		channels := 1
		if v, ok := params["channels"]; ok {
			if channels, err = strconv.Atoi(v); err != nil || channels <= 0 {
				return playback.PCM{}, fmt.Errorf("bad channel count %q", v)
			}
		}
		return playback.PCM{Data: data[:len(data)&^1], SampleRate: rate, Channels: channels}, nil

	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return decodeWAV(data)
	}
	return playback.PCM{}, fmt.Errorf("unsupported audio type %q", mediaType)
}

func decodeWAV(data []byte) (playback.PCM, error) {
	pcm, rate, channels, err := encoder.ParseWAV(data)
	if err != nil {
		return playback.PCM{}, err
	}
	return playback.PCM{Data: pcm, SampleRate: rate, Channels: channels}, nil
}

func isRIFF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("RIFF"))
}
