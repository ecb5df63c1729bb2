//go:build linux

package playback

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulsePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
}

func NewPlayer() (Player, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("fluent"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulsePlayer{client: c}, nil
}

func (p *pulsePlayer) Play(ctx context.Context, pcm PCM) error {
	samples := make([]int16, len(pcm.Data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm.Data[i*2:]))
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	channelOpt := pulse.PlaybackMono
	vols := proto.ChannelVolumes{uint32(proto.VolumeNorm)}
	if pcm.Channels == 2 {
		channelOpt = pulse.PlaybackStereo
		vols = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
	}

	p.mu.Lock()
	stream, err := p.client.NewPlayback(reader,
		channelOpt,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(cs *proto.CreatePlaybackStream) {
			cs.ChannelVolumes = vols
		}),
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	stream.Stop()
	return ctx.Err()
}
