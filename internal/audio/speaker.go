package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"jarvis/internal/ports"
)

// Speaker plays session audio through the default output device using oto.
// oto allows one context per process, so the first Open fixes the device
// rate and channel count for the life of the process.
type Speaker struct {
	bufferSize time.Duration

	once       sync.Once
	ctx        *oto.Context
	sampleRate int
	channels   int
	initErr    error
}

func NewSpeaker(bufferSize time.Duration) *Speaker {
	if bufferSize <= 0 {
		bufferSize = 100 * time.Millisecond
	}
	return &Speaker{bufferSize: bufferSize}
}

func (s *Speaker) Open(ctx context.Context, cfg ports.OutputConfig) (ports.OutputSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	s.once.Do(func() {
		otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   s.bufferSize,
		})
		if err != nil {
			s.initErr = fmt.Errorf("failed to init speaker: %w", err)
			return
		}
		select {
		case <-ready:
		case <-ctx.Done():
			s.initErr = ctx.Err()
			return
		}
		s.ctx = otoCtx
		s.sampleRate = cfg.SampleRate
		s.channels = cfg.Channels
	})
	if s.initErr != nil {
		return nil, s.initErr
	}

	timeline := NewTimeline(s.sampleRate, s.channels)
	player := s.ctx.NewPlayer(timeline)
	player.Play()
	return &speakerSession{Timeline: timeline, player: player}, nil
}

type speakerSession struct {
	*Timeline
	player *oto.Player

	closeOnce sync.Once
	closeErr  error
}

func (s *speakerSession) Close() error {
	s.closeOnce.Do(func() {
		s.Timeline.Close()
		s.player.Pause()
		s.closeErr = s.player.Close()
	})
	return s.closeErr
}
