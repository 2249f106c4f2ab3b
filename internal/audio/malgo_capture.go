package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"jarvis/internal/ports"
)

// MalgoCapture records the default input device through miniaudio.
type MalgoCapture struct {
	backlog int
}

func NewMalgoCapture() *MalgoCapture {
	return &MalgoCapture{backlog: 16}
}

func (c *MalgoCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withCaptureDefaults(cfg)

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init capture context: %w", err)
	}

	session := &malgoSession{
		mctx:   mctx,
		framer: newFramer(cfg.FrameSize*cfg.Channels, c.backlog),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			session.framer.push(input)
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}
	session.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("failed to start microphone: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = session.Stop()
		return nil, err
	}
	return session, nil
}

type malgoSession struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	framer *framer

	stopOnce sync.Once
	stopErr  error
}

func (s *malgoSession) Frames() <-chan []float32 {
	return s.framer.out
}

func (s *malgoSession) Stop() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.device.Stop()
		s.device.Uninit()
		if err := s.mctx.Uninit(); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
		s.mctx.Free()
		s.framer.close()
	})
	return s.stopErr
}

// framer slices a float32 LE byte stream into fixed-size sample frames.
// A full consumer drops frames rather than stall the audio thread.
type framer struct {
	size int
	out  chan []float32

	mu      sync.Mutex
	pending []float32
	closed  bool
	dropped int
}

func newFramer(size, backlog int) *framer {
	if size <= 0 {
		size = 4096
	}
	return &framer{size: size, out: make(chan []float32, backlog)}
}

func (f *framer) push(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for i := 0; i+float32Bytes <= len(data); i += float32Bytes {
		f.pending = append(f.pending, math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
		if len(f.pending) == f.size {
			select {
			case f.out <- f.pending:
			default:
				f.dropped++
			}
			f.pending = make([]float32, 0, f.size)
		}
	}
}

func (f *framer) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.pending = nil
	close(f.out)
}

func withCaptureDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 4096
	}
	return cfg
}
