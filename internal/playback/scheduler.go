// Package playback schedules decoded speech chunks gaplessly on an output clock.
package playback

import (
	"sync"
	"time"

	"jarvis/internal/domain"
	"jarvis/internal/pcm"
	"jarvis/internal/ports"
)

// Segment describes where a chunk landed on the output clock.
type Segment struct {
	Start    time.Duration
	Duration time.Duration
}

type segment struct {
	Segment
	voice ports.Voice
}

// Scheduler plays chunks in arrival order without overlap.
type Scheduler struct {
	output     ports.PlaybackOutput
	sampleRate int
	channels   int
	onSpeaking func(bool)

	// enqueueMu serializes decode-then-schedule so arrival order is playback order.
	enqueueMu sync.Mutex

	mu     sync.Mutex
	cursor time.Duration
	live   map[*segment]struct{}
	closed bool
}

// NewScheduler builds a scheduler over output. onSpeaking is called with the
// scheduler lock held whenever the live set becomes non-empty or empty.
func NewScheduler(output ports.PlaybackOutput, cfg ports.OutputConfig, onSpeaking func(bool)) *Scheduler {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = pcm.SourceSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if onSpeaking == nil {
		onSpeaking = func(bool) {}
	}
	return &Scheduler{
		output:     output,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		onSpeaking: onSpeaking,
		live:       make(map[*segment]struct{}),
	}
}

// Enqueue decodes data and schedules it right after everything already queued.
// A malformed chunk returns domain.ErrDecode and leaves the schedule untouched.
func (s *Scheduler) Enqueue(data []byte) (Segment, error) {
	s.enqueueMu.Lock()
	defer s.enqueueMu.Unlock()

	if s.isClosed() {
		return Segment{}, domain.ErrSchedulerClosed
	}

	buf, err := pcm.DecodePlayableAudio(data, s.sampleRate, s.channels)
	if err != nil {
		return Segment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Shutdown may have landed while decoding.
	if s.closed {
		return Segment{}, domain.ErrSchedulerClosed
	}

	start := s.cursor
	if now := s.output.Now(); now > start {
		start = now
	}
	seg := &segment{Segment: Segment{Start: start, Duration: buf.Duration()}}
	if buf.Frames() == 0 {
		return seg.Segment, nil
	}

	voice, err := s.output.Start(buf, start, func() { s.finish(seg) })
	if err != nil {
		return Segment{}, err
	}
	seg.voice = voice
	s.cursor = start + seg.Duration
	s.live[seg] = struct{}{}
	if len(s.live) == 1 {
		s.onSpeaking(true)
	}
	return seg.Segment, nil
}

// Interrupt stops all live audio and drops the queued backlog.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
	s.cursor = s.output.Now()
	s.onSpeaking(false)
}

// Shutdown stops all live audio. Later Enqueue calls return ErrSchedulerClosed.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopAllLocked()
	s.cursor = 0
	s.onSpeaking(false)
}

// Cursor returns the output-clock time where the next chunk would start at the earliest.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Live returns how many segments are currently scheduled or sounding.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *Scheduler) finish(seg *segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[seg]; !ok {
		return
	}
	delete(s.live, seg)
	if len(s.live) == 0 {
		s.onSpeaking(false)
	}
}

func (s *Scheduler) stopAllLocked() {
	for seg := range s.live {
		if seg.voice != nil {
			seg.voice.Stop()
		}
		delete(s.live, seg)
	}
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
