package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"jarvis/internal/pcm"
	"jarvis/internal/ports"
)

const float32Bytes = 4

var errTimelineClosed = errors.New("output timeline is closed")

// Timeline mixes scheduled buffers into a float32 little-endian stream.
// Its clock is the number of frames the speaker has pulled so far, so
// Now advances with playback even while silent.
type Timeline struct {
	sampleRate int
	channels   int

	mu       sync.Mutex
	position int64
	voices   []*timelineVoice
	mix      []float32
	closed   bool
}

// NewTimeline returns a silent timeline at sampleRate.
func NewTimeline(sampleRate, channels int) *Timeline {
	if sampleRate <= 0 {
		sampleRate = pcm.SourceSampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	return &Timeline{sampleRate: sampleRate, channels: channels}
}

// Now returns the output clock.
func (t *Timeline) Now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return pcm.FramesToDuration(t.position, t.sampleRate)
}

// Start schedules buf at output time at. onEnded runs on the reader's
// goroutine once the buffer has fully played; it does not run after Stop.
func (t *Timeline) Start(buf pcm.Buffer, at time.Duration, onEnded func()) (ports.Voice, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errTimelineClosed
	}

	samples := buf.Samples
	if buf.Channels != t.channels || buf.SampleRate != t.sampleRate {
		samples = conform(buf, t.sampleRate, t.channels)
	}

	v := &timelineVoice{
		timeline:   t,
		samples:    samples,
		startFrame: int64(math.Round(at.Seconds() * float64(t.sampleRate))),
		onEnded:    onEnded,
	}
	t.voices = append(t.voices, v)
	return v, nil
}

// Read renders the next window of mixed audio. It never blocks.
func (t *Timeline) Read(p []byte) (int, error) {
	frameBytes := float32Bytes * t.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	t.mu.Lock()
	if cap(t.mix) < frames*t.channels {
		t.mix = make([]float32, frames*t.channels)
	}
	mix := t.mix[:frames*t.channels]
	for i := range mix {
		mix[i] = 0
	}

	windowStart := t.position
	windowEnd := windowStart + int64(frames)
	var ended []func()
	kept := t.voices[:0]
	for _, v := range t.voices {
		if v.stopped {
			continue
		}
		voiceFrames := int64(len(v.samples) / t.channels)
		voiceEnd := v.startFrame + voiceFrames
		from := max(v.startFrame, windowStart)
		to := min(voiceEnd, windowEnd)
		for f := from; f < to; f++ {
			src := (f - v.startFrame) * int64(t.channels)
			dst := (f - windowStart) * int64(t.channels)
			for c := int64(0); c < int64(t.channels); c++ {
				mix[dst+c] += v.samples[src+c]
			}
		}
		if voiceEnd <= windowEnd {
			if v.onEnded != nil {
				ended = append(ended, v.onEnded)
			}
			continue
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(t.voices); i++ {
		t.voices[i] = nil
	}
	t.voices = kept
	t.position = windowEnd

	for i, s := range mix {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint32(p[i*float32Bytes:], math.Float32bits(s))
	}
	t.mu.Unlock()

	for _, fn := range ended {
		fn()
	}
	return frames * frameBytes, nil
}

// Close drops every scheduled voice without running callbacks.
func (t *Timeline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for _, v := range t.voices {
		v.stopped = true
	}
	t.voices = nil
}

type timelineVoice struct {
	timeline   *Timeline
	samples    []float32
	startFrame int64
	onEnded    func()
	stopped    bool
}

func (v *timelineVoice) Stop() {
	v.timeline.mu.Lock()
	defer v.timeline.mu.Unlock()
	v.stopped = true
}

// conform remaps channel layout and rate. Mono is duplicated to every output
// channel; multichannel input is averaged down to mono.
func conform(buf pcm.Buffer, sampleRate, channels int) []float32 {
	inCh := buf.Channels
	if inCh <= 0 {
		inCh = 1
	}
	inFrames := len(buf.Samples) / inCh
	outFrames := inFrames
	if buf.SampleRate > 0 && buf.SampleRate != sampleRate {
		outFrames = int(int64(inFrames) * int64(sampleRate) / int64(buf.SampleRate))
	}
	out := make([]float32, outFrames*channels)
	for f := 0; f < outFrames; f++ {
		src := f
		if outFrames != inFrames {
			src = int(int64(f) * int64(inFrames) / int64(outFrames))
		}
		var mono float32
		for c := 0; c < inCh; c++ {
			mono += buf.Samples[src*inCh+c]
		}
		mono /= float32(inCh)
		for c := 0; c < channels; c++ {
			if inCh == channels {
				out[f*channels+c] = buf.Samples[src*inCh+c]
			} else {
				out[f*channels+c] = mono
			}
		}
	}
	return out
}
