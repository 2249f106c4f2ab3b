package ports

import (
	"context"
	"time"

	"jarvis/internal/domain"
	"jarvis/internal/pcm"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	FrameSize   int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session delivering fixed-size frames.
// Frames is closed once the session stops.
type AudioSession interface {
	Frames() <-chan []float32
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// OutputConfig describes the speaker and its clock.
type OutputConfig struct {
	SampleRate int
	Channels   int
}

// Voice is one scheduled sound on the output clock.
type Voice interface {
	Stop()
}

// PlaybackOutput is a sample clock that can start buffers at given times.
type PlaybackOutput interface {
	Now() time.Duration
	Start(buf pcm.Buffer, at time.Duration, onEnded func()) (Voice, error)
}

// OutputSession is an opened speaker owned by one session.
type OutputSession interface {
	PlaybackOutput
	Close() error
}

// AudioOutput opens speaker sessions.
type AudioOutput interface {
	Open(ctx context.Context, cfg OutputConfig) (OutputSession, error)
}

// MediaChunk is one outbound audio payload.
type MediaChunk struct {
	MIMEType string
	Data     string
}

// ChannelConfig carries provider-agnostic session settings.
type ChannelConfig struct {
	InputSampleRate  int
	OutputSampleRate int
}

// Channel is an open realtime connection to the remote engine.
// Events is closed after the final close or error event.
type Channel interface {
	SendAudio(chunk MediaChunk) error
	SendToolResult(result domain.ToolResult) error
	SendText(text string) error
	Events() <-chan domain.ChannelEvent
	Close() error
	Wait() error
}

// ChannelProvider dials realtime channels.
type ChannelProvider interface {
	Connect(ctx context.Context, cfg ChannelConfig) (Channel, error)
}

// ToolDispatcher runs a tool invocation's side effect and returns its result.
// It always returns a result with the invocation's ID.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, invocation domain.ToolInvocation) domain.ToolResult
}

// URLOpener navigates to a URL outside the process.
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	VoiceStateChanged(state domain.VoiceState)
	ChatEntryAppended(entry domain.ChatEntry)
	SessionError(code domain.ErrorCode, detail string)
}
