package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jarvis/internal/domain"
	"jarvis/internal/metrics"
	"jarvis/internal/pcm"
	"jarvis/internal/playback"
	"jarvis/internal/ports"
)

// ErrSessionAborted is returned by Start when Stop wins the race with it.
var ErrSessionAborted = errors.New("session stopped before it became active")

const uplinkEstablished = "SYSTEM: JARVIS UPLINK ESTABLISHED."

// Config controls session audio and shutdown behavior.
type Config struct {
	Audio       ports.AudioConfig
	Output      ports.OutputConfig
	Channel     ports.ChannelConfig
	StopTimeout time.Duration
}

// Dependencies are the adapters a SessionController drives.
type Dependencies struct {
	Audio    ports.AudioCapture
	Output   ports.AudioOutput
	Channels ports.ChannelProvider
	Tools    ports.ToolDispatcher
	Events   ports.EventSink
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// SessionController owns the realtime voice session: microphone to channel,
// channel to speaker, and tool invocations back to the channel.
type SessionController struct {
	deps Dependencies
	cfg  Config
	chat *chatLog

	mu      sync.Mutex
	current *activeSession
	last    *activeSession
}

func NewSessionController(deps Dependencies, cfg Config) *SessionController {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	// The uplink only carries mono PCM at the capture rate.
	cfg.Audio.SampleRate = pcm.CaptureSampleRate
	cfg.Audio.Channels = 1
	if cfg.Audio.FrameSize <= 0 {
		cfg.Audio.FrameSize = 4096
	}
	if cfg.Output.SampleRate <= 0 {
		cfg.Output.SampleRate = pcm.SourceSampleRate
	}
	if cfg.Output.Channels <= 0 {
		cfg.Output.Channels = 1
	}
	cfg.Channel.InputSampleRate = cfg.Audio.SampleRate
	if cfg.Channel.OutputSampleRate <= 0 {
		cfg.Channel.OutputSampleRate = pcm.SourceSampleRate
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 4 * time.Second
	}
	return &SessionController{
		deps: deps,
		cfg:  cfg,
		chat: newChatLog(deps.Events, deps.Now),
	}
}

// Start opens a new session. A session that is still running is torn down
// first. The session becomes active once the channel reports open.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	previous := c.current
	c.current = nil
	c.mu.Unlock()

	if previous != nil {
		c.teardown(previous, domain.SessionReasonRestarted)
		c.waitSession(previous)
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := uuid.NewString()
	active := &activeSession{
		id:          id,
		startedAt:   c.deps.Now(),
		cancel:      cancel,
		logger:      c.deps.Logger.With("session_id", id),
		state:       domain.SessionStateConnecting,
		voice:       newVoiceTracker(c.deps.Events),
		transcripts: newTranscriptAggregator(),
		eventsDone:  make(chan struct{}),
	}

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	c.deps.Metrics.RecordSessionStart()
	c.deps.Events.SessionStateChanged(domain.SessionStateConnecting, domain.SessionReasonStartRequested)
	active.logger.Info("session starting")

	mic, err := c.deps.Audio.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		return c.failStart(active, domain.ErrAcquisition, domain.ErrorCodeAcquisition, domain.SessionReasonAcquisitionFailed, err)
	}
	if !active.attachMic(mic) {
		_ = mic.Stop()
		return ErrSessionAborted
	}

	output, err := c.deps.Output.Open(sessionCtx, c.cfg.Output)
	if err != nil {
		return c.failStart(active, domain.ErrAcquisition, domain.ErrorCodeAcquisition, domain.SessionReasonAcquisitionFailed, err)
	}
	scheduler := playback.NewScheduler(output, c.cfg.Output, active.voice.setSpeaking)
	if !active.attachOutput(output, scheduler) {
		scheduler.Shutdown()
		_ = output.Close()
		return ErrSessionAborted
	}

	channel, err := c.deps.Channels.Connect(sessionCtx, c.cfg.Channel)
	if err != nil {
		if active.isClosed() {
			return ErrSessionAborted
		}
		return c.failStart(active, domain.ErrChannel, domain.ErrorCodeChannel, domain.SessionReasonConnectFailed, err)
	}
	tools := newToolWorker(c.deps.Tools, channel, c.chat, active.logger, c.deps.Metrics)
	if !active.attachChannel(channel, tools) {
		_ = channel.Close()
		return ErrSessionAborted
	}

	go tools.run(sessionCtx)
	go c.consumeChannelEvents(active, channel)
	return nil
}

// Stop tears the current session down. It is a no-op without a session.
func (c *SessionController) Stop() error {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()
	if active == nil {
		return nil
	}

	c.teardown(active, domain.SessionReasonStopRequested)
	c.waitSession(active)
	return nil
}

// SendText sends a typed user turn over the active channel.
func (c *SessionController) SendText(text string) error {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()
	if active == nil || active.getState() != domain.SessionStateActive {
		return domain.ErrNoActiveSession
	}

	channel := active.resources().channel
	if channel == nil {
		return domain.ErrNoActiveSession
	}

	if err := channel.SendText(text); err != nil {
		return err
	}
	c.chat.append(domain.ChatRoleUser, text)
	return nil
}

// Status returns the current backend status. Once a session ends it is
// reported as closed until the next Start.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	active, last := c.current, c.last
	c.mu.Unlock()
	if active == nil {
		if last != nil {
			return domain.Status{State: domain.SessionStateClosed, SessionID: last.id}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	state := active.getState()
	return domain.Status{
		State:     state,
		Active:    state == domain.SessionStateActive,
		SessionID: active.id,
		Voice:     active.voice.snapshot(),
	}
}

// History returns a copy of the conversation log.
func (c *SessionController) History() []domain.ChatEntry {
	return c.chat.snapshot()
}

func (c *SessionController) failStart(
	active *activeSession,
	kind error,
	code domain.ErrorCode,
	reason domain.SessionStateReason,
	cause error,
) error {
	err := fmt.Errorf("%w: %w", kind, cause)
	if active.isClosed() {
		return ErrSessionAborted
	}
	active.logger.Error("session start failed", "error", err)
	c.deps.Events.SessionError(code, err.Error())
	c.teardown(active, reason)
	return err
}

// teardown releases every resource of the session exactly once. It never
// waits on session goroutines, so it is safe to call from the event loop.
func (c *SessionController) teardown(active *activeSession, reason domain.SessionStateReason) {
	active.closeOnce.Do(func() {
		res := active.detach()
		active.cancel()

		if res.channel != nil {
			_ = res.channel.Close()
		}
		if res.mic != nil {
			if err := res.mic.Stop(); err != nil {
				active.logger.Warn("microphone did not stop cleanly", "error", err)
				c.deps.Events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
			}
		}
		if res.scheduler != nil {
			res.scheduler.Shutdown()
		}
		if res.output != nil {
			if err := res.output.Close(); err != nil {
				active.logger.Warn("speaker did not close cleanly", "error", err)
			}
		}
		if res.tools != nil {
			res.tools.close()
		}

		for _, entry := range active.transcripts.Flush() {
			c.chat.append(entry.Role, entry.Content)
		}
		active.voice.reset()

		c.mu.Lock()
		if c.current == active {
			c.current = nil
		}
		c.last = active
		c.mu.Unlock()

		c.deps.Metrics.RecordSessionEnd(string(reason), c.deps.Now().Sub(active.startedAt))
		active.logger.Info("session closed", "reason", reason)
		c.deps.Events.SessionStateChanged(domain.SessionStateClosed, reason)
	})
}

// waitSession waits for the session goroutines after teardown.
func (c *SessionController) waitSession(active *activeSession) {
	res := active.resources()
	if res.channel == nil {
		return
	}

	if !waitDone(active.eventsDone, c.cfg.StopTimeout) {
		active.logger.Warn("channel events did not drain before timeout")
	}
	if !waitDone(active.captureFinished(), c.cfg.StopTimeout) {
		active.logger.Warn("capture pump did not stop before timeout")
	}
	if !waitDone(res.tools.done, c.cfg.StopTimeout) {
		active.logger.Warn("tool worker did not stop before timeout")
	}
}
