package usecase

import (
	"errors"
	"fmt"

	"jarvis/internal/domain"
	"jarvis/internal/pcm"
	"jarvis/internal/ports"
)

// consumeChannelEvents is the session's event loop. Events are handled one
// at a time; after teardown the remaining events are drained and ignored.
func (c *SessionController) consumeChannelEvents(active *activeSession, channel ports.Channel) {
	defer close(active.eventsDone)

	for event := range channel.Events() {
		if active.isClosed() {
			continue
		}

		switch event.Kind {
		case domain.ChannelEventOpen:
			c.handleOpen(active, channel)
		case domain.ChannelEventMessage:
			c.handleMessage(active, event.Message)
		case domain.ChannelEventClose:
			active.logger.Info("channel closed", "reason", event.Reason)
			c.teardown(active, domain.SessionReasonRemoteClosed)
		case domain.ChannelEventError:
			err := event.Err
			if err == nil {
				err = domain.ErrChannel
			} else if !errors.Is(err, domain.ErrChannel) {
				err = fmt.Errorf("%w: %w", domain.ErrChannel, err)
			}
			active.logger.Error("channel failed", "error", err)
			c.deps.Events.SessionError(domain.ErrorCodeChannel, err.Error())
			c.teardown(active, domain.SessionReasonChannelFailed)
		}
	}

	// The stream ended without a final event.
	c.teardown(active, domain.SessionReasonRemoteClosed)
}

func (c *SessionController) handleOpen(active *activeSession, channel ports.Channel) {
	mic, captureDone, ok := active.activate()
	if !ok {
		return
	}

	active.voice.setListening(true)
	go pumpCaptureFrames(mic, channel, c.cfg.Audio.SampleRate, active.voice, active.logger, c.deps.Metrics, captureDone)

	active.logger.Info("session active")
	c.chat.append(domain.ChatRoleSystem, uplinkEstablished)
	c.deps.Events.SessionStateChanged(domain.SessionStateActive, domain.SessionReasonChannelOpen)
}

func (c *SessionController) handleMessage(active *activeSession, message domain.ServerMessage) {
	res := active.resources()

	for _, invocation := range message.ToolInvocations {
		active.logger.Info("tool invocation", "tool", invocation.Name, "id", invocation.ID)
		if res.tools == nil || !res.tools.submit(invocation) {
			c.deps.Metrics.RecordToolCall(invocation.Name, "dropped")
		}
	}

	for _, chunk := range message.AudioChunks {
		c.schedulePlayback(active, res, chunk)
	}

	if message.Interrupted {
		active.logger.Debug("playback interrupted")
		c.deps.Metrics.RecordInterrupt()
		if res.scheduler != nil {
			res.scheduler.Interrupt()
		}
	}

	active.transcripts.Add(message)
	if message.TurnComplete || message.Interrupted {
		for _, entry := range active.transcripts.Flush() {
			c.chat.append(entry.Role, entry.Content)
		}
	}
}

func (c *SessionController) schedulePlayback(active *activeSession, res sessionResources, chunk string) {
	if res.scheduler == nil {
		return
	}

	data, err := pcm.TransportTextToBinary(chunk)
	if err == nil {
		_, err = res.scheduler.Enqueue(data)
	}
	switch {
	case err == nil:
		c.deps.Metrics.RecordPlaybackChunk("scheduled", len(data))
	case errors.Is(err, domain.ErrSchedulerClosed):
	case errors.Is(err, domain.ErrDecode):
		active.logger.Warn("speech chunk dropped", "error", err)
		c.deps.Metrics.RecordPlaybackChunk("rejected", len(chunk))
		c.deps.Events.SessionError(domain.ErrorCodeDecode, err.Error())
	default:
		active.logger.Warn("speech chunk not scheduled", "error", err)
		c.deps.Metrics.RecordPlaybackChunk("rejected", len(chunk))
	}
}
