package usecase

import (
	"log/slog"
	"time"

	"jarvis/internal/metrics"
	"jarvis/internal/pcm"
	"jarvis/internal/ports"
)

// pumpCaptureFrames forwards microphone frames to the channel until the
// microphone stops. Sends that lose a race with the channel lifecycle are
// dropped; loudness is tracked for every frame regardless.
func pumpCaptureFrames(
	mic ports.AudioSession,
	channel ports.Channel,
	sampleRate int,
	voice *voiceTracker,
	logger *slog.Logger,
	m *metrics.Metrics,
	done chan struct{},
) {
	defer close(done)

	mimeType := pcm.MIMEType(sampleRate)
	for frame := range mic.Frames() {
		voice.setVolume(pcm.MeanAbsoluteAmplitude(frame))

		data := pcm.EncodeFrame(frame)
		chunk := ports.MediaChunk{MIMEType: mimeType, Data: pcm.BinaryToTransportText(data)}
		if err := channel.SendAudio(chunk); err != nil {
			logger.Debug("capture frame dropped", "error", err)
			m.RecordCaptureFrame("dropped", len(data))
			continue
		}
		m.RecordCaptureFrame("sent", len(data))
	}
}

// waitDone waits for done up to timeout and reports whether it closed.
func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	if done == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
