package bootstrap

import (
	"context"
	"testing"

	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "test-key"

	services, err := Build(cfg, noopEventSink{}, noopOpener{}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Metrics == nil {
		t.Fatalf("expected metrics")
	}
	if status := services.Controller.Status(); status.Active {
		t.Fatalf("expected idle controller, got %+v", status)
	}
}

func TestCaptureBackendSelection(t *testing.T) {
	backend, err := captureBackend(config.AudioConfig{Backend: "ffmpeg", FFmpegCommand: "ffmpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := backend.(*audio.FFMPEGCapture); !ok {
		t.Fatalf("expected ffmpeg capture, got %T", backend)
	}

	backend, err = captureBackend(config.AudioConfig{Backend: "malgo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := backend.(*audio.MalgoCapture); !ok {
		t.Fatalf("expected malgo capture, got %T", backend)
	}
}

func TestBuildFailsOnUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Backend = "jack"

	if _, err := Build(cfg, noopEventSink{}, noopOpener{}, nil); err == nil {
		t.Fatalf("expected build error for unknown backend")
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopEventSink) VoiceStateChanged(_ domain.VoiceState)                                  {}
func (noopEventSink) ChatEntryAppended(_ domain.ChatEntry)                                   {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                              {}

type noopOpener struct{}

func (noopOpener) OpenURL(_ context.Context, _ string) error { return nil }
