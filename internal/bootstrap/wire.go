package bootstrap

import (
	"fmt"
	"log/slog"

	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/metrics"
	"jarvis/internal/opener"
	"jarvis/internal/ports"
	"jarvis/internal/providers/gemini"
	"jarvis/internal/tools"
	"jarvis/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
	Metrics    *metrics.Metrics
}

// Build wires all backend dependencies for the current runtime. Audio
// devices are not touched until a session starts. A nil urlOpener falls
// back to the system browser.
func Build(cfg config.Config, eventSink ports.EventSink, urlOpener ports.URLOpener, logger *slog.Logger) (Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if urlOpener == nil {
		urlOpener = opener.NewBrowser(nil, nil)
	}

	capture, err := captureBackend(cfg.Audio)
	if err != nil {
		return Services{}, err
	}

	instruction := cfg.Gemini.SystemInstruction
	if instruction == "" {
		instruction = gemini.DefaultSystemInstruction
	}

	m := metrics.New("")
	controller := usecase.NewSessionController(
		usecase.Dependencies{
			Audio:  capture,
			Output: audio.NewSpeaker(cfg.Audio.OutputBuffer()),
			Channels: gemini.NewProvider(gemini.Config{
				APIKey:            cfg.Gemini.APIKey,
				BaseURL:           cfg.Gemini.BaseURL,
				Model:             cfg.Gemini.Model,
				Voice:             cfg.Gemini.Voice,
				SystemInstruction: instruction,
				Tools:             tools.Tools(),
				Transcription:     cfg.Gemini.Transcription,
			}),
			Tools:   tools.NewDispatcher(urlOpener, logger),
			Events:  eventSink,
			Logger:  logger,
			Metrics: m,
		},
		usecase.Config{
			Audio: ports.AudioConfig{
				FrameSize:   cfg.Audio.FrameSize,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Output: ports.OutputConfig{
				SampleRate: cfg.Audio.OutputSampleRate,
				Channels:   1,
			},
			Channel: ports.ChannelConfig{
				OutputSampleRate: cfg.Audio.OutputSampleRate,
			},
			StopTimeout: cfg.Session.StopTimeout(),
		},
	)

	return Services{Controller: controller, Config: cfg, Metrics: m}, nil
}

func captureBackend(cfg config.AudioConfig) (ports.AudioCapture, error) {
	switch cfg.Backend {
	case "", "malgo":
		return audio.NewMalgoCapture(), nil
	case "ffmpeg":
		return audio.NewFFMPEGCapture(cfg.FFmpegCommand), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
