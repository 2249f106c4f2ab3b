package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"jarvis/internal/bootstrap"
	"jarvis/internal/config"
	"jarvis/internal/domain"
	"jarvis/internal/usecase"
)

const (
	eventSession = "jarvis:session"
	eventVoice   = "jarvis:voice"
	eventChat    = "jarvis:chat"
	eventError   = "jarvis:error"
)

// App is the Wails application root. It is the event sink and URL opener
// for the session controller.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	emit   func(ctx context.Context, name string, data ...interface{})
	open   func(ctx context.Context, url string)

	controller *usecase.SessionController
	services   bootstrap.Services
	cfg        config.Config
	bootErr    error
}

func NewApp(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		emit:   runtime.EventsEmit,
		open:   runtime.BrowserOpenURL,
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	services, err := bootstrap.Build(a.cfg, a, a, a.logger)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.controller = services.Controller
	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := services.Metrics.Serve(a.ctx, addr, a.logger); err != nil {
				a.logger.Warn("metrics endpoint failed", "addr", addr, "error", err)
			}
		}()
	}
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonStandby)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		if err := a.controller.Stop(); err != nil {
			a.logger.Warn("stop on shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
}

// StartSession opens a realtime session.
func (a *App) StartSession() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		if !errors.Is(err, usecase.ErrSessionAborted) {
			a.logger.Warn("session start failed", "error", err)
		}
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopSession ends the current session, if any.
func (a *App) StopSession() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Stop(); err != nil {
		a.SessionError(domain.ErrorCodeAudioStop, err.Error())
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// SendText sends a typed message into the active session.
func (a *App) SendText(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SendText(text)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateClosed, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.controller.Status()
}

// GetHistory returns the chat log.
func (a *App) GetHistory() []domain.ChatEntry {
	if a.controller == nil {
		return []domain.ChatEntry{}
	}
	return a.controller.History()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	apiKey := "missing"
	if a.cfg.Gemini.APIKey != "" {
		apiKey = "configured"
	}
	return map[string]string{
		"provider":     "Gemini Live",
		"model":        a.cfg.Gemini.Model,
		"voice":        a.cfg.Gemini.Voice,
		"apiKey":       apiKey,
		"audioBackend": a.cfg.Audio.Backend,
		"audioInput":   a.cfg.Audio.InputDevice,
		"metricsAddr":  a.cfg.Metrics.Addr,
		"configFile":   a.cfg.File,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// VoiceStateChanged emits listening/speaking/volume updates.
func (a *App) VoiceStateChanged(state domain.VoiceState) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventVoice, state)
}

// ChatEntryAppended emits a new chat log line.
func (a *App) ChatEntryAppended(entry domain.ChatEntry) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventChat, entry)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// OpenURL hands tool side effects to the system browser through Wails.
func (a *App) OpenURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ctx == nil {
		return fmt.Errorf("application is not initialized")
	}
	a.open(a.ctx, url)
	return nil
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonStandby:
		return "Standing by"
	case domain.SessionReasonStartRequested:
		return "Establishing uplink..."
	case domain.SessionReasonChannelOpen:
		return "Uplink established"
	case domain.SessionReasonStopRequested:
		return "Session ended"
	case domain.SessionReasonRestarted:
		return "Session restarted"
	case domain.SessionReasonRemoteClosed:
		return "Connection closed by server"
	case domain.SessionReasonChannelFailed:
		return "Connection lost"
	case domain.SessionReasonAcquisitionFailed:
		return "Audio devices unavailable"
	case domain.SessionReasonConnectFailed:
		return "Could not reach the voice service"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAcquisition:
		return "Microphone or speaker unavailable"
	case domain.ErrorCodeChannel:
		return "Connection error"
	case domain.ErrorCodeDecode:
		return "Audio chunk dropped"
	case domain.ErrorCodeDispatch:
		return "Tool result not delivered"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
