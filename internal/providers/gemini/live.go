package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"jarvis/internal/domain"
	"jarvis/internal/ports"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash-native-audio-preview-12-2025"
	defaultVoice   = "Kore"

	liveEndpoint = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
)

// Config controls the Gemini Live websocket session.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Voice             string
	SystemInstruction string
	Tools             []*genai.Tool
	Transcription     bool
	SetupTimeout      time.Duration
}

// Provider implements ports.ChannelProvider for the Gemini Live API.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = 10 * time.Second
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer}
}

// Connect dials the Live endpoint and sends the session setup. The returned
// channel reports open once the server acknowledges the setup.
func (p *Provider) Connect(ctx context.Context, cfg ports.ChannelConfig) (ports.Channel, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}

	wsURL, err := buildLiveURL(p.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("x-goog-api-key", p.cfg.APIKey)

	conn, _, err := p.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini Live websocket: %w", err)
	}

	setup, err := json.Marshal(clientMessage{Setup: p.setup(cfg)})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to encode session setup: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(p.cfg.SetupTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send session setup: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	session := &liveSession{
		conn:     conn,
		events:   make(chan domain.ChannelEvent, 64),
		outbound: make(chan []byte, 32),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		_ = conn.Close()
		close(session.done)
	}()

	return session, nil
}

func (p *Provider) setup(cfg ports.ChannelConfig) *genai.LiveClientSetup {
	model := p.cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	setup := &genai.LiveClientSetup{
		Model: model,
		GenerationConfig: &genai.GenerationConfig{
			ResponseModalities: []genai.Modality{genai.ModalityAudio},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.cfg.Voice},
				},
			},
		},
		Tools: p.cfg.Tools,
	}
	if p.cfg.SystemInstruction != "" {
		setup.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(p.cfg.SystemInstruction)}}
	}
	if p.cfg.Transcription {
		setup.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		setup.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return setup
}

type liveSession struct {
	conn *websocket.Conn

	events   chan domain.ChannelEvent
	outbound chan []byte
	closing  chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	stateMu sync.RWMutex
	open    bool
	closed  bool

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (s *liveSession) SendAudio(chunk ports.MediaChunk) error {
	if err := s.sendable(); err != nil {
		return err
	}
	payload, err := json.Marshal(clientMessage{RealtimeInput: &realtimeInput{
		Audio: &inlineData{MIMEType: chunk.MIMEType, Data: chunk.Data},
	}})
	if err != nil {
		return err
	}
	select {
	case s.outbound <- payload:
		return nil
	case <-s.closing:
		return domain.ErrChannelClosed
	default:
		return fmt.Errorf("%w: outbound queue is full", domain.ErrChannel)
	}
}

func (s *liveSession) SendToolResult(result domain.ToolResult) error {
	return s.enqueue(clientMessage{ToolResponse: &genai.LiveClientToolResponse{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       result.ID,
			Name:     result.Name,
			Response: map[string]any{"result": result.Result},
		}},
	}})
}

func (s *liveSession) SendText(text string) error {
	return s.enqueue(clientMessage{ClientContent: &genai.LiveClientContent{
		Turns:        []*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(text)}}},
		TurnComplete: true,
	}})
}

func (s *liveSession) enqueue(message clientMessage) error {
	if err := s.sendable(); err != nil {
		return err
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	select {
	case s.outbound <- payload:
		return nil
	case <-s.closing:
		return domain.ErrChannelClosed
	}
}

func (s *liveSession) sendable() error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.closed {
		return domain.ErrChannelClosed
	}
	if !s.open {
		return domain.ErrChannelNotOpen
	}
	return nil
}

func (s *liveSession) Events() <-chan domain.ChannelEvent {
	return s.events
}

func (s *liveSession) Wait() error {
	<-s.done
	return s.waitErr()
}

// Close starts shutting the connection down and returns without waiting.
func (s *liveSession) Close() error {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.closed = true
		s.stateMu.Unlock()
		close(s.closing)

		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = s.conn.Close()
	})
	return nil
}

func (s *liveSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *liveSession) setErr(err error) {
	if err == nil || isNormalClose(err) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *liveSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case payload := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.setErr(fmt.Errorf("%w: failed to send: %w", domain.ErrChannel, err))
				_ = s.Close()
				return
			}
		case <-s.closing:
			return
		}
	}
}

func (s *liveSession) readLoop() {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}

		var message serverMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			continue
		}

		if message.SetupComplete != nil {
			s.stateMu.Lock()
			s.open = true
			s.stateMu.Unlock()
			s.emit(domain.ChannelEvent{Kind: domain.ChannelEventOpen})
		}

		if translated, ok := message.translate(); ok {
			s.emit(domain.ChannelEvent{Kind: domain.ChannelEventMessage, Message: translated})
		}
	}
}

// finish emits the final close or error event and stops the writer.
func (s *liveSession) finish(readErr error) {
	s.stateMu.RLock()
	local := s.closed
	s.stateMu.RUnlock()

	switch {
	case local:
		s.emit(domain.ChannelEvent{Kind: domain.ChannelEventClose, Reason: "closed by client"})
	case isNormalClose(readErr):
		reason := "remote closed the session"
		var closeErr *websocket.CloseError
		if errors.As(readErr, &closeErr) && closeErr.Text != "" {
			reason = closeErr.Text
		}
		s.emit(domain.ChannelEvent{Kind: domain.ChannelEventClose, Reason: reason})
	default:
		err := fmt.Errorf("%w: %w", domain.ErrChannel, readErr)
		s.setErr(err)
		s.emit(domain.ChannelEvent{Kind: domain.ChannelEventError, Err: err})
	}
	_ = s.Close()
}

// emit blocks until the consumer takes the event. Once the session is
// closing, only the final event is still delivered, and only if there is room.
func (s *liveSession) emit(event domain.ChannelEvent) {
	select {
	case s.events <- event:
		return
	case <-s.closing:
	}
	select {
	case s.events <- event:
	default:
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

func buildLiveURL(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	liveURL, err := url.Parse(base + liveEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid Gemini API base URL: %w", err)
	}
	if liveURL.Scheme != "ws" && liveURL.Scheme != "wss" {
		return "", fmt.Errorf("invalid Gemini API base URL scheme %q", liveURL.Scheme)
	}
	return liveURL.String(), nil
}
