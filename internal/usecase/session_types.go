package usecase

import (
	"log/slog"
	"sync"
	"time"

	"jarvis/internal/domain"
	"jarvis/internal/playback"
	"jarvis/internal/ports"
)

// activeSession owns every resource of one Start call. Resources are attached
// as they are acquired; once closed, late arrivals are released by the caller.
type activeSession struct {
	id        string
	startedAt time.Time
	cancel    func()
	logger    *slog.Logger

	mu        sync.Mutex
	state     domain.SessionState
	closed    bool
	mic       ports.AudioSession
	output    ports.OutputSession
	scheduler *playback.Scheduler
	channel   ports.Channel
	tools     *toolWorker

	closeOnce sync.Once

	voice       *voiceTracker
	transcripts *transcriptAggregator

	eventsDone  chan struct{}
	captureDone chan struct{}
}

func (s *activeSession) setState(state domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *activeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *activeSession) attachMic(mic ports.AudioSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.mic = mic
	return true
}

func (s *activeSession) attachOutput(output ports.OutputSession, scheduler *playback.Scheduler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.output = output
	s.scheduler = scheduler
	return true
}

func (s *activeSession) attachChannel(channel ports.Channel, tools *toolWorker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.channel = channel
	s.tools = tools
	return true
}

// activate moves a connecting session to active and hands back the
// microphone to pump. It reports false when the session was torn down.
func (s *activeSession) activate() (ports.AudioSession, chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != domain.SessionStateConnecting {
		return nil, nil, false
	}
	s.state = domain.SessionStateActive
	s.captureDone = make(chan struct{})
	return s.mic, s.captureDone, true
}

func (s *activeSession) captureFinished() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureDone
}

type sessionResources struct {
	mic       ports.AudioSession
	output    ports.OutputSession
	scheduler *playback.Scheduler
	channel   ports.Channel
	tools     *toolWorker
}

// detach marks the session closed and hands back whatever was attached.
func (s *activeSession) detach() sessionResources {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = domain.SessionStateClosed
	return s.resourcesLocked()
}

func (s *activeSession) resources() sessionResources {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resourcesLocked()
}

func (s *activeSession) resourcesLocked() sessionResources {
	return sessionResources{
		mic:       s.mic,
		output:    s.output,
		scheduler: s.scheduler,
		channel:   s.channel,
		tools:     s.tools,
	}
}
