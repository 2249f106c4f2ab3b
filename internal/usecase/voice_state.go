package usecase

import (
	"sync"

	"jarvis/internal/domain"
	"jarvis/internal/ports"
)

// voiceTracker holds the session's VoiceState and reports every change.
// Changes are reported under the lock so the sink sees them in order. After
// reset the tracker stays zero.
type voiceTracker struct {
	events ports.EventSink

	mu     sync.Mutex
	state  domain.VoiceState
	closed bool
}

func newVoiceTracker(events ports.EventSink) *voiceTracker {
	return &voiceTracker{events: events}
}

func (v *voiceTracker) update(mutate func(*domain.VoiceState)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	before := v.state
	mutate(&v.state)
	if v.state != before {
		v.events.VoiceStateChanged(v.state)
	}
}

func (v *voiceTracker) setListening(listening bool) {
	v.update(func(s *domain.VoiceState) { s.IsListening = listening })
}

func (v *voiceTracker) setSpeaking(speaking bool) {
	v.update(func(s *domain.VoiceState) { s.IsSpeaking = speaking })
}

func (v *voiceTracker) setVolume(volume float64) {
	v.update(func(s *domain.VoiceState) { s.Volume = volume })
}

func (v *voiceTracker) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.state != (domain.VoiceState{}) {
		v.state = domain.VoiceState{}
		v.events.VoiceStateChanged(v.state)
	}
}

func (v *voiceTracker) snapshot() domain.VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}
