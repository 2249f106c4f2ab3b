package usecase

import (
	"sync"
	"time"

	"jarvis/internal/domain"
	"jarvis/internal/ports"
)

// chatLog is the append-only conversation log shared by every session of
// the controller. Insertion order is display order.
type chatLog struct {
	events ports.EventSink
	now    func() time.Time

	mu      sync.Mutex
	entries []domain.ChatEntry
}

func newChatLog(events ports.EventSink, now func() time.Time) *chatLog {
	return &chatLog{events: events, now: now}
}

func (l *chatLog) append(role domain.ChatRole, content string) domain.ChatEntry {
	l.mu.Lock()
	entry := domain.ChatEntry{Role: role, Content: content, Timestamp: l.now()}
	l.entries = append(l.entries, entry)
	// Emit under the lock so sinks observe entries in log order.
	l.events.ChatEntryAppended(entry)
	l.mu.Unlock()
	return entry
}

func (l *chatLog) snapshot() []domain.ChatEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ChatEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
