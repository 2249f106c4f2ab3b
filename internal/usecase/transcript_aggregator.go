package usecase

import (
	"strings"
	"sync"

	"jarvis/internal/domain"
)

// transcriptAggregator collects streamed transcription fragments for the
// current turn. Fragments arrive pre-spaced, so they are concatenated as is.
type transcriptAggregator struct {
	mu     sync.Mutex
	input  strings.Builder
	output strings.Builder
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(message domain.ServerMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.WriteString(message.InputText)
	a.output.WriteString(message.OutputText)
}

// Flush returns the finished turn as chat entries, user speech first, and
// resets the aggregator. Empty sides are omitted.
func (a *transcriptAggregator) Flush() []domain.ChatEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []domain.ChatEntry
	if text := normalizeTranscript(a.input.String()); text != "" {
		out = append(out, domain.ChatEntry{Role: domain.ChatRoleUser, Content: text})
	}
	if text := normalizeTranscript(a.output.String()); text != "" {
		out = append(out, domain.ChatEntry{Role: domain.ChatRoleAssistant, Content: text})
	}
	a.input.Reset()
	a.output.Reset()
	return out
}

func normalizeTranscript(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
