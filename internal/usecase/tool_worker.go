package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"jarvis/internal/domain"
	"jarvis/internal/metrics"
	"jarvis/internal/ports"
)

// toolWorker runs invocations one at a time in arrival order so results are
// sent in invocation order and side effects never block the event loop.
type toolWorker struct {
	dispatcher ports.ToolDispatcher
	channel    ports.Channel
	chat       *chatLog
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	pending []domain.ToolInvocation
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newToolWorker(
	dispatcher ports.ToolDispatcher,
	channel ports.Channel,
	chat *chatLog,
	logger *slog.Logger,
	m *metrics.Metrics,
) *toolWorker {
	return &toolWorker{
		dispatcher: dispatcher,
		channel:    channel,
		chat:       chat,
		logger:     logger,
		metrics:    m,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// submit queues an invocation without blocking. It reports false once the
// worker is closed.
func (w *toolWorker) submit(invocation domain.ToolInvocation) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.pending = append(w.pending, invocation)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// close stops the worker after the invocation in flight. Queued invocations
// are discarded.
func (w *toolWorker) close() {
	w.mu.Lock()
	w.closed = true
	w.pending = nil
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *toolWorker) run(ctx context.Context) {
	defer close(w.done)

	for {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		if len(w.pending) == 0 {
			w.mu.Unlock()
			<-w.wake
			continue
		}
		invocation := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		w.handle(ctx, invocation)
	}
}

func (w *toolWorker) handle(ctx context.Context, invocation domain.ToolInvocation) {
	result := w.dispatcher.Dispatch(ctx, invocation)
	result.ID = invocation.ID
	result.Name = invocation.Name

	w.chat.append(domain.ChatRoleSystem, "SYSTEM: Executing "+strings.ReplaceAll(invocation.Name, "_", " ")+"...")

	if err := w.channel.SendToolResult(result); err != nil {
		w.logger.Debug("tool result dropped", "tool", invocation.Name, "id", invocation.ID, "error", err)
		w.metrics.RecordToolCall(invocation.Name, "dropped")
		return
	}
	w.metrics.RecordToolCall(invocation.Name, "delivered")
}
