package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"jarvis/internal/bootstrap"
	"jarvis/internal/domain"
	"jarvis/internal/opener"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a voice session in the terminal",
		Long:  "run opens a session on the default microphone and speaker. Typed lines are sent as text; /quit or Ctrl-C ends the session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}
			if cfg.Gemini.APIKey == "" {
				return errors.New("no API key configured: set GEMINI_API_KEY or gemini.api_key")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := newConsoleSink(cmd.OutOrStdout(), logger)
			services, err := bootstrap.Build(cfg, sink, opener.NewBrowser(cmd.OutOrStdout(), cmd.ErrOrStderr()), logger)
			if err != nil {
				return err
			}
			go func() {
				if err := services.Metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
					logger.Warn("metrics endpoint failed", "addr", cfg.Metrics.Addr, "error", err)
				}
			}()

			controller := services.Controller
			if err := controller.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := controller.Stop(); err != nil {
					logger.Warn("session stop failed", "error", err)
				}
			}()

			lines := readLines(ctx, cmd.InOrStdin())
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-sink.closed:
					return nil
				case line, ok := <-lines:
					if !ok {
						lines = nil
						continue
					}
					if line == "/quit" {
						return nil
					}
					if err := controller.SendText(line); err != nil {
						logger.Warn("text not sent", "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// readLines forwards non-empty trimmed lines from r until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// consoleSink prints the chat log to the terminal and logs everything else.
// closed fires once the session reaches the closed state.
type consoleSink struct {
	out    io.Writer
	logger *slog.Logger

	mu        sync.Mutex
	speaking  bool
	closed    chan struct{}
	closeOnce sync.Once
}

func newConsoleSink(out io.Writer, logger *slog.Logger) *consoleSink {
	return &consoleSink{out: out, logger: logger, closed: make(chan struct{})}
}

func (s *consoleSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.logger.Info("session state", "state", state, "reason", reason)
	if state == domain.SessionStateClosed {
		s.closeOnce.Do(func() { close(s.closed) })
	}
}

func (s *consoleSink) VoiceStateChanged(state domain.VoiceState) {
	s.mu.Lock()
	changed := state.IsSpeaking != s.speaking
	s.speaking = state.IsSpeaking
	s.mu.Unlock()
	if changed {
		s.logger.Debug("voice state", "speaking", state.IsSpeaking, "listening", state.IsListening)
	}
}

func (s *consoleSink) ChatEntryAppended(entry domain.ChatEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %-9s %s\n", entry.Timestamp.Format("15:04:05"), strings.ToUpper(string(entry.Role)), entry.Content)
}

func (s *consoleSink) SessionError(code domain.ErrorCode, detail string) {
	s.logger.Warn("session error", "code", code, "detail", detail)
}
