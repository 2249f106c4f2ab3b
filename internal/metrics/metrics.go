// Package metrics exposes session counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the assistant's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	AudioFramesTotal *prometheus.CounterVec
	AudioBytesTotal  *prometheus.CounterVec

	PlaybackChunksTotal *prometheus.CounterVec
	InterruptsTotal     prometheus.Counter

	ToolCallsTotal *prometheus.CounterVec
}

// New creates a Metrics instance on a private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "jarvis"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of sessions currently connecting or active",
	})

	sessionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Sessions ended, by closing reason",
	}, []string{"reason"})

	sessionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_seconds",
		Help:      "Session lifetime in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	audioFramesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "capture_frames_total",
		Help:      "Captured microphone frames, by outcome",
	}, []string{"outcome"})

	audioBytesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_bytes_total",
		Help:      "PCM bytes moved over the channel",
	}, []string{"direction"})

	playbackChunksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_chunks_total",
		Help:      "Inbound speech chunks, by outcome",
	}, []string{"outcome"})

	interruptsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interrupts_total",
		Help:      "Barge-in interrupts received",
	})

	toolCallsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Tool invocations, by tool and delivery outcome",
	}, []string{"tool", "outcome"})

	registry.MustRegister(
		sessionsActive,
		sessionsTotal,
		sessionDuration,
		audioFramesTotal,
		audioBytesTotal,
		playbackChunksTotal,
		interruptsTotal,
		toolCallsTotal,
	)

	return &Metrics{
		registry:            registry,
		SessionsActive:      sessionsActive,
		SessionsTotal:       sessionsTotal,
		SessionDuration:     sessionDuration,
		AudioFramesTotal:    audioFramesTotal,
		AudioBytesTotal:     audioBytesTotal,
		PlaybackChunksTotal: playbackChunksTotal,
		InterruptsTotal:     interruptsTotal,
		ToolCallsTotal:      toolCallsTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

func (m *Metrics) RecordSessionEnd(reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(duration.Seconds())
}

// RecordCaptureFrame counts one microphone frame. outcome is "sent" or "dropped".
func (m *Metrics) RecordCaptureFrame(outcome string, bytes int) {
	if m == nil {
		return
	}
	m.AudioFramesTotal.WithLabelValues(outcome).Inc()
	if outcome == "sent" && bytes > 0 {
		m.AudioBytesTotal.WithLabelValues("input").Add(float64(bytes))
	}
}

// RecordPlaybackChunk counts one inbound chunk. outcome is "scheduled" or "rejected".
func (m *Metrics) RecordPlaybackChunk(outcome string, bytes int) {
	if m == nil {
		return
	}
	m.PlaybackChunksTotal.WithLabelValues(outcome).Inc()
	if outcome == "scheduled" && bytes > 0 {
		m.AudioBytesTotal.WithLabelValues("output").Add(float64(bytes))
	}
}

func (m *Metrics) RecordInterrupt() {
	if m == nil {
		return
	}
	m.InterruptsTotal.Inc()
}

// RecordToolCall counts one invocation. outcome is "delivered" or "dropped".
func (m *Metrics) RecordToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
