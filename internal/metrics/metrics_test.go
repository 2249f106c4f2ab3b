package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycleMetrics(t *testing.T) {
	t.Parallel()

	m := New("")
	m.RecordSessionStart()
	m.RecordSessionStart()
	m.RecordSessionEnd("stop_requested", 3*time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, "jarvis_sessions_active 1")
	assert.Contains(t, body, `jarvis_sessions_total{reason="stop_requested"} 1`)
	assert.Contains(t, body, "jarvis_session_duration_seconds_count 1")
}

func TestAudioAndToolMetrics(t *testing.T) {
	t.Parallel()

	m := New("test")
	m.RecordCaptureFrame("sent", 8192)
	m.RecordCaptureFrame("dropped", 8192)
	m.RecordPlaybackChunk("scheduled", 4800)
	m.RecordPlaybackChunk("rejected", 3)
	m.RecordInterrupt()
	m.RecordToolCall("search_web", "delivered")

	body := scrape(t, m)
	assert.Contains(t, body, `test_capture_frames_total{outcome="dropped"} 1`)
	assert.Contains(t, body, `test_audio_bytes_total{direction="input"} 8192`)
	assert.Contains(t, body, `test_audio_bytes_total{direction="output"} 4800`)
	assert.Contains(t, body, `test_playback_chunks_total{outcome="rejected"} 1`)
	assert.Contains(t, body, "test_interrupts_total 1")
	assert.Contains(t, body, `test_tool_calls_total{outcome="delivered",tool="search_web"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordSessionStart()
	m.RecordSessionEnd("x", time.Second)
	m.RecordCaptureFrame("sent", 1)
	m.RecordPlaybackChunk("scheduled", 1)
	m.RecordInterrupt()
	m.RecordToolCall("t", "delivered")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestServeNoopWithoutAddr(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NoError(t, m.Serve(context.Background(), ":0", nil))
	require.NoError(t, New("").Serve(context.Background(), "", nil))
}

func TestServeStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New("").Serve(ctx, "127.0.0.1:0", nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
