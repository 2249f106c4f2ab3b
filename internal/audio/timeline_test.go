package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/pcm"
)

func TestTimelineClockAdvancesWhileSilent(t *testing.T) {
	t.Parallel()

	tl := NewTimeline(1000, 1)
	assert.Zero(t, tl.Now())

	out := readFrames(t, tl, 250)
	assert.Equal(t, 250*time.Millisecond, tl.Now())
	for _, s := range out {
		assert.Zero(t, s)
	}
}

func TestTimelinePlaysVoiceAtScheduledFrame(t *testing.T) {
	t.Parallel()

	tl := NewTimeline(1000, 1)
	ended := 0
	_, err := tl.Start(constant(0.5, 10, 1000), 5*time.Millisecond, func() { ended++ })
	require.NoError(t, err)

	out := readFrames(t, tl, 10)
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0.5, 0.5, 0.5, 0.5, 0.5}, out)
	assert.Zero(t, ended)

	out = readFrames(t, tl, 10)
	assert.Equal(t, float32(0.5), out[4])
	assert.Equal(t, float32(0), out[5])
	assert.Equal(t, 1, ended)
}

func TestTimelineMixesAndClamps(t *testing.T) {
	t.Parallel()

	tl := NewTimeline(1000, 1)
	_, err := tl.Start(constant(0.75, 4, 1000), 0, nil)
	require.NoError(t, err)
	_, err = tl.Start(constant(0.75, 2, 1000), 0, nil)
	require.NoError(t, err)

	out := readFrames(t, tl, 4)
	assert.Equal(t, []float32{1, 1, 0.75, 0.75}, out)
}

func TestTimelineStopSilencesWithoutCallback(t *testing.T) {
	t.Parallel()

	tl := NewTimeline(1000, 1)
	called := false
	voice, err := tl.Start(constant(0.5, 100, 1000), 0, func() { called = true })
	require.NoError(t, err)

	readFrames(t, tl, 10)
	voice.Stop()
	out := readFrames(t, tl, 200)
	for _, s := range out {
		assert.Zero(t, s)
	}
	assert.False(t, called)
}

func TestTimelineCloseRejectsStart(t *testing.T) {
	t.Parallel()

	tl := NewTimeline(1000, 1)
	tl.Close()
	_, err := tl.Start(constant(0.5, 1, 1000), 0, nil)
	require.Error(t, err)
}

func TestTimelineConformsMonoToStereo(t *testing.T) {
	t.Parallel()

	tl := NewTimeline(1000, 2)
	_, err := tl.Start(constant(0.25, 2, 1000), 0, nil)
	require.NoError(t, err)

	buf := make([]byte, 2*2*float32Bytes)
	n, err := tl.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
}

func constant(v float32, frames, rate int) pcm.Buffer {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = v
	}
	return pcm.Buffer{Samples: samples, SampleRate: rate, Channels: 1}
}

func readFrames(t *testing.T, tl *Timeline, frames int) []float32 {
	t.Helper()
	buf := make([]byte, frames*float32Bytes)
	n, err := tl.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	out := make([]float32, frames)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*float32Bytes:]))
	}
	return out
}
