package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/domain"
	"jarvis/internal/pcm"
	"jarvis/internal/ports"
)

func TestSchedulerSequentialChunksAreGapless(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	sched := NewScheduler(out, ports.OutputConfig{SampleRate: pcm.SourceSampleRate, Channels: 1}, nil)

	first, err := sched.Enqueue(chunk(time.Second))
	require.NoError(t, err)
	second, err := sched.Enqueue(chunk(500 * time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), first.Start)
	assert.Equal(t, time.Second, second.Start)
	assert.Equal(t, 1500*time.Millisecond, sched.Cursor())
	assert.Equal(t, 2, sched.Live())
	require.Len(t, out.starts(), 2)
}

func TestSchedulerNeverOverlapsAndFollowsClock(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	sched := NewScheduler(out, ports.OutputConfig{}, nil)

	durations := []time.Duration{200 * time.Millisecond, 50 * time.Millisecond, time.Second, 300 * time.Millisecond}
	clock := []time.Duration{0, 100 * time.Millisecond, 2 * time.Second, 2100 * time.Millisecond}

	var prev Segment
	for i, d := range durations {
		out.setNow(clock[i])
		cursorBefore := sched.Cursor()
		seg, err := sched.Enqueue(chunk(d))
		require.NoError(t, err)

		want := cursorBefore
		if clock[i] > want {
			want = clock[i]
		}
		assert.Equal(t, want, seg.Start, "segment %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, seg.Start, prev.Start+prev.Duration, "segment %d overlaps", i)
		}
		prev = seg
	}
}

func TestSchedulerInterruptClearsBacklog(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	var speaking []bool
	sched := NewScheduler(out, ports.OutputConfig{}, func(v bool) { speaking = append(speaking, v) })

	_, err := sched.Enqueue(chunk(time.Second))
	require.NoError(t, err)
	_, err = sched.Enqueue(chunk(500 * time.Millisecond))
	require.NoError(t, err)

	out.setNow(250 * time.Millisecond)
	sched.Interrupt()

	assert.Zero(t, sched.Live())
	assert.Equal(t, 250*time.Millisecond, sched.Cursor())
	for _, v := range out.voices() {
		assert.True(t, v.isStopped())
	}
	assert.Equal(t, []bool{true, false}, speaking)

	out.setNow(400 * time.Millisecond)
	next, err := sched.Enqueue(chunk(100 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 400*time.Millisecond, next.Start)
}

func TestSchedulerCompletionClearsSpeaking(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	var mu sync.Mutex
	var speaking []bool
	sched := NewScheduler(out, ports.OutputConfig{}, func(v bool) {
		mu.Lock()
		defer mu.Unlock()
		speaking = append(speaking, v)
	})

	_, err := sched.Enqueue(chunk(100 * time.Millisecond))
	require.NoError(t, err)
	_, err = sched.Enqueue(chunk(100 * time.Millisecond))
	require.NoError(t, err)

	voices := out.voices()
	voices[0].end()
	assert.Equal(t, 1, sched.Live())
	voices[1].end()
	assert.Zero(t, sched.Live())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, speaking)
}

func TestSchedulerStaleCompletionAfterInterruptIsIgnored(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	sched := NewScheduler(out, ports.OutputConfig{}, nil)

	_, err := sched.Enqueue(chunk(100 * time.Millisecond))
	require.NoError(t, err)
	stale := out.voices()[0]
	sched.Interrupt()

	_, err = sched.Enqueue(chunk(100 * time.Millisecond))
	require.NoError(t, err)
	stale.end()

	assert.Equal(t, 1, sched.Live())
}

func TestSchedulerDropsMalformedChunk(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	sched := NewScheduler(out, ports.OutputConfig{}, nil)

	_, err := sched.Enqueue([]byte{1, 2, 3})
	require.ErrorIs(t, err, domain.ErrDecode)
	assert.Zero(t, sched.Live())
	assert.Zero(t, sched.Cursor())

	seg, err := sched.Enqueue(chunk(100 * time.Millisecond))
	require.NoError(t, err)
	assert.Zero(t, seg.Start)
}

func TestSchedulerShutdownIsTerminalAndIdempotent(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	sched := NewScheduler(out, ports.OutputConfig{}, nil)

	_, err := sched.Enqueue(chunk(time.Second))
	require.NoError(t, err)

	sched.Shutdown()
	sched.Shutdown()

	assert.Zero(t, sched.Live())
	assert.True(t, out.voices()[0].isStopped())

	_, err = sched.Enqueue(chunk(time.Second))
	require.ErrorIs(t, err, domain.ErrSchedulerClosed)
	assert.Len(t, out.starts(), 1)
}

func TestSchedulerSkipsEmptyChunk(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	sched := NewScheduler(out, ports.OutputConfig{}, nil)

	_, err := sched.Enqueue(nil)
	require.NoError(t, err)
	assert.Zero(t, sched.Live())
	assert.Empty(t, out.starts())
}

func chunk(d time.Duration) []byte {
	frames := int(int64(d) * pcm.SourceSampleRate / int64(time.Second))
	return make([]byte, frames*2)
}

type fakeOutput struct {
	mu         sync.Mutex
	now        time.Duration
	all        []*fakeVoice
	startTimes []time.Duration
}

func (f *fakeOutput) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeOutput) Start(_ pcm.Buffer, at time.Duration, onEnded func()) (ports.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &fakeVoice{onEnded: onEnded}
	f.all = append(f.all, v)
	f.startTimes = append(f.startTimes, at)
	return v, nil
}

func (f *fakeOutput) setNow(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = d
}

func (f *fakeOutput) voices() []*fakeVoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeVoice(nil), f.all...)
}

func (f *fakeOutput) starts() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.startTimes...)
}

type fakeVoice struct {
	mu      sync.Mutex
	stopped bool
	onEnded func()
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
}

func (v *fakeVoice) isStopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

func (v *fakeVoice) end() { v.onEnded() }
