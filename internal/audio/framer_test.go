package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramerSplitsAcrossCallbacks(t *testing.T) {
	t.Parallel()

	f := newFramer(3, 4)
	f.push(floatBytes(1, 2))
	f.push(floatBytes(3, 4, 5, 6, 7))

	require.Len(t, f.out, 2)
	assert.Equal(t, []float32{1, 2, 3}, <-f.out)
	assert.Equal(t, []float32{4, 5, 6}, <-f.out)
}

func TestFramerDropsWhenConsumerIsBehind(t *testing.T) {
	t.Parallel()

	f := newFramer(1, 1)
	f.push(floatBytes(1, 2, 3))

	assert.Equal(t, []float32{1}, <-f.out)
	assert.Equal(t, 2, f.dropped)
}

func TestFramerCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFramer(2, 1)
	f.close()
	f.close()
	f.push(floatBytes(1, 2))

	_, ok := <-f.out
	assert.False(t, ok)
}

func floatBytes(values ...float32) []byte {
	out := make([]byte, len(values)*float32Bytes)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*float32Bytes:], math.Float32bits(v))
	}
	return out
}
