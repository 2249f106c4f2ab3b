// Package pcm converts between float audio samples, 16-bit little-endian PCM,
// and the base64 transport text carried on the realtime channel.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"jarvis/internal/domain"
)

const (
	// SourceSampleRate is the fixed rate of PCM received from the remote engine.
	SourceSampleRate = 24000
	// CaptureSampleRate is the fixed rate of PCM sent to the remote engine.
	CaptureSampleRate = 16000

	bytesPerSample = 2
	scale          = 32768.0
)

// Buffer is decoded audio ready for playback. Samples are interleaved.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames in the buffer.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length at the buffer's sample rate.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return FramesToDuration(int64(b.Frames()), b.SampleRate)
}

// FramesToDuration converts a frame count at sampleRate into a duration.
func FramesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(sampleRate))
}

// MIMEType returns the channel MIME tag for PCM16 at sampleRate.
func MIMEType(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

// EncodeFrame packs samples in [-1, 1] as PCM16LE. Out of range samples clamp.
func EncodeFrame(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		v := float64(s) * scale
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(int16(v)))
	}
	return out
}

// DecodeFrame unpacks PCM16LE into normalized samples.
func DecodeFrame(data []byte) ([]float32, error) {
	if len(data)%bytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of 16-bit samples", domain.ErrDecode, len(data))
	}
	out := make([]float32, len(data)/bytesPerSample)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))) / scale
	}
	return out, nil
}

// BinaryToTransportText encodes bytes for the text channel.
func BinaryToTransportText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// TransportTextToBinary reverses BinaryToTransportText.
func TransportTextToBinary(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return data, nil
}

// DecodePlayableAudio interprets data as PCM16LE at SourceSampleRate and
// returns a buffer at outputSampleRate with the given channel count.
func DecodePlayableAudio(data []byte, outputSampleRate, channels int) (Buffer, error) {
	if channels <= 0 {
		channels = 1
	}
	if outputSampleRate <= 0 {
		outputSampleRate = SourceSampleRate
	}
	if len(data)%(bytesPerSample*channels) != 0 {
		return Buffer{}, fmt.Errorf("%w: %d bytes does not hold whole %d-channel frames", domain.ErrDecode, len(data), channels)
	}

	samples, err := DecodeFrame(data)
	if err != nil {
		return Buffer{}, err
	}
	if outputSampleRate != SourceSampleRate {
		samples = resampleLinear(samples, channels, SourceSampleRate, outputSampleRate)
	}
	return Buffer{Samples: samples, SampleRate: outputSampleRate, Channels: channels}, nil
}

// MeanAbsoluteAmplitude is the loudness metric used for VoiceState.Volume.
func MeanAbsoluteAmplitude(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(samples))
}

func resampleLinear(samples []float32, channels, from, to int) []float32 {
	inFrames := len(samples) / channels
	if inFrames == 0 || from == to {
		return samples
	}
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]float32, outFrames*channels)
	ratio := float64(from) / float64(to)
	for f := 0; f < outFrames; f++ {
		pos := float64(f) * ratio
		i0 := int(pos)
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		frac := float32(pos - float64(i0))
		for c := 0; c < channels; c++ {
			a := samples[i0*channels+c]
			b := samples[i1*channels+c]
			out[f*channels+c] = a + (b-a)*frac
		}
	}
	return out
}
