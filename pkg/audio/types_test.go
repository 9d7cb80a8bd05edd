// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversions, buffer sizing and descriptor labels
package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleFromInt16(tt.input))
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906},
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleToInt16(tt.input))
		})
	}
}

func TestSampleFromBits(t *testing.T) {
	assert.Equal(t, int32(100<<8), SampleFromBits(100, 16))
	assert.Equal(t, int32(0x123456), SampleFromBits(0x123456, 24))
	assert.Equal(t, int32(0x1234), SampleFromBits(0x123456, 32))
	assert.Equal(t, int32(-1<<16), SampleFromBits(-1, 8))
}

func TestClamp24(t *testing.T) {
	assert.Equal(t, int32(Max24Bit), Clamp24(Max24Bit+10))
	assert.Equal(t, int32(Min24Bit), Clamp24(Min24Bit-10))
	assert.Equal(t, int32(42), Clamp24(42))
}

func TestSample24BitRoundTrip(t *testing.T) {
	samples := []int32{0, 100000, -100000, -256, Max24Bit, Min24Bit}

	for _, original := range samples {
		packed := SampleTo24Bit(original)
		assert.Equal(t, original, SampleFrom24Bit(packed), "packed %v", packed)
	}
	assert.Equal(t, [3]byte{0x56, 0x34, 0x12}, SampleTo24Bit(0x123456))
}

func TestBufferFramesAndDuration(t *testing.T) {
	buf := Buffer{
		Samples: make([]int32, 48000*2),
		Format:  Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
	}
	assert.Equal(t, 48000, buf.Frames())
	assert.Equal(t, time.Second, buf.Duration())

	assert.Zero(t, Buffer{Samples: make([]int32, 10)}.Frames())
	assert.Zero(t, Buffer{Samples: make([]int32, 10), Format: Format{Channels: 1}}.Duration())
}

func TestDescriptor(t *testing.T) {
	assert.True(t, Descriptor{}.IsZero())

	d := Descriptor{Codec: "flac", Bits: 24, Channels: 2, SampleRate: 96000}
	assert.False(t, d.IsZero())
	assert.Equal(t, Format{SampleRate: 96000, Channels: 2, BitDepth: 24}, d.Format())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "mono", ChannelLayoutName(1))
	assert.Equal(t, "stereo", ChannelLayoutName(2))
	assert.Equal(t, "5.1", ChannelLayoutName(6))
	assert.Equal(t, "5 channels", ChannelLayoutName(5))
	assert.Equal(t, "", ChannelLayoutName(0))

	assert.Equal(t, "s16", SampleFormatName(16))
	assert.Equal(t, "", SampleFormatName(0))
}
