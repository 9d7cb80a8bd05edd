// ABOUTME: Audio type definitions
// ABOUTME: Defines stream descriptors, decoded buffers and sample conversions
package audio

import (
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes the PCM layout of a decoded buffer
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Descriptor is the decoder-side description of the open audio stream.
// The zero value means "no stream".
type Descriptor struct {
	Codec         string
	BitRate       float64 // kbps
	Bits          int
	Channels      int
	ChannelLayout string
	SampleFormat  string
	SampleRate    int
}

// IsZero reports whether d describes no stream
func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

// Format returns the PCM format buffers of this stream are delivered in
func (d Descriptor) Format() Format {
	return Format{
		SampleRate: d.SampleRate,
		Channels:   d.Channels,
		BitDepth:   d.Bits,
	}
}

// Buffer represents decoded PCM audio.
//
// Samples are interleaved and left-justified in 24-bit range regardless of
// the source bit depth, so 16-bit sources are shifted up by 8.
type Buffer struct {
	Timestamp time.Duration // presentation time from stream start
	PlayAt    time.Time     // local wall-clock play time, set by the scheduler
	Samples   []int32
	Format    Format
}

// Frames returns the number of sample frames in the buffer
func (b Buffer) Frames() int {
	if b.Format.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playback length of the buffer
func (b Buffer) Duration() time.Duration {
	if b.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.Format.SampleRate)
}

// ChannelLayoutName returns the conventional layout label for a channel count
func ChannelLayoutName(channels int) string {
	switch channels {
	case 0:
		return ""
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 3:
		return "2.1"
	case 4:
		return "quad"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}

// SampleFormatName returns the label of a signed integer sample format
func SampleFormatName(bits int) string {
	if bits <= 0 {
		return ""
	}
	return fmt.Sprintf("s%d", bits)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFromBits rescales a signed sample of the given bit depth into 24-bit range
func SampleFromBits(sample int32, bits int) int32 {
	switch {
	case bits == 24:
		return sample
	case bits < 24:
		return sample << uint(24-bits)
	default:
		return sample >> uint(bits-24)
	}
}

// Clamp24 clips a wide sample into 24-bit range
func Clamp24(sample int64) int32 {
	if sample > Max24Bit {
		return Max24Bit
	}
	if sample < Min24Bit {
		return Min24Bit
	}
	return int32(sample)
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
