// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Descriptor, Format, Buffer types and sample conversion functions
// Package audio provides the types shared by decoders, the output session and
// the device backends.
//
//   - Descriptor: what the decoder reports about the open stream (codec, rate, layout)
//   - Format: the PCM layout of a decoded buffer
//   - Buffer: interleaved int32 samples, left-justified in 24-bit range
//
// Example:
//
//	buf := audio.Buffer{
//	    Samples: samples,
//	    Format:  audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16},
//	}
//	fmt.Println(buf.Frames(), buf.Duration())
package audio
