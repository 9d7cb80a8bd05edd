// ABOUTME: Audio file decoding package
// ABOUTME: Opens MP3, FLAC and WAV files as streams of int32 buffers
// Package decode reads audio files into buffers for playback.
//
// Supports: MP3, FLAC, WAV (PCM)
//
// Every stream describes itself with an audio.Descriptor and yields
// interleaved int32 samples in 24-bit range, the same range the rest of the
// audio packages use.
//
// Example:
//
//	stream, err := decode.Open(afero.NewOsFs(), "song.flac")
//	defer stream.Close()
//	for {
//		buf, err := stream.Next()
//		if err == io.EOF {
//			break
//		}
//	}
package decode
