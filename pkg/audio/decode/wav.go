// ABOUTME: WAV file stream
// ABOUTME: Reads integer PCM from RIFF/WAVE files
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// wavFormatPCM is the WAVE format tag for integer PCM
const wavFormatPCM = 1

type wavStream struct {
	file    afero.File
	decoder *wav.Decoder
	desc    audio.Descriptor
	clock   clock
	buf     *goaudio.IntBuffer
	done    bool
}

func newWAV(f afero.File, size int64) (Stream, error) {
	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("failed to decode WAV: invalid file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find WAV data: %w", err)
	}

	rate := int(decoder.SampleRate)
	channels := int(decoder.NumChans)
	bits := int(decoder.BitDepth)
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid WAV header (%d Hz, %d channels)", rate, channels)
	}

	desc := descriptor(fmt.Sprintf("pcm_s%dle", bits), rate, channels, bits)
	if bits == 8 {
		desc.Codec = "pcm_u8"
		desc.SampleFormat = "u8"
	}
	desc.BitRate = float64(rate*channels*bits) / 1000

	return &wavStream{
		file:    f,
		decoder: decoder,
		desc:    desc,
		clock:   clock{rate: rate},
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: rate},
			Data:   make([]int, BufferFrames*channels),
		},
	}, nil
}

func (s *wavStream) Descriptor() audio.Descriptor { return s.desc }

func (s *wavStream) Next() (audio.Buffer, error) {
	if s.done {
		return audio.Buffer{}, io.EOF
	}

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return audio.Buffer{}, fmt.Errorf("wav decode error: %w", err)
	}
	if err != nil || n < len(s.buf.Data) {
		s.done = true
	}

	channels := s.desc.Channels
	n -= n % channels
	if n == 0 {
		s.done = true
		return audio.Buffer{}, io.EOF
	}

	samples := make([]int32, n)
	for i, v := range s.buf.Data[:n] {
		if s.desc.Bits == 8 {
			v -= 128
		}
		samples[i] = audio.SampleFromBits(int32(v), s.desc.Bits)
	}

	return audio.Buffer{
		Timestamp: s.clock.advance(n / channels),
		Samples:   samples,
		Format:    s.desc.Format(),
	}, nil
}

func (s *wavStream) Close() error {
	return s.file.Close()
}
