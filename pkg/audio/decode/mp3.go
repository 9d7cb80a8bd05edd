// ABOUTME: MP3 file stream
// ABOUTME: Decodes MP3 audio to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/spf13/afero"
)

// MP3 decoder output is always 16-bit stereo
const mp3Channels = 2

type mp3Stream struct {
	file    afero.File
	decoder *mp3.Decoder
	desc    audio.Descriptor
	clock   clock
	buf     []byte
}

func newMP3(f afero.File, size int64) (Stream, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	rate := decoder.SampleRate()
	desc := descriptor("mp3", rate, mp3Channels, 16)
	if length := decoder.Length(); length > 0 {
		duration := time.Duration(length/(2*mp3Channels)) * time.Second / time.Duration(rate)
		desc.BitRate = bitRate(size, duration)
	}

	return &mp3Stream{
		file:    f,
		decoder: decoder,
		desc:    desc,
		clock:   clock{rate: rate},
		buf:     make([]byte, BufferFrames*mp3Channels*2),
	}, nil
}

func (s *mp3Stream) Descriptor() audio.Descriptor { return s.desc }

func (s *mp3Stream) Next() (audio.Buffer, error) {
	n, err := io.ReadFull(s.decoder, s.buf)
	if n == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return audio.Buffer{}, err
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return audio.Buffer{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 2
	numSamples -= numSamples % mp3Channels
	samples := make([]int32, numSamples)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(s.buf[i*2:])))
	}

	return audio.Buffer{
		Timestamp: s.clock.advance(numSamples / mp3Channels),
		Samples:   samples,
		Format:    s.desc.Format(),
	}, nil
}

func (s *mp3Stream) Close() error {
	return s.file.Close()
}
