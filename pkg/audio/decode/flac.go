// ABOUTME: FLAC file stream
// ABOUTME: Decodes FLAC frames to interleaved int32 samples
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/spf13/afero"
)

type flacStream struct {
	file   afero.File
	stream *flac.Stream
	desc   audio.Descriptor
	clock  clock
}

func newFLAC(f afero.File, size int64) (Stream, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	rate := int(info.SampleRate)
	if rate <= 0 || info.NChannels == 0 {
		return nil, fmt.Errorf("invalid FLAC stream info (%d Hz, %d channels)", rate, info.NChannels)
	}

	desc := descriptor("flac", rate, int(info.NChannels), int(info.BitsPerSample))
	if info.NSamples > 0 {
		desc.BitRate = bitRate(size, time.Duration(info.NSamples)*time.Second/time.Duration(rate))
	}

	return &flacStream{
		file:   f,
		stream: stream,
		desc:   desc,
		clock:  clock{rate: rate},
	}, nil
}

func (s *flacStream) Descriptor() audio.Descriptor { return s.desc }

// Next returns one FLAC frame
func (s *flacStream) Next() (audio.Buffer, error) {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return audio.Buffer{}, io.EOF
		}
		return audio.Buffer{}, fmt.Errorf("flac decode error: %w", err)
	}

	channels := s.desc.Channels
	blockSize := int(frame.BlockSize)
	samples := make([]int32, blockSize*channels)
	for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
		sub := frame.Subframes[ch].Samples
		for i := 0; i < blockSize && i < len(sub); i++ {
			samples[i*channels+ch] = audio.SampleFromBits(sub[i], s.desc.Bits)
		}
	}

	return audio.Buffer{
		Timestamp: s.clock.advance(blockSize),
		Samples:   samples,
		Format:    s.desc.Format(),
	}, nil
}

func (s *flacStream) Close() error {
	return s.file.Close()
}
