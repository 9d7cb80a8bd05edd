// ABOUTME: Stream interface and file format detection
// ABOUTME: Picks a decoder from the file extension
package decode

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var log = logrus.WithField("module", "decode")

// BufferFrames is the number of frames a stream yields per buffer when the
// codec does not impose its own framing
const BufferFrames = 1024

// ErrUnsupportedFormat is returned for files no decoder handles
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Stream is an open audio file
type Stream interface {
	// Descriptor describes the decoded audio
	Descriptor() audio.Descriptor

	// Next returns the next buffer; io.EOF after the last one
	Next() (audio.Buffer, error)

	// Close releases the file
	Close() error
}

// Extensions lists the file extensions Open accepts
func Extensions() []string {
	return []string{".mp3", ".flac", ".wav"}
}

// Open detects the format of path from its extension and opens it
func Open(fs afero.Fs, path string) (Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var open func(f afero.File, size int64) (Stream, error)
	switch ext {
	case ".mp3":
		open = newMP3
	case ".flac":
		open = newFLAC
	case ".wav":
		open = newWAV
	default:
		return nil, fmt.Errorf("%w: %q (supported: .mp3, .flac, .wav)", ErrUnsupportedFormat, ext)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	stream, err := open(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}

	d := stream.Descriptor()
	log.Infof("Loaded %s: %s (%d Hz, %s, %s)", d.Codec, filepath.Base(path), d.SampleRate, d.ChannelLayout, d.SampleFormat)
	return stream, nil
}

// clock stamps buffers with their position in the stream
type clock struct {
	rate   int
	frames int64
}

func (c *clock) advance(frames int) time.Duration {
	at := time.Duration(c.frames) * time.Second / time.Duration(c.rate)
	c.frames += int64(frames)
	return at
}

// bitRate returns kbps of a file of size bytes lasting d
func bitRate(size int64, d time.Duration) float64 {
	if size <= 0 || d <= 0 {
		return 0
	}
	return float64(size) * 8 / d.Seconds() / 1000
}

func descriptor(codec string, rate, channels, bits int) audio.Descriptor {
	return audio.Descriptor{
		Codec:         codec,
		Bits:          bits,
		Channels:      channels,
		ChannelLayout: audio.ChannelLayoutName(channels),
		SampleFormat:  audio.SampleFormatName(bits),
		SampleRate:    rate,
	}
}
