// ABOUTME: Tests for audio file streams
// ABOUTME: Writes WAV fixtures into an in-memory filesystem and decodes them
package decode

import (
	"io"
	"testing"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, fs afero.Fs, path string, rate, bits, channels int, data []int) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, bits, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bits,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func readAll(t *testing.T, s Stream) []audio.Buffer {
	t.Helper()
	var bufs []audio.Buffer
	for {
		buf, err := s.Next()
		if err == io.EOF {
			return bufs
		}
		require.NoError(t, err)
		bufs = append(bufs, buf)
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Open(fs, "track.ogg")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "missing.wav")
	assert.Error(t, err)
}

func TestExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".mp3", ".flac", ".wav"}, Extensions())
}

func TestWAV16Stereo(t *testing.T) {
	fs := afero.NewMemMapFs()
	frames := BufferFrames + 100
	data := make([]int, frames*2)
	for i := range data {
		data[i] = (i % 200) - 100
	}
	writeWAV(t, fs, "/music/tone.WAV", 44100, 16, 2, data)

	s, err := Open(fs, "/music/tone.WAV")
	require.NoError(t, err)
	defer s.Close()

	d := s.Descriptor()
	assert.Equal(t, "pcm_s16le", d.Codec)
	assert.Equal(t, 44100, d.SampleRate)
	assert.Equal(t, 2, d.Channels)
	assert.Equal(t, 16, d.Bits)
	assert.Equal(t, "stereo", d.ChannelLayout)
	assert.Equal(t, "s16", d.SampleFormat)
	assert.InDelta(t, 1411.2, d.BitRate, 0.01)

	bufs := readAll(t, s)
	require.Len(t, bufs, 2)
	assert.Equal(t, BufferFrames, bufs[0].Frames())
	assert.Equal(t, 100, bufs[1].Frames())
	assert.Zero(t, bufs[0].Timestamp)
	assert.Equal(t, time.Duration(BufferFrames)*time.Second/44100, bufs[1].Timestamp)
	assert.Equal(t, audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, bufs[0].Format)

	assert.Equal(t, audio.SampleFromInt16(-100), bufs[0].Samples[0])
	assert.Equal(t, audio.SampleFromInt16(-99), bufs[0].Samples[1])

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWAV24Mono(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "voice.wav", 16000, 24, 1, []int{8388607, -8388608, 1234})

	s, err := Open(fs, "voice.wav")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "mono", s.Descriptor().ChannelLayout)
	assert.Equal(t, "s24", s.Descriptor().SampleFormat)

	bufs := readAll(t, s)
	require.Len(t, bufs, 1)
	assert.Equal(t, []int32{8388607, -8388608, 1234}, bufs[0].Samples)
}

func TestInvalidWAV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "broken.wav", []byte("not a riff file at all"), 0o644))

	_, err := Open(fs, "broken.wav")
	assert.Error(t, err)
}

func TestInvalidMP3AndFLAC(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "broken.flac", []byte("nope"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "empty.mp3", nil, 0o644))

	_, err := Open(fs, "broken.flac")
	assert.Error(t, err)
	_, err = Open(fs, "empty.mp3")
	assert.Error(t, err)
}

func TestBitRate(t *testing.T) {
	assert.Zero(t, bitRate(0, time.Second))
	assert.Zero(t, bitRate(1000, 0))
	assert.InDelta(t, 320, bitRate(40000, time.Second), 0.001)
}

func TestClockAdvance(t *testing.T) {
	c := clock{rate: 48000}
	assert.Zero(t, c.advance(480))
	assert.Equal(t, 10*time.Millisecond, c.advance(480))
	assert.Equal(t, 20*time.Millisecond, c.advance(0))
}
