// ABOUTME: Software mixer and submission voice shared by all backends
// ABOUTME: Converts queued buffers to the device format and renders S16LE
package output

import (
	"encoding/binary"
	"sync"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/resample"
	"github.com/pkg/errors"
)

const bytesPerFrame = 4 // 16-bit stereo

// mixer sums the attached source voices into device frames.
// Lock order is mixer.mu then sourceVoice.mu.
type mixer struct {
	mu     sync.Mutex
	voices []*sourceVoice
	gain   float32
	acc    []int64
}

func newMixer() *mixer {
	return &mixer{gain: 1.0}
}

func (m *mixer) attach(v *sourceVoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = append(m.voices, v)
}

func (m *mixer) detach(v *sourceVoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, candidate := range m.voices {
		if candidate == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			return
		}
	}
}

func (m *mixer) voiceMixer() *mixer { return m }

// SetVolume sets the device gain
func (m *mixer) SetVolume(volume float32) {
	if volume < 0 {
		volume = 0
	}
	m.mu.Lock()
	m.gain = volume
	m.mu.Unlock()
}

// Volume returns the device gain
func (m *mixer) Volume() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// render fills out with interleaved 16-bit little-endian stereo frames
func (m *mixer) render(out []byte) {
	frames := len(out) / bytesPerFrame
	samples := frames * DeviceFormat.Channels

	m.mu.Lock()
	defer m.mu.Unlock()

	if cap(m.acc) < samples {
		m.acc = make([]int64, samples)
	}
	acc := m.acc[:samples]
	for i := range acc {
		acc[i] = 0
	}

	for _, v := range m.voices {
		v.mixInto(acc)
	}

	gain := float64(m.gain)
	for i, s := range acc {
		sample := audio.Clamp24(int64(float64(s) * gain))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	for i := samples * 2; i < len(out); i++ {
		out[i] = 0
	}
}

// Read lets pull-based backends stream the mix; it never runs dry, silence
// is rendered when nothing is queued
func (m *mixer) Read(p []byte) (int, error) {
	n := len(p) - len(p)%bytesPerFrame
	m.render(p[:n])
	return n, nil
}

// voiceOwner is implemented by every mastering voice in this package
type voiceOwner interface {
	voiceMixer() *mixer
}

// attachSourceVoice creates a voice routed into master's mixer
func attachSourceVoice(master MasteringVoice, format audio.Format) (SourceVoice, error) {
	owner, ok := master.(voiceOwner)
	if !ok {
		return nil, ErrForeignVoice
	}
	if format.SampleRate <= 0 {
		format.SampleRate = DeviceFormat.SampleRate
	}

	v := &sourceVoice{
		mixer:     owner.voiceMixer(),
		inputRate: format.SampleRate,
		resampler: resample.New(format.SampleRate, DeviceFormat.SampleRate, DeviceFormat.Channels),
		volume:    1.0,
	}
	v.mixer.attach(v)
	return v, nil
}

// sourceVoice queues submitted buffers and converts them lazily while
// the device pulls, so submitted samples are never copied up front
type sourceVoice struct {
	mu        sync.Mutex
	mixer     *mixer
	inputRate int
	resampler *resample.Resampler
	queue     []audio.Buffer
	pending   []int32 // converted device-rate samples of the buffer being played
	volume    float32
	started   bool
	closed    bool
}

func (v *sourceVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoiceClosed
	}
	v.started = true
	return nil
}

func (v *sourceVoice) Submit(buf audio.Buffer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoiceClosed
	}
	v.queue = append(v.queue, buf)
	return nil
}

func (v *sourceVoice) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.queue = nil
	v.pending = nil
	v.resampler.Reset()
}

func (v *sourceVoice) Queued() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := len(v.queue)
	if len(v.pending) > 0 {
		n++
	}
	return n
}

func (v *sourceVoice) SetSourceSampleRate(rate int) error {
	if rate <= 0 {
		return errors.Errorf("invalid source sample rate %d", rate)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoiceClosed
	}
	if rate == v.inputRate {
		return nil
	}
	v.inputRate = rate
	v.resampler = resample.New(rate, DeviceFormat.SampleRate, DeviceFormat.Channels)
	v.pending = nil
	return nil
}

func (v *sourceVoice) SetVolume(volume float32) {
	if volume < 0 {
		volume = 0
	}
	v.mu.Lock()
	v.volume = volume
	v.mu.Unlock()
}

func (v *sourceVoice) Volume() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

func (v *sourceVoice) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.started = false
	v.queue = nil
	v.pending = nil
	v.mu.Unlock()

	v.mixer.detach(v)
	return nil
}

// mixInto adds this voice's next len(acc) samples to acc (mixer.mu held)
func (v *sourceVoice) mixInto(acc []int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.started || v.closed {
		return
	}

	gain := float64(v.volume)
	pos := 0
	for pos < len(acc) {
		if len(v.pending) == 0 && !v.pull() {
			return
		}
		take := len(acc) - pos
		if take > len(v.pending) {
			take = len(v.pending)
		}
		for i := 0; i < take; i++ {
			acc[pos+i] += int64(float64(v.pending[i]) * gain)
		}
		pos += take
		v.pending = v.pending[take:]
	}
}

// pull converts the next queued buffer into pending; false when the queue is empty
func (v *sourceVoice) pull() bool {
	for len(v.queue) > 0 {
		buf := v.queue[0]
		v.queue[0] = audio.Buffer{}
		v.queue = v.queue[1:]

		channels := buf.Format.Channels
		if channels <= 0 {
			channels = DeviceFormat.Channels
		}
		stereo := toStereo(buf.Samples, channels)

		out := make([]int32, v.resampler.OutputSamplesNeeded(len(stereo)))
		n := v.resampler.Resample(stereo, out)
		if n > 0 {
			v.pending = out[:n]
			return true
		}
	}
	return false
}

// toStereo maps interleaved samples onto two channels. Mono is duplicated,
// wider layouts keep their first two channels.
func toStereo(samples []int32, channels int) []int32 {
	switch channels {
	case 2:
		return samples
	case 1:
		out := make([]int32, len(samples)*2)
		for i, s := range samples {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	default:
		frames := len(samples) / channels
		out := make([]int32, frames*2)
		for i := 0; i < frames; i++ {
			out[i*2] = samples[i*channels]
			out[i*2+1] = samples[i*channels+1]
		}
		return out
	}
}
