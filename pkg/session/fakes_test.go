// ABOUTME: Test doubles for the session manager's collaborators
// ABOUTME: Scripted decoder and player plus an update recorder
package session

import (
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/output"
	"github.com/stretchr/testify/require"
)

var flac441 = audio.Descriptor{
	Codec:         "flac",
	BitRate:       912.5,
	Bits:          16,
	Channels:      2,
	ChannelLayout: "stereo",
	SampleFormat:  "s16",
	SampleRate:    44100,
}

type fakeDecoder struct {
	mu        sync.Mutex
	stream    *audio.Descriptor
	suggested *audio.Descriptor
	opened    bool
	openErr   error
	closes    int
	onClose   func()
}

func (d *fakeDecoder) AudioStream() *audio.Descriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

func (d *fakeDecoder) AudioOpened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *fakeDecoder) OpenSuggestedAudio() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.stream = d.suggested
	d.opened = d.suggested != nil
	return nil
}

func (d *fakeDecoder) CloseAudio() {
	d.mu.Lock()
	d.stream = nil
	d.opened = false
	d.closes++
	fn := d.onClose
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *fakeDecoder) open(desc audio.Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = &desc
	d.opened = true
}

type fakePlayer struct {
	playing     bool
	videoOpened bool
	curTime     time.Duration
	plays       int
	resyncs     []time.Duration
	drops       int
	canPlay     *bool
}

func (p *fakePlayer) IsPlaying() bool        { return p.playing }
func (p *fakePlayer) CurTime() time.Duration { return p.curTime }
func (p *fakePlayer) ReSync(stream *audio.Descriptor, at time.Duration) {
	p.resyncs = append(p.resyncs, at)
}
func (p *fakePlayer) Play()             { p.plays++; p.playing = true }
func (p *fakePlayer) VideoOpened() bool { return p.videoOpened }
func (p *fakePlayer) DropAudioFrame()   { p.drops++ }
func (p *fakePlayer) SetCanPlay(canPlay bool) {
	p.canPlay = &canPlay
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) Notify(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func (r *recorder) last(t *testing.T) Update {
	t.Helper()
	all := r.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.updates = nil
	r.mu.Unlock()
}

type failedDevices struct{}

func (failedDevices) DeviceID(string) (string, bool)   { return "", false }
func (failedDevices) DeviceName(string) (string, bool) { return "", false }
func (failedDevices) DefaultDevice() output.Device {
	return output.Device{Name: output.DefaultDeviceName, IsDefault: true}
}
func (failedDevices) Failed() bool { return true }

type harness struct {
	m        *Manager
	backend  *output.Null
	decoder  *fakeDecoder
	player   *fakePlayer
	updates  *recorder
	settings *memorySettings
}

func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()

	backend := output.NewNull(false)
	backend.AddDevice("Speakers", "spk")
	backend.AddDevice("Headphones", "hp")

	h := &harness{
		backend:  backend,
		decoder:  &fakeDecoder{},
		player:   &fakePlayer{},
		updates:  &recorder{},
		settings: &memorySettings{enabled: true},
	}

	config := Config{
		Backend:           backend,
		Devices:           output.NewDeviceList(backend),
		Settings:          h.settings,
		Decoder:           h.decoder,
		Player:            h.player,
		Notifier:          h.updates,
		VolumeMax:         100,
		VolumeOffset:      5,
		AudioDelayOffset:  100 * time.Millisecond,
		AudioDelayOffset2: time.Second,
		LostDebounce:      10 * time.Millisecond,
	}
	for _, fn := range configure {
		fn(&config)
	}

	h.m = New(config)
	t.Cleanup(func() { _ = h.m.Close() })
	return h
}

func tone(frames int, value int16) audio.Buffer {
	samples := make([]int32, frames*2)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(value)
	}
	return audio.Buffer{Samples: samples, Format: audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}}
}
