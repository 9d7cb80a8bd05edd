// ABOUTME: Audio output session manager
// ABOUTME: Owns the device session, playback controls and stream state
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/output"
	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "session")

// ChannelsOut is the channel count every session renders
const ChannelsOut = 2

// DefaultSampleRate is negotiated when no stream is open
const DefaultSampleRate = 48000

// State of the audio stream
type State int

const (
	StateClosed State = iota
	StateOpen
	StateDisabling
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateDisabling:
		return "disabling"
	default:
		return "unknown"
	}
}

// Config holds the manager's collaborators and player settings
type Config struct {
	Backend  output.Backend
	Devices  DeviceEnumerator
	Settings Settings

	// Decoder and Player may be nil, stream transitions are skipped then
	Decoder Decoder
	Player  Player

	Notifier Notifier

	VolumeMax         int
	VolumeOffset      int
	AutoPlay          bool
	AudioDelayOffset  time.Duration
	AudioDelayOffset2 time.Duration

	// Device is the initially selected device name, empty for the default
	Device string

	// LostDebounce groups device-lost reports before the session is rebuilt
	LostDebounce time.Duration
}

// Manager binds decoded audio to one output device at a time
type Manager struct {
	backend  output.Backend
	devices  DeviceEnumerator
	settings Settings
	decoder  Decoder
	player   Player
	notifier Notifier
	config   Config

	// mu guards session build and teardown, controls and flush
	mu         sync.Mutex
	session    atomic.Pointer[audioSession]
	device     string
	deviceID   string
	volume     int
	mute       bool
	desc       audio.Descriptor
	opened     bool
	state      State
	sampleRate int
	closed     bool

	framesDisplayed atomic.Int64
	framesDropped   atomic.Int64
	sessions        atomic.Int64

	debounceLost func(func())

	notifyMu  sync.Mutex
	published Snapshot
}

// New creates a manager and binds it to the selected device. Device failures
// are not returned; they disable audio through Settings.
func New(config Config) *Manager {
	if config.VolumeMax <= 0 {
		config.VolumeMax = 150
	}
	if config.VolumeOffset <= 0 {
		config.VolumeOffset = 5
	}
	if config.LostDebounce <= 0 {
		config.LostDebounce = 500 * time.Millisecond
	}
	if config.Devices == nil {
		config.Devices = output.NewDeviceList(config.Backend)
	}
	if config.Settings == nil {
		config.Settings = &memorySettings{enabled: true}
	}

	defaultDevice := config.Devices.DefaultDevice()
	m := &Manager{
		backend:      config.Backend,
		devices:      config.Devices,
		settings:     config.Settings,
		decoder:      config.Decoder,
		player:       config.Player,
		notifier:     config.Notifier,
		config:       config,
		device:       defaultDevice.Name,
		deviceID:     defaultDevice.ID,
		volume:       config.VolumeMax / 2,
		sampleRate:   DefaultSampleRate,
		debounceLost: debounce.New(config.LostDebounce),
	}

	if config.Device != "" && config.Device != defaultDevice.Name {
		m.device = config.Device
		m.deviceID = m.resolveID(config.Device)
	}

	m.mu.Lock()
	m.initialize()
	m.mu.Unlock()
	m.published = m.Snapshot()
	return m
}

// Close releases the device; the manager cannot be initialized again
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.dispose()
	m.mu.Unlock()
	return nil
}

// State returns the stream state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOpened reports whether an audio stream is open and configured
func (m *Manager) IsOpened() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Sessions returns how many device sessions were built so far
func (m *Manager) Sessions() int64 {
	return m.sessions.Load()
}

// SessionID identifies the live device session, empty when none is live
func (m *Manager) SessionID() string {
	if s := m.session.Load(); s != nil {
		return s.id.String()
	}
	return ""
}

// Snapshot returns the observable state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session.Load()
	snap := Snapshot{
		State:           m.state,
		IsOpened:        m.opened,
		Codec:           m.desc.Codec,
		BitRate:         m.desc.BitRate,
		Bits:            m.desc.Bits,
		Channels:        m.desc.Channels,
		ChannelsOut:     ChannelsOut,
		ChannelLayout:   m.desc.ChannelLayout,
		SampleFormat:    m.desc.SampleFormat,
		SampleRate:      m.sampleRate,
		FramesDisplayed: m.framesDisplayed.Load(),
		FramesDropped:   m.framesDropped.Load(),
		Volume:          m.currentVolume(s),
		Mute:            m.mute,
		Device:          m.device,
		DeviceID:        m.deviceID,
		Enabled:         m.settings.Enabled(),
		Delay:           m.settings.Delay(),
	}
	if s != nil {
		snap.SessionID = s.id.String()
		snap.Queued = s.voice.Queued()
	}
	return snap
}

// memorySettings backs a Manager constructed without shared settings
type memorySettings struct {
	mu      sync.Mutex
	enabled bool
	delay   time.Duration
}

func (s *memorySettings) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *memorySettings) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *memorySettings) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

func (s *memorySettings) SetDelay(delay time.Duration) {
	s.mu.Lock()
	s.delay = delay
	s.mu.Unlock()
}
