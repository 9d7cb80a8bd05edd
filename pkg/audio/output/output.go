// ABOUTME: Audio output device abstraction
// ABOUTME: Backends create engines, engines create mastering and source voices
package output

import (
	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "output")

// DeviceFormat is what every backend renders to the physical device
var DeviceFormat = audio.Format{
	SampleRate: 48000,
	Channels:   2,
	BitDepth:   16,
}

// DefaultDeviceName selects whatever the host reports as its default output
const DefaultDeviceName = "Default"

var (
	ErrVoiceClosed       = errors.New("voice closed")
	ErrEngineClosed      = errors.New("engine closed")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrDeviceUnsupported = errors.New("backend cannot select a specific device")
	ErrForeignVoice      = errors.New("mastering voice belongs to another backend")
)

// Device identifies one physical output
type Device struct {
	Name      string
	ID        string
	IsDefault bool
}

// Backend is a native audio API
type Backend interface {
	// Name returns the backend identifier used in configuration
	Name() string

	// NewEngine creates an engine handle
	NewEngine() (Engine, error)

	// Devices lists the playback devices the backend can bind to
	Devices() ([]Device, error)
}

// Engine owns the native context voices are created from
type Engine interface {
	// NewMasteringVoice binds to the device with the given id; "" is the host default
	NewMasteringVoice(deviceID string) (MasteringVoice, error)

	// NewSourceVoice creates a submission voice routed to master
	NewSourceVoice(master MasteringVoice, format audio.Format) (SourceVoice, error)

	// OnDeviceLost registers fn to run when the bound device stops unexpectedly
	OnDeviceLost(fn func())

	// Close releases the engine
	Close() error
}

// MasteringVoice represents the physical output device
type MasteringVoice interface {
	SetVolume(volume float32)
	Volume() float32
	Close() error
}

// SourceVoice is the device-side queue decoded buffers are submitted to
type SourceVoice interface {
	// Start begins consuming queued buffers
	Start() error

	// Submit enqueues buf; its samples are read in place until consumed
	Submit(buf audio.Buffer) error

	// Flush drops every queued buffer
	Flush()

	// Queued returns the number of buffers not yet fully played
	Queued() int

	// SetSourceSampleRate sets the rate submitted buffers are in
	SetSourceSampleRate(rate int) error

	SetVolume(volume float32)
	Volume() float32
	Close() error
}

// New returns the backend registered under name
func New(name string) (Backend, error) {
	switch name {
	case "", "malgo":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	case "null":
		return NewNull(true), nil
	default:
		return nil, errors.Errorf("unknown output backend %q", name)
	}
}
