// ABOUTME: Null audio output backend
// ABOUTME: Renders the mix into nowhere, used headless and in tests
package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/pkg/errors"
)

// Null discards audio. A realtime Null pulls the mix at device pace like a
// sound card would; otherwise audio only advances through NullMaster.Render.
// Failures and device loss can be injected for testing.
type Null struct {
	realtime bool

	mu        sync.Mutex
	devices   []Device
	engineErr error
	masterErr error
	created   int
	engines   []*nullEngine
	masters   []*NullMaster
}

// NewNull creates a null backend exposing only the default device
func NewNull(realtime bool) *Null {
	return &Null{
		realtime: realtime,
		devices:  []Device{{Name: DefaultDeviceName, IsDefault: true}},
	}
}

func (n *Null) Name() string { return "null" }

// AddDevice makes another device selectable
func (n *Null) AddDevice(name, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.devices = append(n.devices, Device{Name: name, ID: id})
}

// FailEngines makes NewEngine fail with err until called with nil
func (n *Null) FailEngines(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.engineErr = err
}

// FailMasters makes NewMasteringVoice fail with err until called with nil
func (n *Null) FailMasters(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.masterErr = err
}

// EnginesCreated returns how many engines were successfully created
func (n *Null) EnginesCreated() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.created
}

// OpenEngines returns the engines not yet closed
func (n *Null) OpenEngines() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	open := 0
	for _, e := range n.engines {
		if !e.isClosed() {
			open++
		}
	}
	return open
}

// Masters returns every mastering voice created so far, oldest first
func (n *Null) Masters() []*NullMaster {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*NullMaster(nil), n.masters...)
}

// LastMaster returns the most recent mastering voice or nil
func (n *Null) LastMaster() *NullMaster {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.masters) == 0 {
		return nil
	}
	return n.masters[len(n.masters)-1]
}

// LoseDevice reports device loss on every open engine
func (n *Null) LoseDevice() {
	n.mu.Lock()
	engines := append([]*nullEngine(nil), n.engines...)
	n.mu.Unlock()

	for _, e := range engines {
		e.lose()
	}
}

func (n *Null) Devices() ([]Device, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Device(nil), n.devices...), nil
}

func (n *Null) NewEngine() (Engine, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.engineErr != nil {
		return nil, errors.Wrap(n.engineErr, "failed to create null engine")
	}
	e := &nullEngine{backend: n}
	n.engines = append(n.engines, e)
	n.created++
	return e, nil
}

func (n *Null) hasDevice(id string) bool {
	for _, d := range n.devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

type nullEngine struct {
	backend *Null
	mu      sync.Mutex
	closed  bool
	onLost  func()
}

func (e *nullEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *nullEngine) lose() {
	e.mu.Lock()
	fn := e.onLost
	closed := e.closed
	e.mu.Unlock()
	if fn != nil && !closed {
		fn()
	}
}

func (e *nullEngine) NewMasteringVoice(deviceID string) (MasteringVoice, error) {
	if e.isClosed() {
		return nil, ErrEngineClosed
	}

	n := e.backend
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.masterErr != nil {
		return nil, errors.Wrap(n.masterErr, "failed to open null device")
	}
	if deviceID != "" && !n.hasDevice(deviceID) {
		return nil, errors.Wrapf(ErrDeviceNotFound, "null device %s", deviceID)
	}

	m := &NullMaster{mixer: newMixer(), deviceID: deviceID, done: make(chan struct{})}
	n.masters = append(n.masters, m)
	if n.realtime {
		go m.run()
	}
	return m, nil
}

func (e *nullEngine) NewSourceVoice(master MasteringVoice, format audio.Format) (SourceVoice, error) {
	if e.isClosed() {
		return nil, ErrEngineClosed
	}
	return attachSourceVoice(master, format)
}

func (e *nullEngine) OnDeviceLost(fn func()) {
	e.mu.Lock()
	e.onLost = fn
	e.mu.Unlock()
}

func (e *nullEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.onLost = nil
	return nil
}

// NullMaster is a mastering voice with no device behind it
type NullMaster struct {
	*mixer
	deviceID string
	closed   atomic.Bool
	done     chan struct{}
}

// DeviceID returns the id the voice was opened for
func (m *NullMaster) DeviceID() string { return m.deviceID }

// Closed reports whether Close was called
func (m *NullMaster) Closed() bool { return m.closed.Load() }

// Render pulls frames from the mix and returns them as S16LE bytes
func (m *NullMaster) Render(frames int) []byte {
	out := make([]byte, frames*bytesPerFrame)
	m.render(out)
	return out
}

// run consumes the mix in 10ms periods
func (m *NullMaster) run() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	period := make([]byte, DeviceFormat.SampleRate/100*bytesPerFrame)
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.render(period)
		}
	}
}

func (m *NullMaster) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	close(m.done)
	return nil
}
