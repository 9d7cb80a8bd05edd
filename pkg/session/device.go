// ABOUTME: Device session lifecycle
// ABOUTME: Builds, tears down and rebuilds the binding to the output device
package session

import (
	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/output"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// audioSession is one live binding to an output device
type audioSession struct {
	id       uuid.UUID
	device   string
	deviceID string
	rate     int
	engine   output.Engine
	master   output.MasteringVoice
	voice    output.SourceVoice
}

// release closes every handle, voices before the engine they came from
func (s *audioSession) release() {
	if s.voice != nil {
		if err := s.voice.Close(); err != nil {
			log.Debugf("closing source voice: %v", err)
		}
	}
	if s.master != nil {
		if err := s.master.Close(); err != nil {
			log.Debugf("closing mastering voice: %v", err)
		}
	}
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			log.Debugf("closing engine: %v", err)
		}
	}
}

// Initialize tears down the live session and binds a new one to the selected
// device at the negotiated rate. On failure audio is disabled.
func (m *Manager) Initialize() {
	m.mu.Lock()
	m.initialize()
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) initialize() {
	if m.closed {
		return
	}

	m.dispose()

	if m.devices.Failed() {
		log.Info("No audio device available, disabling audio")
		m.settings.SetEnabled(false)
		return
	}

	m.sampleRate = m.streamRate()
	log.Infof("Initializing audio (%s @ %dHz)", m.device, m.sampleRate)

	s, err := m.build()
	if err != nil {
		log.Infof("Audio initialization failed (%v)", err)
		m.settings.SetEnabled(false)
		return
	}

	m.session.Store(s)
	m.sessions.Add(1)
	m.applyVolume(s)
}

// streamRate is the open stream's rate, or the default without one
func (m *Manager) streamRate() int {
	if m.decoder != nil {
		if stream := m.decoder.AudioStream(); stream != nil && stream.SampleRate > 0 {
			return stream.SampleRate
		}
	}
	return DefaultSampleRate
}

func (m *Manager) build() (s *audioSession, err error) {
	if m.deviceID == "" && m.device != m.devices.DefaultDevice().Name {
		return nil, errors.Wrapf(output.ErrDeviceNotFound, "device %q", m.device)
	}

	s = &audioSession{
		id:       uuid.New(),
		device:   m.device,
		deviceID: m.deviceID,
		rate:     m.sampleRate,
	}
	defer func() {
		if err != nil {
			s.release()
			s = nil
		}
	}()

	if s.engine, err = m.backend.NewEngine(); err != nil {
		return s, err
	}
	if s.master, err = s.engine.NewMasteringVoice(s.deviceID); err != nil {
		return s, err
	}
	s.master.SetVolume(1.0)

	format := audio.Format{SampleRate: s.rate, Channels: ChannelsOut, BitDepth: output.DeviceFormat.BitDepth}
	if s.voice, err = s.engine.NewSourceVoice(s.master, format); err != nil {
		return s, err
	}
	if err = s.voice.SetSourceSampleRate(s.rate); err != nil {
		return s, err
	}
	if err = s.voice.Start(); err != nil {
		return s, err
	}

	id := s.id
	s.engine.OnDeviceLost(func() { m.deviceLost(id) })
	return s, nil
}

// Dispose releases the live session, if any
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.dispose()
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) dispose() {
	s := m.session.Swap(nil)
	if s == nil {
		return
	}
	s.release()
}

// deviceLost runs on backend goroutines. Reports are grouped and the session
// that lost its device is rebuilt once.
func (m *Manager) deviceLost(id uuid.UUID) {
	if s := m.session.Load(); s == nil || s.id != id {
		return
	}
	log.Warnf("Audio device lost (session %s)", id)
	m.debounceLost(func() { m.recover(id) })
}

func (m *Manager) recover(id uuid.UUID) {
	m.mu.Lock()
	if s := m.session.Load(); s == nil || s.id != id {
		m.mu.Unlock()
		return
	}
	m.initialize()
	m.mu.Unlock()

	m.publish()
}

// Device returns the selected device name
func (m *Manager) Device() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}

// DeviceID returns the selected device id; empty is the host default
func (m *Manager) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceID
}

// SetDevice selects a device by name and rebuilds the session for it
func (m *Manager) SetDevice(name string) {
	if name == "" {
		return
	}

	m.mu.Lock()
	if name == m.device {
		m.mu.Unlock()
		return
	}
	m.device = name
	m.deviceID = m.resolveID(name)
	m.initialize()
	m.mu.Unlock()

	m.publish()
}

// SetDeviceID selects a device by id and rebuilds the session for it. The
// empty id is ignored; select the host default by name with SetDevice.
func (m *Manager) SetDeviceID(id string) {
	if id == "" {
		return
	}

	m.mu.Lock()
	if id == m.deviceID {
		m.mu.Unlock()
		return
	}
	m.deviceID = id
	if name, ok := m.devices.DeviceName(id); ok {
		m.device = name
	} else {
		log.Warnf("Unknown audio device id %q", id)
		m.device = id
	}
	m.initialize()
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) resolveID(name string) string {
	id, ok := m.devices.DeviceID(name)
	if !ok {
		log.Warnf("Unknown audio device %q", name)
	}
	return id
}
