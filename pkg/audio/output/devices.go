// ABOUTME: Device enumeration on top of a backend
// ABOUTME: Resolves device names to ids and tracks global audio failure
package output

import (
	"sync"
)

// DeviceList caches the playback devices of a backend and resolves the two
// forms of device identity, human-readable name and opaque id
type DeviceList struct {
	backend Backend

	mu      sync.RWMutex
	devices []Device
	failed  bool
}

// NewDeviceList enumerates backend's devices
func NewDeviceList(backend Backend) *DeviceList {
	l := &DeviceList{backend: backend}
	if err := l.Refresh(); err != nil {
		log.Errorf("audio device enumeration failed: %v", err)
	}
	return l
}

// Refresh re-enumerates devices. A failure marks audio as unavailable on this host.
func (l *DeviceList) Refresh() error {
	devices, err := l.backend.Devices()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.devices = nil
		l.failed = true
		return err
	}
	l.devices = devices
	l.failed = false
	return nil
}

// Devices returns the default pseudo-device followed by the enumerated ones
func (l *DeviceList) Devices() []Device {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Device{l.DefaultDevice()}
	for _, d := range l.devices {
		if d.ID == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DefaultDevice follows whatever the host uses as default output
func (l *DeviceList) DefaultDevice() Device {
	return Device{Name: DefaultDeviceName, IsDefault: true}
}

// DeviceID resolves a device name
func (l *DeviceList) DeviceID(name string) (string, bool) {
	if name == DefaultDeviceName {
		return "", true
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, d := range l.devices {
		if d.Name == name && d.ID != "" {
			return d.ID, true
		}
	}
	return "", false
}

// DeviceName resolves a device id
func (l *DeviceList) DeviceName(id string) (string, bool) {
	if id == "" {
		return DefaultDeviceName, true
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, d := range l.devices {
		if d.ID == id {
			return d.Name, true
		}
	}
	return "", false
}

// Failed reports that no audio device is available on the host
func (l *DeviceList) Failed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failed
}
