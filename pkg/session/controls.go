// ABOUTME: Volume, mute and delay controls
// ABOUTME: Control state survives session rebuilds and is re-applied to each new session
package session

import (
	"math"
	"time"
)

// Volume returns the live volume percentage, 0 when muted or without a session
func (m *Manager) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentVolume(m.session.Load())
}

func (m *Manager) currentVolume(s *audioSession) int {
	if s == nil || m.mute {
		return 0
	}
	return int(math.Round(float64(s.voice.Volume()) * 100))
}

// StoredVolume returns the percentage restored on unmute
func (m *Manager) StoredVolume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// VolumeMax is the highest accepted percentage
func (m *Manager) VolumeMax() int {
	return m.config.VolumeMax
}

// SetVolume sets the volume percentage. Values outside [0, VolumeMax] are
// ignored; 0 mutes and keeps the previous percentage for unmute.
func (m *Manager) SetVolume(v int) {
	if v < 0 || v > m.config.VolumeMax {
		return
	}

	m.mu.Lock()
	m.setVolume(v)
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) setVolume(v int) {
	s := m.session.Load()
	switch {
	case v == 0:
		m.mute = true
		m.applyVolume(s)
	case m.mute:
		m.volume = v
		m.setMute(s, false)
	default:
		m.volume = v
		m.applyVolume(s)
	}
}

// Mute reports whether output is muted
func (m *Manager) Mute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mute
}

// SetMute mutes or restores the stored volume. Without a live session it does nothing.
func (m *Manager) SetMute(mute bool) {
	m.mu.Lock()
	m.setMute(m.session.Load(), mute)
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) setMute(s *audioSession, mute bool) {
	if s == nil {
		return
	}
	m.mute = mute
	m.applyVolume(s)
}

// applyVolume pushes the control state onto s (mu held)
func (m *Manager) applyVolume(s *audioSession) {
	if s == nil {
		return
	}
	if m.mute {
		s.voice.SetVolume(0)
		return
	}
	s.voice.SetVolume(float32(m.volume) / 100)
}

// Toggle flips mute
func (m *Manager) Toggle() {
	m.mu.Lock()
	m.setMute(m.session.Load(), !m.mute)
	m.mu.Unlock()

	m.publish()
}

// VolumeUp raises the volume by one step. While muted or without a session
// it steps from the stored percentage.
func (m *Manager) VolumeUp() {
	m.mu.Lock()
	cur := m.stepBase()
	if cur >= m.config.VolumeMax {
		m.mu.Unlock()
		return
	}
	m.setVolume(min(cur+m.config.VolumeOffset, m.config.VolumeMax))
	m.mu.Unlock()

	m.publish()
}

// VolumeDown lowers the volume by one step; it does nothing while muted
func (m *Manager) VolumeDown() {
	m.mu.Lock()
	cur := m.stepBase()
	if m.mute || cur == 0 {
		m.mu.Unlock()
		return
	}
	m.setVolume(max(cur-m.config.VolumeOffset, 0))
	m.mu.Unlock()

	m.publish()
}

// stepBase is the percentage a volume step starts from (mu held)
func (m *Manager) stepBase() int {
	s := m.session.Load()
	if s == nil || m.mute {
		return m.volume
	}
	return m.currentVolume(s)
}

// DelayAdd shifts audio later by the small delay step
func (m *Manager) DelayAdd() { m.shiftDelay(m.config.AudioDelayOffset) }

// DelayAdd2 shifts audio later by the large delay step
func (m *Manager) DelayAdd2() { m.shiftDelay(m.config.AudioDelayOffset2) }

// DelayRemove shifts audio earlier by the small delay step
func (m *Manager) DelayRemove() { m.shiftDelay(-m.config.AudioDelayOffset) }

// DelayRemove2 shifts audio earlier by the large delay step
func (m *Manager) DelayRemove2() { m.shiftDelay(-m.config.AudioDelayOffset2) }

func (m *Manager) shiftDelay(step time.Duration) {
	m.mu.Lock()
	m.settings.SetDelay(m.settings.Delay() + step)
	m.mu.Unlock()

	m.publish()
}
