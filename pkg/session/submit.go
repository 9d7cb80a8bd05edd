// ABOUTME: Buffer submission path
// ABOUTME: Enqueues decoded buffers on the live session without the control lock
package session

import (
	"github.com/Resonate-Protocol/audiosession/pkg/audio"
)

// Submit queues buf on the live session. buf.Samples must stay untouched
// until the device consumed them. Without a session it does nothing; a failed
// submission is counted as dropped.
func (m *Manager) Submit(buf audio.Buffer) {
	s := m.session.Load()
	if s == nil {
		return
	}

	if err := s.voice.Submit(buf); err != nil {
		log.Debugf("[Audio] Add samples failed (%v)", err)
		m.framesDropped.Add(1)
		return
	}
	m.framesDisplayed.Add(1)
}

// ClearBuffer drops every buffer queued on the live session
func (m *Manager) ClearBuffer() {
	m.mu.Lock()
	m.clearBuffer()
	m.mu.Unlock()
}

func (m *Manager) clearBuffer() {
	if s := m.session.Load(); s != nil {
		s.voice.Flush()
	}
}

// QueuedCount returns the buffers queued on the device, 0 without a session
func (m *Manager) QueuedCount() int {
	if s := m.session.Load(); s != nil {
		return s.voice.Queued()
	}
	return 0
}

// FramesDisplayed counts buffers submitted since the last Refresh or Reset
func (m *Manager) FramesDisplayed() int64 {
	return m.framesDisplayed.Load()
}

// FramesDropped counts failed submissions since the last Refresh or Reset
func (m *Manager) FramesDropped() int64 {
	return m.framesDropped.Load()
}
