// ABOUTME: Stream lifecycle driven by decoder events
// ABOUTME: Refresh, Reset, Enable and Disable transitions of the audio stream
package session

import (
	"github.com/Resonate-Protocol/audiosession/pkg/audio"
)

// Refresh reloads the stream description after the decoder opened or changed
// its audio stream and rebuilds the session when the input rate changed
func (m *Manager) Refresh() {
	var stream *audio.Descriptor
	if m.decoder != nil {
		stream = m.decoder.AudioStream()
	}
	if stream == nil {
		m.Reset()
		return
	}

	m.mu.Lock()
	m.desc = *stream
	m.opened = m.decoder.AudioOpened()
	if m.opened {
		m.state = StateOpen
	} else {
		m.state = StateClosed
	}
	m.resetCounters()

	if m.streamRate() != m.sampleRate || m.session.Load() == nil {
		m.initialize()
	}
	m.mu.Unlock()

	m.publish()
}

// Reset clears the stream description and flushes queued audio
func (m *Manager) Reset() {
	m.mu.Lock()
	m.desc = audio.Descriptor{}
	m.opened = false
	m.state = StateClosed
	m.clearBuffer()
	m.resetCounters()
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) resetCounters() {
	m.framesDisplayed.Store(0)
	m.framesDropped.Store(0)
}

// Enable opens the decoder's suggested audio stream and resumes playback
func (m *Manager) Enable() {
	if m.decoder == nil || m.player == nil {
		log.Warn("Cannot enable audio without a decoder")
		return
	}

	wasPlaying := m.player.IsPlaying()

	if err := m.decoder.OpenSuggestedAudio(); err != nil {
		log.Infof("Opening audio stream failed (%v)", err)
	}
	m.player.ReSync(m.decoder.AudioStream(), m.player.CurTime())

	m.Refresh()

	if wasPlaying || m.config.AutoPlay {
		m.player.Play()
	}
}

// Disable closes the audio stream; without video the player cannot play anymore
func (m *Manager) Disable() {
	if !m.IsOpened() {
		return
	}

	m.mu.Lock()
	m.state = StateDisabling
	m.mu.Unlock()

	if m.decoder != nil {
		m.decoder.CloseAudio()
	}
	if m.player != nil {
		m.player.DropAudioFrame()
		if !m.player.VideoOpened() {
			m.player.SetCanPlay(false)
		}
	}

	m.Reset()
}

// ToggleEnabled flips the audio enabled setting and enables or disables the stream
func (m *Manager) ToggleEnabled() {
	enabled := !m.settings.Enabled()
	m.settings.SetEnabled(enabled)
	if enabled {
		m.Enable()
	} else {
		m.Disable()
	}
}
