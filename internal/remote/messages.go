// ABOUTME: JSON messages exchanged with remote controllers
// ABOUTME: Status frames mirror the session snapshot, errors reject bad commands
package remote

import (
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/session"
)

// Message types sent to clients
const (
	TypeStatus = "status"
	TypeError  = "error"
)

// Message is the envelope for every frame sent to a client
type Message struct {
	Type   string  `json:"type"`
	Status *Status `json:"status,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Status is the wire form of a session snapshot
type Status struct {
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state"`
	Changed   string `json:"changed,omitempty"`

	IsOpened      bool    `json:"is_opened"`
	Codec         string  `json:"codec,omitempty"`
	BitRate       float64 `json:"bit_rate,omitempty"`
	Bits          int     `json:"bits,omitempty"`
	Channels      int     `json:"channels,omitempty"`
	ChannelLayout string  `json:"channel_layout,omitempty"`
	SampleFormat  string  `json:"sample_format,omitempty"`
	SampleRate    int     `json:"sample_rate"`

	FramesDisplayed int64 `json:"frames_displayed"`
	FramesDropped   int64 `json:"frames_dropped"`
	Queued          int   `json:"queued"`

	Volume   int    `json:"volume"`
	Mute     bool   `json:"mute"`
	Device   string `json:"device"`
	DeviceID string `json:"device_id"`

	Enabled bool  `json:"enabled"`
	DelayMs int64 `json:"delay_ms"`
}

func newStatus(snap session.Snapshot, changed session.Field) *Status {
	s := &Status{
		SessionID:       snap.SessionID,
		State:           snap.State.String(),
		IsOpened:        snap.IsOpened,
		Codec:           snap.Codec,
		BitRate:         snap.BitRate,
		Bits:            snap.Bits,
		Channels:        snap.Channels,
		ChannelLayout:   snap.ChannelLayout,
		SampleFormat:    snap.SampleFormat,
		SampleRate:      snap.SampleRate,
		FramesDisplayed: snap.FramesDisplayed,
		FramesDropped:   snap.FramesDropped,
		Queued:          snap.Queued,
		Volume:          snap.Volume,
		Mute:            snap.Mute,
		Device:          snap.Device,
		DeviceID:        snap.DeviceID,
		Enabled:         snap.Enabled,
		DelayMs:         snap.Delay.Milliseconds(),
	}
	if changed != 0 {
		s.Changed = changed.String()
	}
	return s
}

// Delay returns the delay as a duration
func (s *Status) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}
