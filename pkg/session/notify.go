// ABOUTME: Batched change notifications for observers of the session
// ABOUTME: Diffs snapshots and reports every changed field in one update
package session

import (
	"strings"
	"time"
)

// Field is a bitmask of observable session fields
type Field uint32

const (
	FieldIsOpened Field = 1 << iota
	FieldCodec
	FieldBitRate
	FieldBits
	FieldChannels
	FieldChannelLayout
	FieldSampleFormat
	FieldSampleRate
	FieldFramesDisplayed
	FieldFramesDropped
	FieldVolume
	FieldMute
	FieldDevice
	FieldDeviceID
	FieldEnabled
	FieldDelay
)

var fieldNames = []string{
	"IsOpened", "Codec", "BitRate", "Bits", "Channels", "ChannelLayout",
	"SampleFormat", "SampleRate", "FramesDisplayed", "FramesDropped",
	"Volume", "Mute", "Device", "DeviceId", "Enabled", "Delay",
}

// Has reports whether every field in other is set
func (f Field) Has(other Field) bool {
	return f&other == other
}

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for i, name := range fieldNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// Snapshot is the observable state of a Manager at one point in time
type Snapshot struct {
	SessionID string
	State     State

	IsOpened      bool
	Codec         string
	BitRate       float64
	Bits          int
	Channels      int
	ChannelsOut   int
	ChannelLayout string
	SampleFormat  string
	SampleRate    int

	FramesDisplayed int64
	FramesDropped   int64
	Queued          int

	Volume   int
	Mute     bool
	Device   string
	DeviceID string

	Enabled bool
	Delay   time.Duration
}

// Diff returns the fields that differ between s and other
func (s Snapshot) Diff(other Snapshot) Field {
	var f Field
	set := func(changed bool, field Field) {
		if changed {
			f |= field
		}
	}
	set(s.IsOpened != other.IsOpened, FieldIsOpened)
	set(s.Codec != other.Codec, FieldCodec)
	set(s.BitRate != other.BitRate, FieldBitRate)
	set(s.Bits != other.Bits, FieldBits)
	set(s.Channels != other.Channels, FieldChannels)
	set(s.ChannelLayout != other.ChannelLayout, FieldChannelLayout)
	set(s.SampleFormat != other.SampleFormat, FieldSampleFormat)
	set(s.SampleRate != other.SampleRate, FieldSampleRate)
	set(s.FramesDisplayed != other.FramesDisplayed, FieldFramesDisplayed)
	set(s.FramesDropped != other.FramesDropped, FieldFramesDropped)
	set(s.Volume != other.Volume, FieldVolume)
	set(s.Mute != other.Mute, FieldMute)
	set(s.Device != other.Device, FieldDevice)
	set(s.DeviceID != other.DeviceID, FieldDeviceID)
	set(s.Enabled != other.Enabled, FieldEnabled)
	set(s.Delay != other.Delay, FieldDelay)
	return f
}

// Update is one batched notification
type Update struct {
	Changed  Field
	Snapshot Snapshot
}

// Notifier receives updates. It is called from whichever goroutine changed
// the session and must hand the update off to its own goroutine; calling
// back into the Manager synchronously deadlocks.
type Notifier interface {
	Notify(update Update)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(update Update)

func (f NotifierFunc) Notify(update Update) { f(update) }

// publish diffs the current state against the last published one and emits
// a single update when anything changed
func (m *Manager) publish() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	snap := m.Snapshot()
	changed := m.published.Diff(snap)
	m.published = snap
	if changed == 0 || m.notifier == nil {
		return
	}
	m.notifier.Notify(Update{Changed: changed, Snapshot: snap})
}

// Notify publishes pending changes, typically the frame counters which the
// submission path does not report on its own
func (m *Manager) Notify() {
	m.publish()
}
