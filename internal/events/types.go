// ABOUTME: Event types carried on the bus
// ABOUTME: Session updates, control commands and config reloads
package events

import (
	"github.com/Resonate-Protocol/audiosession/internal/config"
	"github.com/Resonate-Protocol/audiosession/pkg/session"
)

// Event type constants for kelindar/event.
const (
	TypeSessionUpdate uint32 = iota + 1
	TypeCommand
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionUpdate carries one batched session notification
type SessionUpdate struct {
	session.Update
}

// Type returns the event type identifier for SessionUpdate.
func (e SessionUpdate) Type() uint32 { return TypeSessionUpdate }

// Command names accepted by the app
const (
	CommandVolume        = "volume"
	CommandVolumeUp      = "volume_up"
	CommandVolumeDown    = "volume_down"
	CommandMute          = "mute"
	CommandToggle        = "toggle"
	CommandDevice        = "device"
	CommandToggleEnabled = "toggle_enabled"
	CommandDelayAdd      = "delay_add"
	CommandDelayRemove   = "delay_remove"
	CommandPlayPause     = "play_pause"
)

// Command asks the app to change the session, from the UI or a remote client
type Command struct {
	Command string `json:"command"`
	Volume  int    `json:"volume,omitempty"`
	Mute    bool   `json:"mute,omitempty"`
	Device  string `json:"device,omitempty"`
	Source  string `json:"-"`
}

// Type returns the event type identifier for Command.
func (e Command) Type() uint32 { return TypeCommand }

// ConfigReloaded carries a configuration read after the file changed
type ConfigReloaded struct {
	Config *config.Config
}

// Type returns the event type identifier for ConfigReloaded.
func (e ConfigReloaded) Type() uint32 { return TypeConfigReloaded }
