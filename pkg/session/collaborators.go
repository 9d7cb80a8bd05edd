// ABOUTME: Interfaces the session manager consumes from the rest of the player
// ABOUTME: Decoder, playback engine, device enumeration and shared audio settings
package session

import (
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/output"
)

// Decoder produces the audio stream buffers are submitted from
type Decoder interface {
	// AudioStream describes the open stream, nil when none is open
	AudioStream() *audio.Descriptor

	// AudioOpened reports whether the audio decoder is live
	AudioOpened() bool

	// OpenSuggestedAudio opens the best-suited audio stream of the input
	OpenSuggestedAudio() error

	// CloseAudio closes the audio stream
	CloseAudio()
}

// Player is the playback engine around the session
type Player interface {
	IsPlaying() bool
	CurTime() time.Duration

	// ReSync aligns stream to the presentation clock at the given position
	ReSync(stream *audio.Descriptor, at time.Duration)

	Play()
	VideoOpened() bool

	// DropAudioFrame releases any frame held for submission
	DropAudioFrame()

	SetCanPlay(canPlay bool)
}

// DeviceEnumerator resolves device identities. output.DeviceList implements it.
type DeviceEnumerator interface {
	DeviceID(name string) (string, bool)
	DeviceName(id string) (string, bool)
	DefaultDevice() output.Device

	// Failed reports that no audio device exists on the host
	Failed() bool
}

// Settings are the audio values the session shares with the rest of the
// player and the configuration layer
type Settings interface {
	Enabled() bool
	SetEnabled(enabled bool)
	Delay() time.Duration
	SetDelay(delay time.Duration)
}
