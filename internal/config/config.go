// ABOUTME: Player configuration loaded from YAML
// ABOUTME: Holds player defaults, audio settings, logging, remote and metrics options
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var log = logrus.WithField("module", "config")

// Player holds playback control settings
type Player struct {
	VolumeMax         int           `yaml:"volume_max"`
	VolumeOffset      int           `yaml:"volume_offset"`
	AutoPlay          bool          `yaml:"auto_play"`
	AudioDelayOffset  time.Duration `yaml:"audio_delay_offset"`
	AudioDelayOffset2 time.Duration `yaml:"audio_delay_offset2"`
}

// Log holds logging settings
type Log struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Remote holds the remote control endpoint settings
type Remote struct {
	Addr string `yaml:"addr"`
	MDNS bool   `yaml:"mdns"`
	Name string `yaml:"name"`
}

// Metrics holds the prometheus endpoint settings
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Config is the whole configuration
type Config struct {
	Player  Player
	Audio   *Audio
	Log     Log
	Remote  Remote
	Metrics Metrics
}

// Audio holds the audio output settings. Enabled and Delay change at runtime
// and are safe for concurrent use.
type Audio struct {
	Device  string
	Backend string

	mu      sync.RWMutex
	enabled bool
	delay   time.Duration
}

func (a *Audio) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

func (a *Audio) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
}

func (a *Audio) Delay() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.delay
}

func (a *Audio) SetDelay(delay time.Duration) {
	a.mu.Lock()
	a.delay = delay
	a.mu.Unlock()
}

// file mirrors the YAML layout
type file struct {
	Player Player `yaml:"player"`
	Audio  struct {
		Enabled *bool         `yaml:"enabled"`
		Delay   time.Duration `yaml:"delay"`
		Device  string        `yaml:"device"`
		Backend string        `yaml:"backend"`
	} `yaml:"audio"`
	Log     Log     `yaml:"log"`
	Remote  Remote  `yaml:"remote"`
	Metrics Metrics `yaml:"metrics"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Player: Player{
			VolumeMax:         150,
			VolumeOffset:      5,
			AudioDelayOffset:  100 * time.Millisecond,
			AudioDelayOffset2: time.Second,
		},
		Audio: &Audio{enabled: true},
		Log:   Log{Level: "info"},
		Remote: Remote{
			Addr: ":8927",
			Name: "audiosession",
		},
	}
}

// Parse decodes YAML on top of the defaults
func Parse(data []byte) (*Config, error) {
	c := Default()

	var f file
	f.Player = c.Player
	f.Log = c.Log
	f.Remote = c.Remote
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	c.Player = f.Player
	c.Log = f.Log
	c.Remote = f.Remote
	c.Metrics = f.Metrics
	c.Audio.Device = f.Audio.Device
	c.Audio.Backend = f.Audio.Backend
	c.Audio.delay = f.Audio.Delay
	if f.Audio.Enabled != nil {
		c.Audio.enabled = *f.Audio.Enabled
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads path from fs. A missing file yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("%s not found, using defaults", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	log.Infof("reading %s from disk", path)
	return Parse(data)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Player.VolumeMax <= 0 {
		return fmt.Errorf("player.volume_max must be positive, got %d", c.Player.VolumeMax)
	}
	if c.Player.VolumeOffset <= 0 || c.Player.VolumeOffset > c.Player.VolumeMax {
		return fmt.Errorf("player.volume_offset must be in (0, %d], got %d", c.Player.VolumeMax, c.Player.VolumeOffset)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
