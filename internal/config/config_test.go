// ABOUTME: Tests for configuration loading and watching
// ABOUTME: Uses an in-memory filesystem for loading and a temp dir for the watcher
package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
player:
  volume_max: 100
  volume_offset: 10
  auto_play: true
  audio_delay_offset: 50ms
  audio_delay_offset2: 500ms
audio:
  enabled: false
  delay: -20ms
  device: Headphones
  backend: oto
log:
  level: debug
  path: /tmp/audiosession.log
remote:
  addr: 127.0.0.1:9000
  mdns: true
metrics:
  addr: :9100
`

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 150, c.Player.VolumeMax)
	assert.Equal(t, 5, c.Player.VolumeOffset)
	assert.True(t, c.Audio.Enabled())
	assert.Zero(t, c.Audio.Delay())
	assert.NoError(t, c.Validate())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, Player{
		VolumeMax:         100,
		VolumeOffset:      10,
		AutoPlay:          true,
		AudioDelayOffset:  50 * time.Millisecond,
		AudioDelayOffset2: 500 * time.Millisecond,
	}, c.Player)
	assert.False(t, c.Audio.Enabled())
	assert.Equal(t, -20*time.Millisecond, c.Audio.Delay())
	assert.Equal(t, "Headphones", c.Audio.Device)
	assert.Equal(t, "oto", c.Audio.Backend)
	assert.Equal(t, Log{Level: "debug", Path: "/tmp/audiosession.log"}, c.Log)
	assert.Equal(t, "127.0.0.1:9000", c.Remote.Addr)
	assert.True(t, c.Remote.MDNS)
	assert.Equal(t, "audiosession", c.Remote.Name)
	assert.Equal(t, ":9100", c.Metrics.Addr)
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte("audio:\n  device: Speakers\n"))
	require.NoError(t, err)
	assert.Equal(t, 150, c.Player.VolumeMax)
	assert.True(t, c.Audio.Enabled())
	assert.Equal(t, "Speakers", c.Audio.Device)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "player: [unterminated"},
		{"volume max", "player:\n  volume_max: 0\n"},
		{"volume offset", "player:\n  volume_max: 10\n  volume_offset: 20\n"},
		{"log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	c, err := Load(fs, "/etc/audiosession/config.yml")
	require.NoError(t, err)
	assert.Equal(t, Default().Player, c.Player)

	require.NoError(t, afero.WriteFile(fs, "/etc/audiosession/config.yml", []byte(sample), 0o644))
	c, err = Load(fs, "/etc/audiosession/config.yml")
	require.NoError(t, err)
	assert.Equal(t, 100, c.Player.VolumeMax)
}

func TestAudioConcurrentAccess(t *testing.T) {
	a := Default().Audio
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			a.SetDelay(time.Duration(i))
			a.SetEnabled(i%2 == 0)
		}
	}()
	for i := 0; i < 1000; i++ {
		_ = a.Delay()
		_ = a.Enabled()
	}
	<-done
	assert.Equal(t, time.Duration(999), a.Delay())
	assert.False(t, a.Enabled())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  device: Default\n"), 0o644))

	var latest atomic.Pointer[Config]
	w, err := Watch(afero.NewOsFs(), path, func(c *Config) { latest.Store(c) })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("audio:\n  device: Speakers\n"), 0o644))

	assert.Eventually(t, func() bool {
		c := latest.Load()
		return c != nil && c.Audio.Device == "Speakers"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherManualReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	var calls atomic.Int32
	w, err := Watch(afero.NewOsFs(), path, func(*Config) { calls.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	w.Reload()
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherIgnoresInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	var calls atomic.Int32
	w, err := Watch(afero.NewOsFs(), path, func(*Config) { calls.Add(1) })
	require.NoError(t, err)

	w.Reload()
	time.Sleep(400 * time.Millisecond)
	require.NoError(t, w.Close())
	assert.Zero(t, calls.Load())
}
