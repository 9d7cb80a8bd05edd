// ABOUTME: Tests for the session TUI model
// ABOUTME: Covers message handling, key commands and rendering
package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/audiosession/internal/events"
	"github.com/Resonate-Protocol/audiosession/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
)

func newTestModel() (Model, *[]events.Command) {
	sent := &[]events.Command{}
	m := NewModel("song.flac", []string{"Default", "Speakers", "Headphones"}, func(cmd events.Command) {
		*sent = append(*sent, cmd)
	})
	m.width = 80
	m.height = 24
	return m, sent
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStatusMsg(t *testing.T) {
	m, _ := newTestModel()

	snap := session.Snapshot{
		IsOpened:   true,
		Codec:      "flac",
		SampleRate: 44100,
		Volume:     42,
		Device:     "Speakers",
		Enabled:    true,
	}
	updated, _ := m.Update(StatusMsg{Snapshot: snap})
	m = updated.(Model)

	if m.snap.Volume != 42 {
		t.Errorf("expected volume 42, got %d", m.snap.Volume)
	}
	if m.snap.Device != "Speakers" {
		t.Errorf("expected device Speakers, got %s", m.snap.Device)
	}
}

func TestPlaybackMsg(t *testing.T) {
	m, _ := newTestModel()

	updated, _ := m.Update(PlaybackMsg{Playing: true, Position: 90 * time.Second, Late: 3})
	m = updated.(Model)

	if !m.playing {
		t.Error("expected playing")
	}
	if m.position != 90*time.Second {
		t.Errorf("expected position 90s, got %v", m.position)
	}
	if m.late != 3 {
		t.Errorf("expected late 3, got %d", m.late)
	}
}

func TestWindowSize(t *testing.T) {
	m, _ := newTestModel()
	m.width = 0

	if m.View() != "Loading..." {
		t.Error("expected loading view before first resize")
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)
	if m.width != 100 || m.height != 40 {
		t.Errorf("expected 100x40, got %dx%d", m.width, m.height)
	}
}

func TestKeyCommands(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"up", events.CommandVolumeUp},
		{"down", events.CommandVolumeDown},
		{"m", events.CommandToggle},
		{"e", events.CommandToggleEnabled},
		{"+", events.CommandDelayAdd},
		{"-", events.CommandDelayRemove},
		{" ", events.CommandPlayPause},
	}

	for _, tt := range tests {
		m, sent := newTestModel()
		m.Update(key(tt.key))

		if len(*sent) != 1 {
			t.Fatalf("key %q: expected 1 command, got %d", tt.key, len(*sent))
		}
		got := (*sent)[0]
		if got.Command != tt.want {
			t.Errorf("key %q: expected %s, got %s", tt.key, tt.want, got.Command)
		}
		if got.Source != "ui" {
			t.Errorf("key %q: expected source ui, got %s", tt.key, got.Source)
		}
	}
}

func TestNextDevice(t *testing.T) {
	m, sent := newTestModel()
	m.snap.Device = "Speakers"

	m.Update(key("n"))
	if len(*sent) != 1 || (*sent)[0].Device != "Headphones" {
		t.Fatalf("expected device command for Headphones, got %+v", *sent)
	}

	m.snap.Device = "Headphones"
	m.Update(key("n"))
	if (*sent)[1].Device != "Default" {
		t.Errorf("expected wrap to Default, got %s", (*sent)[1].Device)
	}
}

func TestNextDeviceSingle(t *testing.T) {
	m, sent := newTestModel()
	m.devices = []string{"Default"}

	m.Update(key("n"))
	if len(*sent) != 0 {
		t.Errorf("expected no command with a single device, got %d", len(*sent))
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel()

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestDebugToggle(t *testing.T) {
	m, _ := newTestModel()

	updated, _ := m.Update(key("d"))
	m = updated.(Model)
	if !m.showDebug {
		t.Error("expected debug shown")
	}
	if !strings.Contains(m.View(), "DEBUG") {
		t.Error("expected debug section in view")
	}
}

func TestNilCommandsIgnored(t *testing.T) {
	m := NewModel("x", nil, nil)
	m.Update(key("up"))
}

func TestViewNoStream(t *testing.T) {
	m, _ := newTestModel()
	m.snap.Enabled = true

	view := m.View()
	if !strings.Contains(view, "No stream") {
		t.Error("expected no stream line")
	}
	if !strings.Contains(view, "✓ Enabled") {
		t.Error("expected enabled status")
	}
}

func TestViewStream(t *testing.T) {
	m, _ := newTestModel()
	m.snap = session.Snapshot{
		IsOpened:        true,
		Codec:           "flac",
		SampleRate:      44100,
		ChannelLayout:   "stereo",
		SampleFormat:    "s16",
		Volume:          50,
		Mute:            true,
		Device:          "Speakers",
		Delay:           200 * time.Millisecond,
		FramesDisplayed: 12,
		FramesDropped:   1,
	}
	m.playing = true
	m.position = 65 * time.Second

	view := m.View()
	for _, want := range []string{"Playing:", "song.flac", "1:05", "flac 44100Hz stereo s16", "50%", "🔇", "200ms", "Played: 12", "Dropped: 1", "✗ Disabled"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		filled            int
	}{
		{0, 100, 10, 0},
		{50, 100, 10, 5},
		{100, 100, 10, 10},
		{75, 150, 10, 5},
		{10, 0, 10, 1},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, tt.max, tt.width)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d, %d, %d): expected %d filled, got %d", tt.value, tt.max, tt.width, tt.filled, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %s", got)
	}
	if got := truncate("a very long device name", 10); got != "a very ..." {
		t.Errorf("expected 'a very ...', got %s", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "0:00",
		59 * time.Second:        "0:59",
		61 * time.Second:        "1:01",
		10*time.Minute + 500000: "10:00",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v): expected %s, got %s", d, want, got)
		}
	}
}
