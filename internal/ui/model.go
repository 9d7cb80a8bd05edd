// ABOUTME: Bubbletea model for the session TUI
// ABOUTME: Renders session state and turns keys into control commands
package ui

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/audiosession/internal/events"
	"github.com/Resonate-Protocol/audiosession/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	title    string
	commands func(events.Command)

	// Session
	snap    session.Snapshot
	devices []string

	// Playback
	playing  bool
	position time.Duration
	late     int64

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a session snapshot
type StatusMsg struct {
	Snapshot session.Snapshot
}

// PlaybackMsg carries the player clock
type PlaybackMsg struct {
	Playing  bool
	Position time.Duration
	Late     int64
}

// DevicesMsg replaces the list of selectable devices
type DevicesMsg struct {
	Devices []string
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.snap = msg.Snapshot
	case PlaybackMsg:
		m.playing = msg.Playing
		m.position = msg.Position
		m.late = msg.Late
	case DevicesMsg:
		m.devices = msg.Devices
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders device and audio status
func (m Model) renderHeader() string {
	status := "✓ Enabled"
	if !m.snap.Enabled {
		status = "✗ Disabled"
	}

	return fmt.Sprintf(`┌─ Audio Session ──────────────────────────────────────┐
│ Device: %-45s │
│ Audio:  %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(m.snap.Device, 45), status)
}

// renderStreamInfo renders the open stream
func (m Model) renderStreamInfo() string {
	if !m.snap.IsOpened {
		return "│ No stream                                            │\n"
	}

	state := "Paused"
	if m.playing {
		state = "Playing"
	}

	s := fmt.Sprintf("│ %-7s %-44s │\n", state+":", truncate(m.title, 44))
	s += fmt.Sprintf("│   Position: %-40s │\n", formatDuration(m.position))
	s += "│                                                      │\n"
	s += fmt.Sprintf("│ Format: %-45s │\n", truncate(fmt.Sprintf("%s %dHz %s %s %.0fkbps",
		m.snap.Codec, m.snap.SampleRate, m.snap.ChannelLayout, m.snap.SampleFormat, m.snap.BitRate), 45))

	return s
}

// renderControls renders volume, delay and queue status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.snap.Mute {
		muteIcon = " 🔇"
	}

	volumeBar := renderBar(m.snap.Volume, m.volumeMax(), 10)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %d%%%s%-17s │\n"+
		"│ Delay:  %-45s │\n"+
		"│ Queue:  %d buffers%-35s │\n",
		volumeBar, m.snap.Volume, muteIcon, "",
		m.snap.Delay.String(),
		m.snap.Queued, "")
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  Played: %d  Dropped: %d  Late: %d%-8s │
│                                                      │
`, m.snap.FramesDisplayed, m.snap.FramesDropped, m.late, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume m:Mute e:Audio n:Device +/-:Delay q:Quit │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Session:   %-40s │
│   State:     %-40s │
│   Device ID: %-40s │
`, truncate(m.snap.SessionID, 40), m.snap.State, truncate(m.snap.DeviceID, 40))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up":
		m.send(events.Command{Command: events.CommandVolumeUp})
	case "down":
		m.send(events.Command{Command: events.CommandVolumeDown})
	case "m":
		m.send(events.Command{Command: events.CommandToggle})
	case "e":
		m.send(events.Command{Command: events.CommandToggleEnabled})
	case "n":
		if next := m.nextDevice(); next != "" {
			m.send(events.Command{Command: events.CommandDevice, Device: next})
		}
	case "+", "=":
		m.send(events.Command{Command: events.CommandDelayAdd})
	case "-":
		m.send(events.Command{Command: events.CommandDelayRemove})
	case " ":
		m.send(events.Command{Command: events.CommandPlayPause})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m Model) send(cmd events.Command) {
	if m.commands == nil {
		return
	}
	cmd.Source = "ui"
	m.commands(cmd)
}

// nextDevice cycles through the device list after the selected one
func (m Model) nextDevice() string {
	if len(m.devices) < 2 {
		return ""
	}
	for i, name := range m.devices {
		if name == m.snap.Device {
			return m.devices[(i+1)%len(m.devices)]
		}
	}
	return m.devices[0]
}

func (m Model) volumeMax() int {
	if m.snap.Volume > 100 {
		return m.snap.Volume
	}
	return 100
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		max = 100
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
