// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the session UI
package ui

import (
	"github.com/Resonate-Protocol/audiosession/internal/events"
	tea "github.com/charmbracelet/bubbletea"
)

// NewModel creates a new TUI model. Key presses are turned into commands
// passed to send.
func NewModel(title string, devices []string, send func(events.Command)) Model {
	return Model{
		title:    title,
		devices:  devices,
		commands: send,
	}
}

// Run creates the TUI program; the caller runs it and feeds it messages with Send
func Run(model Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}
