package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var loadingFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// LoadingIndicator shows an animated frame next to a message while a
// transcript preview is loading
type LoadingIndicator struct {
	frame   int
	message string
}

func NewLoadingIndicator(message string) *LoadingIndicator {
	return &LoadingIndicator{message: message}
}

// Tick advances the animation by one frame
func (l *LoadingIndicator) Tick() {
	l.frame = (l.frame + 1) % len(loadingFrames)
}

func (l *LoadingIndicator) View() string {
	frameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	messageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	return frameStyle.Render(loadingFrames[l.frame]) + " " + messageStyle.Render(l.message)
}
