package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// PreviewFunc loads preview lines for a session's transcript
type PreviewFunc func(ctx context.Context, sessionID string) ([]string, error)

type (
	// previewLoadedMsg carries the transcript preview of one session
	previewLoadedMsg struct {
		SessionID string
		Lines     []string
		Err       error
	}

	// tickMsg drives the spinner
	tickMsg time.Time
)

// loadPreviewCmd loads a session preview in the background
func loadPreviewCmd(ctx context.Context, preview PreviewFunc, sessionID string) tea.Cmd {
	return func() tea.Msg {
		lines, err := preview(ctx, sessionID)
		return previewLoadedMsg{SessionID: sessionID, Lines: lines, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
