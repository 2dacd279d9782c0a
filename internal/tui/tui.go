package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/cc-launcher/pkg/models"
)

const (
	allPlatforms = "all"
	// Session list layout: title, divider and a blank line, then two lines per
	// session separated by a blank line.
	listHeaderLines = 3
	rowLines        = 3
)

type model struct {
	ctx       context.Context
	preview   PreviewFunc
	sessions  []models.SessionRecord
	filters   []string
	filter    int
	cursor    int
	selected  *models.SessionRecord
	previews  map[string][]string
	loading   map[string]bool
	indicator *LoadingIndicator
	left      viewport.Model
	right     viewport.Model
	ready     bool
	width     int
	height    int
}

func initialModel(ctx context.Context, records []models.SessionRecord, preview PreviewFunc) model {
	seen := map[string]bool{}
	var platforms []string
	for _, r := range records {
		if !seen[r.PlatformID] {
			seen[r.PlatformID] = true
			platforms = append(platforms, r.PlatformID)
		}
	}
	sort.Strings(platforms)

	return model{
		ctx:       ctx,
		preview:   preview,
		sessions:  records,
		filters:   append([]string{allPlatforms}, platforms...),
		previews:  make(map[string][]string),
		loading:   make(map[string]bool),
		indicator: NewLoadingIndicator("Loading transcript..."),
	}
}

// visible returns the sessions matching the current platform filter
func (m model) visible() []models.SessionRecord {
	if m.filters[m.filter] == allPlatforms {
		return m.sessions
	}
	var out []models.SessionRecord
	for _, r := range m.sessions {
		if r.PlatformID == m.filters[m.filter] {
			out = append(out, r)
		}
	}
	return out
}

func (m model) current() (models.SessionRecord, bool) {
	visible := m.visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return models.SessionRecord{}, false
	}
	return visible[m.cursor], true
}

func (m model) Init() tea.Cmd {
	return m.requestPreview()
}

// requestPreview starts loading the preview of the highlighted session unless
// it is cached or already in flight
func (m model) requestPreview() tea.Cmd {
	record, ok := m.current()
	if !ok || m.preview == nil {
		return nil
	}
	if _, cached := m.previews[record.TaggedID]; cached || m.loading[record.TaggedID] {
		return nil
	}
	m.loading[record.TaggedID] = true
	return tea.Batch(loadPreviewCmd(m.ctx, m.preview, record.TaggedID), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		leftWidth := msg.Width/2 - 1
		rightWidth := msg.Width - leftWidth - 1
		viewHeight := msg.Height - 3
		if !m.ready {
			m.left = viewport.New(leftWidth, viewHeight)
			m.right = viewport.New(rightWidth, viewHeight)
			m.ready = true
		} else {
			m.left.Width, m.left.Height = leftWidth, viewHeight
			m.right.Width, m.right.Height = rightWidth, viewHeight
		}
		m.updateViewports()

	case previewLoadedMsg:
		delete(m.loading, msg.SessionID)
		switch {
		case msg.Err != nil:
			m.previews[msg.SessionID] = []string{fmt.Sprintf("Error loading transcript: %v", msg.Err)}
		case len(msg.Lines) == 0:
			m.previews[msg.SessionID] = []string{}
		default:
			m.previews[msg.SessionID] = msg.Lines
		}
		m.updateViewports()

	case tickMsg:
		if len(m.loading) > 0 {
			m.indicator.Tick()
			m.updateViewports()
			cmds = append(cmds, tickCmd())
		}

	case tea.KeyMsg:
		handled := true
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.right.GotoTop()
				cmds = append(cmds, m.requestPreview())
				m.updateViewports()
			}

		case "down", "j":
			if m.cursor < len(m.visible())-1 {
				m.cursor++
				m.right.GotoTop()
				cmds = append(cmds, m.requestPreview())
				m.updateViewports()
			}

		case "tab":
			m.filter = (m.filter + 1) % len(m.filters)
			m.cursor = 0
			m.right.GotoTop()
			cmds = append(cmds, m.requestPreview())
			m.updateViewports()

		case "enter":
			if record, ok := m.current(); ok {
				m.selected = &record
				return m, tea.Quit
			}
		default:
			handled = false
		}
		if handled {
			return m, tea.Batch(cmds...)
		}
	}

	// the details pane scrolls with page keys and the mouse
	if m.ready {
		var cmd tea.Cmd
		m.right, cmd = m.right.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) updateViewports() {
	if !m.ready {
		return
	}
	m.left.SetContent(m.renderSessionsList())
	m.right.SetContent(m.renderDetails())
	m.followCursor()
}

// followCursor scrolls the session list so the highlighted row is on screen
func (m *model) followCursor() {
	if m.cursor == 0 {
		m.left.GotoTop()
		return
	}
	top := listHeaderLines + m.cursor*rowLines
	bottom := top + 1
	switch {
	case top < m.left.YOffset:
		m.left.SetYOffset(top)
	case bottom >= m.left.YOffset+m.left.Height:
		m.left.SetYOffset(bottom - m.left.Height + 1)
	}
}

func (m model) renderSessionsList() string {
	var s strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	s.WriteString(headerStyle.Render("Sessions") + "\n")
	s.WriteString(strings.Repeat("─", max(m.left.Width-2, 10)) + "\n\n")

	visible := m.visible()
	if len(visible) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
		s.WriteString(emptyStyle.Render("No sessions"))
		return s.String()
	}

	for i, record := range visible {
		cursor := "  "
		dateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
		if i == m.cursor {
			cursor = "> "
			dateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
			idStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
		}

		line := fmt.Sprintf("%s%s  %s", cursor, record.Activity().Local().Format("01-02 15:04"), record.PlatformID)
		s.WriteString(dateStyle.Render(line) + "\n")
		s.WriteString(idStyle.Render("  "+truncate(record.TaggedID, 13)) + "\n")
		if i < len(visible)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m model) renderDetails() string {
	record, ok := m.current()
	if !ok {
		return ""
	}

	var s strings.Builder
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	messageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	divider := strings.Repeat("─", max(m.right.Width-2, 10))

	s.WriteString(headerStyle.Render("Session") + "\n")
	s.WriteString(divider + "\n")
	for _, field := range [][2]string{
		{"Platform", record.PlatformID},
		{"Session ID", record.TaggedID},
		{"Canonical", record.CanonicalID},
		{"Created", record.CreatedAt.Local().Format("2006-01-02 15:04:05")},
		{"Last active", record.Activity().Local().Format("2006-01-02 15:04:05")},
	} {
		s.WriteString(labelStyle.Render(field[0]+": ") + field[1] + "\n")
	}

	s.WriteString("\n" + headerStyle.Render("Recent Messages") + "\n")
	s.WriteString(divider + "\n\n")

	if m.loading[record.TaggedID] {
		s.WriteString(m.indicator.View())
		return s.String()
	}
	lines, ok := m.previews[record.TaggedID]
	if !ok || len(lines) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
		s.WriteString(emptyStyle.Render("No messages found"))
		return s.String()
	}

	wrapWidth := max(m.right.Width-5, 20)
	for i, msg := range lines {
		numStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Bold(true)
		s.WriteString(numStyle.Render(fmt.Sprintf("%d. ", i+1)))
		for j, line := range wrapText(msg, wrapWidth) {
			if j > 0 {
				s.WriteString("   ")
			}
			s.WriteString(messageStyle.Render(line) + "\n")
		}
		if i < len(lines)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return []string{text}
	}

	var lines []string
	currentLine := words[0]
	for _, word := range words[1:] {
		if len([]rune(currentLine))+1+len([]rune(word)) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	return append(lines, currentLine)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.renderHeader(), m.renderSplitView(), m.renderFooter())
}

func (m model) renderSplitView() string {
	leftStyle := lipgloss.NewStyle().Width(m.left.Width).Height(m.left.Height)
	rightStyle := lipgloss.NewStyle().Width(m.right.Width).Height(m.right.Height)
	dividerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Height(m.left.Height)

	divider := strings.TrimSuffix(strings.Repeat("│\n", max(m.left.Height, 1)), "\n")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(m.left.View()),
		dividerStyle.Render(divider),
		rightStyle.Render(m.right.View()),
	)
}

func (m model) renderHeader() string {
	title := fmt.Sprintf("cc-launcher sessions - %s (%d)", m.filters[m.filter], len(m.visible()))
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))
	return style.Render(title)
}

func (m model) renderFooter() string {
	info := "↑/↓: navigate • tab: platform • enter: resume • q: quit"
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(info)
}

// ShowTUI lets the user pick one of records and returns it, or nil when the
// browser was closed without a selection
func ShowTUI(ctx context.Context, records []models.SessionRecord, preview PreviewFunc) (*models.SessionRecord, error) {
	p := tea.NewProgram(
		initialModel(ctx, records, preview),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(model).selected, nil
}
