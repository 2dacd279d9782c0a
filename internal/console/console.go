package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const title = "Claude Code Multi-Platform Launcher"

// Printer writes styled status lines. Colors follow the capabilities of the
// underlying writer, so redirected output stays plain.
type Printer struct {
	w       io.Writer
	title   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
}

// New creates a printer for w
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		info:    r.NewStyle().Foreground(lipgloss.Color("39")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
		bold:    r.NewStyle().Bold(true),
	}
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Header prints the launcher banner
func (p *Printer) Header() {
	fmt.Fprintln(p.w, p.title.Render(title))
	fmt.Fprintln(p.w, p.muted.Render(strings.Repeat("=", len(title))))
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.success.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.failure.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.warning.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.w, p.info.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.muted.Render(fmt.Sprintf(format, args...)))
}

// Plain prints an unstyled line
func (p *Printer) Plain(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Section prints a bold heading
func (p *Printer) Section(name string) {
	fmt.Fprintln(p.w, p.bold.Render(name))
}

// Status returns "[OK]" or "[FAIL]" styled for inline use
func (p *Printer) Status(ok bool) string {
	if ok {
		return p.success.Render("[OK]")
	}
	return p.failure.Render("[FAIL]")
}

// Field prints an indented "name: value" pair
func (p *Printer) Field(name string, value any) {
	fmt.Fprintf(p.w, "  %s %v\n", p.muted.Render(name+":"), value)
}
