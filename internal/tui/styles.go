// Package tui renders the analysis report for terminals.
//
// Lipgloss styles color the report when --color is set, and a Bubble Tea pager
// displays it when --interactive is set.
package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/randomizedcoder/camera-timing-analyzer/internal/stats"
)

// =============================================================================
// Color Palette
// =============================================================================

// Colors based on a modern dark theme
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	// Status colors
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	// Neutral colors
	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Report Styler
// =============================================================================

// ReportStyler implements stats.Styler with lipgloss styles bound to one
// renderer.
type ReportStyler struct {
	title    lipgloss.Style
	section  lipgloss.Style
	value    lipgloss.Style
	muted    lipgloss.Style
	info     lipgloss.Style
	warning  lipgloss.Style
	critical lipgloss.Style
}

var _ stats.Styler = (*ReportStyler)(nil)

// NewReportStyler builds the report styles on r.
func NewReportStyler(r *lipgloss.Renderer) *ReportStyler {
	return &ReportStyler{
		title: r.NewStyle().
			Foreground(colorPrimary).
			Bold(true),
		section: r.NewStyle().
			Foreground(colorSecondary).
			Bold(true),
		value: r.NewStyle().
			Foreground(colorText).
			Bold(true),
		muted: r.NewStyle().
			Foreground(colorTextMuted),
		info: r.NewStyle().
			Foreground(colorInfo),
		warning: r.NewStyle().
			Foreground(colorWarning).
			Bold(true),
		critical: r.NewStyle().
			Foreground(colorError).
			Bold(true),
	}
}

// NewColorRenderer returns a renderer on w that emits true-color sequences
// whether or not w is a terminal.
func NewColorRenderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.TrueColor)
	r.SetHasDarkBackground(true)
	return r
}

func (s *ReportStyler) Title(t string) string   { return s.title.Render(t) }
func (s *ReportStyler) Section(t string) string { return s.section.Render(t) }
func (s *ReportStyler) Value(t string) string   { return s.value.Render(t) }
func (s *ReportStyler) Muted(t string) string   { return s.muted.Render(t) }

// Severity colors t by how urgent it is.
func (s *ReportStyler) Severity(sev stats.Severity, t string) string {
	return s.severityStyle(sev).Render(t)
}

func (s *ReportStyler) severityStyle(sev stats.Severity) lipgloss.Style {
	switch sev {
	case stats.SeverityCritical:
		return s.critical
	case stats.SeverityWarning:
		return s.warning
	default:
		return s.info
	}
}

// =============================================================================
// Pager Styles
// =============================================================================

var (
	// Header style
	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1)

	// Footer style
	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorBorder)
)
