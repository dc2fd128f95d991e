// Package tui provides terminal user interface components for taskflow.
//
// This package provides a centralized style system using Lip Gloss for consistent
// output styling. All colors use AdaptiveColor for light/dark terminal support.
//
// # Semantic Colors
//
//   - ColorPrimary (Blue): active columns, headings
//   - ColorSuccess (Green): success messages, done column
//   - ColorWarning (Yellow): warnings, columns at their WIP ceiling
//   - ColorError (Red): errors, columns over their WIP ceiling
//   - ColorMuted (Gray): secondary text, terminal columns
//
// # NO_COLOR Support
//
// Call CheckNoColor() before rendering styled text. Colors are also disabled
// when TERM=dumb.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/taskflow/internal/constants"
)

//nolint:gochecknoglobals // Intentional package-level constants for TUI styling API
var (
	// ColorPrimary is blue, used for active states and headings.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for success states and completed items.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for warnings and full columns.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for errors and columns over their ceiling.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for dim/inactive states and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim/faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// outputStyles is the palette used by TTYOutput.
type outputStyles struct {
	success, failure, warning, info, hint lipgloss.Style
	header, cell                          lipgloss.Style
}

func newOutputStyles() outputStyles {
	plain := lipgloss.NewStyle()
	return outputStyles{
		success: plain.Foreground(ColorSuccess).Bold(true),
		failure: plain.Foreground(ColorError).Bold(true),
		warning: plain.Foreground(ColorWarning),
		info:    plain.Foreground(ColorPrimary),
		hint:    plain.Foreground(ColorMuted),
		header:  plain.Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		cell:    plain,
	}
}

// CheckNoColor respects the NO_COLOR environment variable.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns false if NO_COLOR is set (any value including empty) or TERM=dumb.
// This follows the NO_COLOR standard: https://no-color.org/
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// TaskStatusColor returns the column color of a status.
func TaskStatusColor(status constants.TaskStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.TaskStatusTodo, constants.TaskStatusInProgress, constants.TaskStatusInReview:
		return ColorPrimary
	case constants.TaskStatusBlocked:
		return ColorWarning
	case constants.TaskStatusDone:
		return ColorSuccess
	default:
		return ColorMuted
	}
}

// TaskStatusIcon returns the icon shown next to a status.
// Icon, color and text are always rendered together.
func TaskStatusIcon(status constants.TaskStatus) string {
	icons := map[constants.TaskStatus]string{
		constants.TaskStatusBacklog:    "◌",
		constants.TaskStatusTodo:       "○",
		constants.TaskStatusInProgress: "●",
		constants.TaskStatusBlocked:    "⚠",
		constants.TaskStatusInReview:   "⟳",
		constants.TaskStatusDone:       "✓",
		constants.TaskStatusCanceled:   "✗",
	}
	if icon, ok := icons[status]; ok {
		return icon
	}
	return "?"
}

// StatusLabel turns "in_progress" into "In Progress".
func StatusLabel(status constants.TaskStatus) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(status), "_", " "))
}

// FormatStatus renders a status with its icon and color.
func FormatStatus(status constants.TaskStatus) string {
	text := TaskStatusIcon(status) + " " + string(status)
	if !HasColorSupport() {
		return text
	}
	return lipgloss.NewStyle().Foreground(TaskStatusColor(status)).Render(text)
}

// padRight pads s with spaces to width visible cells. ANSI sequences are
// not counted.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncate shortens s to width visible cells, ending in an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
