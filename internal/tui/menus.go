package tui

// This file provides interactive prompts using Charm Huh. Prompts never
// block when stdin is not a terminal: they return ErrMenuCanceled instead,
// and commands ask for --force.

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// Terminal layout constants.
const (
	// TerminalEdgeMargin is the number of cells kept free at the terminal edge.
	TerminalEdgeMargin = 4

	// MinMenuWidth is the minimum usable width for a prompt.
	MinMenuWidth = 40

	// DefaultMenuWidth is used when the terminal size is unknown.
	DefaultMenuWidth = 72
)

// ErrMenuCanceled is returned when the user cancels a prompt with q or Esc.
var ErrMenuCanceled = flowerrors.ErrMenuCanceled //nolint:gochecknoglobals // alias of a sentinel

// MenuConfig holds configuration for prompts.
type MenuConfig struct {
	// Width is the maximum width for the prompt. If 0, adapts to terminal width.
	Width int
	// Accessible enables accessible mode for screen readers.
	Accessible bool
}

// NewMenuConfig creates a MenuConfig. Accessible mode follows the ACCESSIBLE
// environment variable.
func NewMenuConfig() *MenuConfig {
	_, accessible := os.LookupEnv("ACCESSIBLE")
	return &MenuConfig{Width: DefaultMenuWidth, Accessible: accessible}
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// adaptWidth returns a prompt width that fits the terminal.
func adaptWidth(maxWidth int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		if maxWidth <= 0 {
			return DefaultMenuWidth
		}
		return maxWidth
	}

	available := width - TerminalEdgeMargin
	if maxWidth > 0 && maxWidth < available {
		return maxWidth
	}
	return max(available, MinMenuWidth)
}

// FlowTheme returns a Huh theme using the taskflow colors.
func FlowTheme() *huh.Theme {
	CheckNoColor()

	t := huh.ThemeBase()
	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorPrimary)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorPrimary)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Blurred.Base = t.Blurred.Base.BorderForeground(ColorMuted)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorMuted)
	return t
}

func runForm(field huh.Field, cfg *MenuConfig, errorContext string) error {
	if !IsInteractive() {
		return ErrMenuCanceled
	}

	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(FlowTheme()).
		WithWidth(adaptWidth(cfg.Width)).
		WithAccessible(cfg.Accessible)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrMenuCanceled
		}
		return fmt.Errorf("%s: %w", errorContext, err)
	}
	return nil
}

// Confirm presents a yes/no prompt.
func Confirm(message string, defaultYes bool) (bool, error) {
	return ConfirmWithConfig(message, defaultYes, NewMenuConfig())
}

// ConfirmWithConfig presents a yes/no prompt with custom configuration.
func ConfirmWithConfig(message string, defaultYes bool, cfg *MenuConfig) (bool, error) {
	confirmed := defaultYes
	field := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	if err := runForm(field, cfg, "confirm prompt failed"); err != nil {
		return false, err
	}
	return confirmed, nil
}
