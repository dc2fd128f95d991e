package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// Output format names accepted by NewOutput.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Output provides methods for structured output to a terminal or a pipe.
type Output interface {
	// Success prints a success message.
	Success(msg string)
	// Error prints an error with its suggested action when one is known.
	Error(err error)
	// Warning prints a warning message.
	Warning(msg string)
	// Info prints an informational message.
	Info(msg string)
	// Table prints rows under headers.
	Table(headers []string, rows [][]string)
	// JSON outputs a value as formatted JSON.
	JSON(v any) error
}

// NewOutput creates the appropriate output based on format.
func NewOutput(w io.Writer, format string) Output {
	if format == FormatJSON {
		return NewJSONOutput(w)
	}
	return NewTTYOutput(w)
}

// TTYOutput provides styled output for terminal displays.
type TTYOutput struct {
	w      io.Writer
	styles outputStyles
}

// NewTTYOutput creates a new TTYOutput. NO_COLOR is respected.
func NewTTYOutput(w io.Writer) *TTYOutput {
	CheckNoColor()
	return &TTYOutput{
		w:      w,
		styles: newOutputStyles(),
	}
}

func (o *TTYOutput) line(style lipgloss.Style, text string) {
	_, _ = fmt.Fprintln(o.w, style.Render(text))
}

func (o *TTYOutput) Success(msg string) { o.line(o.styles.success, "✓ "+msg) }
func (o *TTYOutput) Warning(msg string) { o.line(o.styles.warning, "⚠ "+msg) }
func (o *TTYOutput) Info(msg string)    { o.line(o.styles.info, "ℹ "+msg) }

// Error prints the error, followed by a dim "▸ Try:" line when the error
// has a known suggested action.
func (o *TTYOutput) Error(err error) {
	o.line(o.styles.failure, "✗ "+err.Error())
	if _, action := flowerrors.Actionable(err); action != "" {
		o.line(o.styles.hint, "  ▸ Try: "+action)
	}
}

// Table prints rows with aligned columns.
func (o *TTYOutput) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len([]rune(cell)))
			}
		}
	}

	parts := make([]string, 0, len(headers))
	for i, h := range headers {
		parts = append(parts, o.styles.header.Render(padRight(h, widths[i])))
	}
	_, _ = fmt.Fprintln(o.w, strings.TrimRight(strings.Join(parts, "  "), " "))

	for _, row := range rows {
		parts = parts[:0]
		for i := range headers {
			parts = append(parts, o.styles.cell.Render(padRight(cellAt(row, i), widths[i])))
		}
		_, _ = fmt.Fprintln(o.w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

// JSON outputs a value as formatted JSON.
func (o *TTYOutput) JSON(v any) error {
	return encodeIndented(o.w, v)
}

// JSONOutput emits one JSON document per call for scripts and pipes.
type JSONOutput struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewJSONOutput creates a new JSONOutput.
func NewJSONOutput(w io.Writer) *JSONOutput {
	return &JSONOutput{w: w, encoder: json.NewEncoder(w)}
}

type jsonMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type jsonError struct {
	Type  string            `json:"type"`
	Error flowerrors.Detail `json:"error"`
	Hint  string            `json:"suggestion,omitempty"`
}

// emit writes one JSON document. Output methods have no error return, so
// encoding failures are dropped.
func (o *JSONOutput) emit(v any) {
	_ = o.encoder.Encode(v) //nolint:errchkjson // see above
}

func (o *JSONOutput) Success(msg string) { o.emit(jsonMessage{Type: "success", Message: msg}) }
func (o *JSONOutput) Warning(msg string) { o.emit(jsonMessage{Type: "warning", Message: msg}) }
func (o *JSONOutput) Info(msg string)    { o.emit(jsonMessage{Type: "info", Message: msg}) }

// Error outputs the error kind, message and WIP admission numbers when present.
func (o *JSONOutput) Error(err error) {
	_, action := flowerrors.Actionable(err)
	o.emit(jsonError{Type: "error", Error: flowerrors.Describe(err), Hint: action})
}

// Table outputs the rows as an array of objects keyed by header.
func (o *JSONOutput) Table(headers []string, rows [][]string) {
	result := make([]map[string]string, 0, len(rows))
	if len(headers) > 0 {
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				obj[h] = cellAt(row, i)
			}
			result = append(result, obj)
		}
	}
	o.emit(result)
}

// JSON outputs a value as formatted JSON.
func (o *JSONOutput) JSON(v any) error {
	return encodeIndented(o.w, v)
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func encodeIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
