// Package logging keeps credentials out of taskflow logs. Connection strings
// for postgres and redis carry passwords, and the log file outlives the
// terminal session, so everything written there passes through Redact.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue replaces every secret that is filtered out.
const RedactedValue = "[REDACTED]"

// redaction rewrites every match of pattern with replacement.
type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// redactions run in order. The URL rule comes first and keeps the scheme,
// user and host so a log still says which database was used.
//
//nolint:gochecknoglobals // compiled once
var redactions = []redaction{
	{regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)([^:/@\s]+):([^@\s]+)@`), "${1}${2}:" + RedactedValue + "@"},
	{regexp.MustCompile(`(?i)\bpassword\s*=\s*'[^']*'`), RedactedValue},
	{regexp.MustCompile(`(?i)\bpassword\s*=\s*[^\s'"]+`), RedactedValue},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`), RedactedValue},
	{regexp.MustCompile(`(?i)authorization\s*[:=]\s*["']?[a-zA-Z0-9._-]{20,}["']?`), RedactedValue},
	{regexp.MustCompile(`(?i)(secret|credential|passwd|pwd|requirepass)\s*[:=]\s*["']?[^\s"']{8,}["']?`), RedactedValue},
	{regexp.MustCompile(`(?i)(token|auth)\s*[:=]\s*["']?[a-zA-Z0-9+/=]{32,}["']?`), RedactedValue},
}

// secretFields name structured log fields whose value is always hidden.
//
//nolint:gochecknoglobals // lookup table
var secretFields = []string{
	"password", "passwd", "secret", "credential", "private_key",
	"access_token", "refresh_token", "auth_token", "bearer", "authorization",
}

// ContainsSensitiveData reports whether any redaction rule matches s.
func ContainsSensitiveData(s string) bool {
	for _, r := range redactions {
		if r.pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue applies every redaction rule to value. Running it
// twice gives the same result as running it once.
func FilterSensitiveValue(value string) string {
	for _, r := range redactions {
		value = r.pattern.ReplaceAllString(value, r.replacement)
	}
	return value
}

// RedactDSN hides the password of a database or redis connection string.
// postgres://tf:hunter2@db/x becomes postgres://tf:[REDACTED]@db/x.
func RedactDSN(dsn string) string {
	return FilterSensitiveValue(dsn)
}

// IsSensitiveFieldName reports whether a field name, compared without case,
// contains one of the secret field markers.
func IsSensitiveFieldName(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range secretFields {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// SafeValue returns the loggable form of a field value.
//
//	log.Info().Str("dsn", logging.SafeValue("dsn", cfg.DSN)).Msg("store opened")
func SafeValue(field, value string) string {
	if IsSensitiveFieldName(field) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// SensitiveDataHook marks events whose message contained a secret. A zerolog
// hook cannot rewrite the message; FilteringWriter does the redaction.
type SensitiveDataHook struct{}

// NewSensitiveDataHook returns the hook installed on every taskflow logger.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (*SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// FilteringWriter redacts each write before passing it to the wrapped
// writer. The CLI puts it in front of the rotating log file.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write reports len(p) on success even though the redacted bytes may be
// shorter, so zerolog never sees a short write.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(fw.w, FilterSensitiveValue(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
