package task

import (
	"io"
	"os"

	"github.com/mrz1836/taskflow/internal/constants"
)

// Notification event names accepted in NotificationConfig.Events.
const (
	EventBlocked         = "blocked"
	EventReviewRequested = "review_requested"
	EventCompleted       = "completed"
)

// statusEvents lists the statuses that can ring the bell.
//
//nolint:gochecknoglobals // lookup table
var statusEvents = map[constants.TaskStatus]string{
	constants.TaskStatusBlocked:  EventBlocked,
	constants.TaskStatusInReview: EventReviewRequested,
	constants.TaskStatusDone:     EventCompleted,
}

// NotificationConfig controls the terminal bell.
type NotificationConfig struct {
	BellEnabled bool
	// Quiet wins over BellEnabled; it follows the --quiet flag.
	Quiet bool
	// Events names the transitions that ring. Unknown names are ignored.
	Events []string
}

// DefaultNotificationConfig mirrors config.DefaultConfig().Notifications.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{BellEnabled: true, Events: []string{EventBlocked}}
}

// StateChangeNotifier rings the terminal bell when a move puts a task into
// a status somebody asked to hear about. A nil notifier is silent.
type StateChangeNotifier struct {
	out  io.Writer
	ring map[string]bool
}

// NewStateChangeNotifier returns a notifier that rings on stderr.
func NewStateChangeNotifier(cfg NotificationConfig) *StateChangeNotifier {
	return NewStateChangeNotifierWithWriter(cfg, os.Stderr)
}

// NewStateChangeNotifierWithWriter returns a notifier that rings on w.
func NewStateChangeNotifierWithWriter(cfg NotificationConfig, w io.Writer) *StateChangeNotifier {
	n := &StateChangeNotifier{out: w, ring: make(map[string]bool, len(cfg.Events))}
	if cfg.BellEnabled && !cfg.Quiet {
		for _, event := range cfg.Events {
			if event != "" {
				n.ring[event] = true
			}
		}
	}
	return n
}

// NotifyStateChange rings once if the task changed status and the new
// status maps to a configured event.
func (n *StateChangeNotifier) NotifyStateChange(from, to constants.TaskStatus) {
	if n == nil || from == to {
		return
	}
	if n.ring[statusToEventType(to)] {
		_, _ = io.WriteString(n.out, "\a")
	}
}

// statusToEventType returns the event name for status, or "" when the
// status never rings.
func statusToEventType(status constants.TaskStatus) string {
	return statusEvents[status]
}
