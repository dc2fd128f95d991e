package cli

import (
	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/task"
)

// notificationConfig maps the notifications section onto the task
// notifier. --quiet silences the bell regardless of configuration.
func notificationConfig(cfg *config.NotificationsConfig, quiet bool) task.NotificationConfig {
	if cfg == nil {
		nc := task.DefaultNotificationConfig()
		nc.Quiet = quiet
		return nc
	}
	return task.NotificationConfig{
		BellEnabled: cfg.Bell,
		Quiet:       quiet,
		Events:      append([]string(nil), cfg.Events...),
	}
}
