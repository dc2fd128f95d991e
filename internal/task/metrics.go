// Package task provides task lifecycle management for taskflow.
package task

import (
	"github.com/mrz1836/taskflow/internal/constants"
)

// Metrics collects metrics about board movement and admission control.
// Implementations can send these to monitoring systems like Prometheus,
// StatsD, or custom observability platforms.
type Metrics interface {
	// TaskMoved is called after a committed status change. from is empty
	// for a newly created task.
	TaskMoved(projectID string, from, to constants.TaskStatus)

	// AdmissionDenied is called when a WIP ceiling refused a move.
	// forbidden is set when an override was requested by a non-administrator.
	AdmissionDenied(projectID string, status constants.TaskStatus, forbidden bool)

	// OverrideUsed is called once per committed administrator override.
	OverrideUsed(projectID string, status constants.TaskStatus)
}

// NoopMetrics is a no-op implementation of Metrics for default behavior.
// Use this when metrics collection is not needed.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Metrics interface.
var _ Metrics = (*NoopMetrics)(nil)

// TaskMoved implements Metrics.
func (NoopMetrics) TaskMoved(string, constants.TaskStatus, constants.TaskStatus) {}

// AdmissionDenied implements Metrics.
func (NoopMetrics) AdmissionDenied(string, constants.TaskStatus, bool) {}

// OverrideUsed implements Metrics.
func (NoopMetrics) OverrideUsed(string, constants.TaskStatus) {}
