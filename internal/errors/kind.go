package errors

import (
	"context"
	"errors"
)

// Kind is the machine-readable error code surfaced to callers.
type Kind string

// Error kinds.
const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindNotFound             Kind = "NOT_FOUND"
	KindConflict             Kind = "CONFLICT"
	KindWIPLimitExceeded     Kind = "WIP_LIMIT_EXCEEDED"
	KindWIPOverrideForbidden Kind = "WIP_OVERRIDE_FORBIDDEN"
	KindWorkspaceRequired    Kind = "WORKSPACE_REQUIRED"
	KindCanceled             Kind = "CANCELED"
	KindInternal             Kind = "INTERNAL"
)

// kindOrder is checked top to bottom; the WIP kinds come first because a
// WIPLimitError is never also a validation error.
//
//nolint:gochecknoglobals // Read-only lookup table
var kindOrder = []struct {
	sentinel error
	kind     Kind
}{
	{ErrWIPOverrideForbidden, KindWIPOverrideForbidden},
	{ErrWIPLimitExceeded, KindWIPLimitExceeded},
	{ErrWorkspaceRequired, KindWorkspaceRequired},
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// KindOf classifies err into the taxonomy. Nil yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindOrder {
		if errors.Is(err, entry.sentinel) {
			return entry.kind
		}
	}
	return KindInternal
}

// Detail is the structured rendering of an error for machine consumers.
type Detail struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
	Limit   *int   `json:"limit,omitempty"`
	Current *int   `json:"current,omitempty"`
}

// Describe builds a Detail for err, including WIP admission numbers when present.
func Describe(err error) Detail {
	d := Detail{Kind: KindOf(err)}
	if err == nil {
		return d
	}
	d.Message = err.Error()
	if w, ok := AsWIPLimit(err); ok {
		limit, current := w.Limit, w.Current
		d.Status = w.Status
		d.Limit = &limit
		d.Current = &current
	}
	return d
}
