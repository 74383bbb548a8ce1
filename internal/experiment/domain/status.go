package domain

import "strings"

// Status describes the experiment lifecycle label used by domain decisions.
type Status string

const (
	StatusUnspecified Status = ""
	StatusDraft       Status = "draft"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
)

// ParseStatus canonicalizes status labels from transport or storage.
func ParseStatus(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StatusUnspecified, false
	}
	switch strings.ToLower(trimmed) {
	case "draft":
		return StatusDraft, true
	case "running":
		return StatusRunning, true
	case "completed":
		return StatusCompleted, true
	default:
		return StatusUnspecified, false
	}
}

// isStatusTransitionAllowed enforces valid experiment lifecycle transitions.
func isStatusTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusCompleted
	default:
		return false
	}
}

// IsStatusTransitionAllowed reports whether a status transition is permitted.
func IsStatusTransitionAllowed(from, to Status) bool {
	return isStatusTransitionAllowed(from, to)
}
