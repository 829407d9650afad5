package util

import (
	"fmt"
	"strings"
)

// Priority is the requested procedure priority of a study.
type Priority int

const (
	PriorityUnset Priority = iota
	PriorityRoutine
	PriorityHigh
	PriorityLow
	PriorityStat
)

// String returns the DICOM string representation of the priority.
// PriorityUnset renders as an empty string.
func (p Priority) String() string {
	switch p {
	case PriorityRoutine:
		return "ROUTINE"
	case PriorityHigh:
		return "HIGH"
	case PriorityLow:
		return "LOW"
	case PriorityStat:
		return "STAT"
	default:
		return ""
	}
}

// ParsePriority parses a string into a Priority. An empty string is unset.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PriorityUnset, nil
	case "ROUTINE":
		return PriorityRoutine, nil
	case "HIGH":
		return PriorityHigh, nil
	case "LOW":
		return PriorityLow, nil
	case "STAT":
		return PriorityStat, nil
	default:
		return PriorityUnset, fmt.Errorf("invalid priority: %s (valid: STAT, HIGH, ROUTINE, LOW)", s)
	}
}
