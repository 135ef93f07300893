package models

import "strings"

// SortMechanism selects how the queue is ordered for dispatch and position lookup.
type SortMechanism string

const (
	SortByTimestamp SortMechanism = "Timestamp"
	SortByPriority  SortMechanism = "Priority"
	SortBySLAs      SortMechanism = "SLAs"
)

// ParseSortMechanism is case-insensitive; ok is false for unknown input,
// in which case the timestamp ordering is returned.
func ParseSortMechanism(s string) (mechanism SortMechanism, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timestamp":
		return SortByTimestamp, true
	case "priority":
		return SortByPriority, true
	case "slas", "sla":
		return SortBySLAs, true
	}
	return SortByTimestamp, false
}
