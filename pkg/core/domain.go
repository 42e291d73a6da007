// Package core holds the journal domain: dates, entries, change events and the
// storage port every adapter implements.
package core

import (
	"fmt"
	"strings"
)

// Entry is the central entity of the domain.
// It is the free-text content written for one calendar day.
type Entry struct {
	Date    Date   `json:"date"`
	Content string `json:"content"`
}

// IsBlank reports whether the content is empty or whitespace only.
// A blank entry is equivalent to no entry at all.
func (e Entry) IsBlank() bool {
	return IsBlank(e.Content)
}

// IsBlank reports whether content carries no visible text.
func IsBlank(content string) bool {
	return strings.TrimSpace(content) == ""
}

// Durability describes how a Put reached stable storage.
type Durability int

const (
	// DurabilityAtomic means the record was replaced in one visible step.
	DurabilityAtomic Durability = iota
	// DurabilityDegraded means the atomic path failed and the record was
	// overwritten in place. A crash during that write could leave a partial record.
	DurabilityDegraded
	// DurabilityRemoved means the content was blank and the record was deleted.
	DurabilityRemoved
)

func (d Durability) String() string {
	switch d {
	case DurabilityAtomic:
		return "atomic"
	case DurabilityDegraded:
		return "degraded"
	case DurabilityRemoved:
		return "removed"
	default:
		return fmt.Sprintf("durability(%d)", int(d))
	}
}

// EventType represents the type of change observed in storage.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to one record made outside the cache.
type Event struct {
	Type      EventType
	Date      Date
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.Date)
}

// Preview returns the first n non-empty lines of content, trimmed and joined
// with newlines. It is what list screens show under each date.
func Preview(content string, n int) string {
	if n <= 0 {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// PreviewLines is the number of lines Preview keeps by default.
const PreviewLines = 3
