package core

import (
	"fmt"
	"time"
)

// EventType represents the type of change observed in a repository.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change made outside the running process, such as an
// edit to a vault file.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return fmt.Sprintf("%s %s at %s", e.Type, e.ID, time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339))
}
