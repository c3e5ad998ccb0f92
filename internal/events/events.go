// Package events provides lifecycle notifications for the worker pool and the
// connection dispatcher.
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventWorkerStarted is emitted when a worker goroutine enters its loop
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerStopped is emitted when a worker leaves its loop
	EventWorkerStopped EventType = "worker_stopped"
	// EventJobPanicked is emitted when a job panics inside a worker
	EventJobPanicked EventType = "job_panicked"
	// EventPoolClosed is emitted once every worker has been joined
	EventPoolClosed EventType = "pool_closed"
	// EventConnectionAccepted is emitted when the dispatcher hands a connection to the pool
	EventConnectionAccepted EventType = "connection_accepted"
	// EventConnectionFailed is emitted when handling a connection fails
	EventConnectionFailed EventType = "connection_failed"
)

// Event represents a pool or server event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	RemoteAddr string `json:"remote_addr,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WorkerSource returns the source tag used for worker id
func WorkerSource(id int) string {
	return fmt.Sprintf("worker-%d", id)
}

// NewWorkerStartedEvent creates a worker started event
func NewWorkerStartedEvent(id int) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		Source:    WorkerSource(id),
	}
}

// NewWorkerStoppedEvent creates a worker stopped event. reason describes why
// the loop ended ("disconnected", "poisoned", ...).
func NewWorkerStoppedEvent(id int, reason string) Event {
	return Event{
		Type:      EventWorkerStopped,
		Timestamp: time.Now(),
		Source:    WorkerSource(id),
		Data: EventData{
			Reason: reason,
		},
	}
}

// NewJobPanickedEvent creates a job panicked event
func NewJobPanickedEvent(id int, err error) Event {
	return Event{
		Type:      EventJobPanicked,
		Timestamp: time.Now(),
		Source:    WorkerSource(id),
		Data: EventData{
			Error: errString(err),
		},
	}
}

// NewPoolClosedEvent creates a pool closed event
func NewPoolClosedEvent() Event {
	return Event{
		Type:      EventPoolClosed,
		Timestamp: time.Now(),
		Source:    "pool",
	}
}

// NewConnectionAcceptedEvent creates a connection accepted event
func NewConnectionAcceptedEvent(remoteAddr string) Event {
	return Event{
		Type:      EventConnectionAccepted,
		Timestamp: time.Now(),
		Source:    "server",
		Data: EventData{
			RemoteAddr: remoteAddr,
		},
	}
}

// NewConnectionFailedEvent creates a connection failed event
func NewConnectionFailedEvent(remoteAddr string, err error) Event {
	return Event{
		Type:      EventConnectionFailed,
		Timestamp: time.Now(),
		Source:    "server",
		Data: EventData{
			RemoteAddr: remoteAddr,
			Error:      errString(err),
		},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
