// Package event defines the events published inside the desktop shell.
// Events describe things that already happened and are consumed by the tray and logs.
package event

import "time"

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// Event names, used for name-filtered subscriptions.
const (
	NameBackendStatusChanged = "BackendStatusChanged"
	NameBridgeCallCompleted  = "BridgeCallCompleted"
	NameWindowClosed         = "WindowClosed"
)

// BackendStatusChanged is published by the backend monitor on its first probe
// and whenever the backend flips between healthy and unavailable.
type BackendStatusChanged struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
}

func NewBackendStatusChanged(healthy bool, message string) *BackendStatusChanged {
	return &BackendStatusChanged{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: time.Now(),
	}
}

func (e *BackendStatusChanged) EventName() string {
	return NameBackendStatusChanged
}

// BridgeCallCompleted is published after a bridge operation invoked by the UI returns.
type BridgeCallCompleted struct {
	Command  string
	Duration time.Duration
	Err      error // nil on success
}

func NewBridgeCallCompleted(command string, duration time.Duration, err error) *BridgeCallCompleted {
	return &BridgeCallCompleted{
		Command:  command,
		Duration: duration,
		Err:      err,
	}
}

func (e *BridgeCallCompleted) EventName() string {
	return NameBridgeCallCompleted
}

// WindowClosed is published when the main window goes away, either because the
// user closed it or because the shell was asked to quit.
type WindowClosed struct {
	Reason string
}

func NewWindowClosed(reason string) *WindowClosed {
	return &WindowClosed{Reason: reason}
}

func (e *WindowClosed) EventName() string {
	return NameWindowClosed
}
