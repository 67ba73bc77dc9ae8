package application

import (
	"log/slog"

	"deskflow-desktop/core/event"
	"deskflow-desktop/core/eventbus"
)

// LogEvents subscribes logger to bridge and window events on bus.
// It returns the subscription IDs.
func LogEvents(bus eventbus.EventBus, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	calls := bus.SubscribeName(event.NameBridgeCallCompleted, func(e event.Event) {
		call, ok := e.(*event.BridgeCallCompleted)
		if !ok {
			return
		}
		if call.Err != nil {
			logger.Info("Bridge call failed", "command", call.Command, "elapsed", call.Duration, "error", call.Err)
			return
		}
		logger.Debug("Bridge call served", "command", call.Command, "elapsed", call.Duration)
	})

	closed := bus.SubscribeName(event.NameWindowClosed, func(e event.Event) {
		if c, ok := e.(*event.WindowClosed); ok {
			logger.Info("Main window closed", "reason", c.Reason)
		}
	})

	return []string{calls, closed}
}
