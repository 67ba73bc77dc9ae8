// Package application wires the desktop shell: the main window, the bridge
// operations it exposes, and background backend monitoring.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"deskflow-desktop/core/bridge"
	"deskflow-desktop/core/event"
	"deskflow-desktop/core/eventbus"
	"deskflow-desktop/infrastructure/browser"
)

// ErrWindowInit marks failures to bring up the window runtime. Callers treat it as fatal.
var ErrWindowInit = errors.New("window initialization failed")

// ShellConfig holds configuration for the Shell.
type ShellConfig struct {
	Window   browser.Window
	Registry *bridge.Registry
	EventBus eventbus.EventBus
	// DevTools opens the developer inspector on the main window.
	DevTools bool
	Logger   *slog.Logger
}

// Shell hosts the bundled UI in the main window and serves its bridge calls.
type Shell struct {
	window     browser.Window
	dispatcher *bridge.Dispatcher
	eventBus   eventbus.EventBus
	devTools   bool
	logger     *slog.Logger
}

// NewShell creates a new shell.
func NewShell(cfg *ShellConfig) *Shell {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Shell{
		window: cfg.Window,
		dispatcher: bridge.NewDispatcher(&bridge.DispatcherConfig{
			Registry: cfg.Registry,
			EventBus: cfg.EventBus,
			Logger:   cfg.Logger,
		}),
		eventBus: cfg.EventBus,
		devTools: cfg.DevTools,
		logger:   cfg.Logger,
	}
}

// Run brings up the main window on uiURL and blocks until the window is
// closed or ctx is cancelled. Errors wrapping ErrWindowInit mean the window
// never came up.
func (s *Shell) Run(ctx context.Context, uiURL string) error {
	// Chrome decides on the inspector at launch, so it is requested before Start.
	if s.devTools {
		if err := s.window.OpenDevTools(); err != nil {
			s.logger.Warn("Failed to open developer tools", "error", err)
		}
	}

	if err := s.window.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrWindowInit, err)
	}
	defer s.window.Close()
	defer s.dispatcher.Close()

	if err := s.dispatcher.Install(s.window); err != nil {
		return fmt.Errorf("%w: %w", ErrWindowInit, err)
	}

	if err := s.window.Show(ctx, uiURL); err != nil {
		return fmt.Errorf("%w: %w", ErrWindowInit, err)
	}
	s.logger.Info("Main window shown", "url", uiURL, "devtools", s.devTools)

	var reason string
	select {
	case <-s.window.Done():
		reason = "window closed"
	case <-ctx.Done():
		reason = "shutdown requested"
	}
	s.logger.Info("Main window closing", "reason", reason)

	if s.eventBus != nil {
		s.eventBus.Publish(event.NewWindowClosed(reason))
	}
	return nil
}
