// Package main is the entry point for the DeskFlow desktop shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskflow-desktop/application"
	"deskflow-desktop/core/bridge"
	"deskflow-desktop/core/buildmode"
	"deskflow-desktop/core/eventbus"
	"deskflow-desktop/infrastructure/assets"
	"deskflow-desktop/infrastructure/backend"
	"deskflow-desktop/infrastructure/browser"
	"deskflow-desktop/infrastructure/config"
	"deskflow-desktop/infrastructure/logging"
	"deskflow-desktop/presentation"
	"deskflow-desktop/resources"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	appID           = "com.deskflow.desktop"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		os.Stderr.WriteString("Invalid logging.level: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logging (dev: console only, prod: rotating file)
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Dir = cfg.Logging.Dir
	logger, closeLog, err := logging.Setup(logCfg)
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	code := run(cfg, logger)
	closeLog()
	os.Exit(code)
}

func run(cfg *config.Config, logger *slog.Logger) int {
	logger.Info("Starting DeskFlow desktop", "build", buildmode.Name())

	if created, err := config.WriteDefault(config.DefaultPath()); err != nil {
		logger.Warn("Failed to write default config", "error", err)
	} else if created {
		logger.Info("Default config written", "path", config.DefaultPath())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := eventbus.New(100, logger)
	defer eventBus.Close()
	application.LogEvents(eventBus, logger)

	// Bridge operations
	backendClient := backend.NewHTTPClient(backend.DefaultClientConfig(application.BackendURL))
	defer backendClient.CloseIdleConnections()

	registry := bridge.NewRegistry()
	if err := application.NewBackendCommands(backendClient).Register(registry); err != nil {
		return fatal(logger, "Failed to register bridge commands", err)
	}
	logger.Info("Bridge commands registered", "count", registry.Count(), "commands", registry.Names())

	// Bundled UI
	uiServer, err := assets.NewServer(&assets.ServerConfig{
		Files:  resources.UI(),
		Logger: logger,
	})
	if err != nil {
		return fatal(logger, "Failed to prepare UI server", err)
	}
	uiURL, err := uiServer.Start()
	if err != nil {
		return fatal(logger, "Failed to start UI server", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := uiServer.Close(shutdownCtx); err != nil {
			logger.Warn("UI server shutdown failed", "error", err)
		}
	}()

	// Background health monitoring uses its own bounded client.
	monitor := application.NewBackendMonitor(&application.MonitorConfig{
		Client: backend.NewHTTPClient(&backend.ClientConfig{
			BaseURL: application.BackendURL,
			Timeout: cfg.Backend.HealthTimeout,
		}),
		EventBus: eventBus,
		Interval: cfg.Backend.HealthInterval,
		Timeout:  cfg.Backend.HealthTimeout,
		Logger:   logger,
	})
	monitor.Start()
	defer monitor.Stop()

	windowCfg := browser.DefaultWindowConfig()
	windowCfg.Title = cfg.Window.Title
	windowCfg.Width = cfg.Window.Width
	windowCfg.Height = cfg.Window.Height
	windowCfg.ExecPath = cfg.Browser.ExecPath
	windowCfg.UserDataDir = cfg.Browser.UserDataDir

	shell := application.NewShell(&application.ShellConfig{
		Window:   browser.NewChromeWindow(windowCfg),
		Registry: registry,
		EventBus: eventBus,
		DevTools: buildmode.Debug,
		Logger:   logger,
	})

	if !cfg.Tray.Enabled {
		if err := shell.Run(ctx, uiURL); err != nil {
			return fatal(logger, "Failed to run main window", err)
		}
		logger.Info("Application shutdown complete")
		return 0
	}

	shellCtx, quit := context.WithCancel(ctx)
	defer quit()

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(resources.GetAppIcon())

	tray := presentation.NewTray(&presentation.TrayConfig{
		EventBus:   eventBus,
		Icon:       resources.GetAppIcon(),
		OnCheckNow: monitor.CheckNow,
		OnQuit:     quit,
		Status:     monitor.Status,
		Logger:     logger,
	})
	tray.Install(fyneApp)
	defer tray.Close()

	shellErr := make(chan error, 1)
	go func() {
		err := shell.Run(shellCtx, uiURL)
		shellErr <- err
		fyne.Do(fyneApp.Quit)
	}()

	// fyne owns the main goroutine until the shell ends.
	fyneApp.Run()
	quit()

	code := 0
	select {
	case err := <-shellErr:
		if err != nil {
			code = fatal(logger, "Failed to run main window", err)
		}
	case <-time.After(shutdownTimeout):
		logger.Warn("Main window did not close in time")
	}

	// Force exit if the remaining teardown hangs.
	forceExitAfter(logger, shutdownTimeout, code, os.Exit)

	if code == 0 {
		logger.Info("Application shutdown complete")
	}
	return code
}

// forceExitAfter calls exit with code once d elapses.
func forceExitAfter(logger *slog.Logger, d time.Duration, code int, exit func(int)) *time.Timer {
	return time.AfterFunc(d, func() {
		logger.Warn("Shutdown timeout, forcing exit", "code", code)
		exit(code)
	})
}

// fatal logs err and prints it to stderr. It returns the process exit code.
func fatal(logger *slog.Logger, msg string, err error) int {
	if errors.Is(err, application.ErrWindowInit) {
		msg = "Failed to initialize the window runtime"
	}
	logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return 1
}
