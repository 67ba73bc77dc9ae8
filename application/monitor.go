package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"deskflow-desktop/core/event"
	"deskflow-desktop/core/eventbus"
	"deskflow-desktop/infrastructure/backend"
)

// MonitorConfig holds configuration for BackendMonitor.
type MonitorConfig struct {
	Client   backend.Client
	EventBus eventbus.EventBus
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// BackendMonitor probes the backend periodically and publishes
// BackendStatusChanged whenever its health flips.
type BackendMonitor struct {
	client   backend.Client
	eventBus eventbus.EventBus
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	checkNow chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	known    bool
	healthy  bool
	lastText string
}

// NewBackendMonitor creates a monitor. Call Start to begin probing.
func NewBackendMonitor(cfg *MonitorConfig) *BackendMonitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &BackendMonitor{
		client:   cfg.Client,
		eventBus: cfg.EventBus,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		checkNow: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start probes once immediately, then every interval.
func (m *BackendMonitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop ends probing and waits for the loop to exit.
func (m *BackendMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// CheckNow requests an immediate probe. Requests coalesce while one is pending.
func (m *BackendMonitor) CheckNow() {
	select {
	case m.checkNow <- struct{}{}:
	default:
	}
}

// Status returns the last observed state; ok is false before the first probe completes.
func (m *BackendMonitor) Status() (healthy bool, message string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy, m.lastText, m.known
}

func (m *BackendMonitor) loop() {
	defer m.wg.Done()

	m.probe()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.probe()
		case <-m.checkNow:
			m.probe()
		}
	}
}

func (m *BackendMonitor) probe() {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	message, err := DescribeHealth(m.client.Health(ctx))
	if m.ctx.Err() != nil {
		return
	}
	healthy := err == nil
	if !healthy {
		message = err.Error()
	}

	m.mu.Lock()
	changed := !m.known || m.healthy != healthy
	m.known = true
	m.healthy = healthy
	m.lastText = message
	m.mu.Unlock()

	if !changed {
		return
	}

	if healthy {
		m.logger.Info("Backend is reachable", "url", m.client.BaseURL())
	} else {
		m.logger.Warn("Backend is unavailable", "url", m.client.BaseURL(), "reason", message)
	}

	if m.eventBus != nil {
		m.eventBus.Publish(event.NewBackendStatusChanged(healthy, message))
	}
}
