package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deskflow-desktop/core/event"
	"deskflow-desktop/core/eventbus"
	"deskflow-desktop/infrastructure/logging"
)

// Target is a window runtime the bridge can be installed into.
type Target interface {
	// AddInitScript registers a script evaluated in every new document before page scripts.
	AddInitScript(js string) error

	// Expose makes a global function named name available to the page. Each call
	// passes its single string argument to fn. fn must not block the caller.
	Expose(name string, fn func(payload string)) error

	// Eval evaluates js in the current document.
	Eval(js string) error
}

// DispatcherConfig holds configuration for Dispatcher.
type DispatcherConfig struct {
	Registry *Registry
	EventBus eventbus.EventBus
	Logger   *slog.Logger
}

// Dispatcher routes UI requests to registered operations.
type Dispatcher struct {
	registry *Registry
	eventBus eventbus.EventBus
	logger   *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closing bool
}

// NewDispatcher creates a dispatcher for cfg.Registry.
func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		registry: cfg.Registry,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Install injects the UI glue into target and starts serving requests from it.
func (d *Dispatcher) Install(target Target) error {
	if err := target.AddInitScript(InitScript(d.registry.Names())); err != nil {
		return fmt.Errorf("failed to add bridge init script: %w", err)
	}

	if err := target.Expose(InvokeBinding, func(payload string) {
		d.handle(target, payload)
	}); err != nil {
		return fmt.Errorf("failed to expose bridge binding: %w", err)
	}

	d.logger.Info("Bridge installed", "commands", d.registry.Names())
	return nil
}

// Call runs a single request synchronously and returns its response.
func (d *Dispatcher) Call(ctx context.Context, req Request) Response {
	start := time.Now()
	ctx = logging.WithAttrs(logging.With(ctx, d.logger), "command", req.Cmd, "id", req.ID)

	op, ok := d.registry.Lookup(req.Cmd)
	if !ok {
		err := fmt.Errorf("unknown command: %s", req.Cmd)
		d.completed(req.Cmd, time.Since(start), err)
		return Response{ID: req.ID, Error: err.Error()}
	}

	value, err := d.run(ctx, req, op)
	d.completed(req.Cmd, time.Since(start), err)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, OK: true, Value: value}
}

// Close cancels in-flight calls and waits for them to return.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) handle(target Target, payload string) {
	req, err := ParseRequest(payload)
	if err != nil {
		d.logger.Warn("Dropping malformed bridge request", "error", err)
		return
	}

	// wg.Add must not race with Close's Wait.
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		resp := d.Call(d.ctx, req)
		if d.ctx.Err() != nil {
			return
		}
		if err := target.Eval(ResolveScript(resp)); err != nil {
			d.logger.Warn("Failed to deliver bridge response", "command", req.Cmd, "id", req.ID, "error", err)
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, req Request, op Operation) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Bridge operation panicked", "command", req.Cmd, "panic", r)
			err = fmt.Errorf("command %s failed: internal error", req.Cmd)
		}
	}()
	return op(ctx, req.Args)
}

func (d *Dispatcher) completed(cmd string, elapsed time.Duration, err error) {
	if err != nil {
		d.logger.Debug("Bridge call failed", "command", cmd, "elapsed", elapsed, "error", err)
	} else {
		d.logger.Debug("Bridge call completed", "command", cmd, "elapsed", elapsed)
	}

	if d.eventBus != nil {
		d.eventBus.Publish(event.NewBridgeCallCompleted(cmd, elapsed, err))
	}
}
