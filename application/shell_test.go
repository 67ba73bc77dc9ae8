package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"deskflow-desktop/core/bridge"
	"deskflow-desktop/core/event"
	"deskflow-desktop/core/eventbus"
)

// fakeWindow records the calls the shell makes.
type fakeWindow struct {
	mu       sync.Mutex
	startErr error
	devTools bool
	started  bool
	shownURL string
	scripts  []string
	exposed  []string
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
	shown    chan struct{}
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{
		done:  make(chan struct{}),
		shown: make(chan struct{}, 1),
	}
}

func (w *fakeWindow) AddInitScript(js string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scripts = append(w.scripts, js)
	return nil
}

func (w *fakeWindow) Expose(name string, fn func(payload string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exposed = append(w.exposed, name)
	return nil
}

func (w *fakeWindow) Eval(js string) error {
	return nil
}

func (w *fakeWindow) OpenDevTools() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.devTools = true
	return nil
}

func (w *fakeWindow) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *fakeWindow) Show(ctx context.Context, url string) error {
	w.mu.Lock()
	w.shownURL = url
	w.mu.Unlock()
	w.shown <- struct{}{}
	return nil
}

func (w *fakeWindow) Done() <-chan struct{} {
	return w.done
}

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.userClose()
	return nil
}

func (w *fakeWindow) userClose() {
	w.doneOnce.Do(func() { close(w.done) })
}

func newTestRegistry(t *testing.T) *bridge.Registry {
	t.Helper()
	registry := bridge.NewRegistry()
	if err := NewBackendCommands(&fakeClient{}).Register(registry); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return registry
}

func runShell(t *testing.T, shell *Shell, ctx context.Context, url string) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() {
		errc <- shell.Run(ctx, url)
	}()
	return errc
}

func waitShown(t *testing.T, w *fakeWindow) {
	t.Helper()
	select {
	case <-w.shown:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for window to be shown")
	}
}

func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run to return")
		return nil
	}
}

func TestShell_DebugOpensDevTools(t *testing.T) {
	window := newFakeWindow()
	shell := NewShell(&ShellConfig{Window: window, Registry: newTestRegistry(t), DevTools: true})

	errc := runShell(t, shell, context.Background(), "http://127.0.0.1:1234/")
	waitShown(t, window)
	window.userClose()

	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !window.devTools {
		t.Error("developer tools should be opened in debug configuration")
	}
}

func TestShell_ReleaseNeverOpensDevTools(t *testing.T) {
	window := newFakeWindow()
	shell := NewShell(&ShellConfig{Window: window, Registry: newTestRegistry(t), DevTools: false})

	errc := runShell(t, shell, context.Background(), "http://127.0.0.1:1234/")
	waitShown(t, window)
	window.userClose()

	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if window.devTools {
		t.Error("developer tools must not be opened in release configuration")
	}
}

func TestShell_ShowsBundledUIAndInstallsBridge(t *testing.T) {
	window := newFakeWindow()
	shell := NewShell(&ShellConfig{Window: window, Registry: newTestRegistry(t)})

	errc := runShell(t, shell, context.Background(), "http://127.0.0.1:1234/")
	waitShown(t, window)

	window.mu.Lock()
	if window.shownURL != "http://127.0.0.1:1234/" {
		t.Errorf("shown URL = %q", window.shownURL)
	}
	if len(window.exposed) != 1 || window.exposed[0] != bridge.InvokeBinding {
		t.Errorf("exposed = %v, want [%s]", window.exposed, bridge.InvokeBinding)
	}
	if len(window.scripts) != 1 ||
		!strings.Contains(window.scripts[0], CmdCheckBackendHealth) ||
		!strings.Contains(window.scripts[0], CmdGetBackendURL) {
		t.Errorf("init script does not declare both commands")
	}
	window.mu.Unlock()

	window.userClose()
	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !window.closed {
		t.Error("window should be closed after Run returns")
	}
}

func TestShell_StartFailure(t *testing.T) {
	window := newFakeWindow()
	window.startErr = errors.New("chrome not found")
	shell := NewShell(&ShellConfig{Window: window, Registry: newTestRegistry(t)})

	err := shell.Run(context.Background(), "http://127.0.0.1:1234/")
	if !errors.Is(err, ErrWindowInit) {
		t.Fatalf("Run() error = %v, want ErrWindowInit", err)
	}
	if !strings.Contains(err.Error(), "chrome not found") {
		t.Errorf("error %q should carry the cause", err)
	}
	if window.shownURL != "" {
		t.Error("window must not be shown after init failure")
	}
	if len(window.exposed) != 0 {
		t.Error("bridge must not be installed after init failure")
	}
}

func TestShell_ContextCancelPublishesWindowClosed(t *testing.T) {
	bus := eventbus.New(10, nil)
	defer bus.Close()

	closedEvents := make(chan *event.WindowClosed, 1)
	bus.SubscribeName(event.NameWindowClosed, func(e event.Event) {
		closedEvents <- e.(*event.WindowClosed)
	})

	window := newFakeWindow()
	shell := NewShell(&ShellConfig{Window: window, Registry: newTestRegistry(t), EventBus: bus})

	ctx, cancel := context.WithCancel(context.Background())
	errc := runShell(t, shell, ctx, "http://127.0.0.1:1234/")
	waitShown(t, window)
	cancel()

	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case e := <-closedEvents:
		if e.Reason != "shutdown requested" {
			t.Errorf("Reason = %q, want %q", e.Reason, "shutdown requested")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for WindowClosed")
	}
}
