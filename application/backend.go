package application

import (
	"context"
	"errors"
	"fmt"

	"deskflow-desktop/core/bridge"
	"deskflow-desktop/infrastructure/backend"
	"deskflow-desktop/infrastructure/logging"
)

// BackendURL is the fixed address of the local DeskFlow backend.
const BackendURL = "http://127.0.0.1:8420"

// Bridge command names, as invoked from the UI.
const (
	CmdCheckBackendHealth = "check_backend_health"
	CmdGetBackendURL      = "get_backend_url"
)

// HealthyMessage is returned by the health probe when the backend answers 2xx.
const HealthyMessage = "Backend is healthy"

// BackendCommands implements the backend-facing bridge operations.
type BackendCommands struct {
	client backend.Client
}

// NewBackendCommands creates the backend commands over client.
func NewBackendCommands(client backend.Client) *BackendCommands {
	return &BackendCommands{client: client}
}

// CheckBackendHealth performs one GET /health with no retry. The returned
// error's message is what the UI receives as the failure value.
func (b *BackendCommands) CheckBackendHealth(ctx context.Context) (string, error) {
	msg, err := DescribeHealth(b.client.Health(ctx))
	if err != nil {
		logging.From(ctx).Debug("Backend health probe failed", "url", b.client.BaseURL(), "error", err)
	}
	return msg, err
}

// GetBackendURL returns the backend base URL.
func (b *BackendCommands) GetBackendURL() string {
	return BackendURL
}

// Register adds both commands to registry.
func (b *BackendCommands) Register(registry *bridge.Registry) error {
	if err := registry.Register(CmdCheckBackendHealth, bridge.Func(b.CheckBackendHealth)); err != nil {
		return err
	}
	return registry.Register(CmdGetBackendURL, bridge.Value(b.GetBackendURL))
}

// DescribeHealth turns the outcome of a health request into the UI-facing result.
func DescribeHealth(err error) (string, error) {
	if err == nil {
		return HealthyMessage, nil
	}

	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return "", fmt.Errorf("Backend returned status: %s", statusErr.Status())
	}
	return "", fmt.Errorf("Backend connection failed: %v", err)
}
