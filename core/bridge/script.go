package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// InvokeBinding is the runtime binding that carries requests from the UI.
	InvokeBinding = "__deskflowInvoke"

	// resolveFunc settles a pending promise on the UI side.
	resolveFunc = "__deskflowResolve"
)

const initScriptTemplate = `(() => {
  if (window.deskflow && window.deskflow.__installed) return;
  const pending = new Map();
  let seq = 0;
  const invoke = (cmd, args) => new Promise((resolve, reject) => {
    const id = ++seq;
    pending.set(id, { resolve, reject });
    try {
      window.%[1]s(JSON.stringify({ id, cmd, args: args || {} }));
    } catch (err) {
      pending.delete(id);
      reject(String(err));
    }
  });
  window.%[2]s = (id, ok, value) => {
    const p = pending.get(id);
    if (!p) return;
    pending.delete(id);
    if (ok) { p.resolve(value); } else { p.reject(value); }
  };
  const api = { __installed: true, invoke };
  for (const name of %[3]s) {
    api[name] = (args) => invoke(name, args);
  }
  window.deskflow = api;
})();`

// InitScript returns the script that installs window.deskflow in every document.
func InitScript(commands []string) string {
	if commands == nil {
		commands = []string{}
	}
	names, _ := json.Marshal(commands)
	return fmt.Sprintf(initScriptTemplate, InvokeBinding, resolveFunc, names)
}

// ResolveScript returns the expression that settles the promise for resp.
func ResolveScript(resp Response) string {
	var payload any = resp.Error
	if resp.OK {
		payload = resp.Value
	}

	data, err := json.Marshal(payload)
	if err != nil {
		resp.OK = false
		data, _ = json.Marshal("failed to encode result: " + err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "window.%s(%d, %t, %s)", resolveFunc, resp.ID, resp.OK, data)
	return b.String()
}

// ParseRequest decodes a payload received on InvokeBinding.
func ParseRequest(payload string) (Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return Request{}, fmt.Errorf("failed to decode bridge request: %w", err)
	}
	if req.ID == 0 {
		return Request{}, fmt.Errorf("bridge request has no id")
	}
	if req.Cmd == "" {
		return Request{}, fmt.Errorf("bridge request %d has no command", req.ID)
	}
	return req, nil
}
