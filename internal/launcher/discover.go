// Package launcher starts Node.js debuggees in containers and finds their
// inspector endpoints.
package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrNoTarget is returned when the inspector lists no debuggable target.
var ErrNoTarget = errors.New("no debuggable target")

// Target is one entry of the inspector's /json/list.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Discover asks the inspector at baseURL for its targets and returns the
// first one with a WebSocket endpoint. The endpoint's host is rewritten to
// baseURL's, since the inspector reports the address it bound inside the
// container.
func Discover(ctx context.Context, client *http.Client, baseURL string) (Target, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return Target{}, fmt.Errorf("invalid inspector address: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.JoinPath("json", "list").String(), nil)
	if err != nil {
		return Target{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return Target{}, fmt.Errorf("failed to list targets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Target{}, fmt.Errorf("failed to list targets: status %d", resp.StatusCode)
	}

	var targets []Target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return Target{}, fmt.Errorf("failed to decode targets: %w", err)
	}

	for _, t := range targets {
		if t.WebSocketDebuggerURL == "" {
			continue
		}
		ws, err := url.Parse(t.WebSocketDebuggerURL)
		if err != nil {
			return Target{}, fmt.Errorf("invalid debugger url %q: %w", t.WebSocketDebuggerURL, err)
		}
		ws.Host = base.Host
		t.WebSocketDebuggerURL = ws.String()
		return t, nil
	}
	return Target{}, ErrNoTarget
}
