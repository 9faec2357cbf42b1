// Package watch follows a langsim run from outside the process through
// its observer API: status and stored runs over HTTP, live progress over
// the WebSocket stream.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/concept-world/internal/api"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/persistence"
)

// ErrNoDatabase is returned when the observed process stores nothing.
var ErrNoDatabase = errors.New("observed process has no database")

// Status mirrors GET /api/v1/status.
type Status struct {
	Running         bool    `json:"running"`
	Stored          bool    `json:"stored"`
	RunID           string  `json:"run_id"`
	Replicas        int     `json:"replicas"`
	Cycle           int     `json:"cycle"`
	Success         float64 `json:"success"`
	SuccessfulWords float64 `json:"successful_words"`
}

// Snapshot holds all data collected by one observation.
type Snapshot struct {
	Status   Status
	Replicas []engine.Progress
	Runs     []persistence.RunRow // empty when nothing is stored
}

// Observer reads a langsim process's API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Dialer: websocket.DefaultDialer,
	}
}

// Observe fetches status, live replicas and the most recent stored runs.
func (o *Observer) Observe(ctx context.Context, runs int) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/replicas", &snap.Replicas); err != nil {
		return nil, fmt.Errorf("fetch replicas: %w", err)
	}
	if snap.Status.Stored && runs > 0 {
		if err := o.fetchJSON(ctx, fmt.Sprintf("/api/v1/runs?limit=%d", runs), &snap.Runs); err != nil {
			return nil, fmt.Errorf("fetch runs: %w", err)
		}
	}
	return snap, nil
}

// Progress fetches a stored run's series, every step-th cycle.
func (o *Observer) Progress(ctx context.Context, runID string, step int) ([]persistence.ProgressRow, error) {
	var rows []persistence.ProgressRow
	err := o.fetchJSON(ctx, fmt.Sprintf("/api/v1/run/%s/progress?step=%d", runID, step), &rows)
	return rows, err
}

// WaitReady polls the status endpoint with exponential backoff until it
// responds or ctx ends.
func (o *Observer) WaitReady(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	maxBackoff := 30 * time.Second

	for {
		var st Status
		err := o.fetchJSON(ctx, "/api/v1/status", &st)
		if err == nil {
			return nil
		}
		slog.Info("langsim API not ready, retrying...", "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for API: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Follow streams the live run, calling fn for every frame, until the run
// is done, the server goes away or ctx ends.
func (o *Observer) Follow(ctx context.Context, fn func(api.StreamMessage)) error {
	url := "ws" + strings.TrimPrefix(o.BaseURL, "http") + "/api/v1/stream"
	conn, resp, err := o.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial stream: %s", resp.Status)
		}
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg api.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		fn(msg)
		if msg.Type == "done" {
			return nil
		}
	}
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable && strings.HasPrefix(path, "/api/v1/run") {
		return ErrNoDatabase
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
