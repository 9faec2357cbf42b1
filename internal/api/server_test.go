package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/persistence"
	"github.com/talgya/concept-world/internal/stimuli"
)

func storedRun(t *testing.T) (*persistence.DB, *engine.Result) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opts := engine.DefaultOptions()
	opts.Agents = 3
	opts.Cycles = 60
	opts.Replicas = 1
	opts.Seed = 9
	opts.BaseGames = 20
	opts.Stimuli = stimuli.Config{Kind: stimuli.KindRGB, ContextSize: 3, MinSeparation: 0.2}
	res, err := engine.Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := db.SaveRun(res); err != nil {
		t.Fatalf("save: %v", err)
	}
	return db, res
}

func get(t *testing.T, h http.Handler, path string, into any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if into != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
			t.Fatalf("GET %s: decode: %v\n%s", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

// -----------------------------------------------------------------------------
// Live endpoints
// -----------------------------------------------------------------------------

func TestStatus_NoRun(t *testing.T) {
	s := &Server{}
	var body map[string]any
	if code := get(t, s.Handler(), "/api/v1/status", &body); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if body["running"] != false || body["stored"] != false {
		t.Errorf("body = %v", body)
	}
	if code := get(t, s.Handler(), "/api/v1/runs", nil); code != http.StatusServiceUnavailable {
		t.Errorf("runs without db = %d, want 503", code)
	}
}

func TestStatus_AveragesReplicas(t *testing.T) {
	m := engine.NewMonitor("run-x")
	m.Report(engine.Progress{Replica: 0, Cycle: 100, Success: 0.4, SuccessfulWords: 2})
	m.Report(engine.Progress{Replica: 1, Cycle: 200, Success: 0.6, SuccessfulWords: 4})
	s := &Server{Monitor: m}

	var body struct {
		Running  bool    `json:"running"`
		RunID    string  `json:"run_id"`
		Replicas int     `json:"replicas"`
		Cycle    int     `json:"cycle"`
		Success  float64 `json:"success"`
		Words    float64 `json:"successful_words"`
	}
	get(t, s.Handler(), "/api/v1/status", &body)
	if !body.Running || body.RunID != "run-x" || body.Replicas != 2 || body.Cycle != 200 {
		t.Errorf("status = %+v", body)
	}
	if body.Success < 0.499 || body.Success > 0.501 || body.Words != 3 {
		t.Errorf("averages = %v, %v", body.Success, body.Words)
	}

	var replicas []engine.Progress
	get(t, s.Handler(), "/api/v1/replicas", &replicas)
	if len(replicas) != 2 || replicas[1].Cycle != 200 {
		t.Errorf("replicas = %+v", replicas)
	}
}

func TestCORS(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight code %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

// -----------------------------------------------------------------------------
// Stored runs
// -----------------------------------------------------------------------------

func TestStoredRun(t *testing.T) {
	db, res := storedRun(t)
	h := (&Server{DB: db}).Handler()
	base := "/api/v1/run/" + res.RunID

	var runs []persistence.RunRow
	get(t, h, "/api/v1/runs?limit=5", &runs)
	if len(runs) != 1 || runs[0].ID != res.RunID {
		t.Fatalf("runs = %+v", runs)
	}
	if code := get(t, h, "/api/v1/runs?limit=zero", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", code)
	}

	var rows []persistence.AgentRow
	get(t, h, base+"/agents", &rows)
	if len(rows) != 3 {
		t.Fatalf("agents = %+v", rows)
	}

	var progress []persistence.ProgressRow
	get(t, h, base+"/progress?step=20", &progress)
	if len(progress) != 4 || progress[3].Cycle != 59 {
		t.Errorf("progress = %+v", progress)
	}

	var words struct {
		Words []string `json:"words"`
	}
	get(t, h, base+"/words?replica=0", &words)
	if len(words.Words) != res.Replicas[0].Registry.Len() {
		t.Errorf("words = %d, want %d", len(words.Words), res.Replicas[0].Registry.Len())
	}

	name := rows[0].Name
	var snap agents.Snapshot
	if code := get(t, h, base+"/agent/0/"+name, &snap); code != http.StatusOK {
		t.Fatalf("agent code %d", code)
	}
	if snap.Name != name || len(snap.Concepts.Concepts) != snap.Percepts {
		t.Errorf("snapshot %s: %d concepts, %d percepts", snap.Name, len(snap.Concepts.Concepts), snap.Percepts)
	}

	var mems []agents.Memory
	if code := get(t, h, base+"/agent/0/"+name+"/memories", &mems); code != http.StatusOK {
		t.Errorf("memories code %d", code)
	}
	if len(mems) == 0 {
		t.Fatal("agent remembers nothing")
	}
	var top []agents.Memory
	get(t, h, base+"/agent/0/"+name+"/memories?sort=important&limit=2", &top)
	if len(top) == 0 || len(top) > 2 {
		t.Fatalf("top memories = %+v", top)
	}
	if len(top) == 2 && top[0].Importance < top[1].Importance {
		t.Errorf("memories not sorted by importance: %+v", top)
	}
}

func TestStoredRun_NotFound(t *testing.T) {
	db, res := storedRun(t)
	h := (&Server{DB: db}).Handler()

	cases := map[string]int{
		"/api/v1/run/nope/agents":                       http.StatusNotFound,
		"/api/v1/run/nope/progress":                     http.StatusNotFound,
		"/api/v1/run/" + res.RunID + "/agent/0/nobody":  http.StatusNotFound,
		"/api/v1/run/" + res.RunID + "/agent/x/agent0":  http.StatusBadRequest,
		"/api/v1/run/" + res.RunID + "/progress?step=0": http.StatusBadRequest,
	}
	for path, want := range cases {
		if code := get(t, h, path, nil); code != want {
			t.Errorf("GET %s = %d, want %d", path, code, want)
		}
	}
}

// -----------------------------------------------------------------------------
// Stream
// -----------------------------------------------------------------------------

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestStream(t *testing.T) {
	m := engine.NewMonitor("run-s")
	m.Report(engine.Progress{Replica: 0})
	m.Report(engine.Progress{Replica: 1})

	srv := httptest.NewServer((&Server{Monitor: m}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Type != "snapshot" || len(first.Replicas) != 2 {
		t.Fatalf("first frame = %+v", first)
	}

	m.Report(engine.Progress{Replica: 1, Cycle: 100, Success: 0.5})
	msg := readMessage(t, conn)
	if msg.Type != "progress" || msg.Progress == nil || msg.Progress.Cycle != 100 || msg.Progress.RunID != "run-s" {
		t.Fatalf("progress frame = %+v", msg)
	}

	m.Report(engine.Progress{Replica: 0, Cycle: 199, Done: true})
	if msg := readMessage(t, conn); msg.Type != "progress" || !msg.Progress.Done {
		t.Fatalf("first done frame = %+v", msg)
	}
	m.Report(engine.Progress{Replica: 1, Cycle: 199, Done: true})
	readMessage(t, conn)
	if msg := readMessage(t, conn); msg.Type != "done" {
		t.Fatalf("expected done frame, got %+v", msg)
	}
}

func TestStream_NoRun(t *testing.T) {
	if code := get(t, (&Server{}).Handler(), "/api/v1/stream", nil); code != http.StatusServiceUnavailable {
		t.Errorf("stream without run = %d", code)
	}
}

// -----------------------------------------------------------------------------
// Rate limiting
// -----------------------------------------------------------------------------

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other address should pass")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("retry after = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("new window should pass")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Errorf("remote = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientIP(r); got != "1.2.3.4" {
		t.Errorf("forwarded = %q", got)
	}
}
