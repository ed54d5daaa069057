package inspector_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/rvar/pkg/inspector"
	"github.com/vango-dev/rvar/pkg/rvar"
	"github.com/vango-dev/rvar/pkg/rvartest"
)

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Vars(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)
	in.Watch("count", rvar.New(h.Runtime, 4)).Perm()
	handler := in.Handler()

	rec := get(t, handler, http.MethodGet, "/vars")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	var vars []inspector.VarState
	if err := json.Unmarshal(rec.Body.Bytes(), &vars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vars) != 1 || vars[0].Name != "count" || vars[0].Value != "4" {
		t.Errorf("unexpected vars %+v", vars)
	}

	rec = get(t, handler, http.MethodGet, "/vars/count")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = get(t, handler, http.MethodGet, "/vars/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_History(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)
	v := rvar.New(h.Runtime, 0)
	in.Watch("v", v).Perm()
	handler := in.Handler()

	rec := get(t, handler, http.MethodGet, "/vars/v/history")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty history, got %s", body)
	}

	v.Set(1)
	h.Update()
	rec = get(t, handler, http.MethodGet, "/vars/v/history")
	var history []inspector.Change
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 1 || history[0].Value != "1" {
		t.Errorf("unexpected history %+v", history)
	}

	rec = get(t, handler, http.MethodGet, "/vars/missing/history")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Stats(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)
	in.Watch("v", rvar.New(h.Runtime, 0)).Perm()
	h.Update()

	rec := get(t, in.Handler(), http.MethodGet, "/stats")
	var stats inspector.StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Epoch != h.Runtime.Epoch() {
		t.Errorf("expected epoch %d, got %d", h.Runtime.Epoch(), stats.Epoch)
	}
	if stats.Last.Epoch != h.Runtime.Epoch() {
		t.Errorf("expected last update epoch %d, got %d", h.Runtime.Epoch(), stats.Last.Epoch)
	}
	if stats.Watched != 1 {
		t.Errorf("expected 1 watched, got %d", stats.Watched)
	}
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := rvartest.NewHarness(t, rvar.WithMetrics(rvar.NewMetrics(rvar.WithRegistry(reg))))
	in := inspector.New(h.Runtime, inspector.WithGatherer(reg))
	h.Update()

	rec := get(t, in.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rvar_update_passes") {
		t.Errorf("expected rvar metrics in body, got:\n%s", rec.Body.String())
	}
}

func TestHandler_Snapshot(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)
	in.Watch("v", rvar.New(h.Runtime, "x")).Perm()

	rec := get(t, in.Handler(), http.MethodGet, "/snapshot")
	var s inspector.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.Vars) != 1 || s.Vars[0].Value != "x" {
		t.Errorf("unexpected vars %+v", s.Vars)
	}
}

func TestHandler_ExportWithoutStore(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)

	rec := get(t, in.Handler(), http.MethodPost, "/snapshot")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandler_Export(t *testing.T) {
	h := rvartest.NewHarness(t)
	dir := t.TempDir()
	in := inspector.New(h.Runtime, inspector.WithStore(inspector.FileStore{Dir: dir}))

	rec := get(t, in.Handler(), http.MethodPost, "/snapshot")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body["key"], "snapshot-") {
		t.Errorf("unexpected key %q", body["key"])
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestWebsocket_Stream(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)
	v := rvar.New(h.Runtime, 1)
	in.Watch("v", v).Perm()

	server := httptest.NewServer(in.Handler())
	defer server.Close()
	defer in.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("expected 101, got %d", resp.StatusCode)
	}

	msg := readMessage(t, conn)
	if string(msg["type"]) != `"snapshot"` {
		t.Fatalf("expected snapshot message, got %s", msg["type"])
	}
	var vars []inspector.VarState
	if err := json.Unmarshal(msg["vars"], &vars); err != nil {
		t.Fatalf("decode vars: %v", err)
	}
	if len(vars) != 1 || vars[0].Value != "1" {
		t.Errorf("unexpected snapshot vars %+v", vars)
	}
	if in.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", in.ClientCount())
	}

	v.Set(7)
	h.Update()

	msg = readMessage(t, conn)
	if string(msg["type"]) != `"change"` {
		t.Fatalf("expected change message, got %s", msg["type"])
	}
	var change inspector.Change
	if err := json.Unmarshal(msg["change"], &change); err != nil {
		t.Fatalf("decode change: %v", err)
	}
	if change.Name != "v" || change.Value != "7" {
		t.Errorf("unexpected change %+v", change)
	}
}

func TestWebsocket_CloseDisconnects(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)

	server := httptest.NewServer(in.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readMessage(t, conn)

	in.Close()
	if in.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", in.ClientCount())
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal closure, got %v", err)
	}
}

func TestWebsocket_RejectsPlainRequest(t *testing.T) {
	h := rvartest.NewHarness(t)
	in := inspector.New(h.Runtime)

	rec := get(t, in.Handler(), http.MethodGet, "/ws")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
