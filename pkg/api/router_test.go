package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urmzd/treelights/pkg/api/types"
	"github.com/urmzd/treelights/pkg/device"
)

const testPixels = 25

func newDisplay(t *testing.T) *device.Shared {
	t.Helper()
	d := device.NewShared(device.NewVirtualController(testPixels))
	if err := d.Initialize(t.Context()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(d.Shutdown)
	return d
}

type recorded struct {
	source string
	cmd    device.Command
	err    error
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (r *fakeRecorder) RecordCommand(source string, cmd device.Command, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recorded{source, cmd, err})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	d := newDisplay(t)
	h := NewRouter(d, Options{}).Handler()

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, h, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, w.Code)
		}
		var resp types.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "healthy" || resp.Display != "ready" {
			t.Errorf("GET %s = %+v", path, resp)
		}
	}

	d.Shutdown()
	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health after shutdown = %d, want 503", w.Code)
	}
}

func TestPostCommand(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		code   int
		errKey string
		msg    string
	}{
		{"set_all", `{"type":"set_all","color":[0,0,1]}`, http.StatusOK, "", ""},
		{"malformed", `{"type":`, http.StatusBadRequest, "protocol_error", "Invalid JSON format"},
		{"unknown type", `{"type":"blink"}`, http.StatusBadRequest, "protocol_error", "Unknown command type: blink"},
		{"missing color", `{"type":"set_all"}`, http.StatusBadRequest, "protocol_error", "Missing or invalid field: color"},
		{"pixel out of range", `{"type":"set_pixel","pixel":25,"color":[1,0,0]}`, http.StatusUnprocessableEntity, "device_error", "invalid pixel index: 25 (display has 25 pixels)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			h := NewRouter(newDisplay(t), Options{Recorder: rec}).Handler()

			w := do(t, h, http.MethodPost, "/api/v1/commands", tt.body)
			if w.Code != tt.code {
				t.Fatalf("POST = %d, want %d (body %s)", w.Code, tt.code, w.Body)
			}
			if tt.errKey != "" {
				var resp types.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatal(err)
				}
				if resp.Error != tt.errKey || resp.Message != tt.msg {
					t.Errorf("error body = %+v, want %s %q", resp, tt.errKey, tt.msg)
				}
			}
			if len(rec.seen) != 1 || rec.seen[0].source != "http" {
				t.Errorf("recorded = %+v, want one http entry", rec.seen)
			}
		})
	}
}

func TestPostCommand_TooLarge(t *testing.T) {
	h := NewRouter(newDisplay(t), Options{}).Handler()
	body := `{"type":"off","pad":"` + strings.Repeat("x", 70*1024) + `"}`

	if w := do(t, h, http.MethodPost, "/api/v1/commands", body); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("POST oversized = %d, want 413", w.Code)
	}
}

func TestGetPixels_ReflectsCommands(t *testing.T) {
	h := NewRouter(newDisplay(t), Options{}).Handler()

	if w := do(t, h, http.MethodPost, "/api/v1/commands", `{"type":"set_pixel","pixel":3,"color":[1,0.5,0]}`); w.Code != http.StatusOK {
		t.Fatalf("POST = %d", w.Code)
	}

	w := do(t, h, http.MethodGet, "/api/v1/pixels", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /pixels = %d", w.Code)
	}
	var resp types.PixelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != testPixels || len(resp.Pixels) != testPixels {
		t.Fatalf("count = %d, len = %d", resp.Count, len(resp.Pixels))
	}
	if resp.Pixels[3] != (device.RGB{1, 0.5, 0}) {
		t.Errorf("pixel 3 = %v", resp.Pixels[3])
	}
	if resp.Pixels[0] != device.Black {
		t.Errorf("pixel 0 = %v, want black", resp.Pixels[0])
	}
}

func TestSwaggerToggle(t *testing.T) {
	d := newDisplay(t)

	if w := do(t, NewRouter(d, Options{Swagger: true}).Handler(), http.MethodGet, "/docs", ""); w.Code != http.StatusMovedPermanently {
		t.Errorf("GET /docs with swagger = %d, want 301", w.Code)
	}
	if w := do(t, NewRouter(d, Options{}).Handler(), http.MethodGet, "/docs", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /docs without swagger = %d, want 404", w.Code)
	}
}

func TestStream_SnapshotThenUpdates(t *testing.T) {
	d := newDisplay(t)
	srv := httptest.NewServer(NewRouter(d, Options{}).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(t.Context(), url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	read := func() types.StreamMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg types.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read error = %v", err)
		}
		return msg
	}

	snap := read()
	if snap.Type != types.StreamSnapshot || len(snap.Pixels) != testPixels {
		t.Fatalf("first message = %+v, want snapshot", snap)
	}

	// The snapshot is sent after subscribing, so this update cannot be lost.
	if err := d.Apply(device.SetAll(device.RGB{0, 1, 0})); err != nil {
		t.Fatal(err)
	}

	upd := read()
	if upd.Type != types.StreamUpdate || upd.Command != "set_all([0 1 0])" {
		t.Fatalf("update = %+v", upd)
	}
	for i, p := range upd.Pixels {
		if p != (device.RGB{0, 1, 0}) {
			t.Fatalf("pixel %d = %v", i, p)
		}
	}
}

func TestStream_ClosesOnDisplayShutdown(t *testing.T) {
	d := newDisplay(t)
	srv := httptest.NewServer(NewRouter(d, Options{}).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(t.Context(), url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap types.StreamMessage
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}

	d.Shutdown()

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after shutdown error = %v, want going away close", err)
	}
}
