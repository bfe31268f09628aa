package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/urmzd/treelights/pkg/config"
	"github.com/urmzd/treelights/pkg/device"
)

func testConfig() config.MQTTConfig {
	cfg := config.Default().MQTT
	cfg.Enabled = true
	cfg.Host = "127.0.0.1"
	cfg.ClientID = "treelights-test"
	return cfg
}

func newDisplay(t *testing.T) *device.Shared {
	t.Helper()
	d := device.NewShared(device.NewVirtualController(25))
	if err := d.Initialize(t.Context()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(d.Shutdown)
	return d
}

type fakeRecorder struct {
	mu      sync.Mutex
	sources []string
	errs    []error
}

func (r *fakeRecorder) RecordCommand(source string, _ device.Command, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	r.errs = append(r.errs, err)
}

func TestTopics(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"treelights", "treelights/command"},
		{"home/tree/", "home/tree/command"},
		{"", "command"},
	}
	for _, tt := range tests {
		if got := (Topics{Prefix: tt.prefix}).Command(); got != tt.want {
			t.Errorf("Command() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}

	topics := Topics{Prefix: "treelights"}
	if topics.Response() != "treelights/response" || topics.State() != "treelights/state" || topics.Status() != "treelights/status" {
		t.Errorf("unexpected topics: %s %s %s", topics.Response(), topics.State(), topics.Status())
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Username = "tree"
	cfg.Password = "secret"

	opts := buildClientOptions(cfg, Topics{Prefix: "treelights"})

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "treelights-test" || opts.Username != "tree" || opts.Password != "secret" {
		t.Errorf("identity = %q %q %q", opts.ClientID, opts.Username, opts.Password)
	}
	if !opts.WillEnabled || opts.WillTopic != "treelights/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var will map[string]string
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload %q: %v", opts.WillPayload, err)
	}
	if will["status"] != "offline" || will["reason"] != "unexpected_disconnect" {
		t.Errorf("will payload = %v", will)
	}
	if !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("reconnect not enabled")
	}
}

func TestStatusPayload(t *testing.T) {
	var got map[string]string
	if err := json.Unmarshal([]byte(statusPayload("id-1", "online", "")), &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "online" || got["client_id"] != "id-1" {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["reason"]; ok {
		t.Error("online payload carries a reason")
	}
}

func TestNewBridge_InvalidQoS(t *testing.T) {
	cfg := testConfig()
	cfg.QoS = 3
	if _, err := NewBridge(cfg, newDisplay(t)); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("NewBridge() error = %v, want ErrInvalidQoS", err)
	}
}

func TestHandleCommand(t *testing.T) {
	d := newDisplay(t)
	rec := &fakeRecorder{}
	b, err := NewBridge(testConfig(), d, WithRecorder(rec))
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "mqtt" {
		t.Errorf("Name() = %q", b.Name())
	}

	tests := []struct {
		payload string
		want    string
	}{
		{`{"type":"set_pixel","pixel":4,"color":[0,0,1]}`, "OK"},
		{`{"type":"set_pixel","pixel":40,"color":[0,0,1]}`, "ERROR: invalid pixel index: 40 (display has 25 pixels)"},
		{`not json`, "ERROR: Invalid JSON format"},
		{`{"type":"sparkle"}`, "ERROR: Unknown command type: sparkle"},
	}
	for _, tt := range tests {
		if got := b.handleCommand([]byte(tt.payload)); got != tt.want {
			t.Errorf("handleCommand(%s) = %q, want %q", tt.payload, got, tt.want)
		}
	}

	if got := d.Pixels()[4]; got != (device.RGB{0, 0, 1}) {
		t.Errorf("pixel 4 = %v", got)
	}
	if len(rec.sources) != len(tests) {
		t.Fatalf("recorded %d commands, want %d", len(rec.sources), len(tests))
	}
	for _, s := range rec.sources {
		if s != "mqtt" {
			t.Errorf("source = %q, want mqtt", s)
		}
	}
	if rec.errs[0] != nil || rec.errs[1] == nil {
		t.Errorf("recorded errors = %v", rec.errs)
	}
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(State{Command: "off", Pixels: []device.RGB{{1, 0, 0}}, Timestamp: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"command":"off","pixels":[[1,0,0]],"timestamp":"1970-01-01T00:00:00Z"}`
	if string(b) != want {
		t.Errorf("State JSON = %s, want %s", b, want)
	}
}
