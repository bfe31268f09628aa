package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/urmzd/treelights/pkg/config"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/protocol"
)

func TestResult(t *testing.T) {
	_, decodeErr := protocol.Decode([]byte(`nope`))

	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{decodeErr, "protocol_error"},
		{device.ErrInvalidIndex, "device_error"},
		{errors.New("boom"), "device_error"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCommandPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	p := commandPoint(SourceTCP, device.SetPixel(4, device.RGB{1, 0, 0}), nil, 1500*time.Microsecond, ts)

	line := write.PointToLineProtocol(p, time.Second)
	for _, want := range []string{
		"tree_command,",
		"kind=set_pixel",
		"result=ok",
		"source=tcp",
		"latency_us=1500i",
		"pixel=4i",
		" 1700000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestCommandPoint_DecodeFailure(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"blink"}`))
	p := commandPoint(SourceMQTT, device.Command{}, err, time.Millisecond, time.Now())

	line := write.PointToLineProtocol(p, time.Nanosecond)
	if !strings.Contains(line, "kind=unknown") || !strings.Contains(line, "result=protocol_error") {
		t.Errorf("line = %q", line)
	}
	if strings.Contains(line, "pixel=") {
		t.Errorf("line has pixel field: %q", line)
	}
}

func TestConnect_Disabled(t *testing.T) {
	if _, err := Connect(t.Context(), config.InfluxDBConfig{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordCommand(SourceHTTP, device.Off(), nil, 0)
}
