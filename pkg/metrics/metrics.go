// Package metrics records processed commands.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/config"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/protocol"
)

// Command sources.
const (
	SourceTCP  = "tcp"
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

const (
	measurement    = "tree_command"
	connectTimeout = 10 * time.Second
)

var (
	// ErrDisabled is returned by Connect when InfluxDB is switched off.
	ErrDisabled = errors.New("influxdb disabled")

	// ErrConnectionFailed indicates the server could not be reached.
	ErrConnectionFailed = errors.New("influxdb connection failed")
)

// Recorder receives one call per processed command. cmd is the zero value
// when decoding failed.
type Recorder interface {
	RecordCommand(source string, cmd device.Command, err error, latency time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCommand(string, device.Command, error, time.Duration) {}

// Influx writes one point per command through the batching write API.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	done     chan struct{}
	once     sync.Once
}

// Connect creates a recorder for cfg after checking the server is healthy.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Influx, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = 1000
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetFlushInterval(uint(flush)))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	m := &Influx{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		done:     make(chan struct{}),
	}
	go m.logWriteErrors()

	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("InfluxDB metrics enabled")
	return m, nil
}

func (m *Influx) logWriteErrors() {
	errs := m.writeAPI.Errors()
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("InfluxDB write failed")
		case <-m.done:
			return
		}
	}
}

// RecordCommand queues a point without blocking.
func (m *Influx) RecordCommand(source string, cmd device.Command, err error, latency time.Duration) {
	m.writeAPI.WritePoint(commandPoint(source, cmd, err, latency, time.Now()))
}

// Close flushes pending points and closes the client.
func (m *Influx) Close() error {
	m.once.Do(func() {
		m.writeAPI.Flush()
		close(m.done)
		m.client.Close()
	})
	return nil
}

func commandPoint(source string, cmd device.Command, err error, latency time.Duration, ts time.Time) *write.Point {
	kind := string(cmd.Kind)
	if kind == "" {
		kind = "unknown"
	}
	tags := map[string]string{
		"source": source,
		"kind":   kind,
		"result": Result(err),
	}
	fields := map[string]any{
		"latency_us": latency.Microseconds(),
	}
	if cmd.Kind == device.KindSetPixel {
		fields["pixel"] = int64(cmd.Pixel)
	}
	return write.NewPoint(measurement, tags, fields, ts)
}

// Result classifies a command outcome for tagging.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case protocol.IsProtocolError(err):
		return "protocol_error"
	default:
		return "device_error"
	}
}
