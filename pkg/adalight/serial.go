package adalight

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Port is the byte sink a strip is written to.
type Port interface {
	io.Writer
	io.Closer
}

// serialPort wraps a serial connection to an Adalight-compatible board.
type serialPort struct {
	port serial.Port
	mu   sync.Mutex
}

// OpenSerial opens the serial port 8N1 at the given baud rate.
func OpenSerial(portPath string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}

	log.Info().Str("port", portPath).Int("baud", baud).Msg("Serial port opened")

	return &serialPort{port: port}, nil
}

func (s *serialPort) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Write(data)
}

func (s *serialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
