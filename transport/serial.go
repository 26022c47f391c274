// Package transport provides the small set of I/O collaborators that
// sit outside the core: serial-port speed control for the dispatcher's
// autobaud step, an MQTT raw-frame tap, and a WebSocket fix-stream
// publisher. None of it participates in lexing or parsing; it only
// wires session.Session's callbacks to real transports.
package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialPort is the minimal serial-port collaborator the dispatcher
// needs call"):
// open once, read continuously, and re-open at a new baud rate when the
// autobaud ladder steps. It mirrors the open/read/write/close-under-a-
// mutex lifecycle of a typical serial port wrapper, without the
// TCP-forwarding and path-mini-language parsing a full daemon-level
// stream layer would carry.
type SerialPort struct {
	mu   sync.Mutex
	path string
	mode *serial.Mode
	port serial.Port
}

// OpenSerial opens path at the given initial settings. parity is one of
// 'N', 'E', 'O' (default 'N' for anything else); stopBits is 1 or 2
// (default 1).
func OpenSerial(path string, baud int, parity byte, stopBits int) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   parityMode(parity),
		StopBits: stopBitsMode(stopBits),
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	p.SetReadTimeout(100 * time.Millisecond)
	return &SerialPort{path: path, mode: mode, port: p}, nil
}

func parityMode(p byte) serial.Parity {
	switch p {
	case 'E', 'e':
		return serial.EvenParity
	case 'O', 'o':
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

func stopBitsMode(n int) serial.StopBits {
	if n == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// Read satisfies the byte-source callback shape a driver expects
// (`read(buf, max) -> count or err`).
func (s *SerialPort) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Read(buf)
}

// Write implements a driver's ControlSend/RtcmWriter collaborator.
func (s *SerialPort) Write(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Write(buf)
}

// SetSpeed closes and reopens the port at a new baud rate, serving the
// dispatcher's autobaud-ladder action and a driver's SpeedSwitcher
// collaborator. parity/stopBits are re-applied from the call's
// arguments rather than the previously open mode, matching the
// "set_speed(bps, parity, stopbits)" signature such a collaborator
// expects.
func (s *SerialPort) SetSpeed(baud int, parity byte, stopBits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		_ = s.port.Close()
	}
	s.mode = &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   parityMode(parity),
		StopBits: stopBitsMode(stopBits),
	}
	p, err := serial.Open(s.path, s.mode)
	if err != nil {
		return fmt.Errorf("transport: reopen %s at %d baud: %w", s.path, baud, err)
	}
	p.SetReadTimeout(100 * time.Millisecond)
	s.port = p
	return nil
}

// Close releases the underlying port.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
