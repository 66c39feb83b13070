package telem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate of the logger board.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the events channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the telemetry board over USB serial.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	events    chan Event
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial device with the specified port, baud rate, and
// buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		events:   make(chan Event, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}

	return result, nil
}

// Connect opens the serial port and starts reading events.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true
	d.done = make(chan struct{})

	go d.readEvents()

	return nil
}

// Close closes the connection and stops reading events.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	// Closing the port unblocks the reader; wait for it to exit before
	// closing the channel it sends on.
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}
	<-d.done

	d.connected = false
	close(d.events)

	return nil
}

// Events returns the channel for reading telemetry events.
func (d *Serial) Events() <-chan Event {
	return d.events
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readEvents reads lines from the serial port and parses them into Events.
func (d *Serial) readEvents() {
	defer close(d.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readEvents: %v", r)
		}
	}()

	scanner := bufio.NewScanner(d.conn)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && err != io.EOF {
					log.Printf("Error reading from serial port: %v", err)
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			event, err := parseLine(line, time.Now())
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}

			select {
			case d.events <- event:
			case <-d.ctx.Done():
				return
			default:
				// Channel full, log and skip
				log.Printf("Events channel full, dropping event")
			}
		}
	}
}
