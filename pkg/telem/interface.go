package telem

// Device defines the interface for telemetry devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Events() <-chan Event
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
