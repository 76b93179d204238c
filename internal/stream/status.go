package stream

// Status is the connection state of the channel manager. Consumers
// read it from the manager; no component keeps a competing copy.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// IsConnected reports whether the transport is open.
func (s Status) IsConnected() bool {
	return s == StatusConnected
}
