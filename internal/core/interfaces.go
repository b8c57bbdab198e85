package core

// Frame is a marshaled wire message.
type Frame []byte

// SessionID identifies one live connection. Assigned by the transport
// adapter on connect, unique for the lifetime of the process.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
