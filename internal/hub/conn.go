package hub

// Frame is one serialized envelope.
type Frame []byte

// ConnID is the opaque identifier the transport adapter assigns when it
// registers a connection. The hub attaches no user or room meaning to it.
type ConnID string

// Conn abstracts one duplex transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	ID() ConnID
	TrySend(Frame) error
	Close()
}
