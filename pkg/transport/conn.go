package transport

import (
	"errors"
)

// Transport errors.
var (
	ErrClosed    = errors.New("connection closed")
	ErrAddrInUse = errors.New("address already in use")
	ErrTooLarge  = errors.New("datagram too large")
)

// MaxDatagramSize is the largest datagram sent or received.
const MaxDatagramSize = 65507

// Datagram is one received datagram and its source.
type Datagram struct {
	From Addr
	Data []byte
}

// Handler reacts to a received datagram.
type Handler func(dg Datagram)

// Conn sends datagrams from a bound local endpoint.
type Conn interface {
	// SendTo queues data for delivery to addr. A nil error does not mean
	// the datagram arrived.
	SendTo(data []byte, addr Addr) error

	// LocalAddr returns the bound local endpoint.
	LocalAddr() Addr

	// Close releases the endpoint. Later sends fail with ErrClosed.
	Close() error
}
