// Package mocks holds testify mocks for the interfaces that sit on the
// protocol's boundaries: the datagram connection, the telemetry sink and the
// display observer.
package mocks

import (
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/droneauth/droneauth-go/pkg/display"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/wire"
)

// Conn is a mock transport.Conn that also keeps every sent datagram.
type Conn struct {
	mock.Mock

	mu   sync.Mutex
	Sent []Sent
}

// Sent is one datagram passed to SendTo.
type Sent struct {
	To   transport.Addr
	Data []byte
}

// NewConn returns a Conn bound to local that accepts every send.
func NewConn(local transport.Addr) *Conn {
	c := &Conn{}
	c.On("SendTo", mock.Anything, mock.Anything).Return(nil).Maybe()
	c.On("LocalAddr").Return(local).Maybe()
	c.On("Close").Return(nil).Maybe()
	return c
}

func (c *Conn) SendTo(data []byte, addr transport.Addr) error {
	c.mu.Lock()
	c.Sent = append(c.Sent, Sent{To: addr, Data: append([]byte(nil), data...)})
	c.mu.Unlock()
	return c.Called(data, addr).Error(0)
}

func (c *Conn) LocalAddr() transport.Addr {
	return c.Called().Get(0).(transport.Addr)
}

func (c *Conn) Close() error {
	return c.Called().Error(0)
}

// Tags returns the tag of every sent datagram, in order.
func (c *Conn) Tags() []wire.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags := make([]wire.Tag, 0, len(c.Sent))
	for _, s := range c.Sent {
		tag, _ := wire.PeekTag(s.Data)
		tags = append(tags, tag)
	}
	return tags
}

// Last decodes the most recent sent datagram.
func (c *Conn) Last() (wire.Message, transport.Addr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return nil, transport.Addr{}, false
	}
	s := c.Sent[len(c.Sent)-1]
	m, err := wire.Decode(s.Data)
	if err != nil {
		return nil, s.To, false
	}
	return m, s.To, true
}

// Reset forgets sent datagrams.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = nil
}

// Sink is a mock stats.Sink.
type Sink struct{ mock.Mock }

func (s *Sink) Emit(source, signal string, at time.Time, value float64) {
	s.Called(source, signal, at, value)
}

func (s *Sink) RecordScalar(source, name string, value float64) {
	s.Called(source, name, value)
}

// Observer is a mock display.Observer.
type Observer struct{ mock.Mock }

func (o *Observer) Update(source string, ind display.Indicator) {
	o.Called(source, ind)
}
