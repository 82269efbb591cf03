package transport

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/timer"
)

// NetworkConfig controls the in-memory network's impairments.
type NetworkConfig struct {
	// Latency is the base one-way delay.
	Latency time.Duration

	// Jitter adds a uniform random delay in [0, Jitter).
	Jitter time.Duration

	// LossRate is the probability in [0, 1] that a datagram is dropped.
	LossRate float64

	// DuplicateRate is the probability in [0, 1] that a delivered
	// datagram is delivered a second time.
	DuplicateRate float64

	// Seed makes impairments reproducible.
	Seed uint64
}

// Validate checks the configuration.
func (c NetworkConfig) Validate() error {
	if c.Latency < 0 || c.Jitter < 0 {
		return fmt.Errorf("latency and jitter must not be negative")
	}
	if c.LossRate < 0 || c.LossRate > 1 {
		return fmt.Errorf("loss rate %v out of range [0, 1]", c.LossRate)
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicate rate %v out of range [0, 1]", c.DuplicateRate)
	}
	return nil
}

// NetworkStats counts datagrams crossing a Network.
type NetworkStats struct {
	Sent       int
	Delivered  int
	Dropped    int
	Duplicated int
	Unroutable int
}

// Network is an in-memory datagram network driven by a timer.Scheduler.
type Network struct {
	sched  timer.Scheduler
	config NetworkConfig

	mu        sync.Mutex
	rng       *rand.Rand
	endpoints map[Addr]*MemConn
	stats     NetworkStats
}

// NewNetwork creates an empty network.
func NewNetwork(sched timer.Scheduler, config NetworkConfig) (*Network, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Network{
		sched:     sched,
		config:    config,
		rng:       rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		endpoints: make(map[Addr]*MemConn),
	}, nil
}

// Listen binds addr. Handler runs from scheduler callbacks.
func (n *Network) Listen(addr Addr, handler Handler, rec *plog.Recorder) (*MemConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.endpoints[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAddrInUse, addr)
	}
	c := &MemConn{net: n, local: addr, handler: handler, rec: rec}
	n.endpoints[addr] = c
	return c, nil
}

// Stats returns a snapshot of the counters.
func (n *Network) Stats() NetworkStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

func (n *Network) send(from Addr, data []byte, to Addr) {
	n.mu.Lock()
	n.stats.Sent++
	if n.config.LossRate > 0 && n.rng.Float64() < n.config.LossRate {
		n.stats.Dropped++
		n.mu.Unlock()
		return
	}
	copies := 1
	if n.config.DuplicateRate > 0 && n.rng.Float64() < n.config.DuplicateRate {
		copies = 2
		n.stats.Duplicated++
	}
	delays := make([]time.Duration, copies)
	for i := range delays {
		delays[i] = n.delayLocked()
	}
	n.mu.Unlock()

	payload := append([]byte(nil), data...)
	for _, d := range delays {
		n.sched.AfterFunc(d, func() {
			n.deliver(Datagram{From: from, Data: payload}, to)
		})
	}
}

func (n *Network) delayLocked() time.Duration {
	d := n.config.Latency
	if n.config.Jitter > 0 {
		d += time.Duration(n.rng.Int64N(int64(n.config.Jitter)))
	}
	return d
}

func (n *Network) deliver(dg Datagram, to Addr) {
	n.mu.Lock()
	dst, ok := n.endpoints[to]
	if ok && !dst.closed {
		n.stats.Delivered++
	} else {
		n.stats.Unroutable++
		ok = false
	}
	n.mu.Unlock()

	if !ok {
		return
	}
	dst.rec.Frame(plog.DirectionIn, dg.From.String(), dg.Data)
	dst.handler(Datagram{From: dg.From, Data: append([]byte(nil), dg.Data...)})
}

// MemConn is an endpoint on a Network.
type MemConn struct {
	net     *Network
	local   Addr
	handler Handler
	rec     *plog.Recorder
	closed  bool
}

// SendTo sends data to addr through the network.
func (c *MemConn) SendTo(data []byte, addr Addr) error {
	c.net.mu.Lock()
	closed := c.closed
	c.net.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if len(data) > MaxDatagramSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	c.rec.Frame(plog.DirectionOut, addr.String(), data)
	c.net.send(c.local, data, addr)
	return nil
}

// LocalAddr returns the bound address.
func (c *MemConn) LocalAddr() Addr {
	return c.local
}

// Close unbinds the endpoint. Datagrams in flight to it are dropped.
func (c *MemConn) Close() error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	delete(c.net.endpoints, c.local)
	return nil
}

// Compile-time interface satisfaction check.
var _ Conn = (*MemConn)(nil)
