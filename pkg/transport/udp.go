package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/timer"
)

// UDPConfig configures a UDP endpoint.
type UDPConfig struct {
	// Host to bind (empty binds all interfaces).
	Host string

	// Port to bind (0 picks an ephemeral port).
	Port int

	// Executor runs Handler for each received datagram. Required.
	Executor timer.Executor

	// Handler is called for each received datagram. Required.
	Handler Handler

	// Recorder captures raw frames (optional).
	Recorder *plog.Recorder

	// Logger for operational messages (optional).
	Logger *slog.Logger
}

// UDPConn is a UDP socket that posts received datagrams to an executor.
type UDPConn struct {
	config  UDPConfig
	conn    *net.UDPConn
	local   Addr
	running atomic.Bool
	wg      sync.WaitGroup

	mu       sync.Mutex
	resolved map[Addr]*net.UDPAddr
}

// ListenUDP binds a UDP socket and starts its read loop.
func ListenUDP(ctx context.Context, config UDPConfig) (*UDPConn, error) {
	if config.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", net.JoinHostPort(config.Host, fmt.Sprint(config.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	conn := pc.(*net.UDPConn)

	c := &UDPConn{
		config: config,
		conn:   conn,
		local:  FromUDPAddr(conn.LocalAddr().(*net.UDPAddr)),
	}
	c.running.Store(true)

	c.wg.Add(1)
	go c.readLoop()

	c.debugLog("udp listening", "addr", c.local.String())
	return c, nil
}

// SendTo sends data to addr.
func (c *UDPConn) SendTo(data []byte, addr Addr) error {
	if !c.running.Load() {
		return ErrClosed
	}
	if len(data) > MaxDatagramSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	ua, err := c.udpAddr(addr)
	if err != nil {
		return err
	}
	c.config.Recorder.Frame(plog.DirectionOut, addr.String(), data)
	if _, err := c.conn.WriteToUDP(data, ua); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}

// udpAddr converts addr, looking hostnames up once per address.
func (c *UDPConn) udpAddr(addr Addr) (*net.UDPAddr, error) {
	if ua, ok := addr.UDPAddr(); ok {
		return ua, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ua, ok := c.resolved[addr]; ok {
		return ua, nil
	}
	ua, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if c.resolved == nil {
		c.resolved = make(map[Addr]*net.UDPAddr)
	}
	c.resolved[addr] = ua
	return ua, nil
}

// LocalAddr returns the bound address.
func (c *UDPConn) LocalAddr() Addr {
	return c.local
}

// Close closes the socket and waits for the read loop to exit.
func (c *UDPConn) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *UDPConn) readLoop() {
	defer c.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if !c.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			c.debugLog("udp read error", "error", err)
			continue
		}

		dg := Datagram{
			From: FromUDPAddr(from),
			Data: append([]byte(nil), buf[:n]...),
		}
		c.config.Recorder.Frame(plog.DirectionIn, dg.From.String(), dg.Data)
		c.config.Executor.Post(func() {
			c.config.Handler(dg)
		})
	}
}

func (c *UDPConn) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

// Compile-time interface satisfaction check.
var _ Conn = (*UDPConn)(nil)
