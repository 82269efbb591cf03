package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidAddr is returned when an address cannot be parsed.
var ErrInvalidAddr = errors.New("invalid address")

// Addr is a datagram endpoint. Host is an IP literal, optionally with an
// IPv6 zone ("fe80::1%eth0"), or a hostname.
type Addr struct {
	Host string
	Port int
}

// String returns host:port.
func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// IsZero reports whether a is unset.
func (a Addr) IsZero() bool {
	return a.Host == "" && a.Port == 0
}

// ParseAddr parses "host:port".
func ParseAddr(s string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Addr{}, fmt.Errorf("%w: port %q", ErrInvalidAddr, portStr)
	}
	return Addr{Host: host, Port: port}, nil
}

// FromUDPAddr converts a net.UDPAddr, keeping its zone.
func FromUDPAddr(u *net.UDPAddr) Addr {
	if u == nil {
		return Addr{}
	}
	host := u.IP.String()
	if u.Zone != "" {
		host += "%" + u.Zone
	}
	return Addr{Host: host, Port: u.Port}
}

// UDPAddr converts an IP literal address without a lookup. It reports
// false when Host is not an IP literal.
func (a Addr) UDPAddr() (*net.UDPAddr, bool) {
	host, zone, _ := strings.Cut(a.Host, "%")
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, false
	}
	return &net.UDPAddr{IP: ip, Port: a.Port, Zone: zone}, true
}

// Resolve returns a with Host replaced by an IP literal, looking the name
// up when needed.
func Resolve(ctx context.Context, a Addr) (Addr, error) {
	if _, ok := a.UDPAddr(); ok {
		return a, nil
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, a.Host)
	if err != nil {
		return Addr{}, fmt.Errorf("resolve %s: %w", a.Host, err)
	}
	if len(ips) == 0 {
		return Addr{}, fmt.Errorf("%w: no address for %s", ErrInvalidAddr, a.Host)
	}
	return FromUDPAddr(&net.UDPAddr{IP: ips[0].IP, Port: a.Port, Zone: ips[0].Zone}), nil
}
