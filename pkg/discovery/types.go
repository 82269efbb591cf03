package discovery

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/droneauth/droneauth-go/pkg/transport"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a ground station.
	ServiceType = "_droneauth._udp"

	// Domain is the mDNS domain.
	Domain = "local"

	// InstancePrefix starts every station instance name.
	InstancePrefix = "GS-"

	// DefaultPort is the default station port.
	DefaultPort = 5000
)

// TXT record keys.
const (
	TXTKeyVersion = "v"
	TXTKeySource  = "id"
	TXTKeyHash    = "hash"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNoAddress           = errors.New("service has no usable address")
)

// StationInfo describes the station being advertised.
type StationInfo struct {
	Port    uint16
	Version string
	Source  string
	Hash    string
}

// InstanceName returns "GS-<port>".
func (i *StationInfo) InstanceName() string {
	port := i.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s%d", InstancePrefix, port)
}

// StationService is a discovered station.
type StationService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Version      string
	Source       string
	Hash         string
}

// Addr returns the first usable address of the service, preferring IPv4.
func (s *StationService) Addr() (transport.Addr, error) {
	var v6 string
	for _, a := range s.Addresses {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			return transport.Addr{Host: a, Port: int(s.Port)}, nil
		}
		if v6 == "" {
			v6 = a
		}
	}
	if v6 != "" {
		return transport.Addr{Host: v6, Port: int(s.Port)}, nil
	}
	return transport.Addr{}, fmt.Errorf("%w: %s", ErrNoAddress, s.InstanceName)
}
