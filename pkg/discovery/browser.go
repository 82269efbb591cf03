package discovery

import (
	"context"
	"log/slog"
	"time"
)

// Browser finds stations on the local network.
type Browser interface {
	// Browse streams compatible stations as they appear. The channel is
	// closed when ctx is done.
	Browse(ctx context.Context) (<-chan *StationService, error)

	// FindStation returns the first compatible station with a usable
	// address, or an error when the browse timeout or ctx expires.
	FindStation(ctx context.Context) (*StationService, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds FindStation.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Hash restricts FindStation to stations advertising this commitment
	// hash. Stations without a hash record are accepted. Empty accepts any.
	Hash string

	// Logger receives browse messages. Nil disables logging.
	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}
