// Package log provides structured protocol capture for drone authentication.
//
// It is separate from operational logging (slog). Protocol capture records
// every datagram, decoded message, state transition and authentication
// outcome as a machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/droneauth/station.alog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(adapter, fileLogger)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: raw datagram bytes (FrameEvent)
//   - Wire: decoded messages (MessageEvent)
//   - Session: state changes (StateChangeEvent) and outcomes (AuthEvent)
//
// Errors at any layer have a dedicated ErrorEventData payload.
//
// # File Format
//
// Log files are a CBOR sequence of events with integer keys. A file cut off
// mid-event reads up to the cut and then fails with ErrTruncated. The
// droneauth-log tool provides viewing, filtering, statistics and export.
package log
