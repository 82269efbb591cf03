package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger. Successful outcomes
// are logged at Info, failures, timeouts and errors at Warn, everything else
// at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	if a.logger == nil {
		return
	}
	level := levelFor(event)
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}
	a.logger.LogAttrs(ctx, level, "protocol", eventAttrs(event)...)
}

func levelFor(event Event) slog.Level {
	switch {
	case event.Error != nil:
		return slog.LevelWarn
	case event.Auth != nil && event.Auth.Outcome == OutcomeSuccess:
		return slog.LevelInfo
	case event.Auth != nil:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

func eventAttrs(event Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("role", event.LocalRole.String()),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", event.Identity))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs, slog.String("tag", m.Tag.String()))
		if m.Challenge != "" {
			attrs = append(attrs, slog.String("challenge", m.Challenge))
		}
		if m.CommitmentSize != 0 {
			attrs = append(attrs, slog.Int("commitment_size", m.CommitmentSize))
		}
		if m.DigestSize != 0 {
			attrs = append(attrs, slog.Int("digest_size", m.DigestSize))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Auth != nil:
		attrs = append(attrs, slog.String("outcome", event.Auth.Outcome.String()))
		if event.Auth.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Auth.Reason))
		}
		if event.Auth.Latency != nil {
			attrs = append(attrs, slog.Duration("latency", *event.Auth.Latency))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}
	return attrs
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
