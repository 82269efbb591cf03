package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/droneauth/droneauth-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	MessagesByTag     map[string]int
	Sessions          map[string]*SessionStats
	Errors            int
	Truncated         bool
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single protocol session.
type SessionStats struct {
	Role      log.Role
	Identity  string
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Outcomes  map[log.Outcome]int
	Latencies []time.Duration
}

// MeanLatency averages the measured latencies.
func (s *SessionStats) MeanLatency() (time.Duration, bool) {
	if len(s.Latencies) == 0 {
		return 0, false
	}
	var sum time.Duration
	for _, l := range s.Latencies {
		sum += l
	}
	return sum / time.Duration(len(s.Latencies)), true
}

// Collect reads every event from r into Stats.
func Collect(r *log.Reader) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		MessagesByTag:     make(map[string]int),
		Sessions:          make(map[string]*SessionStats),
	}

	for {
		event, err := r.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, log.ErrTruncated) {
			stats.Truncated = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{
				Role:      event.LocalRole,
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
				Outcomes:  make(map[log.Outcome]int),
			}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.Identity != "" && sess.Identity == "" && event.LocalRole == log.RoleDrone {
			sess.Identity = event.Identity
		}

		if event.Message != nil && event.Direction == log.DirectionIn {
			stats.MessagesByTag[event.Message.Tag.String()]++
		}
		if event.Auth != nil {
			sess.Outcomes[event.Auth.Outcome]++
			if event.Auth.Latency != nil {
				sess.Latencies = append(sess.Latencies, *event.Auth.Latency)
			}
		}
		if event.Error != nil {
			stats.Errors++
		}
	}
	return stats, nil
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats, err := Collect(reader)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Drone Authentication Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	if stats.Truncated {
		fmt.Fprintln(w, "Warning: log ends mid-event (truncated)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryAuth, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.MessagesByTag) > 0 {
		fmt.Fprintln(w, "Messages Received:")
		tags := make([]string, 0, len(stats.MessagesByTag))
		for tag := range stats.MessagesByTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			fmt.Fprintf(w, "  %-14s %d\n", tag+":", stats.MessagesByTag[tag])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			fmt.Fprintf(w, "  [%s] %s %d events, duration %s\n",
				shortenSessionID(s.id), s.stats.Role, s.stats.Events,
				s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond))
			if s.stats.Identity != "" {
				fmt.Fprintf(w, "           Drone: %s\n", s.stats.Identity)
			}
			if n := len(s.stats.Outcomes); n > 0 {
				fmt.Fprintf(w, "           Outcomes: success=%d failure=%d timeout=%d\n",
					s.stats.Outcomes[log.OutcomeSuccess], s.stats.Outcomes[log.OutcomeFailure], s.stats.Outcomes[log.OutcomeTimeout])
			}
			if mean, ok := s.stats.MeanLatency(); ok {
				fmt.Fprintf(w, "           Mean latency: %s\n", formatDuration(mean))
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
