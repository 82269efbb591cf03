package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/verifier"
)

// Tally counts how requests and proofs were answered. It is only touched
// from loop reactions.
type Tally map[verifier.Result]int

// Console is the operator console of the ground station.
type Console struct {
	rl *readline.Instance

	loop    timer.Executor
	station *verifier.Station
	policy  *verifier.AllowList
	tally   Tally
}

// NewConsole creates the console and its line editor.
func NewConsole() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "station> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl}, nil
}

// Stderr returns a writer that coordinates with the prompt. Use it for log
// output.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Attach connects the console to a running station.
func (c *Console) Attach(loop timer.Executor, station *verifier.Station, policy *verifier.AllowList, tally Tally) {
	c.loop = loop
	c.station = station
	c.policy = policy
	c.tally = tally
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "s":
			c.cmdStatus(ctx)

		case "entries", "e":
			c.cmdEntries(ctx, false)

		case "pending", "p":
			c.cmdEntries(ctx, true)

		case "stats":
			c.cmdStats(ctx)

		case "allow", "a":
			c.cmdAllow(args)

		case "forget":
			c.cmdForget(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Ground Station Commands:
  Registry:
    status             - Show station counters
    entries            - List known identities
    pending            - List identities with an outstanding challenge
    forget <id>        - Drop the registered commitment of an identity

  Allow-list:
    allow list         - Show authorized identities
    allow add <id>     - Authorize an identity
    allow remove <id>  - Revoke an identity

  General:
    stats              - Show how requests and proofs were answered
    help               - Show this help
    quit               - Exit station`)
}

// do runs fn on the station loop and waits for it.
func (c *Console) do(ctx context.Context, fn func()) bool {
	done := make(chan struct{})
	c.loop.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Console) cmdStatus(ctx context.Context) {
	var (
		counters stats.Counters
		entries  int
	)
	if !c.do(ctx, func() {
		counters = c.station.Counters()
		entries = len(c.station.Registry().Snapshot())
	}) {
		return
	}

	out := c.rl.Stdout()
	fmt.Fprintf(out, "Requests:   %d\n", counters.Requests)
	fmt.Fprintf(out, "Successes:  %d\n", counters.Successes)
	fmt.Fprintf(out, "Failures:   %d\n", counters.Failures)
	if rate, ok := counters.SuccessRate(); ok {
		fmt.Fprintf(out, "Success:    %.1f%%\n", rate)
	}
	fmt.Fprintf(out, "Identities: %d\n", entries)
}

func (c *Console) cmdEntries(ctx context.Context, pendingOnly bool) {
	var snapshot []verifier.EntryInfo
	if !c.do(ctx, func() { snapshot = c.station.Registry().Snapshot() }) {
		return
	}

	out := c.rl.Stdout()
	shown := 0
	for _, e := range snapshot {
		if pendingOnly && e.PendingChallenge == "" {
			continue
		}
		shown++
		fmt.Fprintf(out, "%-12s registered=%-5t addr=%-21s failures=%d/%d\n",
			e.Identity, e.Registered, orDash(e.Address), e.ConsecutiveFailures, e.TotalFailures)
		if e.PendingChallenge != "" {
			fmt.Fprintf(out, "             challenge=%s issued=%s\n",
				e.PendingChallenge, e.ChallengeIssuedAt.Format(time.RFC3339))
		}
	}
	if shown == 0 {
		fmt.Fprintln(out, "No entries")
	}
}

func (c *Console) cmdStats(ctx context.Context) {
	type line struct {
		result verifier.Result
		count  int
	}
	var lines []line
	if !c.do(ctx, func() {
		for r, n := range c.tally {
			lines = append(lines, line{result: r, count: n})
		}
	}) {
		return
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].result < lines[j].result })

	out := c.rl.Stdout()
	if len(lines) == 0 {
		fmt.Fprintln(out, "No requests yet")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(out, "%-18s %d\n", l.result, l.count)
	}
}

func (c *Console) cmdAllow(args []string) {
	out := c.rl.Stdout()
	if len(args) == 0 || args[0] == "list" {
		for _, id := range c.policy.Identities() {
			fmt.Fprintln(out, id)
		}
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(out, "Usage: allow list | allow add <id> | allow remove <id>")
		return
	}

	switch args[0] {
	case "add":
		if err := c.policy.Add(args[1]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Authorized %s\n", args[1])
	case "remove", "rm":
		c.policy.Remove(args[1])
		fmt.Fprintf(out, "Revoked %s\n", args[1])
	default:
		fmt.Fprintf(out, "Unknown allow command: %s\n", args[0])
	}
}

func (c *Console) cmdForget(ctx context.Context, args []string) {
	out := c.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: forget <id>")
		return
	}
	var removed bool
	if !c.do(ctx, func() { removed = c.station.Registry().RemoveEntry(args[0]) }) {
		return
	}
	if removed {
		fmt.Fprintf(out, "Forgot %s\n", args[0])
	} else {
		fmt.Fprintf(out, "No entry for %s\n", args[0])
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
