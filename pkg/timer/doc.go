// Package timer provides the scheduling primitives the authentication state
// machines run on.
//
// # Reactions
//
// Every protocol transition is a reaction to an incoming datagram, a timer
// firing, or a lifecycle call. An Executor runs reactions one at a time, so
// state machines driven by the same Executor need no locking.
//
// Two executors are provided:
//   - Virtual: a discrete-event scheduler with a simulated clock. Events due
//     at the same instant run in the order they were scheduled.
//   - Loop: a real-time executor that serializes callbacks from
//     time.AfterFunc and from network readers onto one goroutine, in
//     arrival order.
//
// # Timers
//
// Timer wraps one logical timeout with Arm, Cancel and re-Arm. Arming always
// discards the previous schedule first, so at most one callback per Timer is
// live. A callback from a discarded schedule never runs, even if it was
// already queued when the Timer was re-armed.
package timer
