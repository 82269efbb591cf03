// Package transport carries authentication datagrams between drones and
// ground stations.
//
// Delivery is unreliable and unordered. A datagram is delivered whole or not
// at all, and a drop is never reported to the sender.
//
// Two implementations share the Conn interface:
//   - UDPConn: a real UDP socket. Received datagrams are posted to a
//     timer.Executor so handlers run serialized with timer callbacks.
//   - Network: an in-memory lossy network for simulations and tests, with
//     configurable latency, jitter, loss and duplication.
package transport
