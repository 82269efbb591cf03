// Package prover implements the drone side of the authentication handshake.
//
// A Session drives one drone through
//
//	Idle -> AwaitingChallenge -> GeneratingProof -> AwaitingResult -> Authenticated | Failed
//
// A single timeout covers the whole handshake. It is armed when the
// AUTH_REQUEST is sent and is not reset by the CHALLENGE. When it fires
// before a result, the session waits RetryInterval (RetryPending) and then
// restarts the handshake from AUTH_REQUEST, indefinitely. An explicit
// AUTH_FAILURE moves the session to Failed and cancels only the timeout;
// a retry or proof already scheduled still runs.
//
// All methods must be called from reactions of the Scheduler's executor.
package prover
