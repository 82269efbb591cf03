// Package commitment implements the credential commitment core of the drone
// authentication handshake.
//
// # Overview
//
// A prover (drone) derives a secret from its identity, a password and a
// random nonce, and publishes a commitment over that secret. The verifier
// (ground station) stores the commitment on first contact and later checks
// proofs that carry it back together with a challenge it issued.
//
//	secret     = H(identity || password || nonce)
//	commitment = H(secret || nonce)
//	digest     = H(secret || challenge || nonce)
//
// H is SHA-256 by default. The Engine type selects the digest and optionally
// hardens the password with a key stretching function before derivation.
//
// # Verification
//
// Verify accepts a proof when the digest has the engine's output size, the
// carried commitment equals the stored one, and the proof timestamp lies
// within the freshness window (5 seconds, inclusive) of the verifier clock.
// The digest is not recomputed: the verifier never learns the secret, so any
// correctly sized digest paired with the registered commitment and a fresh
// timestamp passes. This is the deployed behavior and is kept as is.
//
// # Timestamps
//
// Proof timestamps count nanoseconds since the Unix epoch.
package commitment
