// Package verifier implements the ground station side of the handshake.
//
// A Station answers AUTH_REQUEST with a CHALLENGE for authorized identities
// and answers PROOF with AUTH_SUCCESS or AUTH_FAILURE. Its Registry
// exclusively owns the per-identity records:
//   - Entry: the commitment registered by the first AUTH_REQUEST. It is never
//     replaced by later requests.
//   - PendingChallenge: the outstanding challenge, replaced by every new
//     AUTH_REQUEST and removed on success.
//   - Address: where the identity's last AUTH_REQUEST came from.
//
// A Station is not safe for concurrent use. Deliver datagrams from one
// executor.
package verifier
