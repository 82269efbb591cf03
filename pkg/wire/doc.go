// Package wire implements the binary encoding of the five authentication
// messages exchanged between a drone and a ground station.
//
// # Frame Layout
//
// Every message starts with a one-byte type tag:
//
//	0x01 AUTH_REQUEST  [len:4][identity][len:4][commitment]
//	0x02 CHALLENGE     [len:4][challenge]
//	0x03 PROOF         [len:4][digest][len:4][commitment][len:4][challenge][timestamp:8]
//	0x04 AUTH_SUCCESS  (empty)
//	0x05 AUTH_FAILURE  (empty)
//
// Length fields are unsigned 32-bit and the timestamp is unsigned 64-bit,
// both little-endian. Bytes after the last field are ignored.
//
// # Decoding
//
// Decode produces a typed Message before any handling logic runs. Every
// declared length is checked against the remaining buffer; short input
// yields ErrMalformed and never reads past the slice. An empty buffer yields
// ErrEmpty and an unrecognized tag ErrUnknownType.
//
// Zero-length byte fields decode as nil, so nil is the canonical empty
// value: a message built with []byte{} encodes the same bytes as one built
// with nil and decodes to the nil form.
package wire
