package wire

import (
	"fmt"

	"github.com/droneauth/droneauth-go/pkg/commitment"
)

// Tag identifies a message kind.
type Tag uint8

const (
	// TagAuthRequest carries identity and commitment from drone to station.
	TagAuthRequest Tag = 0x01

	// TagChallenge carries the station's challenge.
	TagChallenge Tag = 0x02

	// TagProof carries a serialized proof.
	TagProof Tag = 0x03

	// TagAuthSuccess reports successful verification.
	TagAuthSuccess Tag = 0x04

	// TagAuthFailure reports rejection.
	TagAuthFailure Tag = 0x05
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagAuthRequest:
		return "AUTH_REQUEST"
	case TagChallenge:
		return "CHALLENGE"
	case TagProof:
		return "PROOF"
	case TagAuthSuccess:
		return "AUTH_SUCCESS"
	case TagAuthFailure:
		return "AUTH_FAILURE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(t))
	}
}

// Known reports whether t is one of the five message tags.
func (t Tag) Known() bool {
	return t >= TagAuthRequest && t <= TagAuthFailure
}

// Message is one decoded wire message.
type Message interface {
	Tag() Tag
}

// AuthRequest opens a handshake.
type AuthRequest struct {
	Identity   string
	Commitment []byte
}

// Tag implements Message.
func (*AuthRequest) Tag() Tag { return TagAuthRequest }

// Challenge is issued by the station in reply to an AuthRequest.
type Challenge struct {
	Challenge string
}

// Tag implements Message.
func (*Challenge) Tag() Tag { return TagChallenge }

// Proof answers a challenge.
type Proof struct {
	commitment.Proof
}

// Tag implements Message.
func (*Proof) Tag() Tag { return TagProof }

// AuthSuccess ends a handshake successfully.
type AuthSuccess struct{}

// Tag implements Message.
func (*AuthSuccess) Tag() Tag { return TagAuthSuccess }

// AuthFailure rejects a request or proof.
type AuthFailure struct{}

// Tag implements Message.
func (*AuthFailure) Tag() Tag { return TagAuthFailure }

// Compile-time interface satisfaction checks.
var (
	_ Message = (*AuthRequest)(nil)
	_ Message = (*Challenge)(nil)
	_ Message = (*Proof)(nil)
	_ Message = (*AuthSuccess)(nil)
	_ Message = (*AuthFailure)(nil)
)
