package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/droneauth/droneauth-go/pkg/commitment"
)

// ByteOrder is the byte order of all multi-byte fields.
var ByteOrder = binary.LittleEndian

// Field sizes.
const (
	tagSize       = 1
	lengthSize    = 4
	timestampSize = 8
)

// Decode errors.
var (
	ErrEmpty       = errors.New("empty message")
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
	ErrTooLarge    = errors.New("field too large")
)

// Encode serializes m including its type tag.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case *AuthRequest:
		if err := checkLen(len(msg.Identity), len(msg.Commitment)); err != nil {
			return nil, err
		}
		buf := make([]byte, 0, tagSize+2*lengthSize+len(msg.Identity)+len(msg.Commitment))
		buf = append(buf, byte(TagAuthRequest))
		buf = appendField(buf, []byte(msg.Identity))
		buf = appendField(buf, msg.Commitment)
		return buf, nil

	case *Challenge:
		if err := checkLen(len(msg.Challenge)); err != nil {
			return nil, err
		}
		buf := make([]byte, 0, tagSize+lengthSize+len(msg.Challenge))
		buf = append(buf, byte(TagChallenge))
		return appendField(buf, []byte(msg.Challenge)), nil

	case *Proof:
		body, err := EncodeProof(msg.Proof)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(TagProof)}, body...), nil

	case *AuthSuccess:
		return []byte{byte(TagAuthSuccess)}, nil

	case *AuthFailure:
		return []byte{byte(TagAuthFailure)}, nil

	case nil:
		return nil, fmt.Errorf("%w: nil message", ErrUnknownType)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// EncodeProof serializes a proof without a type tag.
func EncodeProof(p commitment.Proof) ([]byte, error) {
	if err := checkLen(len(p.Digest), len(p.Commitment), len(p.Challenge)); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 3*lengthSize+len(p.Digest)+len(p.Commitment)+len(p.Challenge)+timestampSize)
	buf = appendField(buf, p.Digest)
	buf = appendField(buf, p.Commitment)
	buf = appendField(buf, []byte(p.Challenge))
	return ByteOrder.AppendUint64(buf, p.Timestamp), nil
}

// PeekTag returns the type tag of data without decoding the payload.
func PeekTag(data []byte) (Tag, bool) {
	if len(data) < tagSize {
		return 0, false
	}
	return Tag(data[0]), true
}

// Decode parses one message.
func Decode(data []byte) (Message, error) {
	tag, ok := PeekTag(data)
	if !ok {
		return nil, ErrEmpty
	}
	r := &reader{buf: data, off: tagSize}

	switch tag {
	case TagAuthRequest:
		identity, err := r.field("identity")
		if err != nil {
			return nil, err
		}
		commit, err := r.field("commitment")
		if err != nil {
			return nil, err
		}
		return &AuthRequest{Identity: string(identity), Commitment: commit}, nil

	case TagChallenge:
		challenge, err := r.field("challenge")
		if err != nil {
			return nil, err
		}
		return &Challenge{Challenge: string(challenge)}, nil

	case TagProof:
		p, err := DecodeProof(data[tagSize:])
		if err != nil {
			return nil, err
		}
		return &Proof{Proof: p}, nil

	case TagAuthSuccess:
		return &AuthSuccess{}, nil

	case TagAuthFailure:
		return &AuthFailure{}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, uint8(tag))
	}
}

// DecodeProof parses a serialized proof (no type tag).
func DecodeProof(data []byte) (commitment.Proof, error) {
	r := &reader{buf: data}

	digest, err := r.field("digest")
	if err != nil {
		return commitment.Proof{}, err
	}
	commit, err := r.field("commitment")
	if err != nil {
		return commitment.Proof{}, err
	}
	challenge, err := r.field("challenge")
	if err != nil {
		return commitment.Proof{}, err
	}
	ts, err := r.uint64("timestamp")
	if err != nil {
		return commitment.Proof{}, err
	}

	return commitment.Proof{
		Digest:     digest,
		Commitment: commit,
		Challenge:  string(challenge),
		Timestamp:  ts,
	}, nil
}

func checkLen(lengths ...int) error {
	for _, n := range lengths {
		if uint64(n) > math.MaxUint32 {
			return fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
		}
	}
	return nil
}

func appendField(buf, field []byte) []byte {
	buf = ByteOrder.AppendUint32(buf, uint32(len(field)))
	return append(buf, field...)
}

// reader walks a buffer with bounds checks on every read.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

// field reads a length-prefixed field; an empty field is nil.
func (r *reader) field(name string) ([]byte, error) {
	if r.remaining() < lengthSize {
		return nil, fmt.Errorf("%w: missing %s length at offset %d", ErrMalformed, name, r.off)
	}
	n := uint64(ByteOrder.Uint32(r.buf[r.off:]))
	r.off += lengthSize
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: %s length %d exceeds remaining %d bytes", ErrMalformed, name, n, r.remaining())
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}

func (r *reader) uint64(name string) (uint64, error) {
	if r.remaining() < timestampSize {
		return 0, fmt.Errorf("%w: missing %s at offset %d", ErrMalformed, name, r.off)
	}
	v := ByteOrder.Uint64(r.buf[r.off:])
	r.off += timestampSize
	return v, nil
}
