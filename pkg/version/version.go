// Package version identifies the authentication protocol revision.
//
// Stations put the revision in their discovery record so drones can skip a
// station speaking an incompatible handshake. Revisions sharing a major
// number share the wire format.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol revision implemented by this module.
const Current = "1.0"

// ErrInvalid is returned for strings that are not "major.minor".
var ErrInvalid = errors.New("invalid protocol version")

// Revision is a parsed protocol version.
type Revision struct {
	Major uint16
	Minor uint16
}

// Parse parses "major.minor". Both components are unsigned decimals.
func Parse(s string) (Revision, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok {
		return Revision{}, fmt.Errorf("%w %q: expected major.minor", ErrInvalid, s)
	}
	major, err := component(majorStr)
	if err != nil {
		return Revision{}, fmt.Errorf("%w %q: major: %v", ErrInvalid, s, err)
	}
	minor, err := component(minorStr)
	if err != nil {
		return Revision{}, fmt.Errorf("%w %q: minor: %v", ErrInvalid, s, err)
	}
	return Revision{Major: major, Minor: minor}, nil
}

func component(s string) (uint16, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Revision {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns "major.minor".
func (r Revision) String() string {
	return strconv.Itoa(int(r.Major)) + "." + strconv.Itoa(int(r.Minor))
}

// Compatible reports whether both revisions share the wire format.
func (r Revision) Compatible(other Revision) bool {
	return r.Major == other.Major
}

// CompatibleString reports whether s is compatible with Current.
// Unparsable strings are not.
func CompatibleString(s string) bool {
	other, err := Parse(s)
	if err != nil {
		return false
	}
	return MustParse(Current).Compatible(other)
}
