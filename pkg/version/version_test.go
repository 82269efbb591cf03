package version

import (
	"errors"
	"testing"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		input string
		want  Revision
	}{
		{"1.0", Revision{1, 0}},
		{"1.1", Revision{1, 1}},
		{"2.0", Revision{2, 0}},
		{"10.23", Revision{10, 23}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "1", "abc", "1.0.0", "1.x", "-1.0", ".1", "+1.0", "1.", "70000.0"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalid", input, err)
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on bad input")
		}
	}()
	MustParse("bad")
}

func TestCompatibleString(t *testing.T) {
	if MustParse(Current).String() != Current {
		t.Fatalf("Current does not round-trip: %s", Current)
	}

	tests := []struct {
		input string
		want  bool
	}{
		{"1.0", true},
		{"1.7", true},
		{"2.0", false},
		{"0.9", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := CompatibleString(tt.input); got != tt.want {
			t.Errorf("CompatibleString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
