package version

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"2024.10.1", Version{2024, 10, 1}},
		{"2024.9", Version{2024, 9, 0}},
		{"v2025.1.2", Version{2025, 1, 2}},
		{"2024.10.1.5", Version{2024, 10, 1}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseFailures(t *testing.T) {
	for _, in := range []string{"", "2024", "abc", "2024.x", "2024.10.beta", "unknown", "2024.-1", "-2024.10"} {
		_, err := Parse(in)
		if !errors.Is(err, ErrUnparseable) {
			t.Errorf("Parse(%q) error = %v, want ErrUnparseable", in, err)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	v, err := Parse("2024.10.1")
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(v.String())
	if err != nil {
		t.Fatal(err)
	}
	if again != v {
		t.Errorf("round trip changed version: %+v != %+v", again, v)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024.9", "2024.10", -1},
		{"2025.1", "2024.12", 1},
		{"2024.10.0", "2024.10", 0},
		{"2024.10.1", "2024.10.2", -1},
		{"2023.12.3", "2024.1", -1},
	}
	for _, tt := range tests {
		a, err := Parse(tt.a)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Parse(tt.b)
		if err != nil {
			t.Fatal(err)
		}
		if got := a.Compare(b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
