package mist

import (
	"errors"
	"testing"
)

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff"},
		{"AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff"},
		{"AABBCCDDEEFF", "aa:bb:cc:dd:ee:ff"},
		{"aabbccddeeff", "aa:bb:cc:dd:ee:ff"},
		{"aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff"},
		{"00:11:22:33:44:55", "00:11:22:33:44:55"},
	}
	for _, tt := range tests {
		got, err := NormalizeMAC(tt.in)
		if err != nil {
			t.Errorf("NormalizeMAC(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMACInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"aa:bb:cc:dd:ee",       // too short
		"aa:bb:cc:dd:ee:ff:00", // too long
		"gg:bb:cc:dd:ee:ff",    // non-hex
		"hello world",
	} {
		if _, err := NormalizeMAC(in); !errors.Is(err, ErrInvalidMAC) {
			t.Errorf("NormalizeMAC(%q) error = %v, want ErrInvalidMAC", in, err)
		}
	}
}

func TestMACHex(t *testing.T) {
	got, err := MACHex("AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "aabbccddeeff" {
		t.Errorf("MACHex = %q, want aabbccddeeff", got)
	}
}
