package mist

import (
	"fmt"
	"strings"
)

// NormalizeMAC normalizes a MAC address to lowercase with colons.
//
// Accepts AA:BB:CC:DD:EE:FF, AA-BB-CC-DD-EE-FF, aabb.ccdd.eeff and bare
// aabbccddeeff forms. The colon form is what the guest endpoints expect.
func NormalizeMAC(mac string) (string, error) {
	hex, err := MACHex(mac)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hex[i : i+2])
	}
	return sb.String(), nil
}

// MACHex normalizes a MAC address to the bare 12-hex-digit form
// (aabbccddeeff) used by some vendor endpoints.
func MACHex(mac string) (string, error) {
	clean := strings.ToLower(mac)
	clean = strings.NewReplacer(":", "", "-", "", ".", "").Replace(clean)

	if len(clean) != 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	for _, c := range clean {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
		}
	}
	return clean, nil
}
