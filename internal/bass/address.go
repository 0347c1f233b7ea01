package bass

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a Bluetooth device address in wire order (least significant byte first).
type Address [6]byte

// ParseAddress parses the human form "AA:BB:CC:DD:EE:FF" (most significant byte first).
func ParseAddress(s string) (Address, error) {
	var a Address
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != len(a) {
		return a, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return a, fmt.Errorf("invalid bluetooth address %q", s)
		}
		a[len(a)-1-i] = b[0]
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants; it panics on malformed input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}

// IsZero reports whether the address is 00:00:00:00:00:00.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
