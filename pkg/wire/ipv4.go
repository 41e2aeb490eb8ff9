package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// IPv4 is a 4-octet IPv4 address, compared and copied by value.
type IPv4 [4]byte

// ParseIPv4 parses a dotted-quad string into an IPv4 value.
func ParseIPv4(s string) (IPv4, error) {
	var ip IPv4
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return ip, fmt.Errorf("wire: bad IPv4 address %q: want 4 dotted octets", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return ip, fmt.Errorf("wire: bad IPv4 octet %q in %q", p, s)
		}
		ip[i] = byte(n)
	}
	return ip, nil
}

// IPv4FromBytes copies b into an IPv4 value; b must be exactly 4 bytes
// long, otherwise a *TruncatedError is returned.
func IPv4FromBytes(b []byte) (IPv4, error) {
	var ip IPv4
	if len(b) != 4 {
		return ip, &TruncatedError{What: "IPv4 address", Need: 4, Have: len(b)}
	}
	copy(ip[:], b)
	return ip, nil
}

// Bytes returns the 4-octet big-endian representation.
func (ip IPv4) Bytes() []byte {
	out := make([]byte, 4)
	copy(out, ip[:])
	return out
}

// String renders the address as a dotted quad.
func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// IsZero reports whether the address is 0.0.0.0.
func (ip IPv4) IsZero() bool {
	return ip == IPv4{}
}

// Equal reports value equality.
func (ip IPv4) Equal(other IPv4) bool {
	return ip == other
}

var (
	// Zero is the unspecified address 0.0.0.0.
	Zero = IPv4{0, 0, 0, 0}
	// Broadcast is the limited broadcast address 255.255.255.255.
	Broadcast = IPv4{255, 255, 255, 255}
)
