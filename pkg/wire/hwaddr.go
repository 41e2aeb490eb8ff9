package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// HardwareAddr is a variable-length link-layer address, usually 6 bytes
// for Ethernet but not assumed to be any fixed width.
type HardwareAddr []byte

// ParseHardwareAddr parses a colon-separated hex string ("aa:bb:cc:dd:ee:ff").
func ParseHardwareAddr(s string) (HardwareAddr, error) {
	parts := strings.Split(s, ":")
	addr := make(HardwareAddr, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("wire: bad hardware address %q: %w", s, err)
		}
		addr[i] = byte(n)
	}
	return addr, nil
}

// ReadHardwareAddr extracts a hardware address of exactly hlen bytes from
// buf. hlen comes from the packet's own hlen field, not from len(buf) —
// addressing the source bug where deserialization used a hardcoded
// length instead of the value the packet declared.
func ReadHardwareAddr(buf []byte, hlen int) (HardwareAddr, error) {
	if hlen < 0 || hlen > len(buf) {
		return nil, &TruncatedError{What: "hardware address", Need: hlen, Have: len(buf)}
	}
	addr := make(HardwareAddr, hlen)
	copy(addr, buf[:hlen])
	return addr, nil
}

// String renders the address as colon-separated lowercase hex.
func (a HardwareAddr) String() string {
	if len(a) == 0 {
		return ""
	}
	parts := make([]string, len(a))
	for i, b := range a {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// Equal reports value equality.
func (a HardwareAddr) Equal(other HardwareAddr) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i] != other[i] {
			return false
		}
	}
	return true
}

// Padded returns a copy of a zero-padded (or truncated) to exactly n bytes,
// matching the DHCPv4 chaddr field's fixed 16-byte wire width.
func (a HardwareAddr) Padded(n int) []byte {
	out := make([]byte, n)
	copy(out, a)
	return out
}
