// Package wire provides the byte-level primitives shared by the DHCPv4
// and TFTP codecs: fixed-width value types, their shared error types,
// and the null-terminated string and enum-lookup conventions both wire
// formats rely on.
package wire

import "fmt"

// BadEnumValueError is returned by EnumFromValue when a byte or uint16
// read off the wire doesn't map to any known variant.
type BadEnumValueError struct {
	Table string
	Value uint64
}

func (e *BadEnumValueError) Error() string {
	return fmt.Sprintf("%s: unknown value %d", e.Table, e.Value)
}

// TruncatedError is returned by decoders that need more bytes than are
// available in the input.
type TruncatedError struct {
	What string
	Need int
	Have int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated %s: need %d bytes, have %d", e.What, e.Need, e.Have)
}
