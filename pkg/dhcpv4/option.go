package dhcpv4

import (
	"encoding/binary"
	"fmt"

	"github.com/netbootd/bootd/pkg/wire"
)

// Option is one TLV entry from the option stream: an opcode plus its
// opaque payload. Every opcode, known or not, is stored verbatim this
// way; known opcodes are read through the typed accessors on Options
// (IPv4Of, MessageType, ClientSystemArchitectures, ...), and
// DecodeOptions checks the fixed-width ones against fixedOptionLengths.
// There is no generic per-opcode Value method.
type Option struct {
	Code OptionCode
	Data []byte
}

// Options is an ordered, index-backed option list: iteration preserves
// insertion order and every duplicate opcode, while Get/Has are O(1) via
// an index to the last-written position for a given opcode (last wins on
// lookup, matching §3's "duplicate opcodes: last wins on lookup, all
// preserved on iteration").
type Options struct {
	list  []Option
	index map[OptionCode]int
}

// NewOptions returns an empty Options container.
func NewOptions() *Options {
	return &Options{index: make(map[OptionCode]int)}
}

// Add appends an option, overwriting the index entry for Code so Get
// returns this (the latest) occurrence.
func (o *Options) Add(code OptionCode, data []byte) {
	if o.index == nil {
		o.index = make(map[OptionCode]int)
	}
	o.index[code] = len(o.list)
	o.list = append(o.list, Option{Code: code, Data: data})
}

// Get returns the most recently added option for code.
func (o *Options) Get(code OptionCode) (Option, bool) {
	if o == nil {
		return Option{}, false
	}
	i, ok := o.index[code]
	if !ok {
		return Option{}, false
	}
	return o.list[i], true
}

// Has reports whether code is present at least once.
func (o *Options) Has(code OptionCode) bool {
	_, ok := o.Get(code)
	return ok
}

// All returns every option in insertion order, duplicates included.
func (o *Options) All() []Option {
	if o == nil {
		return nil
	}
	out := make([]Option, len(o.list))
	copy(out, o.list)
	return out
}

// Len reports the number of options, including duplicates.
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.list)
}

// IPv4Of returns the IPv4 payload of code when it is one of the
// single-address options (SubnetMask, Router, DomainNameServer,
// RequestedIPAddress, ServerIdentifier, TFTPServerIPAddress, ...).
func (o *Options) IPv4Of(code OptionCode) (wire.IPv4, bool) {
	opt, ok := o.Get(code)
	if !ok || len(opt.Data) != 4 {
		return wire.IPv4{}, false
	}
	ip, err := wire.IPv4FromBytes(opt.Data)
	if err != nil {
		return wire.IPv4{}, false
	}
	return ip, true
}

// SetIPv4 sets a single-IPv4-valued option.
func (o *Options) SetIPv4(code OptionCode, ip wire.IPv4) {
	o.Add(code, ip.Bytes())
}

// Uint32Of returns the big-endian uint32 payload of code.
func (o *Options) Uint32Of(code OptionCode) (uint32, bool) {
	opt, ok := o.Get(code)
	if !ok || len(opt.Data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(opt.Data), true
}

// SetUint32 sets a big-endian uint32 option.
func (o *Options) SetUint32(code OptionCode, v uint32) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	o.Add(code, buf)
}

// Uint16Of returns the big-endian uint16 payload of code.
func (o *Options) Uint16Of(code OptionCode) (uint16, bool) {
	opt, ok := o.Get(code)
	if !ok || len(opt.Data) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(opt.Data), true
}

// SetUint16 sets a big-endian uint16 option.
func (o *Options) SetUint16(code OptionCode, v uint16) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	o.Add(code, buf)
}

// MessageType returns the DHCP message type from option 53.
func (o *Options) MessageType() (MessageType, bool) {
	opt, ok := o.Get(OptionDHCPMessageType)
	if !ok || len(opt.Data) != 1 {
		return 0, false
	}
	return MessageType(opt.Data[0]), true
}

// SetMessageType sets option 53.
func (o *Options) SetMessageType(mt MessageType) {
	o.Add(OptionDHCPMessageType, []byte{byte(mt)})
}

// ParameterRequestList decodes option 55 into its opcode sequence.
func (o *Options) ParameterRequestList() ([]OptionCode, bool) {
	opt, ok := o.Get(OptionParameterRequestList)
	if !ok {
		return nil, false
	}
	codes := make([]OptionCode, len(opt.Data))
	for i, b := range opt.Data {
		codes[i] = OptionCode(b)
	}
	return codes, true
}

// SetParameterRequestList sets option 55.
func (o *Options) SetParameterRequestList(codes []OptionCode) {
	buf := make([]byte, len(codes))
	for i, c := range codes {
		buf[i] = byte(c)
	}
	o.Add(OptionParameterRequestList, buf)
}

// ClientIdentifier decodes option 61: a 1-byte hardware type followed by
// the hardware address.
func (o *Options) ClientIdentifier() (htype byte, hw wire.HardwareAddr, ok bool) {
	opt, present := o.Get(OptionClientIdentifier)
	if !present || len(opt.Data) < 2 {
		return 0, nil, false
	}
	return opt.Data[0], wire.HardwareAddr(opt.Data[1:]), true
}

// SetClientIdentifier sets option 61.
func (o *Options) SetClientIdentifier(htype byte, hw wire.HardwareAddr) {
	buf := append([]byte{htype}, hw...)
	o.Add(OptionClientIdentifier, buf)
}

// ClientSystemArchitectures decodes option 93 (RFC 4578 §2.1): a
// sequence of big-endian uint16 PXE architecture type codes.
func (o *Options) ClientSystemArchitectures() ([]uint16, bool) {
	opt, ok := o.Get(OptionClientSystemArchitecture)
	if !ok || len(opt.Data)%2 != 0 {
		return nil, false
	}
	archs := make([]uint16, len(opt.Data)/2)
	for i := range archs {
		archs[i] = binary.BigEndian.Uint16(opt.Data[i*2 : i*2+2])
	}
	return archs, true
}

// SetClientSystemArchitectures sets option 93.
func (o *Options) SetClientSystemArchitectures(archs []uint16) {
	buf := make([]byte, len(archs)*2)
	for i, a := range archs {
		binary.BigEndian.PutUint16(buf[i*2:], a)
	}
	o.Add(OptionClientSystemArchitecture, buf)
}

// ClientNetworkInterface decodes option 94 (RFC 4578 §2.2): a constant
// leading 0x01 byte followed by UNDI major.minor version.
func (o *Options) ClientNetworkInterface() (major, minor byte, ok bool) {
	opt, present := o.Get(OptionClientNetworkInterface)
	if !present || len(opt.Data) != 3 {
		return 0, 0, false
	}
	return opt.Data[1], opt.Data[2], true
}

// SetClientNetworkInterface sets option 94.
func (o *Options) SetClientNetworkInterface(major, minor byte) {
	o.Add(OptionClientNetworkInterface, []byte{0x01, major, minor})
}

// ClientMachineIdentifier decodes option 97 (RFC 4578 §2.3): a leading
// type byte (0 = UUID) followed by the 16-byte GUID.
func (o *Options) ClientMachineIdentifier() (guid [16]byte, ok bool) {
	opt, present := o.Get(OptionClientMachineIdentifier)
	if !present || len(opt.Data) != 17 {
		return guid, false
	}
	copy(guid[:], opt.Data[1:])
	return guid, true
}

// SetClientMachineIdentifier sets option 97 with type byte 0 (UUID).
func (o *Options) SetClientMachineIdentifier(guid [16]byte) {
	buf := append([]byte{0x00}, guid[:]...)
	o.Add(OptionClientMachineIdentifier, buf)
}

// Encode serializes the option list to a TLV byte stream terminated by a
// single End (0xFF) marker. Callers MUST NOT add their own End option —
// the encoder is authoritative.
func (o *Options) Encode() []byte {
	size := 1 // End marker
	for _, opt := range o.list {
		size += 2 + len(opt.Data)
	}
	buf := make([]byte, 0, size)
	for _, opt := range o.list {
		buf = append(buf, byte(opt.Code), byte(len(opt.Data)))
		buf = append(buf, opt.Data...)
	}
	buf = append(buf, byte(OptionEnd))
	return buf
}

// BadOptionLength is returned by DecodeOptions when a known opcode's
// payload length doesn't match the fixed schema §3's option table
// assigns it (e.g. a 3-byte SubnetMask, which must be exactly 4).
type BadOptionLength struct {
	Code     OptionCode
	Got      int
	Expected int
}

func (e *BadOptionLength) Error() string {
	return fmt.Sprintf("dhcpv4: option %s: bad length %d, expected %d", e.Code, e.Got, e.Expected)
}

// fixedOptionLengths maps the opcodes whose schema is a single
// fixed-width value (§3's table) to their required payload length.
// Opcodes absent from this table are variable-length or unknown and
// are accepted at any length.
var fixedOptionLengths = map[OptionCode]int{
	OptionSubnetMask:              4,
	OptionDomainNameServer:        4,
	OptionRouter:                  4,
	OptionRequestedIPAddress:      4,
	OptionIPAddressLeaseTime:      4,
	OptionDHCPMessageType:         1,
	OptionServerIdentifier:        4,
	OptionMaximumDHCPMessageSize:  2,
	OptionClientNetworkInterface:  3,
	OptionClientMachineIdentifier: 17,
	OptionTFTPServerIPAddress:     4,
}

// DecodeOptions parses a TLV option stream (RFC 2132 §2) up to the End
// opcode. Pad (0) bytes are consumed with no length field. A declared
// length exceeding the remaining bytes fails with *wire.TruncatedError;
// a known fixed-schema opcode whose length doesn't match fails with
// *BadOptionLength.
func DecodeOptions(data []byte) (*Options, error) {
	opts := NewOptions()
	i := 0
	for i < len(data) {
		code := OptionCode(data[i])
		i++
		if code == OptionPad {
			continue
		}
		if code == OptionEnd {
			return opts, nil
		}
		if i >= len(data) {
			return nil, fmt.Errorf("dhcpv4: option %d: %w", code, &wire.TruncatedError{What: "option length byte", Need: 1, Have: 0})
		}
		length := int(data[i])
		i++
		if i+length > len(data) {
			return nil, fmt.Errorf("dhcpv4: option %d: %w", code, &wire.TruncatedError{What: "option payload", Need: length, Have: len(data) - i})
		}
		if expected, ok := fixedOptionLengths[code]; ok && length != expected {
			return nil, fmt.Errorf("dhcpv4: %w", &BadOptionLength{Code: code, Got: length, Expected: expected})
		}
		value := make([]byte, length)
		copy(value, data[i:i+length])
		opts.Add(code, value)
		i += length
	}
	// No explicit End seen — RFC 2132 requires one, but a truncated options
	// area still yields whatever options were fully read.
	return opts, nil
}
