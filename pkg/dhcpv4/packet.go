package dhcpv4

import (
	"encoding/binary"
	"fmt"

	"github.com/netbootd/bootd/pkg/wire"
)

// Packet is a decoded DHCPv4 packet (RFC 2131 §2): the fixed 236-byte
// BOOTP header, the magic cookie, and the option stream.
type Packet struct {
	Op      OpCode
	HType   HardwareType
	HLen    byte
	Hops    byte
	XID     uint32
	Secs    uint16
	Flags   uint16
	CIAddr  wire.IPv4
	YIAddr  wire.IPv4
	SIAddr  wire.IPv4
	GIAddr  wire.IPv4
	CHAddr  wire.HardwareAddr
	SName   []byte // trimmed of trailing NULs on decode, padded to 64 on encode
	File    []byte // trimmed of trailing NULs on decode, padded to 128 on encode
	Options *Options
}

// BroadcastFlag is bit 0 of the Flags field (RFC 2131 §2).
const BroadcastFlag uint16 = 0x8000

// IsBroadcast reports whether the client requested a broadcast reply.
func (p *Packet) IsBroadcast() bool {
	return p.Flags&BroadcastFlag != 0
}

// Decode parses a raw DHCPv4 packet. It validates the minimum length,
// the magic cookie position, op, and hlen per spec; htype is resolved
// through the hardware-type table and surfaces a BadEnumValue-shaped
// error when unrecognized, matching §4.3's "htype is a known hardware
// type (else the enum lookup surfaces BadEnumValue)".
func Decode(data []byte) (*Packet, error) {
	if len(data) < MinHeaderSize {
		return nil, fmt.Errorf("dhcpv4: packet too short: %d bytes (minimum %d)", len(data), MinHeaderSize)
	}

	p := &Packet{}
	p.Op = OpCode(data[0])
	if p.Op != OpBootRequest && p.Op != OpBootReply {
		return nil, &wire.BadEnumValueError{Table: "dhcpv4.OpCode", Value: uint64(data[0])}
	}
	p.HType = HardwareType(data[1])
	if _, ok := hardwareTypeNames[p.HType]; !ok {
		return nil, &wire.BadEnumValueError{Table: "dhcpv4.HardwareType", Value: uint64(data[1])}
	}
	p.HLen = data[2]
	if p.HLen < 1 || p.HLen > MaxHLen {
		return nil, fmt.Errorf("dhcpv4: hlen %d out of range [1,%d]", p.HLen, MaxHLen)
	}
	p.Hops = data[3]
	p.XID = binary.BigEndian.Uint32(data[4:8])
	p.Secs = binary.BigEndian.Uint16(data[8:10])
	p.Flags = binary.BigEndian.Uint16(data[10:12])

	var err error
	if p.CIAddr, err = wire.IPv4FromBytes(data[12:16]); err != nil {
		return nil, err
	}
	if p.YIAddr, err = wire.IPv4FromBytes(data[16:20]); err != nil {
		return nil, err
	}
	if p.SIAddr, err = wire.IPv4FromBytes(data[20:24]); err != nil {
		return nil, err
	}
	if p.GIAddr, err = wire.IPv4FromBytes(data[24:28]); err != nil {
		return nil, err
	}

	// chaddr occupies 16 wire bytes; only the first hlen are significant.
	if p.CHAddr, err = wire.ReadHardwareAddr(data[28:44], int(p.HLen)); err != nil {
		return nil, err
	}

	p.SName = wire.TrimTrailingNULs(data[44:108])
	p.File = wire.TrimTrailingNULs(data[108:236])

	cookie := data[236:240]
	if cookie[0] != MagicCookie[0] || cookie[1] != MagicCookie[1] || cookie[2] != MagicCookie[2] || cookie[3] != MagicCookie[3] {
		return nil, fmt.Errorf("dhcpv4: missing magic cookie at offset 236")
	}

	if len(data) > MinHeaderSize {
		opts, err := DecodeOptions(data[MinHeaderSize:])
		if err != nil {
			return nil, fmt.Errorf("dhcpv4: decoding options: %w", err)
		}
		p.Options = opts
	} else {
		p.Options = NewOptions()
	}

	return p, nil
}

// Encode serializes the packet to exactly 240 + len(options TLV) + 1
// bytes: the fixed header, the magic cookie, the encoded option list,
// and its End terminator.
func (p *Packet) Encode() []byte {
	opts := p.Options
	if opts == nil {
		opts = NewOptions()
	}
	optBytes := opts.Encode()

	buf := make([]byte, MinHeaderSize+len(optBytes))
	buf[0] = byte(p.Op)
	buf[1] = byte(p.HType)
	buf[2] = p.HLen
	buf[3] = p.Hops
	binary.BigEndian.PutUint32(buf[4:8], p.XID)
	binary.BigEndian.PutUint16(buf[8:10], p.Secs)
	binary.BigEndian.PutUint16(buf[10:12], p.Flags)
	copy(buf[12:16], p.CIAddr.Bytes())
	copy(buf[16:20], p.YIAddr.Bytes())
	copy(buf[20:24], p.SIAddr.Bytes())
	copy(buf[24:28], p.GIAddr.Bytes())
	copy(buf[28:44], p.CHAddr.Padded(MaxCHAddrLen))
	copy(buf[44:108], p.SName)
	copy(buf[108:236], p.File)
	copy(buf[236:240], MagicCookie[:])
	copy(buf[240:], optBytes)

	return buf
}
