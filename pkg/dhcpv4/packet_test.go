package dhcpv4

import (
	"testing"

	"github.com/netbootd/bootd/pkg/wire"
)

func discoverPacket(t *testing.T) *Packet {
	t.Helper()
	chaddr, err := wire.ParseHardwareAddr("00:0b:82:01:fc:42")
	if err != nil {
		t.Fatalf("ParseHardwareAddr: %v", err)
	}
	opts := NewOptions()
	opts.SetMessageType(MessageTypeDiscover)
	opts.SetParameterRequestList([]OptionCode{OptionSubnetMask, OptionRouter})

	return &Packet{
		Op:      OpBootRequest,
		HType:   HTypeEthernet,
		HLen:    6,
		XID:     0x12345678,
		Flags:   BroadcastFlag,
		CHAddr:  chaddr,
		Options: opts,
	}
}

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	p := discoverPacket(t)
	encoded := p.Encode()

	if len(encoded) < MinHeaderSize {
		t.Fatalf("encoded length %d < MinHeaderSize %d", len(encoded), MinHeaderSize)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Op != p.Op || decoded.HType != p.HType || decoded.HLen != p.HLen {
		t.Errorf("header mismatch: got %+v", decoded)
	}
	if decoded.XID != p.XID {
		t.Errorf("XID = %#x, want %#x", decoded.XID, p.XID)
	}
	if !decoded.IsBroadcast() {
		t.Error("expected broadcast flag to round-trip")
	}
	if !decoded.CHAddr.Equal(p.CHAddr) {
		t.Errorf("CHAddr = %v, want %v", decoded.CHAddr, p.CHAddr)
	}
	mt, ok := decoded.Options.MessageType()
	if !ok || mt != MessageTypeDiscover {
		t.Errorf("decoded MessageType = %v, ok=%v", mt, ok)
	}
}

func TestPacketEncodeExactSize(t *testing.T) {
	p := discoverPacket(t)
	encoded := p.Encode()
	want := MinHeaderSize + len(p.Options.Encode())
	if len(encoded) != want {
		t.Errorf("encoded length = %d, want %d", len(encoded), want)
	}
}

func TestDecodeRejectsShortPacket(t *testing.T) {
	_, err := Decode(make([]byte, 100))
	if err == nil {
		t.Fatal("expected error decoding short packet")
	}
}

func TestDecodeRejectsMissingMagicCookie(t *testing.T) {
	p := discoverPacket(t)
	encoded := p.Encode()
	encoded[236] = 0x00
	_, err := Decode(encoded)
	if err == nil {
		t.Fatal("expected error decoding packet with bad magic cookie")
	}
}

func TestDecodeRejectsBadOpCode(t *testing.T) {
	p := discoverPacket(t)
	encoded := p.Encode()
	encoded[0] = 99
	_, err := Decode(encoded)
	if err == nil {
		t.Fatal("expected error decoding packet with invalid op code")
	}
}

func TestDecodeRejectsHLenOutOfRange(t *testing.T) {
	p := discoverPacket(t)
	encoded := p.Encode()
	encoded[2] = 0
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected error for hlen 0")
	}
	encoded[2] = 17
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected error for hlen > 16")
	}
}

func TestPacketSNameFileTrimming(t *testing.T) {
	p := discoverPacket(t)
	p.SName = []byte("pxeserver")
	p.File = []byte("pxelinux.0")
	encoded := p.Encode()

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(decoded.SName) != "pxeserver" {
		t.Errorf("SName = %q, want %q", decoded.SName, "pxeserver")
	}
	if string(decoded.File) != "pxelinux.0" {
		t.Errorf("File = %q, want %q", decoded.File, "pxelinux.0")
	}
}
