package dhcpv4

import (
	"errors"
	"reflect"
	"testing"

	"github.com/netbootd/bootd/pkg/wire"
)

func TestOptionsAddGetLastWins(t *testing.T) {
	o := NewOptions()
	o.Add(OptionHostname, []byte("first"))
	o.Add(OptionHostname, []byte("second"))

	got, ok := o.Get(OptionHostname)
	if !ok {
		t.Fatal("Get returned ok=false")
	}
	if string(got.Data) != "second" {
		t.Errorf("Get = %q, want %q (last wins)", got.Data, "second")
	}

	all := o.All()
	if len(all) != 2 {
		t.Fatalf("All() len = %d, want 2 (duplicates preserved)", len(all))
	}
	if string(all[0].Data) != "first" || string(all[1].Data) != "second" {
		t.Errorf("All() order = %v, want insertion order", all)
	}
}

func TestOptionsEncodeDecodeRoundTrip(t *testing.T) {
	o := NewOptions()
	o.SetMessageType(MessageTypeDiscover)
	o.SetIPv4(OptionRequestedIPAddress, wire.IPv4{192, 168, 1, 10})
	o.SetParameterRequestList([]OptionCode{OptionSubnetMask, OptionRouter, OptionDomainNameServer})

	encoded := o.Encode()
	if encoded[len(encoded)-1] != byte(OptionEnd) {
		t.Fatalf("Encode() does not end with OptionEnd terminator")
	}

	decoded, err := DecodeOptions(encoded[:len(encoded)-1])
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}

	mt, ok := decoded.MessageType()
	if !ok || mt != MessageTypeDiscover {
		t.Errorf("decoded MessageType = %v, ok=%v", mt, ok)
	}

	ip, ok := decoded.IPv4Of(OptionRequestedIPAddress)
	if !ok || ip != (wire.IPv4{192, 168, 1, 10}) {
		t.Errorf("decoded RequestedIPAddress = %v, ok=%v", ip, ok)
	}

	prl, ok := decoded.ParameterRequestList()
	want := []OptionCode{OptionSubnetMask, OptionRouter, OptionDomainNameServer}
	if !ok || !reflect.DeepEqual(prl, want) {
		t.Errorf("decoded ParameterRequestList = %v, want %v", prl, want)
	}
}

func TestDecodeOptionsHandlesPad(t *testing.T) {
	data := []byte{byte(OptionPad), byte(OptionPad), byte(OptionDHCPMessageType), 1, byte(MessageTypeAck), byte(OptionEnd)}
	opts, err := DecodeOptions(data)
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	mt, ok := opts.MessageType()
	if !ok || mt != MessageTypeAck {
		t.Errorf("MessageType = %v, ok=%v", mt, ok)
	}
}

func TestDecodeOptionsStopsAtEnd(t *testing.T) {
	data := []byte{byte(OptionDHCPMessageType), 1, byte(MessageTypeAck), byte(OptionEnd), byte(OptionRouter), 4, 1, 2, 3, 4}
	opts, err := DecodeOptions(data)
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if opts.Has(OptionRouter) {
		t.Error("option after End terminator should not be decoded")
	}
}

func TestDecodeOptionsTruncatedPayload(t *testing.T) {
	data := []byte{byte(OptionRouter), 4, 1, 2}
	_, err := DecodeOptions(data)
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestDecodeOptionsRejectsBadFixedLength(t *testing.T) {
	// SubnetMask must be exactly 4 bytes; 3 is malformed.
	data := []byte{byte(OptionSubnetMask), 3, 255, 255, 0, byte(OptionEnd)}
	_, err := DecodeOptions(data)
	if err == nil {
		t.Fatal("expected BadOptionLength error")
	}
	var badLen *BadOptionLength
	if !errors.As(err, &badLen) {
		t.Fatalf("error = %v, want *BadOptionLength", err)
	}
	if badLen.Code != OptionSubnetMask || badLen.Got != 3 || badLen.Expected != 4 {
		t.Errorf("BadOptionLength = %+v, want {SubnetMask 3 4}", badLen)
	}
}

func TestClientSystemArchitecturesRoundTrip(t *testing.T) {
	o := NewOptions()
	o.SetClientSystemArchitectures([]uint16{0x0000, 0x0007})

	encoded := o.Encode()
	decoded, err := DecodeOptions(encoded[:len(encoded)-1])
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	archs, ok := decoded.ClientSystemArchitectures()
	if !ok || !reflect.DeepEqual(archs, []uint16{0x0000, 0x0007}) {
		t.Errorf("ClientSystemArchitectures = %v, ok=%v", archs, ok)
	}
}

func TestClientMachineIdentifierRoundTrip(t *testing.T) {
	o := NewOptions()
	var guid [16]byte
	for i := range guid {
		guid[i] = byte(i)
	}
	o.SetClientMachineIdentifier(guid)

	encoded := o.Encode()
	decoded, err := DecodeOptions(encoded[:len(encoded)-1])
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	got, ok := decoded.ClientMachineIdentifier()
	if !ok || got != guid {
		t.Errorf("ClientMachineIdentifier = %v, ok=%v", got, ok)
	}
}
