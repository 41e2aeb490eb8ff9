package tftp

import (
	"bytes"
	"encoding/binary"

	"github.com/netbootd/bootd/pkg/wire"
)

// Packet is the common interface satisfied by every TFTP packet type.
// Encode serializes to wire bytes; Opcode reports the packet's type
// without a type switch.
type Packet interface {
	Opcode() OpCode
	Encode() []byte
}

// Request is a read (RRQ) or write (WRQ) request packet (RFC 1350 §5,
// extended with the option list of RFC 2347 §2).
type Request struct {
	Op       OpCode // OpReadRequest or OpWriteRequest
	Filename string
	Mode     Mode
	Options  *Options
}

func (r *Request) Opcode() OpCode { return r.Op }

func (r *Request) Encode() []byte {
	buf := make([]byte, 2, 2+len(r.Filename)+1+len(r.Mode)+1)
	binary.BigEndian.PutUint16(buf, uint16(r.Op))
	buf = append(buf, r.Filename...)
	buf = append(buf, 0)
	buf = append(buf, string(r.Mode)...)
	buf = append(buf, 0)
	for _, opt := range r.Options.All() {
		buf = appendOption(buf, opt)
	}
	return buf
}

// OptionAck acknowledges the subset of requested options the server
// accepted (RFC 2347 §2); an empty option list means none negotiated.
type OptionAck struct {
	Options *Options
}

func (o *OptionAck) Opcode() OpCode { return OpOptionAck }

func (o *OptionAck) Encode() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(OpOptionAck))
	for _, opt := range o.Options.All() {
		buf = appendOption(buf, opt)
	}
	return buf
}

// Ack acknowledges receipt of the data block Block (RFC 1350 §5).
// Block 0 acknowledges a Request or an OptionAck.
type Ack struct {
	Block uint16
}

func (a *Ack) Opcode() OpCode { return OpAck }

func (a *Ack) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpAck))
	binary.BigEndian.PutUint16(buf[2:4], a.Block)
	return buf
}

// Data carries one block of file content (RFC 1350 §5). A Data packet
// shorter than the negotiated block size is the terminal block.
type Data struct {
	Block uint16
	Bytes []byte
}

func (d *Data) Opcode() OpCode { return OpData }

func (d *Data) Encode() []byte {
	buf := make([]byte, 4+len(d.Bytes))
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpData))
	binary.BigEndian.PutUint16(buf[2:4], d.Block)
	copy(buf[4:], d.Bytes)
	return buf
}

// ErrorPacket reports a terminal failure condition to the peer (RFC
// 1350 §5). It is never acknowledged and always ends the transaction.
type ErrorPacket struct {
	Code    ErrorCode
	Message string
}

func (e *ErrorPacket) Opcode() OpCode { return OpError }

func (e *ErrorPacket) Encode() []byte {
	buf := make([]byte, 4, 4+len(e.Message)+1)
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpError))
	binary.BigEndian.PutUint16(buf[2:4], uint16(e.Code))
	buf = append(buf, e.Message...)
	buf = append(buf, 0)
	return buf
}

// Decode dispatches on the packet's leading opcode and parses the
// remainder into the matching concrete Packet type.
func Decode(data []byte) (Packet, error) {
	if len(data) < 2 {
		return nil, &wire.TruncatedError{What: "tftp opcode", Need: 2, Have: len(data)}
	}
	op := OpCode(binary.BigEndian.Uint16(data[0:2]))
	switch op {
	case OpReadRequest, OpWriteRequest:
		return decodeRequest(op, data[2:])
	case OpOptionAck:
		opts, err := decodeOptions(data[2:])
		if err != nil {
			return nil, err
		}
		return &OptionAck{Options: NewOptions(opts)}, nil
	case OpAck:
		if len(data) < 4 {
			return nil, &wire.TruncatedError{What: "ack block", Need: 4, Have: len(data)}
		}
		return &Ack{Block: binary.BigEndian.Uint16(data[2:4])}, nil
	case OpData:
		if len(data) < 4 {
			return nil, &wire.TruncatedError{What: "data header", Need: 4, Have: len(data)}
		}
		b := make([]byte, len(data)-4)
		copy(b, data[4:])
		return &Data{Block: binary.BigEndian.Uint16(data[2:4]), Bytes: b}, nil
	case OpError:
		if len(data) < 4 {
			return nil, &wire.TruncatedError{What: "error header", Need: 4, Have: len(data)}
		}
		msg, _ := wire.ReadCString(data[4:])
		return &ErrorPacket{Code: ErrorCode(binary.BigEndian.Uint16(data[2:4])), Message: string(msg)}, nil
	default:
		return nil, &wire.BadEnumValueError{Table: "tftp.OpCode", Value: uint64(op)}
	}
}

func decodeRequest(op OpCode, data []byte) (*Request, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return nil, &ServerError{Code: ErrorIllegalOperation, Message: "request filename missing NUL terminator"}
	}
	filename := data[:i]
	data = data[i+1:]

	j := bytes.IndexByte(data, 0)
	if j < 0 {
		return nil, &ServerError{Code: ErrorIllegalOperation, Message: "request mode missing NUL terminator"}
	}
	modeBytes := data[:j]
	data = data[j+1:]

	opts, err := decodeOptions(data)
	if err != nil {
		return nil, err
	}
	return &Request{
		Op:       op,
		Filename: string(filename),
		Mode:     Mode(modeBytes),
		Options:  NewOptions(opts),
	}, nil
}
