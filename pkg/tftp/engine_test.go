package tftp

import (
	"bytes"
	"testing"
)

func TestReaderFullTransferWithOACK(t *testing.T) {
	content := bytes.Repeat([]byte{0xAB}, 3000)
	file := bytes.NewReader(content)
	opts := NewOptions([]Option{{Name: OptionBlockSize, Value: "1000"}, {Name: OptionTransferSize, Value: "0"}})
	r := NewReader(file, int64(len(content)), opts)

	pkt, err := r.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	oack, ok := pkt.(*OptionAck)
	if !ok {
		t.Fatalf("first Generate() = %T, want *OptionAck", pkt)
	}
	bs, _ := oack.Options.BlockSize()
	if bs != 1000 {
		t.Errorf("OACK blksize = %d, want 1000", bs)
	}
	tsize, ok := oack.Options.TransferSize()
	if !ok || tsize != 3000 {
		t.Errorf("OACK tsize = %d, ok=%v, want 3000", tsize, ok)
	}

	more, err := r.Next(&Ack{Block: 0})
	if err != nil || !more {
		t.Fatalf("Next(ack0) = %v, %v", more, err)
	}

	var blocksSeen int
	var lastData *Data
	for block := uint16(1); ; block++ {
		pkt, err := r.Generate()
		if err != nil {
			t.Fatalf("Generate block %d: %v", block, err)
		}
		data, ok := pkt.(*Data)
		if !ok {
			t.Fatalf("Generate block %d = %T, want *Data", block, pkt)
		}
		if data.Block != block {
			t.Errorf("Data.Block = %d, want %d", data.Block, block)
		}
		blocksSeen++
		lastData = data

		more, err := r.Next(&Ack{Block: block})
		if err != nil {
			t.Fatalf("Next(ack%d): %v", block, err)
		}
		if !more {
			break
		}
	}

	// 3000 bytes / 1000 blksize is an exact multiple, so the transfer
	// must end on an extra zero-length terminal block (RFC 1350 §5):
	// Data(1,1000B), Data(2,1000B), Data(3,1000B), Data(4,0B).
	if blocksSeen != 4 {
		t.Errorf("transferred %d blocks, want 4 (3 full blocks + zero-length terminal block)", blocksSeen)
	}
	if len(lastData.Bytes) != 0 {
		t.Errorf("final block length = %d, want 0", len(lastData.Bytes))
	}
	if !r.Closed() {
		t.Error("reader should be closed after final ack")
	}
}

func TestReaderTerminatesOnShortBlockWhenSizeNotMultiple(t *testing.T) {
	content := bytes.Repeat([]byte{0xCD}, 2500)
	file := bytes.NewReader(content)
	r := NewReader(file, int64(len(content)), NewOptions([]Option{{Name: OptionBlockSize, Value: "1000"}}))

	// blksize was requested, so the reader opens with an OACK that the
	// client acknowledges with Ack(0) before the first Data block.
	pkt, err := r.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := pkt.(*OptionAck); !ok {
		t.Fatalf("first Generate() = %T, want *OptionAck", pkt)
	}
	if more, err := r.Next(&Ack{Block: 0}); err != nil || !more {
		t.Fatalf("Next(ack0) = %v, %v", more, err)
	}

	var blocksSeen int
	var lastData *Data
	for block := uint16(1); ; block++ {
		pkt, err := r.Generate()
		if err != nil {
			t.Fatalf("Generate block %d: %v", block, err)
		}
		data := pkt.(*Data)
		blocksSeen++
		lastData = data

		more, err := r.Next(&Ack{Block: block})
		if err != nil {
			t.Fatalf("Next(ack%d): %v", block, err)
		}
		if !more {
			break
		}
	}

	// 2500 / 1000 is not an exact multiple, so the genuinely short
	// final block (500 bytes) is itself the terminal block — no extra
	// zero-length block follows it.
	if blocksSeen != 3 {
		t.Errorf("transferred %d blocks, want 3 (1000, 1000, 500)", blocksSeen)
	}
	if len(lastData.Bytes) != 500 {
		t.Errorf("final block length = %d, want 500", len(lastData.Bytes))
	}
	if !r.Closed() {
		t.Error("reader should be closed after final ack")
	}
}

func TestReaderBadBlockDuringOACKHandshake(t *testing.T) {
	file := bytes.NewReader([]byte("hello"))
	opts := NewOptions([]Option{{Name: OptionBlockSize, Value: "8"}})
	r := NewReader(file, 5, opts)
	if _, err := r.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	_, err := r.Next(&Ack{Block: 1})
	var bad *BadBlockError
	if err == nil {
		t.Fatal("expected BadBlockError for ack block != 0 after OACK")
	}
	if !errorsAs(err, &bad) {
		t.Errorf("err = %v (%T), want *BadBlockError", err, err)
	}
}

func TestReaderRejectsUnexpectedOpcode(t *testing.T) {
	file := bytes.NewReader([]byte("hello"))
	r := NewReader(file, 5, NewOptions(nil))
	_, err := r.Next(&Request{Op: OpReadRequest, Filename: "x", Mode: ModeOctet, Options: NewOptions(nil)})
	var unexpected *UnexpectedOpcodeError
	if !errorsAs(err, &unexpected) {
		t.Errorf("err = %v (%T), want *UnexpectedOpcodeError", err, err)
	}
}

func TestReaderPropagatesPeerError(t *testing.T) {
	file := bytes.NewReader([]byte("hello"))
	r := NewReader(file, 5, NewOptions(nil))
	_, err := r.Next(&ErrorPacket{Code: ErrorDiskFull, Message: "no space"})
	var peerErr *PeerError
	if !errorsAs(err, &peerErr) {
		t.Fatalf("err = %v (%T), want *PeerError", err, err)
	}
	if !r.Closed() {
		t.Error("reader should close on peer error")
	}
}

func TestWriterFullTransfer(t *testing.T) {
	var out bytes.Buffer
	// 8 is the smallest blksize RFC 2348 allows (MinBlockSize).
	opts := NewOptions([]Option{{Name: OptionBlockSize, Value: "8"}})
	w := NewWriter(&out, opts)

	pkt, err := w.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := pkt.(*OptionAck); !ok {
		t.Fatalf("first Generate() = %T, want *OptionAck", pkt)
	}

	more, err := w.Next(&Data{Block: 1, Bytes: []byte("abcdefgh")})
	if err != nil || !more {
		t.Fatalf("Next(data1) = %v, %v", more, err)
	}
	more, err = w.Next(&Data{Block: 2, Bytes: []byte("ij")}) // short block: terminal
	if err != nil {
		t.Fatalf("Next(data2): %v", err)
	}
	if more {
		t.Error("expected transfer to complete on short block")
	}
	if out.String() != "abcdefghij" {
		t.Errorf("written content = %q, want %q", out.String(), "abcdefghij")
	}
	if !w.Closed() {
		t.Error("writer should be closed after terminal block")
	}
}

func TestWriterRejectsBadBlock(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, NewOptions(nil))
	if _, err := w.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err := w.Next(&Data{Block: 2, Bytes: []byte("x")})
	var bad *BadBlockError
	if !errorsAs(err, &bad) {
		t.Errorf("err = %v (%T), want *BadBlockError", err, err)
	}
}

func TestWriterRejectsOversizeBlock(t *testing.T) {
	var out bytes.Buffer
	opts := NewOptions([]Option{{Name: OptionBlockSize, Value: "8"}})
	w := NewWriter(&out, opts)
	if _, err := w.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err := w.Next(&Data{Block: 1, Bytes: bytes.Repeat([]byte{0x01}, 9)})
	if err == nil {
		t.Fatal("expected error for oversize data block")
	}
}

func TestBlockNumberWrapsAt65535(t *testing.T) {
	if got := nextBlock(MaxBlockNumber); got != 0 {
		t.Errorf("nextBlock(65535) = %d, want 0", got)
	}
}

// errorsAs is a tiny local shim so tests read naturally without importing
// errors.As at every call site for these single-level wraps.
func errorsAs[T any](err error, target *T) bool {
	if v, ok := err.(T); ok {
		*target = v
		return true
	}
	return false
}
