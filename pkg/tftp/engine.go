package tftp

import "io"

// state names the phase a Reader/Writer transaction is in.
type state int

const (
	stateInit state = iota
	stateOackPending
	stateTransferring
	stateClosed
)

// Reader drives the server side of a read request (RRQ): it streams
// file content to the client in negotiated-size blocks and advances on
// each matching Ack, mirroring the block-handshake of RFC 1350 §5 plus
// the one-time OACK step of RFC 2347 §2 when options were negotiated.
type Reader struct {
	file    io.ReadSeeker
	size    int64
	opts    *Options
	blksize int
	block   uint16
	state   state
	lastLen int   // payload length of the most recently generated Data block
	acked   int64 // Data blocks acknowledged so far; not subject to 16-bit wrap
}

// NewReader starts a read transaction against file, whose total size
// is size (used to answer a negotiated tsize option; the terminal block
// is detected from the length of the last Data payload, not from size).
func NewReader(file io.ReadSeeker, size int64, opts *Options) *Reader {
	blksize, _ := opts.BlockSize()
	st := stateInit
	if opts.Len() > 0 {
		st = stateOackPending
	}
	return &Reader{file: file, size: size, opts: opts, blksize: blksize, state: st}
}

// Closed reports whether the transaction has terminated, successfully
// or otherwise.
func (r *Reader) Closed() bool { return r.state == stateClosed }

// Close tears down the transaction; it is safe to call repeatedly.
func (r *Reader) Close() {
	r.state = stateClosed
}

// Generate returns the packet the server should (re-)send for the
// current state: the OACK on first call if options were negotiated,
// otherwise the current data block. Generate is idempotent so the
// caller can retransmit on a retransmission timer without advancing
// state.
func (r *Reader) Generate() (Packet, error) {
	switch r.state {
	case stateClosed:
		return nil, nil
	case stateOackPending:
		var opts []Option
		if r.blksize != DefaultBlockSize {
			opts = append(opts, Option{Name: OptionBlockSize, Value: itoa(r.blksize)})
		}
		if _, ok := r.opts.TransferSize(); ok {
			opts = append(opts, Option{Name: OptionTransferSize, Value: itoa64(r.size)})
		}
		if timeout, ok := r.opts.Timeout(); ok {
			opts = append(opts, Option{Name: OptionTimeout, Value: itoa(timeout)})
		}
		return &OptionAck{Options: NewOptions(opts)}, nil
	default:
		index := r.acked * int64(r.blksize)
		if _, err := r.file.Seek(index, io.SeekStart); err != nil {
			return nil, err
		}
		buf := make([]byte, r.blksize)
		n, err := io.ReadFull(r.file, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		r.lastLen = n
		return &Data{Block: r.block + 1, Bytes: buf[:n]}, nil
	}
}

// Next consumes the client's reply to the last Generate()'d packet and
// reports whether the transaction continues (true) or has completed
// (false). It returns a *BadBlockError, *PeerError, or
// *UnexpectedOpcodeError for protocol violations.
func (r *Reader) Next(pkt Packet) (bool, error) {
	if r.state == stateClosed {
		return false, nil
	}
	if errPkt, ok := pkt.(*ErrorPacket); ok {
		r.Close()
		return false, &PeerError{Code: errPkt.Code, Message: errPkt.Message}
	}
	ack, ok := pkt.(*Ack)
	if !ok {
		r.Close()
		return false, &UnexpectedOpcodeError{Got: pkt.Opcode()}
	}

	if r.state == stateOackPending {
		if ack.Block != 0 {
			r.Close()
			return false, &BadBlockError{Given: ack.Block, Expected: 0}
		}
		r.state = stateTransferring
		return true, nil
	}

	if ack.Block != nextBlock(r.block) {
		r.Close()
		return false, &BadBlockError{Given: ack.Block, Expected: nextBlock(r.block)}
	}
	r.block = ack.Block
	r.acked++

	// RFC 1350 §5: the transfer ends on the block shorter than the
	// negotiated block size, including a zero-length block when the
	// file size is an exact multiple of blksize — never by comparing
	// against size directly, which would skip that terminal block.
	if r.lastLen < r.blksize {
		r.Close()
		return false, nil
	}
	return true, nil
}

// Writer drives the server side of a write request (WRQ): it accepts
// sequential Data blocks, appending each to file, until a block
// shorter than the negotiated block size marks the terminal block
// (RFC 1350 §5).
type Writer struct {
	file    io.Writer
	opts    *Options
	blksize int
	block   uint16
	state   state
	done    bool // the terminal Data block was accepted and still needs its Ack
}

// NewWriter starts a write transaction writing into file.
func NewWriter(file io.Writer, opts *Options) *Writer {
	blksize, _ := opts.BlockSize()
	st := stateInit
	if opts.Len() > 0 {
		st = stateOackPending
	}
	return &Writer{file: file, opts: opts, blksize: blksize, state: st}
}

// Closed reports whether the transaction has terminated.
func (w *Writer) Closed() bool { return w.state == stateClosed }

// Close tears down the transaction; safe to call repeatedly.
func (w *Writer) Close() {
	w.state = stateClosed
}

// Generate replies with an Ack of the current block (or an OACK, for
// the very first reply when options were negotiated), inviting the next
// Data block from the client. After the terminal block it returns that
// block's final Ack; after any other close it returns nil.
func (w *Writer) Generate() (Packet, error) {
	switch w.state {
	case stateClosed:
		if w.done {
			return &Ack{Block: w.block}, nil
		}
		return nil, nil
	case stateOackPending:
		var opts []Option
		if w.blksize != DefaultBlockSize {
			opts = append(opts, Option{Name: OptionBlockSize, Value: itoa(w.blksize)})
		}
		if timeout, ok := w.opts.Timeout(); ok {
			opts = append(opts, Option{Name: OptionTimeout, Value: itoa(timeout)})
		}
		if tsize, ok := w.opts.TransferSize(); ok {
			opts = append(opts, Option{Name: OptionTransferSize, Value: itoa64(tsize)})
		}
		return &OptionAck{Options: NewOptions(opts)}, nil
	default:
		return &Ack{Block: w.block}, nil
	}
}

// Next consumes an incoming Data packet, writes its payload, and
// reports whether more data is expected (true) or the transfer is
// complete (false) per the short-block terminal rule.
func (w *Writer) Next(pkt Packet) (bool, error) {
	if w.state == stateClosed {
		return false, nil
	}
	if errPkt, ok := pkt.(*ErrorPacket); ok {
		w.Close()
		return false, &PeerError{Code: errPkt.Code, Message: errPkt.Message}
	}

	if w.state == stateOackPending {
		data, ok := pkt.(*Data)
		if !ok {
			w.Close()
			return false, &UnexpectedOpcodeError{Got: pkt.Opcode()}
		}
		w.state = stateTransferring
		return w.acceptData(data)
	}

	data, ok := pkt.(*Data)
	if !ok {
		w.Close()
		return false, &UnexpectedOpcodeError{Got: pkt.Opcode()}
	}
	return w.acceptData(data)
}

func (w *Writer) acceptData(data *Data) (bool, error) {
	if data.Block != nextBlock(w.block) {
		w.Close()
		return false, &BadBlockError{Given: data.Block, Expected: nextBlock(w.block)}
	}
	if len(data.Bytes) > w.blksize {
		w.Close()
		return false, &ServerError{Code: ErrorIllegalOperation, Message: "data block exceeds negotiated block size"}
	}
	if _, err := w.file.Write(data.Bytes); err != nil {
		w.Close()
		return false, err
	}
	w.block = data.Block
	if len(data.Bytes) < w.blksize {
		w.done = true
		w.Close()
		return false, nil
	}
	return true, nil
}

// nextBlock advances a block counter, wrapping from 65535 back to 0
// (RFC 1350's block number is a 16-bit field with no reserved value).
func nextBlock(b uint16) uint16 {
	if b == MaxBlockNumber {
		return 0
	}
	return b + 1
}
