// Package tftpd implements the per-client transaction-driven TFTP
// server: a UDP listener that demultiplexes packets onto a session per
// peer address, drives each session's Reader/Writer state machine, and
// reports file content through caller-supplied providers.
package tftpd

import (
	"context"
	"io"
	"net"

	"github.com/netbootd/bootd/pkg/tftp"
)

// ReadProvider resolves a read request (RRQ) to readable content. Any
// error, or a nil reader with a nil error, makes the server reply
// Error(FileNotFound) without opening a session.
type ReadProvider interface {
	OpenRead(ctx context.Context, filename string, peer *net.UDPAddr) (file io.ReadSeeker, size int64, err error)
}

// WriteProvider resolves a write request (WRQ) to a destination. Any
// error, or a nil buffer with a nil error, makes the server reply
// Error(FileAlreadyExists) without opening a session. The returned
// buffer must support Seek so the server can rewind it to offset 0
// before handing it to Completion.
type WriteProvider interface {
	OpenWrite(ctx context.Context, filename string, peer *net.UDPAddr) (file io.ReadWriteSeeker, err error)
}

// Completion is notified when a session reaches a terminal state,
// successfully or not, so the caller can release resources tied to the
// file handles it gave out (close a bbolt transaction, an os.File, ...).
// buffer is the same handle the provider returned from OpenRead/
// OpenWrite, rewound to offset 0 so the callback can read back
// exactly what was transferred; it is nil if that rewind failed.
// Requests the provider refused never open a session and are not
// reported here.
type Completion interface {
	OnComplete(ctx context.Context, op tftp.OpCode, filename string, peer *net.UDPAddr, buffer io.ReadSeeker, err error)
}

// notFoundError and alreadyExistsError are the errors built by
// NewFileNotFoundError and NewFileAlreadyExistsError for providers to
// return.
type notFoundError struct{ filename string }

func (e *notFoundError) Error() string { return "tftpd: file not found: " + e.filename }

type alreadyExistsError struct{ filename string }

func (e *alreadyExistsError) Error() string { return "tftpd: file already exists: " + e.filename }

// NewFileNotFoundError constructs the sentinel a ReadProvider returns
// for a missing file.
func NewFileNotFoundError(filename string) error { return &notFoundError{filename} }

// NewFileAlreadyExistsError constructs the sentinel a WriteProvider
// returns when it refuses to overwrite an existing destination.
func NewFileAlreadyExistsError(filename string) error { return &alreadyExistsError{filename} }
