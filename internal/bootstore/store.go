// Package bootstore provides a transactional, BoltDB-backed store for
// the boot images a TFTP server hands out (pxelinux.0, kernel images,
// initrds, ...), implementing tftpd's ReadProvider/WriteProvider so a
// server can be wired directly to it.
package bootstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"

	bolt "go.etcd.io/bbolt"

	"github.com/netbootd/bootd/internal/tftpd"
	"github.com/netbootd/bootd/pkg/tftp"
)

var bucketImages = []byte("images")

// Store persists boot images in a single BoltDB file, one key per
// filename. Reads copy the stored bytes into an in-memory
// io.ReadSeeker so a TFTP Reader can seek freely without holding a
// database transaction open for the lifetime of the transfer; writes
// buffer in memory via a seekableBuffer and commit on Completion, so a
// client that never finishes never leaves a partial image visible to
// readers.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the BoltDB file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("bootstore: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstore: initializing bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores content under filename directly, bypassing the
// write-transaction flow — used to seed images at startup.
func (s *Store) Put(filename string, content []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).Put([]byte(filename), content)
	})
}

// OpenRead implements tftpd.ReadProvider.
func (s *Store) OpenRead(_ context.Context, filename string, _ *net.UDPAddr) (io.ReadSeeker, int64, error) {
	var content []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketImages).Get([]byte(filename))
		if v == nil {
			return tftpd.NewFileNotFoundError(filename)
		}
		content = make([]byte, len(v))
		copy(content, v)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(content), int64(len(content)), nil
}

// OpenWrite implements tftpd.WriteProvider: refuses to overwrite an
// existing key and returns a seekableBuffer the server fills with
// incoming Data payloads and, on completion, rewinds and hands back to
// OnComplete.
func (s *Store) OpenWrite(_ context.Context, filename string, _ *net.UDPAddr) (io.ReadWriteSeeker, error) {
	exists := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketImages).Get([]byte(filename)) != nil
		return nil
	})
	if exists {
		return nil, tftpd.NewFileAlreadyExistsError(filename)
	}
	return &seekableBuffer{}, nil
}

// OnComplete implements tftpd.Completion: a successful write request
// commits buffer's content to BoltDB; any other outcome (read
// completion, or a write that failed mid-transfer) is ignored.
func (s *Store) OnComplete(_ context.Context, op tftp.OpCode, filename string, _ *net.UDPAddr, buffer io.ReadSeeker, err error) {
	if op != tftp.OpWriteRequest || err != nil || buffer == nil {
		return
	}
	content, readErr := io.ReadAll(buffer)
	if readErr != nil {
		return
	}
	_ = s.Put(filename, content)
}

// seekableBuffer is an in-memory io.ReadWriteSeeker: Write appends, and
// the first Read or Seek call snapshots the accumulated bytes into a
// bytes.Reader. It assumes writes and reads don't interleave, which
// holds here — the server only rewinds and reads the buffer back after
// the write transaction has fully completed.
type seekableBuffer struct {
	buf    bytes.Buffer
	reader *bytes.Reader
}

func (b *seekableBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *seekableBuffer) Read(p []byte) (int, error) {
	b.ensureReader()
	return b.reader.Read(p)
}

func (b *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	b.ensureReader()
	return b.reader.Seek(offset, whence)
}

func (b *seekableBuffer) ensureReader() {
	if b.reader == nil {
		b.reader = bytes.NewReader(b.buf.Bytes())
	}
}
