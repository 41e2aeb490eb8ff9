package tftpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/netbootd/bootd/internal/metrics"
	"github.com/netbootd/bootd/pkg/tftp"
)

// DefaultIdleTimeout is how long a transaction may sit without a
// matching reply before the idle sweeper reclaims it.
const DefaultIdleTimeout = 60 * time.Second

// transaction is the common shape of *tftp.Reader and *tftp.Writer:
// the server drives either one without caring which.
type transaction interface {
	Generate() (tftp.Packet, error)
	Next(pkt tftp.Packet) (bool, error)
	Closed() bool
	Close()
}

type session struct {
	op       tftp.OpCode
	filename string
	peer     *net.UDPAddr
	txn      transaction
	buffer   io.ReadSeeker // the provider's handle, handed to Completion rewound to 0
	lastSeen time.Time
}

// Server is the TFTP UDP server.
type Server struct {
	// Addr is the UDP listen address, e.g. ":69".
	Addr string
	// IdleTimeout bounds how long a session may go without activity
	// before the sweeper tears it down. Zero uses DefaultIdleTimeout.
	IdleTimeout time.Duration

	ReadProvider  ReadProvider
	WriteProvider WriteProvider
	Completion    Completion
	Logger        *slog.Logger

	conn *net.UDPConn
	wg   sync.WaitGroup
	done chan struct{}

	mu       sync.Mutex
	sessions map[string]*session
}

// Start begins listening for TFTP packets and starts the idle sweeper.
func (s *Server) Start(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", tftp.ServerPort)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	s.sessions = make(map[string]*session)
	s.done = make(chan struct{})

	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return fmt.Errorf("tftpd: listening on %s: %w", addr, err)
	}
	s.conn = conn.(*net.UDPConn)

	s.Logger.Info("tftp server started", "address", addr)

	s.wg.Add(2)
	go s.serve(ctx)
	go s.sweep(ctx)
	return nil
}

func (s *Server) serve(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, tftp.MaxBlockSize+512)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.Logger.Error("reading udp packet", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		s.handlePacket(ctx, data, addr)
	}
}

func (s *Server) handlePacket(ctx context.Context, data []byte, peer *net.UDPAddr) {
	pkt, err := tftp.Decode(data)
	if err != nil {
		s.Logger.Warn("dropping malformed tftp packet", "error", err, "peer", peer.String())
		return
	}

	key := peer.String()

	s.mu.Lock()
	sess, exists := s.sessions[key]
	s.mu.Unlock()

	if req, isRequest := pkt.(*tftp.Request); isRequest {
		if exists {
			s.killSession(key, sess)
		}
		s.startSession(ctx, req, peer, key)
		return
	}

	if !exists {
		s.sendError(peer, &tftp.ErrorPacket{Code: tftp.ErrorIllegalOperation, Message: "expected a request, no active transaction"})
		return
	}

	s.mu.Lock()
	sess.lastSeen = time.Now()
	s.mu.Unlock()

	if _, ok := pkt.(*tftp.Data); ok {
		metrics.TFTPBlocksTransferred.WithLabelValues("received").Inc()
	}

	more, err := sess.txn.Next(pkt)
	if err != nil {
		s.reportFailure(ctx, sess, key, err)
		return
	}

	reply, genErr := sess.txn.Generate()
	if genErr != nil {
		s.reportFailure(ctx, sess, key, genErr)
		return
	}
	if reply != nil {
		s.send(peer, reply)
		tallyOutgoing(reply)
	}
	if !more {
		s.finishSession(ctx, sess, key, nil)
	}
}

func (s *Server) startSession(ctx context.Context, req *tftp.Request, peer *net.UDPAddr, key string) {
	metrics.TFTPSessionsStarted.WithLabelValues(req.Op.String()).Inc()

	var txn transaction
	var buffer io.ReadSeeker
	switch req.Op {
	case tftp.OpReadRequest:
		if s.ReadProvider == nil {
			s.sendError(peer, &tftp.ErrorPacket{Code: tftp.ErrorAccessViolation, Message: "reads not permitted"})
			return
		}
		file, size, err := s.ReadProvider.OpenRead(ctx, req.Filename, peer)
		if err != nil || file == nil {
			s.sendError(peer, &tftp.ErrorPacket{Code: tftp.ErrorFileNotFound, Message: "file not found"})
			metrics.TFTPSessionsCompleted.WithLabelValues(req.Op.String(), "error").Inc()
			return
		}
		txn = tftp.NewReader(file, size, req.Options)
		buffer = file
	case tftp.OpWriteRequest:
		if s.WriteProvider == nil {
			s.sendError(peer, &tftp.ErrorPacket{Code: tftp.ErrorAccessViolation, Message: "writes not permitted"})
			return
		}
		file, err := s.WriteProvider.OpenWrite(ctx, req.Filename, peer)
		if err != nil || file == nil {
			s.sendError(peer, &tftp.ErrorPacket{Code: tftp.ErrorFileAlreadyExists, Message: "file already exists"})
			metrics.TFTPSessionsCompleted.WithLabelValues(req.Op.String(), "error").Inc()
			return
		}
		txn = tftp.NewWriter(file, req.Options)
		buffer = file
	default:
		s.sendError(peer, &tftp.ErrorPacket{Code: tftp.ErrorIllegalOperation, Message: "unsupported request op"})
		return
	}

	sess := &session{op: req.Op, filename: req.Filename, peer: peer, txn: txn, buffer: buffer, lastSeen: time.Now()}
	s.mu.Lock()
	s.sessions[key] = sess
	metrics.TFTPSessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	reply, err := txn.Generate()
	if err != nil {
		s.reportFailure(ctx, sess, key, err)
		return
	}
	if reply != nil {
		s.send(peer, reply)
		tallyOutgoing(reply)
	}
}

func (s *Server) reportFailure(ctx context.Context, sess *session, key string, err error) {
	code := tftp.ErrorIllegalOperation
	var peerErr *tftp.PeerError
	var badBlock *tftp.BadBlockError
	var serverErr *tftp.ServerError
	switch {
	case errors.As(err, &peerErr):
		// The peer already told us it errored out — nothing to send back.
		s.finishSession(ctx, sess, key, err)
		return
	case errors.As(err, &badBlock):
		code = tftp.ErrorIllegalOperation
	case errors.As(err, &serverErr):
		code = serverErr.Code
	}
	s.sendError(sess.peer, &tftp.ErrorPacket{Code: code, Message: err.Error()})
	s.finishSession(ctx, sess, key, err)
}

func (s *Server) finishSession(ctx context.Context, sess *session, key string, err error) {
	s.killSession(key, sess)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.TFTPSessionsCompleted.WithLabelValues(sess.op.String(), outcome).Inc()
	if s.Completion != nil {
		var buffer io.ReadSeeker
		if sess.buffer != nil {
			if _, serr := sess.buffer.Seek(0, io.SeekStart); serr == nil {
				buffer = sess.buffer
			} else {
				s.Logger.Warn("rewinding completion buffer", "error", serr, "filename", sess.filename)
			}
		}
		s.Completion.OnComplete(ctx, sess.op, sess.filename, sess.peer, buffer, err)
	}
}

func (s *Server) killSession(key string, sess *session) {
	sess.txn.Close()
	s.mu.Lock()
	delete(s.sessions, key)
	metrics.TFTPSessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

func (s *Server) send(peer *net.UDPAddr, pkt tftp.Packet) {
	if _, err := s.conn.WriteToUDP(pkt.Encode(), peer); err != nil {
		s.Logger.Error("sending tftp packet", "error", err, "peer", peer.String())
	}
}

func (s *Server) sendError(peer *net.UDPAddr, pkt *tftp.ErrorPacket) {
	s.send(peer, pkt)
	metrics.TFTPErrorsSent.WithLabelValues(pkt.Code.String()).Inc()
}

func tallyOutgoing(pkt tftp.Packet) {
	if _, ok := pkt.(*tftp.Data); ok {
		metrics.TFTPBlocksTransferred.WithLabelValues("sent").Inc()
	}
}

// sweep periodically reclaims sessions that have gone idle past
// IdleTimeout — a client that vanishes mid-transfer would otherwise
// leak a session (and, through Completion, whatever file handle the
// provider opened) forever.
func (s *Server) sweep(ctx context.Context) {
	defer s.wg.Done()
	interval := s.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.reapIdle(ctx)
		}
	}
}

func (s *Server) reapIdle(ctx context.Context) {
	deadline := time.Now().Add(-s.IdleTimeout)

	s.mu.Lock()
	var stale []struct {
		key  string
		sess *session
	}
	for key, sess := range s.sessions {
		if sess.lastSeen.Before(deadline) {
			stale = append(stale, struct {
				key  string
				sess *session
			}{key, sess})
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		metrics.TFTPIdleReaped.Inc()
		s.finishSession(ctx, e.sess, e.key, fmt.Errorf("tftpd: session idle past %s", s.IdleTimeout))
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
	s.Logger.Info("tftp server stopped")
}
