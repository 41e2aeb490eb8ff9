package dhcpd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/netbootd/bootd/internal/metrics"
	"github.com/netbootd/bootd/pkg/dhcpv4"
)

// soBindToDevice pins the socket to a specific interface (Linux only,
// value 25). On non-Linux platforms the setsockopt call fails harmlessly.
const soBindToDevice = 25

// Server is the DHCPv4 UDP server: transport, flood guard, and RFC
// 2131 §4.1 reply addressing. It carries no lease or pool state —
// every allocation decision is delegated to a Decider.
type Server struct {
	// Addr is the UDP listen address, e.g. ":67". Empty defaults to
	// the well-known DHCP server port on all interfaces.
	Addr string
	// Interface optionally pins the listening socket to a specific
	// network interface via SO_BINDTODEVICE.
	Interface string
	// RelayAware opts into giaddr-based reply targeting for relayed
	// requests (RFC 2131 §4.1's relay branch) instead of the server's
	// default of always broadcasting direct replies. Off by default
	// because relay-agent forwarding itself is out of scope — this
	// flag only affects where a reply is addressed, not whether
	// relayed traffic is forwarded on the server's behalf.
	RelayAware bool

	Decider     Decider
	RateLimiter *RateLimiter
	Logger      *slog.Logger

	conn *net.UDPConn
	pc   *ipv4.PacketConn
	wg   sync.WaitGroup
	done chan struct{}
}

// Start begins listening for DHCP packets.
func (s *Server) Start(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", dhcpv4.ServerPort)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.RateLimiter == nil {
		s.RateLimiter = NewRateLimiter(false, 0, 0)
	}
	s.done = make(chan struct{})

	logger := s.Logger
	iface := s.Interface
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var firstErr error
			c.Control(func(fd uintptr) {
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
					logger.Warn("failed to set SO_REUSEADDR", "error", err)
				}
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
					logger.Warn("failed to set SO_BROADCAST", "error", err)
					firstErr = err
				}
				if iface != "" {
					if err := syscall.SetsockoptString(int(fd), syscall.SOL_SOCKET, soBindToDevice, iface); err != nil {
						logger.Debug("SO_BINDTODEVICE not available", "interface", iface, "error", err)
					}
				}
			})
			return firstErr
		},
	}

	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return fmt.Errorf("dhcpd: listening on %s: %w", addr, err)
	}
	s.conn = pc.(*net.UDPConn)

	// Wrapping in an ipv4.PacketConn lets replies on a multi-homed
	// broadcast server carry a ControlMessage naming the egress
	// interface, so the 255.255.255.255 reply actually leaves on the
	// interface the request arrived on instead of whatever route the
	// kernel picks for the broadcast address by default.
	s.pc = ipv4.NewPacketConn(s.conn)
	if err := s.pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		logger.Debug("ipv4 control message unsupported on this platform", "error", err)
	}

	logger.Info("dhcp server started", "address", addr, "interface", iface)

	s.wg.Add(1)
	go s.serve(ctx)
	return nil
}

func (s *Server) serve(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		buf := getBuffer()
		n, cm, src, err := s.pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.done:
				putBuffer(buf)
				return
			default:
			}
			s.Logger.Error("reading udp packet", "error", err)
			putBuffer(buf)
			continue
		}

		var ifIndex int
		if cm != nil {
			ifIndex = cm.IfIndex
		}

		s.wg.Add(1)
		go func(data []byte, length int, addr net.Addr, ifIndex int) {
			defer s.wg.Done()
			defer putBuffer(data)
			s.processPacket(ctx, data[:length], addr.(*net.UDPAddr), ifIndex)
		}(buf, n, src, ifIndex)
	}
}

func (s *Server) processPacket(ctx context.Context, data []byte, src *net.UDPAddr, ifIndex int) {
	pkt, err := dhcpv4.Decode(data)
	if err != nil {
		metrics.DHCPPacketErrors.WithLabelValues("decode").Inc()
		s.Logger.Warn("dropping malformed packet", "error", err, "src", src.String(), "size", len(data))
		return
	}
	if pkt.Op != dhcpv4.OpBootRequest {
		return
	}

	if !s.RateLimiter.Allow(pkt.CHAddr) {
		metrics.DHCPRateLimited.WithLabelValues("client").Inc()
		return
	}

	msgType, _ := pkt.Options.MessageType()
	metrics.DHCPPacketsReceived.WithLabelValues(msgType.String()).Inc()
	start := time.Now()

	reply, err := s.Decider.Decide(ctx, pkt, src)

	metrics.DHCPPacketProcessingDuration.WithLabelValues(msgType.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DHCPPacketErrors.WithLabelValues("decide").Inc()
		s.Logger.Error("deciding reply", "error", err, "mac", pkt.CHAddr.String(), "msg_type", msgType.String())
		return
	}
	if reply == nil {
		return
	}

	dst := s.replyDestination(pkt)
	cm := &ipv4.ControlMessage{IfIndex: ifIndex}

	if _, err := s.pc.WriteTo(reply.Encode(), cm, dst); err != nil {
		metrics.DHCPPacketErrors.WithLabelValues("send").Inc()
		s.Logger.Error("sending reply", "error", err, "dst", dst.String(), "mac", pkt.CHAddr.String())
		return
	}
	replyType, _ := reply.Options.MessageType()
	metrics.DHCPPacketsSent.WithLabelValues(replyType.String()).Inc()
}

// replyDestination implements the server's default reply-addressing
// rule: always the limited broadcast address, never the source peer,
// with exactly one opt-in exception for relayed requests when
// RelayAware is set (RFC 2131 §4.1's giaddr branch).
func (s *Server) replyDestination(req *dhcpv4.Packet) *net.UDPAddr {
	if s.RelayAware && !req.GIAddr.IsZero() {
		return &net.UDPAddr{IP: net.IP(req.GIAddr.Bytes()), Port: dhcpv4.ServerPort}
	}
	return &net.UDPAddr{IP: net.IPv4bcast, Port: dhcpv4.ClientPort}
}

// Stop gracefully shuts the server down, waiting for in-flight packets
// to finish processing.
func (s *Server) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
	s.Logger.Info("dhcp server stopped")
}
