// Package dhcpd implements a pluggable, policy-free DHCPv4 server: it
// owns the UDP transport, flood guard, and reply-addressing rules of
// RFC 2131 §4.1, and defers every allocation decision to a Decider
// supplied by the caller.
package dhcpd

import (
	"context"
	"net"

	"github.com/netbootd/bootd/pkg/dhcpv4"
)

// Decider is the caller-supplied policy hook: given a decoded, valid
// BOOTREQUEST and the address it arrived from, it returns the
// BOOTREPLY packet to send (Options populated with message type 53
// and whatever else the policy wants), or (nil, nil) to send no
// reply at all. The server has no opinion on lease state, pools, or
// PXE boot-menu selection — all of that lives in the Decider.
type Decider interface {
	Decide(ctx context.Context, req *dhcpv4.Packet, src *net.UDPAddr) (*dhcpv4.Packet, error)
}

// DeciderFunc adapts a plain function to the Decider interface.
type DeciderFunc func(ctx context.Context, req *dhcpv4.Packet, src *net.UDPAddr) (*dhcpv4.Packet, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, req *dhcpv4.Packet, src *net.UDPAddr) (*dhcpv4.Packet, error) {
	return f(ctx, req, src)
}
