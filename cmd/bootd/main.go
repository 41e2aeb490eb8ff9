// bootd — a pluggable DHCPv4 + TFTP network-boot service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netbootd/bootd/internal/bootstore"
	"github.com/netbootd/bootd/internal/config"
	"github.com/netbootd/bootd/internal/dhcpd"
	"github.com/netbootd/bootd/internal/logging"
	"github.com/netbootd/bootd/internal/tftpd"
	"github.com/netbootd/bootd/pkg/dhcpv4"
)

func main() {
	configPath := flag.String("config", "/etc/bootd/config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, os.Stdout)
	logger.Info("bootd starting", "dhcp_addr", cfg.DHCP.BindAddress, "tftp_addr", cfg.TFTP.BindAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := bootstore.Open(cfg.TFTP.ImageDB)
	if err != nil {
		logger.Error("opening boot image store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	idleTimeout, err := time.ParseDuration(cfg.TFTP.IdleTimeout)
	if err != nil {
		idleTimeout = tftpd.DefaultIdleTimeout
	}

	dhcpServer := &dhcpd.Server{
		Addr:        cfg.DHCP.BindAddress,
		Interface:   cfg.DHCP.Interface,
		RelayAware:  cfg.DHCP.RelayAware,
		Decider:     dhcpd.DeciderFunc(exampleDecider),
		RateLimiter: dhcpd.NewRateLimiter(cfg.DHCP.RateLimit.Enabled, cfg.DHCP.RateLimit.GlobalPerSec, cfg.DHCP.RateLimit.PerClientPerSec),
		Logger:      logger,
	}
	if err := dhcpServer.Start(ctx); err != nil {
		logger.Error("starting dhcp server", "error", err)
		os.Exit(1)
	}
	defer dhcpServer.Stop()

	tftpServer := &tftpd.Server{
		Addr:          cfg.TFTP.BindAddress,
		IdleTimeout:   idleTimeout,
		ReadProvider:  store,
		WriteProvider: store,
		Completion:    store,
		Logger:        logger,
	}
	if err := tftpServer.Start(ctx); err != nil {
		logger.Error("starting tftp server", "error", err)
		os.Exit(1)
	}
	defer tftpServer.Stop()

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			logger.Info("metrics server listening", "address", cfg.Metrics.Listen)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer metricsSrv.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("bootd shutting down")
}

// exampleDecider is a minimal, non-policy-bearing example wiring: it
// always answers DHCPDISCOVER/DHCPREQUEST with an unconfigured NAK-free
// placeholder reply, adding the fixed bootfile name "pxelinux.0"
// whenever the client reports a PXE architecture (option 93). The
// architecture code itself is not inspected and no next-server address
// is set. Real deployments replace this with a Decider backed by
// actual lease/pool allocation.
func exampleDecider(_ context.Context, req *dhcpv4.Packet, _ *net.UDPAddr) (*dhcpv4.Packet, error) {
	msgType, ok := req.Options.MessageType()
	if !ok {
		return nil, nil
	}

	reply := &dhcpv4.Packet{
		Op:      dhcpv4.OpBootReply,
		HType:   req.HType,
		HLen:    req.HLen,
		XID:     req.XID,
		Flags:   req.Flags,
		CHAddr:  req.CHAddr,
		Options: dhcpv4.NewOptions(),
	}

	switch msgType {
	case dhcpv4.MessageTypeDiscover:
		reply.Options.SetMessageType(dhcpv4.MessageTypeOffer)
	case dhcpv4.MessageTypeRequest:
		reply.Options.SetMessageType(dhcpv4.MessageTypeAck)
	default:
		return nil, nil
	}

	if archs, ok := req.Options.ClientSystemArchitectures(); ok && len(archs) > 0 {
		reply.Options.Add(dhcpv4.OptionBootfileName, []byte("pxelinux.0"))
	}

	return reply, nil
}
