// Package metrics defines the Prometheus metrics exported by bootd.
// All metrics use the "bootd_" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bootd"

// --- DHCP Packet Metrics ---

var (
	// DHCPPacketsReceived counts DHCP packets received by message type.
	DHCPPacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dhcp_packets_received_total",
		Help:      "Total DHCP packets received, by message type.",
	}, []string{"msg_type"})

	// DHCPPacketsSent counts DHCP packets sent by message type.
	DHCPPacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dhcp_packets_sent_total",
		Help:      "Total DHCP packets sent, by message type.",
	}, []string{"msg_type"})

	// DHCPPacketErrors counts packet processing errors.
	DHCPPacketErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dhcp_packet_errors_total",
		Help:      "Total DHCP packet processing errors, by stage.",
	}, []string{"stage"})

	// DHCPPacketProcessingDuration tracks DHCP packet handling latency.
	DHCPPacketProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dhcp_packet_processing_duration_seconds",
		Help:      "DHCP packet processing duration in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"msg_type"})

	// DHCPRateLimited counts requests rejected by the flood guard.
	DHCPRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dhcp_rate_limited_total",
		Help:      "Total DHCP requests rejected by the flood guard.",
	}, []string{"scope"})
)

// --- TFTP Metrics ---

var (
	// TFTPSessionsStarted counts TFTP transactions started by op (RRQ/WRQ).
	TFTPSessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tftp_sessions_started_total",
		Help:      "Total TFTP transactions started, by request op.",
	}, []string{"op"})

	// TFTPSessionsCompleted counts TFTP transactions that reached a
	// terminal state, by op and outcome (ok, error). Sessions reclaimed
	// by the idle sweeper are recorded as error.
	TFTPSessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tftp_sessions_completed_total",
		Help:      "Total TFTP transactions completed, by op and outcome.",
	}, []string{"op", "outcome"})

	// TFTPSessionsActive is a gauge of in-flight TFTP transactions.
	TFTPSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tftp_sessions_active",
		Help:      "Number of currently active TFTP transactions.",
	})

	// TFTPBlocksTransferred counts data blocks sent or received.
	TFTPBlocksTransferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tftp_blocks_transferred_total",
		Help:      "Total TFTP data blocks transferred, by direction.",
	}, []string{"direction"})

	// TFTPErrorsSent counts Error packets sent to peers, by code.
	TFTPErrorsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tftp_errors_sent_total",
		Help:      "Total TFTP Error packets sent, by error code.",
	}, []string{"code"})

	// TFTPIdleReaped counts sessions torn down by the idle sweeper.
	TFTPIdleReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tftp_idle_sessions_reaped_total",
		Help:      "Total TFTP sessions torn down for exceeding the idle timeout.",
	})
)

// --- Server Info ---

var (
	// ServerInfo is a constant gauge with server build metadata.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_info",
		Help:      "Server build and version info.",
	}, []string{"version"})

	// ServerStartTime tracks server start time as a unix timestamp.
	ServerStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_start_time_seconds",
		Help:      "Server start time as Unix timestamp.",
	})
)
