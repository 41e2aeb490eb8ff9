package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistered(t *testing.T) {
	// promauto registers automatically; exercise each metric once and
	// spot-check a few through testutil.
	DHCPPacketsReceived.WithLabelValues("DHCPDISCOVER").Inc()
	DHCPPacketsSent.WithLabelValues("DHCPOFFER").Inc()
	DHCPPacketErrors.WithLabelValues("decode").Inc()
	DHCPRateLimited.WithLabelValues("global").Inc()
	TFTPSessionsStarted.WithLabelValues("RRQ").Inc()
	TFTPSessionsCompleted.WithLabelValues("RRQ", "ok").Inc()
	TFTPSessionsActive.Set(3)
	TFTPBlocksTransferred.WithLabelValues("sent").Inc()
	TFTPErrorsSent.WithLabelValues("FileNotFound").Inc()
	TFTPIdleReaped.Inc()
	ServerStartTime.SetToCurrentTime()
	ServerInfo.WithLabelValues("dev").Set(1)

	if got := testutil.ToFloat64(TFTPSessionsActive); got != 3 {
		t.Errorf("TFTPSessionsActive = %v, want 3", got)
	}
	if got := testutil.ToFloat64(TFTPIdleReaped); got != 1 {
		t.Errorf("TFTPIdleReaped = %v, want 1", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	for _, mf := range mfs {
		name := mf.GetName()
		if strings.HasPrefix(name, "go_") ||
			strings.HasPrefix(name, "process_") ||
			strings.HasPrefix(name, "promhttp_") {
			continue
		}
		if !strings.HasPrefix(name, "bootd_") {
			t.Errorf("metric %q does not have bootd_ prefix", name)
		}
	}
}
