// Package metrics provides Prometheus metrics for the stack.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "netlab"
)

// Drop reasons used as the "reason" label.
const (
	ReasonShort       = "short"
	ReasonChecksum    = "checksum"
	ReasonVersion     = "version"
	ReasonNotForUs    = "not_for_us"
	ReasonFragment    = "fragment"
	ReasonUnsupported = "unsupported"
)

// Metrics contains all Prometheus metrics of one stack instance.
type Metrics struct {
	// IP metrics
	IPPacketsIn  prometheus.Counter
	IPPacketsOut prometheus.Counter
	IPDropped    *prometheus.CounterVec

	// ICMP metrics
	ICMPIn  *prometheus.CounterVec
	ICMPOut *prometheus.CounterVec

	// UDP metrics
	UDPReceived    prometheus.Counter
	UDPDelivered   prometheus.Counter
	UDPDropped     *prometheus.CounterVec
	UDPUnreachable prometheus.Counter
	UDPSent        prometheus.Counter
	UDPSendErrors  prometheus.Counter
	UDPOpenPorts   prometheus.Gauge
}

// New creates a Metrics instance registered with reg. Passing
// prometheus.NewRegistry() keeps instances independent in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IPPacketsIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ip",
			Name:      "packets_received_total",
			Help:      "Total IPv4 packets read from the device",
		}),
		IPPacketsOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ip",
			Name:      "packets_sent_total",
			Help:      "Total IPv4 packets written to the device",
		}),
		IPDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ip",
			Name:      "packets_dropped_total",
			Help:      "Total IPv4 packets dropped by reason",
		}, []string{"reason"}),

		ICMPIn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "icmp",
			Name:      "messages_received_total",
			Help:      "Total ICMP messages received by type",
		}, []string{"type"}),
		ICMPOut: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "icmp",
			Name:      "messages_sent_total",
			Help:      "Total ICMP messages sent by type",
		}, []string{"type"}),

		UDPReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "datagrams_received_total",
			Help:      "Total UDP datagrams handed up by the IP layer",
		}),
		UDPDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "datagrams_delivered_total",
			Help:      "Total UDP datagrams delivered to a port handler",
		}),
		UDPDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "datagrams_dropped_total",
			Help:      "Total UDP datagrams silently dropped by reason",
		}, []string{"reason"}),
		UDPUnreachable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "port_unreachable_total",
			Help:      "Total datagrams answered with port unreachable",
		}),
		UDPSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "datagrams_sent_total",
			Help:      "Total UDP datagrams handed to the IP layer",
		}),
		UDPSendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "send_errors_total",
			Help:      "Total UDP sends that failed locally",
		}),
		UDPOpenPorts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "udp",
			Name:      "open_ports",
			Help:      "Number of ports with a registered handler",
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
