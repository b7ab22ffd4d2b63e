package prometheus

import (
	"time"

	"github.com/dvbgse/gogse/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// gseMetrics is the Prometheus implementation of metrics.GSEMetrics.
type gseMetrics struct {
	packets             *prometheus.CounterVec
	packetBytes         *prometheus.CounterVec
	fragmentationStarts prometheus.Counter
	reassemblyComplete  prometheus.Counter
	reassemblyDuration  prometheus.Histogram
	reassemblyPDUBytes  prometheus.Histogram
	reassemblyEvictions prometheus.Counter
	crcOK               prometheus.Counter
	crcMismatch         prometheus.Counter
	decapErrors         *prometheus.CounterVec
	activeStreams       prometheus.Gauge
	reassemblySlotsUsed prometheus.Gauge
}

// NewGSEMetrics creates a new Prometheus-backed GSEMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewGSEMetrics() *gseMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &gseMetrics{
		packets: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gogse_packets_total",
				Help: "Total number of GSE packets encapsulated or decapsulated, by direction, packet type, and label type.",
			},
			[]string{"direction", "pkt_type", "label_type"},
		),
		packetBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gogse_packet_bytes_total",
				Help: "Total bytes of GSE packets on the wire, by direction.",
			},
			[]string{"direction"},
		),
		fragmentationStarts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "gogse_fragmentation_starts_total",
				Help: "Total number of PDUs that required fragmentation across multiple packets.",
			},
		),
		reassemblyComplete: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "gogse_reassembly_complete_total",
				Help: "Total number of fragmented PDUs successfully reassembled.",
			},
		),
		reassemblyDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gogse_reassembly_duration_seconds",
				Help:    "Time elapsed between a PDU's First fragment and its End fragment.",
				Buckets: prometheus.DefBuckets,
			},
		),
		reassemblyPDUBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gogse_reassembly_pdu_bytes",
				Help:    "Size in bytes of reassembled PDUs.",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
		),
		reassemblyEvictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "gogse_reassembly_evictions_total",
				Help: "Total number of reassembly slots reclaimed before their PDU completed.",
			},
		),
		crcOK: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "gogse_crc_ok_total",
				Help: "Total number of packets whose CRC-32 matched.",
			},
		),
		crcMismatch: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "gogse_crc_mismatch_total",
				Help: "Total number of packets whose CRC-32 did not match.",
			},
		),
		decapErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gogse_decap_errors_total",
				Help: "Total number of decap errors, by sentinel error name and recoverability.",
			},
			[]string{"error", "recoverable"},
		),
		activeStreams: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "gogse_active_streams",
				Help: "Current number of active Encapsulator/Decapsulator instances.",
			},
		),
		reassemblySlotsUsed: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "gogse_reassembly_slots_in_use",
				Help: "Current number of occupied reassembly memory slots.",
			},
		),
	}
}

func (m *gseMetrics) RecordPacket(direction, pktType, labelType string, bytes int) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(direction, pktType, labelType).Inc()
	m.packetBytes.WithLabelValues(direction).Add(float64(bytes))
}

func (m *gseMetrics) RecordFragmentationStart() {
	if m == nil {
		return
	}
	m.fragmentationStarts.Inc()
}

func (m *gseMetrics) RecordReassemblyComplete(pduLen int, duration time.Duration) {
	if m == nil {
		return
	}
	m.reassemblyComplete.Inc()
	m.reassemblyDuration.Observe(duration.Seconds())
	m.reassemblyPDUBytes.Observe(float64(pduLen))
}

func (m *gseMetrics) RecordReassemblyEviction() {
	if m == nil {
		return
	}
	m.reassemblyEvictions.Inc()
}

func (m *gseMetrics) RecordCRCResult(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.crcOK.Inc()
		return
	}
	m.crcMismatch.Inc()
}

func (m *gseMetrics) RecordDecapError(errName string, recoverable bool) {
	if m == nil {
		return
	}
	recStr := "false"
	if recoverable {
		recStr = "true"
	}
	m.decapErrors.WithLabelValues(errName, recStr).Inc()
}

func (m *gseMetrics) SetActiveStreams(count int32) {
	if m == nil {
		return
	}
	m.activeStreams.Set(float64(count))
}

func (m *gseMetrics) SetReassemblySlotsInUse(count int) {
	if m == nil {
		return
	}
	m.reassemblySlotsUsed.Set(float64(count))
}
