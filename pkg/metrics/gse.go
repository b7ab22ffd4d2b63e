package metrics

import "time"

// GSEMetrics provides observability for Encapsulator/Decapsulator
// operations.
//
// Implementations can collect metrics about packet throughput, fragment
// reassembly, label-reuse compression, and CRC outcomes. This interface is
// optional - pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	gseMetrics := prometheus.NewGSEMetrics()
//	enc := encap.NewEncapsulator(encap.WithMetrics(gseMetrics))
//
//	// Without metrics (pass nil for zero overhead)
//	enc := encap.NewEncapsulator()
type GSEMetrics interface {
	// RecordPacket records one emitted or parsed GSE packet.
	//
	// Parameters:
	//   - direction: "encap" or "decap"
	//   - pktType: packet type ("Complete", "First", "Intermediate", "End")
	//   - labelType: label kind actually on the wire ("SixBytes",
	//     "ThreeBytes", "Broadcast", "ReUse")
	//   - bytes: total bytes of this packet on the wire
	RecordPacket(direction string, pktType string, labelType string, bytes int)

	// RecordFragmentationStart records that a PDU began fragmenting because
	// it did not fit in one packet.
	RecordFragmentationStart()

	// RecordReassemblyComplete records a successfully reassembled PDU and
	// how long it took from first to end fragment.
	RecordReassemblyComplete(pduLen int, duration time.Duration)

	// RecordReassemblyEviction records a reassembly slot being reclaimed
	// before its PDU completed (the previous owner is dropped).
	RecordReassemblyEviction()

	// RecordCRCResult records the outcome of an End fragment's CRC check
	// (Complete packets carry no CRC).
	//
	// Parameters:
	//   - ok: true if the computed CRC matched the packet's trailing CRC
	RecordCRCResult(ok bool)

	// RecordDecapError records a decap failure by its sentinel error name
	// and whether the stream can continue past it.
	RecordDecapError(errName string, recoverable bool)

	// SetActiveStreams updates the current count of distinct Encapsulator
	// or Decapsulator instances in use by the caller's application.
	SetActiveStreams(count int32)

	// SetReassemblySlotsInUse updates the current number of occupied
	// reassembly.Memory slots.
	SetReassemblySlotsInUse(count int)
}
