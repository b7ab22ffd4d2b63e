package decap

import "github.com/dvbgse/gogse/internal/gse/gsetype"

// StatusKind classifies the result of one Decap call.
type StatusKind int

const (
	// Padding means the buffer held filler (a fixed header whose S, E and
	// LT bits are all zero) and nothing else; callers should stop scanning the
	// enclosing baseband frame.
	Padding StatusKind = iota
	// CompletedPkt means a full PDU is available in Status.PDU/Meta —
	// either because the packet itself was Complete, or because this
	// call supplied the End fragment that finished a reassembly.
	CompletedPkt
	// FragmentPending means this call consumed a First or Intermediate
	// fragment; no PDU is available yet.
	FragmentPending
)

// Status is returned by every Decap call.
type Status struct {
	Kind StatusKind
	PDU  []byte
	Meta gsetype.DecapMetadata
	// FragID is populated whenever Kind != Padding and the packet
	// belonged to a fragmented sequence (First/Intermediate/End).
	FragID     uint8
	Fragmented bool
}
