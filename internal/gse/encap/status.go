package encap

import "github.com/dvbgse/gogse/internal/gse/gsetype"

// StatusKind distinguishes a fully emitted packet from one that still has
// PDU bytes pending in subsequent fragments.
type StatusKind int

const (
	// Complete means dst now holds one whole GSE packet (packet type
	// Complete or End) and the caller has nothing further to emit for
	// this PDU.
	Complete StatusKind = iota
	// FragPending means dst holds one fragment (First or Intermediate)
	// and Context must be passed to the next EncapFrag call along with
	// the remaining, unsent PDU bytes.
	FragPending
)

// Status is returned by every EncapFrag call.
type Status struct {
	Kind    StatusKind
	N       int
	Context gsetype.ContextFrag
}
