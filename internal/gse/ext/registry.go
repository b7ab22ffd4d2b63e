// Package ext implements the GSE header-extension chain: the read/write
// path for mandatory and optional extensions, and the pluggable mandatory
// extension registry spec.md §6 calls out as external to the core.
package ext

// MandatoryClass classifies how a mandatory extension (H-LEN 0) id
// terminates or continues the chain.
type MandatoryClass int

const (
	// Unknown means the registry does not recognize this mandatory id;
	// decap must treat it as an error (spec.md §4.2).
	Unknown MandatoryClass = iota
	// NonFinal means this mandatory extension is followed by another
	// link in the chain (protocol_type field is itself an extension id).
	NonFinal
	// Final means this mandatory extension ends the chain: DataLen bytes of
	// extension data follow its id, no protocol_type field follows, and the
	// id itself is the effective protocol type.
	Final
)

// MandatoryLookup is a registry's answer for one mandatory extension id.
// DataLen is meaningful for both Final and NonFinal classes: the number
// of data bytes that follow the id before the next link (or, for Final,
// before the chain terminates).
type MandatoryLookup struct {
	Class   MandatoryClass
	DataLen int
}

// Registry resolves mandatory extension ids (H-LEN 0) to their class. It
// is the pluggable seam spec.md §6 documents as "external to the core":
// different DVB profiles recognize different mandatory extension sets.
type Registry interface {
	Lookup(id uint16) MandatoryLookup
}

// NoMandatoryExtensions recognizes no mandatory ids; every lookup returns
// Unknown, matching a profile with no header extensions defined at all.
type NoMandatoryExtensions struct{}

func (NoMandatoryExtensions) Lookup(uint16) MandatoryLookup {
	return MandatoryLookup{Class: Unknown}
}

// Mandatory extension ids recognized by RCS2Registry, per
// original_source's registered constant set.
const (
	NCRExtensionID        uint16 = 0x0081
	InternalMCExtensionID uint16 = 0x0082
)

// RCS2Registry recognizes the DVB-RCS2 return-channel mandatory
// extensions: NCR (Network Clock Reference) and internal M&C, both
// Final with zero bytes of trailing extension data.
type RCS2Registry struct{}

func (RCS2Registry) Lookup(id uint16) MandatoryLookup {
	switch id {
	case NCRExtensionID, InternalMCExtensionID:
		return MandatoryLookup{Class: Final, DataLen: 0}
	default:
		return MandatoryLookup{Class: Unknown}
	}
}

var _ Registry = NoMandatoryExtensions{}
var _ Registry = RCS2Registry{}

// optionalDataLen returns the byte length of an optional extension's data
// given its H-LEN class (1..5 map to {0,2,4,6,8} bytes, per spec.md §6.2).
func optionalDataLen(hlen uint16) int {
	if hlen < 1 || hlen > 5 {
		return -1
	}
	return int(hlen-1) * 2
}
