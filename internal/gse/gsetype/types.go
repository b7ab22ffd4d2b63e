// Package gsetype holds the data model shared by every GSE component:
// labels, extensions, metadata, continuation contexts, and the wire
// constants of DVB GSE §6. It has no dependency on any other gse
// subpackage so that wire, ext, reassembly, encap, and decap can all
// import it without cycles.
package gsetype

import (
	"bytes"
	"time"
)

// Wire constants (spec.md §6).
const (
	FixedHeaderLen    = 2
	ProtocolLen       = 2
	FragIDLen         = 1
	TotalLengthLen    = 2
	CRCLen            = 4
	GSELenMax         = 0xFFF
	TotalLenMax       = 0xFFFF
	MandatoryPTypeMax = 256
	SecondRangePType  = 1536

	// MinMargin is the extra headroom ReassemblyMemory keeps above
	// MaxFragID live buffers (spec.md §3).
	MinMargin = 2
)

// PktType is the packet type encoded by the S/E bits of the fixed header.
type PktType uint8

const (
	PktIntermediateFrag PktType = 0b00
	PktEndFrag          PktType = 0b01
	PktFirstFrag        PktType = 0b10
	PktCompletePkt      PktType = 0b11
)

func (t PktType) String() string {
	switch t {
	case PktIntermediateFrag:
		return "IntermediateFrag"
	case PktEndFrag:
		return "EndFrag"
	case PktFirstFrag:
		return "FirstFrag"
	case PktCompletePkt:
		return "CompletePkt"
	default:
		return "Unknown"
	}
}

// LabelKind is the tagged-variant discriminant of Label.
type LabelKind uint8

const (
	LabelSixBytes LabelKind = iota
	LabelThreeBytes
	LabelBroadcast
	LabelReUse
)

// Len returns the byte length of a label of this kind on the wire.
func (k LabelKind) Len() int {
	switch k {
	case LabelSixBytes:
		return 6
	case LabelThreeBytes:
		return 3
	default:
		return 0
	}
}

func (k LabelKind) String() string {
	switch k {
	case LabelSixBytes:
		return "SixBytes"
	case LabelThreeBytes:
		return "ThreeBytes"
	case LabelBroadcast:
		return "Broadcast"
	case LabelReUse:
		return "ReUse"
	default:
		return "Unknown"
	}
}

// Label is the GSE destination address: a 6-byte label, a 3-byte label,
// the implicit Broadcast address, or a ReUse reference to the last
// explicit label transmitted in the current baseband frame.
type Label struct {
	Kind  LabelKind
	Bytes [6]byte
}

// SixByteLabel builds a SixBytes label from b.
func SixByteLabel(b [6]byte) Label { return Label{Kind: LabelSixBytes, Bytes: b} }

// ThreeByteLabel builds a ThreeBytes label from b.
func ThreeByteLabel(b [3]byte) Label {
	var l Label
	l.Kind = LabelThreeBytes
	copy(l.Bytes[:3], b[:])
	return l
}

// BroadcastLabel is the implicit zero-length broadcast address.
func BroadcastLabel() Label { return Label{Kind: LabelBroadcast} }

// Len returns the byte length this label occupies on the wire.
func (l Label) Len() int { return l.Kind.Len() }

// IsBroadcast reports whether l is the Broadcast variant.
func (l Label) IsBroadcast() bool { return l.Kind == LabelBroadcast }

// IsReUse reports whether l is the ReUse variant.
func (l Label) IsReUse() bool { return l.Kind == LabelReUse }

// IsZero reports whether l is the reserved six-byte all-zero sentinel,
// which must never appear on the wire as a genuine address.
func (l Label) IsZero() bool {
	if l.Kind != LabelSixBytes {
		return false
	}
	var zero [6]byte
	return l.Bytes == zero
}

// Equal reports whether two labels carry the same kind and address bytes.
func (l Label) Equal(o Label) bool {
	if l.Kind != o.Kind {
		return false
	}
	n := l.Kind.Len()
	return bytes.Equal(l.Bytes[:n], o.Bytes[:n])
}

// Slice returns the significant address bytes for this label (0 bytes for
// Broadcast/ReUse).
func (l Label) Slice() []byte { return l.Bytes[:l.Len()] }

// Extension is a header extension: an id whose top 5 bits must be zero
// and whose H-LEN (bits 8..10) classifies it as mandatory (0) or optional
// (1..5), paired with its data.
type Extension struct {
	ID   uint16
	Data []byte
}

// HLen returns the H-LEN class bits of the extension id.
func (e Extension) HLen() uint16 { return e.ID >> 8 }

// IsMandatory reports whether this extension's H-LEN class is 0.
func (e Extension) IsMandatory() bool { return e.HLen() == 0 }

// EncapMetadata carries the protocol type and destination label for a
// PDU submitted to the Encapsulator.
type EncapMetadata struct {
	ProtocolType uint16
	Label        Label
}

// ContextFrag is the opaque continuation state an Encapsulator hands back
// to the caller after emitting a First or Intermediate fragment.
type ContextFrag struct {
	FragID       uint8
	CRC          uint32
	BytesEmitted uint16
}

// DecapContext is the per-reassembly state the Decapsulator threads
// through ReassemblyMemory between First, Intermediate, and End handling.
type DecapContext struct {
	Label          Label
	ProtocolType   uint16
	FragID         uint8
	TotalLen       uint16
	PDULenSoFar    uint16
	FromLabelReuse bool
	Extensions     []Extension

	// StartedAt records when the First fragment of this sequence arrived,
	// for reporting reassembly latency once the End fragment completes it.
	StartedAt time.Time
}

// DecapMetadata is returned alongside a reassembled or Complete PDU.
// Extensions is always present as a field (possibly nil), which keeps the
// constructor positional-argument compatible with both historical
// versions of this type (spec.md §9 Open Question 1).
type DecapMetadata struct {
	PDULen       int
	ProtocolType uint16
	Label        Label
	Extensions   []Extension
}
