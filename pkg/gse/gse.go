// Package gse is gogse's public facade: the stable, importable surface
// over the internal encap/decap state machines, wire types, and pluggable
// CRC/mandatory-extension interfaces. Downstream importers should depend
// on this package rather than reaching into internal/gse/...
package gse

import (
	"github.com/dvbgse/gogse/internal/gse/crc"
	"github.com/dvbgse/gogse/internal/gse/decap"
	"github.com/dvbgse/gogse/internal/gse/encap"
	"github.com/dvbgse/gogse/internal/gse/ext"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/reassembly"
)

// Data model (spec.md §3), re-exported as type aliases so values built by
// either this package or internal/gse/... are interchangeable.
type (
	LabelKind     = gsetype.LabelKind
	Label         = gsetype.Label
	Extension     = gsetype.Extension
	EncapMetadata = gsetype.EncapMetadata
	ContextFrag   = gsetype.ContextFrag
	DecapContext  = gsetype.DecapContext
	DecapMetadata = gsetype.DecapMetadata
	PktType       = gsetype.PktType
)

// Label kinds.
const (
	LabelSixBytes   = gsetype.LabelSixBytes
	LabelThreeBytes = gsetype.LabelThreeBytes
	LabelBroadcast  = gsetype.LabelBroadcast
	LabelReUse      = gsetype.LabelReUse
)

// Label constructors.
var (
	SixByteLabel   = gsetype.SixByteLabel
	ThreeByteLabel = gsetype.ThreeByteLabel
	BroadcastLabel = gsetype.BroadcastLabel
)

// Sentinel errors (spec.md §7), re-exported for callers that want
// errors.Is without importing internal/gse/gsetype directly.
var (
	ErrInvalidLabel                  = gsetype.ErrInvalidLabel
	ErrSizeBuffer                    = gsetype.ErrSizeBuffer
	ErrPduLength                     = gsetype.ErrPduLength
	ErrProtocolType                  = gsetype.ErrProtocolType
	ErrTotalLength                   = gsetype.ErrTotalLength
	ErrGseLength                     = gsetype.ErrGseLength
	ErrSizePduBuffer                 = gsetype.ErrSizePduBuffer
	ErrCRC                           = gsetype.ErrCRC
	ErrNoLabelSaved                  = gsetype.ErrNoLabelSaved
	ErrLabelBroadcastSaved           = gsetype.ErrLabelBroadcastSaved
	ErrLabelReUseSaved               = gsetype.ErrLabelReUseSaved
	ErrUnknownMandatoryHeader        = gsetype.ErrUnknownMandatoryHeader
	ErrFinalMandatoryExtensionHeader = gsetype.ErrFinalMandatoryExtensionHeader
	ErrNoExtensionFound              = gsetype.ErrNoExtensionFound
)

// Recoverable reports whether err (a decap error) leaves the packet
// stream in a state where the caller can safely skip the offending
// packet and continue (spec.md §7).
func Recoverable(err error) bool { return gsetype.Recoverable(err) }

// CRC32Calculator computes the non-standard MSB-first CRC-32 that covers
// a GSE PDU, protocol type, total length, and label (spec.md §6). It is
// pluggable so callers can swap in a hardware-accelerated or alternate
// implementation.
type CRC32Calculator = crc.Calculator

// DefaultCRC32 is the spec-mandated CRC-32 implementation (polynomial
// 0x04C11DB7, init 0xFFFFFFFF, no final XOR).
type DefaultCRC32 = crc.DefaultCRC32

// MandatoryExtensionRegistry resolves a header extension id to how the
// extension chain should be classed/terminated (spec.md §4.2).
type MandatoryExtensionRegistry = ext.Registry

// NoMandatoryExtensions recognizes no mandatory extension ids.
type NoMandatoryExtensions = ext.NoMandatoryExtensions

// RCS2Registry recognizes the DVB-RCS2 return-channel mandatory
// extensions (NCR 0x0081, internal M&C 0x0082).
type RCS2Registry = ext.RCS2Registry

// Encapsulator packs PDUs into GSE packets (spec.md §4.4).
type Encapsulator = encap.Encapsulator

// EncapOption configures an Encapsulator at construction.
type EncapOption = encap.Option

// EncapStatus is returned by every EncapFrag call.
type EncapStatus = encap.Status

// Encapsulator status kinds.
const (
	EncapComplete     = encap.Complete
	EncapFragPending  = encap.FragPending
)

// NewEncapsulator builds an Encapsulator (spec.md §4.4).
func NewEncapsulator(opts ...EncapOption) *Encapsulator { return encap.NewEncapsulator(opts...) }

// WithLabelReuse enables ReUse label compression.
func WithLabelReuse(maxConsecutive int) EncapOption { return encap.WithLabelReuse(maxConsecutive) }

// WithEncapRegistry overrides an Encapsulator's mandatory extension
// registry.
func WithEncapRegistry(r MandatoryExtensionRegistry) EncapOption { return encap.WithRegistry(r) }

// WithEncapCRCCalculator overrides an Encapsulator's CRC-32 implementation.
func WithEncapCRCCalculator(c CRC32Calculator) EncapOption { return encap.WithCRCCalculator(c) }

// Decapsulator parses GSE packets back into PDUs, reassembling fragments
// via a ReassemblyMemory pool (spec.md §4.5).
type Decapsulator = decap.Decapsulator

// DecapOption configures a Decapsulator at construction.
type DecapOption = decap.Option

// DecapStatus is returned by every Decap call.
type DecapStatus = decap.Status

// Decapsulator status kinds.
const (
	DecapPadding         = decap.Padding
	DecapCompletedPkt    = decap.CompletedPkt
	DecapFragmentPending = decap.FragmentPending
)

// NewDecapsulator builds a Decapsulator backed by mem.
func NewDecapsulator(mem *ReassemblyMemory, opts ...DecapOption) *Decapsulator {
	return decap.NewDecapsulator(mem, opts...)
}

// WithDecapRegistry overrides a Decapsulator's mandatory extension registry.
func WithDecapRegistry(r MandatoryExtensionRegistry) DecapOption { return decap.WithRegistry(r) }

// WithDecapCRCCalculator overrides a Decapsulator's CRC-32 implementation.
func WithDecapCRCCalculator(c CRC32Calculator) DecapOption { return decap.WithCRCCalculator(c) }

// ReassemblyMemory is the fixed-size fragment-reassembly pool shared by a
// Decapsulator (spec.md §4.3).
type ReassemblyMemory = reassembly.Memory

// NewReassemblyMemory builds a ReassemblyMemory sized for maxFragID
// concurrent fragment sequences, each up to maxPDUSize bytes.
func NewReassemblyMemory(maxFragID, maxPDUSize int, opts ...reassembly.Option) *ReassemblyMemory {
	return reassembly.NewMemory(maxFragID, maxPDUSize, opts...)
}
