// Package encap implements the Encapsulator state machine: packing PDUs
// into Complete or fragmented (First/Intermediate/End) GSE packets,
// including label-reuse compression and header-extension chains.
package encap

import (
	"bytes"
	"fmt"

	"github.com/dvbgse/gogse/internal/gse/crc"
	"github.com/dvbgse/gogse/internal/gse/ext"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/wire"
	"github.com/dvbgse/gogse/pkg/metrics"
)

// Option configures an Encapsulator at construction.
type Option func(*Encapsulator)

// WithLabelReuse enables ReUse label compression: after the same label
// is sent maxConsecutive times in a row, the next occurrence is sent as
// a full label again and the window restarts (spec.md §9).
func WithLabelReuse(maxConsecutive int) Option {
	return func(e *Encapsulator) {
		e.reuseEnabled = true
		e.reuseMax = maxConsecutive
	}
}

// WithRegistry overrides the mandatory extension registry (defaults to
// ext.NoMandatoryExtensions{}).
func WithRegistry(r ext.Registry) Option {
	return func(e *Encapsulator) { e.registry = r }
}

// WithCRCCalculator overrides the CRC-32 implementation (defaults to
// crc.DefaultCRC32{}).
func WithCRCCalculator(c crc.Calculator) Option {
	return func(e *Encapsulator) { e.crcCalc = c }
}

// WithMetrics attaches a metrics.GSEMetrics recorder. A nil m (or never
// calling this option) disables instrumentation at zero cost, since every
// recorder method tolerates a nil receiver.
func WithMetrics(m metrics.GSEMetrics) Option {
	return func(e *Encapsulator) { e.metrics = m }
}

// Encapsulator packs PDUs into GSE packets. It is not safe for concurrent
// use by multiple goroutines without external synchronization, matching
// the core's single-threaded-per-stream scope (spec.md §5).
type Encapsulator struct {
	registry ext.Registry
	crcCalc  crc.Calculator
	metrics  metrics.GSEMetrics

	reuseEnabled bool
	reuseMax     int
	reuseCurrent int
	lastLabel    *gsetype.Label

	nextFragID uint8
}

// NewEncapsulator builds an Encapsulator with no label reuse and the
// default registry/CRC calculator unless overridden by opts.
func NewEncapsulator(opts ...Option) *Encapsulator {
	e := &Encapsulator{
		registry: ext.NoMandatoryExtensions{},
		crcCalc:  crc.DefaultCRC32{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// resolveWireLabel decides the label kind to actually place on the wire
// for label, mutating the reuse window state. Broadcast labels are never
// compressed and always reset the window (a broadcast destination
// cannot later be "reused" — spec.md §9 / ErrLabelBroadcastSaved on the
// decap side documents the same constraint in reverse).
func (e *Encapsulator) resolveWireLabel(label gsetype.Label) gsetype.Label {
	if label.IsBroadcast() {
		e.lastLabel = nil
		e.reuseCurrent = 0
		return label
	}
	if !e.reuseEnabled || e.lastLabel == nil || !label.Equal(*e.lastLabel) {
		saved := label
		e.lastLabel = &saved
		e.reuseCurrent = 0
		return label
	}
	if e.reuseMax > 0 && e.reuseCurrent >= e.reuseMax {
		e.reuseCurrent = 0
		return label
	}
	e.reuseCurrent++
	return gsetype.Label{Kind: gsetype.LabelReUse}
}

// previewWireLabelKind is resolveWireLabel's read-only twin, used by the
// preview variants to report what kind of label would be emitted without
// mutating reuse state.
func (e *Encapsulator) previewWireLabelKind(label gsetype.Label) gsetype.LabelKind {
	if label.IsBroadcast() {
		return gsetype.LabelBroadcast
	}
	if !e.reuseEnabled || e.lastLabel == nil || !label.Equal(*e.lastLabel) {
		return label.Kind
	}
	if e.reuseMax > 0 && e.reuseCurrent >= e.reuseMax {
		return label.Kind
	}
	return gsetype.LabelReUse
}

// Encap packs the entire pdu into a single Complete packet written to
// dst. Returns ErrPduLength if the packet would exceed GSE's 12-bit length
// field, or ErrSizeBuffer if dst is too small to hold it — use EncapFrag
// instead in either case.
func (e *Encapsulator) Encap(dst []byte, pdu []byte, meta gsetype.EncapMetadata) (int, error) {
	return e.encapExt(dst, pdu, meta, nil)
}

// EncapExt is Encap with an explicit header-extension chain. Rejects an
// empty extensions list with ErrNoExtensionFound — callers with nothing to
// add should call Encap instead (spec.md §4.2/§7).
func (e *Encapsulator) EncapExt(dst []byte, pdu []byte, meta gsetype.EncapMetadata, extensions []gsetype.Extension) (int, error) {
	if len(extensions) == 0 {
		return 0, fmt.Errorf("encap: ext: %w", gsetype.ErrNoExtensionFound)
	}
	return e.encapExt(dst, pdu, meta, extensions)
}

func (e *Encapsulator) encapExt(dst []byte, pdu []byte, meta gsetype.EncapMetadata, extensions []gsetype.Extension) (int, error) {
	if meta.Label.IsZero() {
		return 0, fmt.Errorf("encap: %w", gsetype.ErrInvalidLabel)
	}

	var extBuf bytes.Buffer
	if err := ext.WriteChain(&extBuf, extensions, meta.ProtocolType, e.registry); err != nil {
		return 0, err
	}

	overhead := e.previewWireLabelKind(meta.Label).Len() + extBuf.Len()
	gseLen := overhead + len(pdu)
	if gseLen > gsetype.GSELenMax {
		return 0, fmt.Errorf("encap: %w", gsetype.ErrPduLength)
	}
	total := gsetype.FixedHeaderLen + gseLen
	if len(dst) < total {
		return 0, fmt.Errorf("encap: %w", gsetype.ErrSizeBuffer)
	}

	wireLabel := e.resolveWireLabel(meta.Label)

	hdr, err := wire.EncodeFixedHeader(gsetype.PktCompletePkt, wireLabel.Kind, gseLen)
	if err != nil {
		return 0, fmt.Errorf("encap: %w", err)
	}
	n := copy(dst, hdr)
	n += copy(dst[n:], extBuf.Bytes())
	n += copy(dst[n:], wire.EncodeLabel(wireLabel))
	n += copy(dst[n:], pdu)
	if e.metrics != nil {
		e.metrics.RecordPacket("encap", gsetype.PktCompletePkt.String(), wireLabel.Kind.String(), n)
	}
	return n, nil
}

// EncapPreview reports the byte length Encap would write for pdu/meta,
// and the label kind that would actually be placed on the wire, without
// mutating reuse state or writing anything.
func (e *Encapsulator) EncapPreview(pdu []byte, meta gsetype.EncapMetadata) (int, gsetype.LabelKind, error) {
	kind := e.previewWireLabelKind(meta.Label)
	gseLen := kind.Len() + gsetype.ProtocolLen + len(pdu)
	if gseLen > gsetype.GSELenMax {
		return 0, kind, fmt.Errorf("encap: preview: %w", gsetype.ErrPduLength)
	}
	return gsetype.FixedHeaderLen + gseLen, kind, nil
}

// EncapFragPreview reports the byte length a First-fragment EncapFrag
// call would write for the given dst capacity, pdu, and meta, and the
// label kind that would be used, without mutating reuse state.
func (e *Encapsulator) EncapFragPreview(dstLen int, pdu []byte, meta gsetype.EncapMetadata) (int, gsetype.LabelKind, error) {
	kind := e.previewWireLabelKind(meta.Label)
	nonPduOverhead := gsetype.FragIDLen + gsetype.TotalLengthLen + kind.Len() + gsetype.ProtocolLen
	avail := dstLen - gsetype.FixedHeaderLen - nonPduOverhead
	maxByLen := gsetype.GSELenMax - nonPduOverhead
	if maxByLen < avail {
		avail = maxByLen
	}
	if avail <= 0 || avail >= len(pdu) {
		return 0, kind, fmt.Errorf("encap: frag preview: %w", gsetype.ErrSizeBuffer)
	}
	return gsetype.FixedHeaderLen + nonPduOverhead + avail, kind, nil
}

// EncapFrag emits one fragment of pdu into dst. On the first call for a
// PDU, pass ctx == nil; the returned Status.Context must be threaded into
// the next call along with the remaining unsent slice of pdu. The final
// call (when the remaining bytes fit in an End fragment) returns
// Status.Kind == Complete.
func (e *Encapsulator) EncapFrag(dst []byte, pdu []byte, meta gsetype.EncapMetadata, extensions []gsetype.Extension, ctx *gsetype.ContextFrag) (Status, error) {
	if ctx == nil {
		return e.encapFirstFrag(dst, pdu, meta, extensions)
	}
	return e.encapContinuation(dst, pdu, meta, *ctx)
}

func (e *Encapsulator) encapFirstFrag(dst []byte, pdu []byte, meta gsetype.EncapMetadata, extensions []gsetype.Extension) (Status, error) {
	if meta.Label.IsZero() {
		return Status{}, fmt.Errorf("encap: first frag: %w", gsetype.ErrInvalidLabel)
	}

	var extBuf bytes.Buffer
	if err := ext.WriteChain(&extBuf, extensions, meta.ProtocolType, e.registry); err != nil {
		return Status{}, err
	}

	wireLabel := e.resolveWireLabel(meta.Label)

	nonPduOverhead := gsetype.FragIDLen + gsetype.TotalLengthLen + wireLabel.Len() + extBuf.Len()
	avail := len(dst) - gsetype.FixedHeaderLen - nonPduOverhead
	maxByLen := gsetype.GSELenMax - nonPduOverhead
	if maxByLen < avail {
		avail = maxByLen
	}
	if avail <= 0 || avail >= len(pdu) {
		return Status{}, fmt.Errorf("encap: first frag: %w", gsetype.ErrSizeBuffer)
	}

	// total_length reflects what the decap End-handler reconstructs from
	// the wire alone: protocol length plus the length of whatever label
	// form was actually transmitted in this First fragment (which may be
	// zero for Broadcast/ReUse), plus the complete, unfragmented PDU.
	totalLenInt := gsetype.ProtocolLen + wireLabel.Len() + len(pdu)
	if totalLenInt > gsetype.TotalLenMax {
		return Status{}, fmt.Errorf("encap: first frag: %w", gsetype.ErrPduLength)
	}
	totalLength := uint16(totalLenInt)

	fragID := e.allocFragID()
	chunk := pdu[:avail]

	gseLen := nonPduOverhead + len(chunk)
	hdr, err := wire.EncodeFixedHeader(gsetype.PktFirstFrag, wireLabel.Kind, gseLen)
	if err != nil {
		return Status{}, fmt.Errorf("encap: first frag: %w", err)
	}

	n := copy(dst, hdr)
	n += copy(dst[n:], wire.EncodeFragID(fragID))
	n += copy(dst[n:], wire.EncodeTotalLength(totalLength))
	n += copy(dst[n:], extBuf.Bytes())
	n += copy(dst[n:], wire.EncodeLabel(wireLabel))
	n += copy(dst[n:], chunk)

	// The CRC covers the whole PDU exactly once; it is computed here,
	// over the complete pdu this call received, and carried unchanged
	// through every subsequent fragment's context to the End fragment.
	// It uses the label actually placed on the wire (empty for
	// Broadcast/ReUse), matching what the decapsulator reconstructs at
	// the End fragment since it never observes the pre-compression label.
	crcVal := e.crcCalc.Calculate(pdu, meta.ProtocolType, totalLength, wireLabel)
	if e.metrics != nil {
		e.metrics.RecordFragmentationStart()
		e.metrics.RecordPacket("encap", gsetype.PktFirstFrag.String(), wireLabel.Kind.String(), n)
	}
	return Status{
		Kind: FragPending,
		N:    n,
		Context: gsetype.ContextFrag{
			FragID:       fragID,
			CRC:          crcVal,
			BytesEmitted: uint16(len(chunk)),
		},
	}, nil
}

func (e *Encapsulator) encapContinuation(dst []byte, remaining []byte, meta gsetype.EncapMetadata, ctx gsetype.ContextFrag) (Status, error) {
	endOverhead := gsetype.FragIDLen + gsetype.CRCLen
	if endOverhead+len(remaining)+gsetype.FixedHeaderLen <= len(dst) && gsetype.FragIDLen+len(remaining)+gsetype.CRCLen <= gsetype.GSELenMax {
		gseLen := gsetype.FragIDLen + len(remaining) + gsetype.CRCLen
		hdr, err := wire.EncodeFixedHeader(gsetype.PktEndFrag, gsetype.LabelReUse, gseLen)
		if err != nil {
			return Status{}, fmt.Errorf("encap: end frag: %w", err)
		}

		n := copy(dst, hdr)
		n += copy(dst[n:], wire.EncodeFragID(ctx.FragID))
		n += copy(dst[n:], remaining)
		n += copy(dst[n:], wire.EncodeCRC(ctx.CRC))
		if e.metrics != nil {
			e.metrics.RecordPacket("encap", gsetype.PktEndFrag.String(), gsetype.LabelReUse.String(), n)
		}
		return Status{Kind: Complete, N: n}, nil
	}

	nonPduOverhead := gsetype.FragIDLen
	avail := len(dst) - gsetype.FixedHeaderLen - nonPduOverhead
	maxByLen := gsetype.GSELenMax - nonPduOverhead
	if maxByLen < avail {
		avail = maxByLen
	}
	if avail <= 0 || len(remaining) == 0 {
		return Status{}, fmt.Errorf("encap: intermediate frag: %w", gsetype.ErrSizeBuffer)
	}
	if avail > len(remaining) {
		avail = len(remaining)
	}
	chunk := remaining[:avail]
	gseLen := nonPduOverhead + len(chunk)
	hdr, err := wire.EncodeFixedHeader(gsetype.PktIntermediateFrag, gsetype.LabelReUse, gseLen)
	if err != nil {
		return Status{}, fmt.Errorf("encap: intermediate frag: %w", err)
	}
	n := copy(dst, hdr)
	n += copy(dst[n:], wire.EncodeFragID(ctx.FragID))
	n += copy(dst[n:], chunk)
	if e.metrics != nil {
		e.metrics.RecordPacket("encap", gsetype.PktIntermediateFrag.String(), gsetype.LabelReUse.String(), n)
	}

	return Status{
		Kind: FragPending,
		N:    n,
		Context: gsetype.ContextFrag{
			FragID:       ctx.FragID,
			CRC:          ctx.CRC,
			BytesEmitted: ctx.BytesEmitted + uint16(len(chunk)),
		},
	}, nil
}

// ResetLastLabel clears the remembered label-reuse cache. Callers must
// invoke this at every baseband-frame boundary (spec.md §4.4/§9): ReUse
// compression is only valid within the frame where the full label was
// last transmitted, never across frames.
func (e *Encapsulator) ResetLastLabel() {
	e.lastLabel = nil
	e.reuseCurrent = 0
}

// allocFragID hands out fragment identifiers in round-robin order across
// the full uint8 range; callers pairing an Encapsulator with a bounded
// reassembly.Memory should size that pool's maxFragID to cover however
// many of these may be concurrently in flight.
func (e *Encapsulator) allocFragID() uint8 {
	id := e.nextFragID
	e.nextFragID++
	return id
}
