// Package decap implements the Decapsulator state machine: parsing GSE
// packets back into PDUs, including label-reuse resolution, header
// extension chains, and fragment reassembly via reassembly.Memory.
package decap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvbgse/gogse/internal/gse/crc"
	"github.com/dvbgse/gogse/internal/gse/ext"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/reassembly"
	"github.com/dvbgse/gogse/internal/gse/wire"
	"github.com/dvbgse/gogse/pkg/metrics"
)

// Option configures a Decapsulator at construction.
type Option func(*Decapsulator)

// WithRegistry overrides the mandatory extension registry (defaults to
// ext.NoMandatoryExtensions{}).
func WithRegistry(r ext.Registry) Option {
	return func(d *Decapsulator) { d.registry = r }
}

// WithCRCCalculator overrides the CRC-32 implementation (defaults to
// crc.DefaultCRC32{}).
func WithCRCCalculator(c crc.Calculator) Option {
	return func(d *Decapsulator) { d.crcCalc = c }
}

// WithMetrics attaches a metrics.GSEMetrics recorder. A nil m (or never
// calling this option) disables instrumentation at zero cost.
func WithMetrics(m metrics.GSEMetrics) Option {
	return func(d *Decapsulator) { d.metrics = m }
}

// Decapsulator parses a stream of GSE packets, reassembling fragmented
// PDUs with the help of a reassembly.Memory pool. Like Encapsulator, it
// is not safe for concurrent use (spec.md §5).
type Decapsulator struct {
	registry ext.Registry
	crcCalc  crc.Calculator
	mem      *reassembly.Memory
	metrics  metrics.GSEMetrics

	lastLabel *gsetype.Label
}

// NewDecapsulator builds a Decapsulator backed by mem.
func NewDecapsulator(mem *reassembly.Memory, opts ...Option) *Decapsulator {
	d := &Decapsulator{
		registry: ext.NoMandatoryExtensions{},
		crcCalc:  crc.DefaultCRC32{},
		mem:      mem,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// resolveLabel turns a wire-decoded label into the actual destination
// address, resolving ReUse against the last explicit label seen and
// rejecting ReUse-of-ReUse / ReUse-of-Broadcast per spec.md §4.5.
func (d *Decapsulator) resolveLabel(wireLabel gsetype.Label) (gsetype.Label, error) {
	if wireLabel.IsReUse() {
		if d.lastLabel == nil {
			return gsetype.Label{}, gsetype.ErrNoLabelSaved
		}
		// Invariant 4 guarantees lastLabel is never Broadcast/ReUse as a
		// result of this module's own bookkeeping; these branches are
		// defensive checks against hostile or corrupt callers/input.
		if d.lastLabel.IsBroadcast() {
			d.lastLabel = nil
			return gsetype.Label{}, gsetype.ErrLabelBroadcastSaved
		}
		if d.lastLabel.IsReUse() {
			d.lastLabel = nil
			return gsetype.Label{}, gsetype.ErrLabelReUseSaved
		}
		return *d.lastLabel, nil
	}
	if wireLabel.IsBroadcast() {
		// Broadcast is never saved as a reusable label: an immediately
		// following ReUse packet fails with ErrNoLabelSaved rather than
		// silently resolving to the last real label.
		d.lastLabel = nil
		return wireLabel, nil
	}
	saved := wireLabel
	d.lastLabel = &saved
	return wireLabel, nil
}

// ResetLastLabel clears the remembered label-reuse cache. Callers must
// invoke this at every baseband-frame boundary (spec.md §4.5/§9): a ReUse
// packet resolved against a label from a prior frame would silently
// address the wrong destination.
func (d *Decapsulator) ResetLastLabel() {
	d.lastLabel = nil
}

// PeekLabelOrFragID reports the label kind and, for fragmented packets,
// the frag id of the next packet in buffer without consuming it or
// mutating any reassembly/reuse state — the Go equivalent of
// get_label_or_frag_id (spec.md §4.5).
func (d *Decapsulator) PeekLabelOrFragID(buffer []byte) (labelKind gsetype.LabelKind, pktType gsetype.PktType, fragID uint8, hasFragID bool, err error) {
	gseLen, pktType, labelKind, padding, err := wire.DecodeFixedHeader(buffer)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("decap: peek: %w", err)
	}
	if padding {
		return 0, 0, 0, false, nil
	}
	if pktType == gsetype.PktCompletePkt {
		return labelKind, pktType, 0, false, nil
	}
	payload := buffer[gsetype.FixedHeaderLen:]
	if len(payload) < gsetype.FragIDLen || gseLen < gsetype.FragIDLen {
		return 0, 0, 0, false, fmt.Errorf("decap: peek: %w", gsetype.ErrSizeBuffer)
	}
	fragID, err = wire.DecodeFragID(payload)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("decap: peek: %w", err)
	}
	return labelKind, pktType, fragID, true, nil
}

// Decap consumes one packet from the front of buffer. It returns the
// number of bytes consumed from buffer; on error that count is instead
// the number of bytes the caller should skip before retrying (len(buffer)
// when the buffer does not hold a full packet or its header is malformed;
// never 0).
func (d *Decapsulator) Decap(buffer []byte) (Status, int, error) {
	if len(buffer) < gsetype.FixedHeaderLen {
		d.lastLabel = nil
		return Status{}, len(buffer), fmt.Errorf("decap: %w", gsetype.ErrSizeBuffer)
	}
	gseLen, pktType, labelKind, padding, err := wire.DecodeFixedHeader(buffer)
	if err != nil {
		d.lastLabel = nil
		return Status{}, len(buffer), fmt.Errorf("decap: %w", err)
	}
	if padding {
		d.lastLabel = nil
		return Status{Kind: Padding}, len(buffer), nil
	}

	// A gse_length too small to even hold the packet type's fixed
	// overhead (frag id, total length, label, protocol type, CRC) means
	// the header itself is malformed: there is no recoverable packet
	// boundary to skip past, so the rest of the frame is dropped rather
	// than just this one pkt_len (spec.md §4.5 step 4).
	if gseLen < minGseLen(pktType, labelKind) {
		d.lastLabel = nil
		return Status{}, len(buffer), fmt.Errorf("decap: %w", gsetype.ErrGseLength)
	}

	total := gsetype.FixedHeaderLen + gseLen
	if len(buffer) < total {
		d.lastLabel = nil
		return Status{}, len(buffer), fmt.Errorf("decap: %w", gsetype.ErrSizeBuffer)
	}
	payload := buffer[gsetype.FixedHeaderLen:total]

	var st Status
	switch pktType {
	case gsetype.PktCompletePkt:
		st, err = d.decapComplete(payload, labelKind)
	case gsetype.PktFirstFrag:
		st, err = d.decapFirstFrag(payload, labelKind)
	case gsetype.PktIntermediateFrag:
		st, err = d.decapIntermediateFrag(payload)
	case gsetype.PktEndFrag:
		st, err = d.decapEndFrag(payload)
	default:
		err = fmt.Errorf("decap: %w", gsetype.ErrInvalidLabel)
	}
	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordDecapError(sentinelName(err), gsetype.Recoverable(err))
		}
		return Status{}, total, err
	}
	if d.metrics != nil {
		d.metrics.RecordPacket("decap", pktType.String(), labelKind.String(), total)
	}
	return st, total, nil
}

// minGseLen is the smallest gse_length a given packet type and label kind
// can legally declare: the fixed overhead (frag id, total length, label,
// CRC) that the wire layout requires before a single byte of PDU payload,
// plus the trailing protocol_type field every non-fragment-continuation
// packet carries. A declared gse_length below this is not a short read —
// it is a header that cannot describe a valid packet of this type.
func minGseLen(pktType gsetype.PktType, labelKind gsetype.LabelKind) int {
	switch pktType {
	case gsetype.PktCompletePkt:
		return labelKind.Len() + gsetype.ProtocolLen
	case gsetype.PktFirstFrag:
		return gsetype.FragIDLen + gsetype.TotalLengthLen + labelKind.Len() + gsetype.ProtocolLen
	case gsetype.PktIntermediateFrag:
		return gsetype.FragIDLen
	case gsetype.PktEndFrag:
		return gsetype.FragIDLen + gsetype.CRCLen
	default:
		return 0
	}
}

// sentinelName maps a wrapped decap error back to the short name of the
// gsetype sentinel it wraps, for metrics cardinality purposes.
func sentinelName(err error) string {
	for _, s := range []struct {
		name string
		err  error
	}{
		{"ErrSizeBuffer", gsetype.ErrSizeBuffer},
		{"ErrTotalLength", gsetype.ErrTotalLength},
		{"ErrGseLength", gsetype.ErrGseLength},
		{"ErrSizePduBuffer", gsetype.ErrSizePduBuffer},
		{"ErrCRC", gsetype.ErrCRC},
		{"ErrNoLabelSaved", gsetype.ErrNoLabelSaved},
		{"ErrLabelBroadcastSaved", gsetype.ErrLabelBroadcastSaved},
		{"ErrLabelReUseSaved", gsetype.ErrLabelReUseSaved},
		{"ErrUnknownMandatoryHeader", gsetype.ErrUnknownMandatoryHeader},
		{"ErrInvalidLabel", gsetype.ErrInvalidLabel},
		{"ErrNoExtensionFound", gsetype.ErrNoExtensionFound},
	} {
		if errors.Is(err, s.err) {
			return s.name
		}
	}
	return "unknown"
}

func (d *Decapsulator) decapComplete(payload []byte, labelKind gsetype.LabelKind) (Status, error) {
	extensions, effectiveProtocolType, consumed, err := ext.ReadChain(payload, d.registry)
	if err != nil {
		return Status{}, fmt.Errorf("decap: complete: %w", err)
	}
	rest := payload[consumed:]

	wireLabel, n, err := wire.DecodeLabel(rest, labelKind)
	if err != nil {
		return Status{}, fmt.Errorf("decap: complete: %w", err)
	}
	if wireLabel.IsZero() {
		return Status{}, fmt.Errorf("decap: complete: %w", gsetype.ErrInvalidLabel)
	}
	label, err := d.resolveLabel(wireLabel)
	if err != nil {
		return Status{}, fmt.Errorf("decap: complete: %w", err)
	}

	payloadPDU := rest[n:]

	buf, err := d.mem.NewPDU()
	if err != nil {
		return Status{}, fmt.Errorf("decap: complete: %w", err)
	}
	if len(payloadPDU) > len(buf) {
		d.mem.ReleaseBuffer(buf)
		return Status{}, fmt.Errorf("decap: complete: %w", gsetype.ErrSizePduBuffer)
	}
	pdu := buf[:len(payloadPDU)]
	copy(pdu, payloadPDU)

	return Status{
		Kind: CompletedPkt,
		PDU:  pdu,
		Meta: gsetype.DecapMetadata{
			PDULen:       len(pdu),
			ProtocolType: effectiveProtocolType,
			Label:        label,
			Extensions:   extensions,
		},
	}, nil
}

func (d *Decapsulator) decapFirstFrag(payload []byte, labelKind gsetype.LabelKind) (Status, error) {
	off := 0
	fragID, err := wire.DecodeFragID(payload[off:])
	if err != nil {
		return Status{}, fmt.Errorf("decap: first frag: %w", err)
	}
	off += gsetype.FragIDLen

	totalLen, err := wire.DecodeTotalLength(payload[off:])
	if err != nil {
		return Status{}, fmt.Errorf("decap: first frag: %w", err)
	}
	off += gsetype.TotalLengthLen

	extensions, effectiveProtocolType, consumed, err := ext.ReadChain(payload[off:], d.registry)
	if err != nil {
		return Status{}, fmt.Errorf("decap: first frag: %w", err)
	}
	off += consumed

	wireLabel, n, err := wire.DecodeLabel(payload[off:], labelKind)
	if err != nil {
		return Status{}, fmt.Errorf("decap: first frag: %w", err)
	}
	off += n
	if wireLabel.IsZero() {
		return Status{}, fmt.Errorf("decap: first frag: %w", gsetype.ErrInvalidLabel)
	}

	label, err := d.resolveLabel(wireLabel)
	if err != nil {
		return Status{}, fmt.Errorf("decap: first frag: %w", err)
	}

	chunk := payload[off:]

	ctx := gsetype.DecapContext{
		Label:          label,
		ProtocolType:   effectiveProtocolType,
		FragID:         fragID,
		TotalLen:       totalLen,
		FromLabelReuse: wireLabel.IsReUse(),
		Extensions:     extensions,
		StartedAt:      time.Now(),
	}
	if err := d.mem.StartPDU(fragID, ctx, chunk); err != nil {
		return Status{}, fmt.Errorf("decap: first frag: %w", err)
	}
	if d.metrics != nil {
		if d.mem.LastOperationEvicted() {
			d.metrics.RecordReassemblyEviction()
		}
		d.metrics.SetReassemblySlotsInUse(d.mem.OccupiedSlots())
	}
	return Status{Kind: FragmentPending, FragID: fragID, Fragmented: true}, nil
}

func (d *Decapsulator) decapIntermediateFrag(payload []byte) (Status, error) {
	fragID, err := wire.DecodeFragID(payload)
	if err != nil {
		return Status{}, fmt.Errorf("decap: intermediate frag: %w", err)
	}
	chunk := payload[gsetype.FragIDLen:]
	if _, err := d.mem.AppendFrag(fragID, chunk); err != nil {
		return Status{}, fmt.Errorf("decap: intermediate frag: %w", err)
	}
	return Status{Kind: FragmentPending, FragID: fragID, Fragmented: true}, nil
}

func (d *Decapsulator) decapEndFrag(payload []byte) (Status, error) {
	fragID, err := wire.DecodeFragID(payload)
	if err != nil {
		return Status{}, fmt.Errorf("decap: end frag: %w", err)
	}
	off := gsetype.FragIDLen
	if len(payload)-off < gsetype.CRCLen {
		return Status{}, fmt.Errorf("decap: end frag: %w", gsetype.ErrSizeBuffer)
	}
	chunkEnd := len(payload) - gsetype.CRCLen
	chunk := payload[off:chunkEnd]

	if _, err := d.mem.AppendFrag(fragID, chunk); err != nil {
		// reassembly.ErrBufferTooSmall (the PDU overflows the slot's
		// buffer) or ErrUndefinedID: release the slot's buffer back to
		// the pool rather than leaving it stranded (spec.md §7: buffer
		// returned to free pool on End-handler errors).
		if _, buf, takeErr := d.mem.TakeFrag(fragID); takeErr == nil {
			d.mem.ReleaseBuffer(buf)
		}
		return Status{}, fmt.Errorf("decap: end frag: %w", err)
	}
	wantCRC, err := wire.DecodeCRC(payload[chunkEnd:])
	if err != nil {
		if _, buf, takeErr := d.mem.TakeFrag(fragID); takeErr == nil {
			d.mem.ReleaseBuffer(buf)
		}
		return Status{}, fmt.Errorf("decap: end frag: %w", err)
	}

	ctx, pdu, err := d.mem.TakeFrag(fragID)
	if err != nil {
		return Status{}, fmt.Errorf("decap: end frag: %w", err)
	}

	// First-fragment label length on the wire is zero for Broadcast and
	// ReUse; otherwise it equals the resolved label's own length, since
	// a non-reuse, non-broadcast label is transmitted in full.
	crcLabel := ctx.Label
	if ctx.FromLabelReuse || ctx.Label.IsBroadcast() {
		crcLabel = gsetype.Label{Kind: gsetype.LabelBroadcast}
	}
	wireLabelLen := crcLabel.Len()
	if int(ctx.TotalLen) != gsetype.ProtocolLen+wireLabelLen+len(pdu) {
		d.mem.ReleaseBuffer(pdu)
		return Status{}, fmt.Errorf("decap: end frag: %w", gsetype.ErrTotalLength)
	}

	gotCRC := d.crcCalc.Calculate(pdu, ctx.ProtocolType, ctx.TotalLen, crcLabel)
	if gotCRC != wantCRC {
		if d.metrics != nil {
			d.metrics.RecordCRCResult(false)
		}
		d.mem.ReleaseBuffer(pdu)
		return Status{}, fmt.Errorf("decap: end frag: %w", gsetype.ErrCRC)
	}
	if d.metrics != nil {
		d.metrics.RecordCRCResult(true)
		d.metrics.RecordReassemblyComplete(len(pdu), time.Since(ctx.StartedAt))
		d.metrics.SetReassemblySlotsInUse(d.mem.OccupiedSlots())
	}

	return Status{
		Kind: CompletedPkt,
		PDU:  pdu,
		Meta: gsetype.DecapMetadata{
			PDULen:       len(pdu),
			ProtocolType: ctx.ProtocolType,
			Label:        ctx.Label,
			Extensions:   ctx.Extensions,
		},
		FragID:     fragID,
		Fragmented: true,
	}, nil
}
