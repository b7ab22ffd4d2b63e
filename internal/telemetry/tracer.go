package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for GSE encap/decap spans. These follow OpenTelemetry
// semantic conventions where applicable.
const (
	// ========================================================================
	// Stream identity
	// ========================================================================
	AttrStream       = "gse.stream"
	AttrPktType      = "gse.pkt_type"
	AttrLabelType    = "gse.label_type"
	AttrProtocolType = "gse.protocol_type"
	AttrFragID       = "gse.frag_id"

	// ========================================================================
	// Packet and PDU sizing
	// ========================================================================
	AttrGSELen       = "gse.gse_len"
	AttrTotalLen     = "gse.total_len"
	AttrPDULen       = "gse.pdu_len"
	AttrBytesWritten = "gse.bytes_written"
	AttrBytesRead    = "gse.bytes_read"

	// ========================================================================
	// Label addressing
	// ========================================================================
	AttrLabel       = "gse.label"
	AttrLabelReused = "gse.label_reused"

	// ========================================================================
	// Header extensions
	// ========================================================================
	AttrExtensionID    = "gse.extension.id"
	AttrExtensionClass = "gse.extension.class"

	// ========================================================================
	// Reassembly memory
	// ========================================================================
	AttrMemCapacity  = "gse.memory.capacity"
	AttrMemSlotsUsed = "gse.memory.slots_used"

	// ========================================================================
	// Status
	// ========================================================================
	AttrCRCValid    = "gse.crc_valid"
	AttrRecoverable = "gse.recoverable"
	AttrStatusMsg   = "gse.status_msg"
)

// Span names for encap/decap operations.
const (
	SpanEncapRequest = "gse.encap"
	SpanEncapComplet = "gse.encap.complete"
	SpanEncapFirst   = "gse.encap.first_frag"
	SpanEncapCont    = "gse.encap.continuation_frag"

	SpanDecapRequest = "gse.decap"
	SpanDecapComplet = "gse.decap.complete"
	SpanDecapFirst   = "gse.decap.first_frag"
	SpanDecapInter   = "gse.decap.intermediate_frag"
	SpanDecapEnd     = "gse.decap.end_frag"

	SpanExtChainRead  = "gse.ext_chain.read"
	SpanExtChainWrite = "gse.ext_chain.write"

	SpanMemStartPDU   = "gse.memory.start_pdu"
	SpanMemAppendFrag = "gse.memory.append_frag"
	SpanMemTakeFrag   = "gse.memory.take_frag"
)

// Stream returns an attribute for the logical stream identifier.
func Stream(stream string) attribute.KeyValue {
	return attribute.String(AttrStream, stream)
}

// PktType returns an attribute for the GSE packet type.
func PktType(t string) attribute.KeyValue {
	return attribute.String(AttrPktType, t)
}

// LabelType returns an attribute for the GSE label type.
func LabelType(t string) attribute.KeyValue {
	return attribute.String(AttrLabelType, t)
}

// ProtocolType returns an attribute for the GSE protocol_type field.
func ProtocolType(pt uint16) attribute.KeyValue {
	return attribute.Int64(AttrProtocolType, int64(pt))
}

// FragID returns an attribute for a fragment id.
func FragID(id uint8) attribute.KeyValue {
	return attribute.Int64(AttrFragID, int64(id))
}

// GSELen returns an attribute for the 12-bit GSE length field.
func GSELen(n int) attribute.KeyValue {
	return attribute.Int(AttrGSELen, n)
}

// TotalLen returns an attribute for a first-fragment total_length field.
func TotalLen(n uint16) attribute.KeyValue {
	return attribute.Int64(AttrTotalLen, int64(n))
}

// PDULen returns an attribute for a reassembled or complete PDU's length.
func PDULen(n int) attribute.KeyValue {
	return attribute.Int(AttrPDULen, n)
}

// BytesWritten returns an attribute for bytes written to a destination buffer.
func BytesWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesWritten, n)
}

// BytesRead returns an attribute for bytes consumed from a source buffer.
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// Label returns an attribute for a label rendered as hex.
func Label(bytes []byte) attribute.KeyValue {
	return attribute.String(AttrLabel, fmt.Sprintf("%x", bytes))
}

// LabelReused returns an attribute flagging whether a packet used label-reuse
// compression instead of transmitting the full label.
func LabelReused(reused bool) attribute.KeyValue {
	return attribute.Bool(AttrLabelReused, reused)
}

// ExtensionID returns an attribute for a header extension's id.
func ExtensionID(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrExtensionID, int64(id))
}

// MemCapacity returns an attribute for reassembly memory's slot capacity.
func MemCapacity(n int) attribute.KeyValue {
	return attribute.Int(AttrMemCapacity, n)
}

// CRCValid returns an attribute flagging whether an end fragment's CRC
// matched the computed value.
func CRCValid(valid bool) attribute.KeyValue {
	return attribute.Bool(AttrCRCValid, valid)
}

// Recoverable returns an attribute flagging whether a decap error was
// recoverable (the stream can continue with the next packet).
func Recoverable(r bool) attribute.KeyValue {
	return attribute.Bool(AttrRecoverable, r)
}

// StatusMsg returns an attribute for a human-readable status description.
func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// StartEncapSpan starts a span for an Encapsulator call.
func StartEncapSpan(ctx context.Context, stage string, stream string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Stream(stream)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "gse.encap."+stage, trace.WithAttributes(allAttrs...))
}

// StartDecapSpan starts a span for a Decapsulator call.
func StartDecapSpan(ctx context.Context, stage string, stream string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Stream(stream)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "gse.decap."+stage, trace.WithAttributes(allAttrs...))
}

// StartMemorySpan starts a span for a reassembly.Memory operation.
func StartMemorySpan(ctx context.Context, operation string, fragID uint8, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{FragID(fragID)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "gse.memory."+operation, trace.WithAttributes(allAttrs...))
}

// StartExtensionSpan starts a span for a header extension chain operation.
func StartExtensionSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "gse.ext_chain."+operation, trace.WithAttributes(attrs...))
}
