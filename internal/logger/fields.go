package logger

import "log/slog"

// Standard field keys for structured logging across the codec, CLI, and
// telemetry layers. Use these consistently so log lines stay greppable.
const (
	// Distributed tracing.
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// GSE packet identity.
	KeyStream       = "stream"
	KeyPktType      = "pkt_type"
	KeyLabelType    = "label_type"
	KeyProtocolType = "protocol_type"
	KeyFragID       = "frag_id"
	KeyGSELen       = "gse_len"
	KeyTotalLen     = "total_len"

	// Payload accounting.
	KeyPDULen       = "pdu_len"
	KeyBytesWritten = "bytes_written"
	KeyBytesRead    = "bytes_read"

	// Errors and status.
	KeyError       = "error"
	KeyRecoverable = "recoverable"
	KeyDurationMs  = "duration_ms"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Stream returns a slog.Attr for the logical stream identifier.
func Stream(s string) slog.Attr { return slog.String(KeyStream, s) }

// PktType returns a slog.Attr for the GSE packet type.
func PktType(t string) slog.Attr { return slog.String(KeyPktType, t) }

// LabelType returns a slog.Attr for the GSE label type.
func LabelType(t string) slog.Attr { return slog.String(KeyLabelType, t) }

// ProtocolType returns a slog.Attr for the GSE protocol type field.
func ProtocolType(pt uint16) slog.Attr { return slog.Any(KeyProtocolType, pt) }

// FragID returns a slog.Attr for a fragment id.
func FragID(id uint8) slog.Attr { return slog.Any(KeyFragID, id) }

// GSELen returns a slog.Attr for the 12-bit GSE length field.
func GSELen(n int) slog.Attr { return slog.Int(KeyGSELen, n) }

// TotalLen returns a slog.Attr for a first-fragment total_length field.
func TotalLen(n uint16) slog.Attr { return slog.Any(KeyTotalLen, n) }

// PDULen returns a slog.Attr for a reassembled or complete PDU's length.
func PDULen(n int) slog.Attr { return slog.Int(KeyPDULen, n) }

// BytesWritten returns a slog.Attr for bytes written to a destination buffer.
func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }

// BytesRead returns a slog.Attr for bytes consumed from a source buffer.
func BytesRead(n int) slog.Attr { return slog.Int(KeyBytesRead, n) }

// Err returns a slog.Attr for an error, or a zero Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Recoverable returns a slog.Attr flagging whether a decap error was
// recoverable (the stream can continue with the next packet).
func Recoverable(r bool) slog.Attr { return slog.Bool(KeyRecoverable, r) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }
