package gsetype

import "errors"

// Encapsulator errors.
var (
	ErrSizeBuffer                    = errors.New("gse: destination buffer too small")
	ErrPduLength                     = errors.New("gse: pdu too large to fragment within constraints")
	ErrProtocolType                  = errors.New("gse: protocol type out of range for a non-extension pdu")
	ErrInvalidLabel                  = errors.New("gse: invalid label for this context")
	ErrNoExtensionFound              = errors.New("gse: no extension registered for protocol type")
	ErrFinalMandatoryExtensionHeader = errors.New("gse: final mandatory extension must terminate the chain")
)

// Decapsulator errors.
var (
	ErrTotalLength            = errors.New("gse: total length field mismatch")
	ErrGseLength              = errors.New("gse: gse length field mismatch")
	ErrSizePduBuffer          = errors.New("gse: reassembly pdu buffer too small")
	ErrCRC                    = errors.New("gse: crc check failed")
	ErrNoLabelSaved           = errors.New("gse: label reuse requested but no label saved")
	ErrLabelBroadcastSaved    = errors.New("gse: label reuse resolved to broadcast, which cannot be reused")
	ErrLabelReUseSaved        = errors.New("gse: label reuse cannot itself be saved as the reusable label")
	ErrUnknownMandatoryHeader = errors.New("gse: unknown mandatory extension header")
)

// Recoverable reports whether a decap error represents a malformed or
// unrecognized packet that should be skipped (caller may continue feeding
// subsequent packets) rather than one that corrupts shared state and
// forces a frame reset.
func Recoverable(err error) bool {
	switch {
	case errors.Is(err, ErrCRC),
		errors.Is(err, ErrTotalLength),
		errors.Is(err, ErrUnknownMandatoryHeader),
		errors.Is(err, ErrNoLabelSaved),
		errors.Is(err, ErrLabelBroadcastSaved),
		errors.Is(err, ErrLabelReUseSaved):
		return true
	default:
		return false
	}
}
