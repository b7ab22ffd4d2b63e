// Package crc implements GSE's CRC-32 variant: polynomial 0x04C11DB7,
// initial value 0xFFFFFFFF, MSB-first/non-reflected processing, no final
// XOR. This does not match any of the variants stdlib hash/crc32 builds
// tables for (those are all reflected/LSB-first), so the table and update
// loop are hand-rolled here, the same way original_source's crc.rs does.
package crc

import "github.com/dvbgse/gogse/internal/gse/gsetype"

const (
	polynomial = 0x04C11DB7
	initial    = 0xFFFFFFFF
)

var table = buildTable(polynomial)

func buildTable(poly uint32) [256]uint32 {
	var t [256]uint32
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

func update(crc uint32, data []byte) uint32 {
	for _, b := range data {
		idx := byte(crc>>24) ^ b
		crc = (crc << 8) ^ table[idx]
	}
	return crc
}

// Calculator computes the CRC-32 covering a reassembled PDU's canonical
// field ordering (total_length, protocol_type, label, pdu), pluggable so
// callers needing a different CRC variant can swap it in.
type Calculator interface {
	Calculate(pdu []byte, protocolType uint16, totalLength uint16, label gsetype.Label) uint32
}

// DefaultCRC32 is the GSE-standard CRC-32, matching
// _examples/original_source/src/crc.rs's constants exactly.
type DefaultCRC32 struct{}

// Calculate runs the CRC over the two-byte total_length, then the
// two-byte protocol_type, then the label's significant address bytes,
// then the pdu bytes, all big-endian — spec.md §6's canonical field
// order ("total_length ∥ protocol_type ∥ label_bytes ∥ pdu_bytes").
func (DefaultCRC32) Calculate(pdu []byte, protocolType uint16, totalLength uint16, label gsetype.Label) uint32 {
	crc := uint32(initial)
	crc = update(crc, []byte{byte(totalLength >> 8), byte(totalLength)})
	crc = update(crc, []byte{byte(protocolType >> 8), byte(protocolType)})
	crc = update(crc, label.Slice())
	crc = update(crc, pdu)
	return crc
}

var _ Calculator = DefaultCRC32{}
