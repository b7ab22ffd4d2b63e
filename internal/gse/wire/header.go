// Package wire implements the bit-exact encode/decode functions for the
// GSE fixed header, label field, and fragment header — the same
// "stateless pure function over a byte slice" shape as the teacher's
// internal/protocol/xdr package, adapted to GSE's 2|2|12-bit fixed header
// instead of XDR's 4-byte-aligned records.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
)

// fixed header bit layout (spec.md §6.1):
//
//	bit 15    S (start)
//	bit 14    E (end)
//	bit 13-12 LT (label type)
//	bit 11-0  GSE length
const (
	startBit     = 15
	endBit       = 14
	labelTypeLo  = 12
	gseLenMask   = 0x0FFF
	labelTypeMsk = 0x3
)

// EncodeFixedHeader packs packet type, label kind, and the 12-bit GSE
// length into the two-byte fixed header.
func EncodeFixedHeader(pktType gsetype.PktType, labelKind gsetype.LabelKind, gseLen int) ([]byte, error) {
	if gseLen < 0 || gseLen > gsetype.GSELenMax {
		return nil, fmt.Errorf("wire: encode fixed header: %w", gsetype.ErrGseLength)
	}
	s := uint16(pktType) >> 1 & 1
	e := uint16(pktType) & 1
	lt := labelKindBits(labelKind)

	h := s<<startBit | e<<endBit | lt<<labelTypeLo | uint16(gseLen)&gseLenMask
	buf := make([]byte, gsetype.FixedHeaderLen)
	binary.BigEndian.PutUint16(buf, h)
	return buf, nil
}

// DecodeFixedHeader unpacks the two-byte fixed header. padding reports
// whether the header reads as the padding sentinel: S, E and LT bits all
// zero (the GSE length bits are not examined).
func DecodeFixedHeader(buf []byte) (gseLen int, pktType gsetype.PktType, labelKind gsetype.LabelKind, padding bool, err error) {
	if len(buf) < gsetype.FixedHeaderLen {
		return 0, 0, 0, false, fmt.Errorf("wire: decode fixed header: %w", gsetype.ErrSizeBuffer)
	}
	h := binary.BigEndian.Uint16(buf)
	s := (h >> startBit) & 1
	e := (h >> endBit) & 1
	lt := (h >> labelTypeLo) & labelTypeMsk
	gl := int(h & gseLenMask)

	if s == 0 && e == 0 && lt == 0 {
		return 0, 0, 0, true, nil
	}

	pt := gsetype.PktType(s<<1 | e)
	lk, err := labelKindFromBits(lt)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("wire: decode fixed header: %w", err)
	}
	return gl, pt, lk, false, nil
}

func labelKindBits(k gsetype.LabelKind) uint16 {
	switch k {
	case gsetype.LabelSixBytes:
		return 0b00
	case gsetype.LabelThreeBytes:
		return 0b01
	case gsetype.LabelBroadcast:
		return 0b10
	case gsetype.LabelReUse:
		return 0b11
	default:
		return 0b00
	}
}

func labelKindFromBits(b uint16) (gsetype.LabelKind, error) {
	switch b {
	case 0b00:
		return gsetype.LabelSixBytes, nil
	case 0b01:
		return gsetype.LabelThreeBytes, nil
	case 0b10:
		return gsetype.LabelBroadcast, nil
	case 0b11:
		return gsetype.LabelReUse, nil
	default:
		return 0, gsetype.ErrInvalidLabel
	}
}

// EncodeLabel writes the label's significant bytes (0, 3, or 6 depending
// on kind) to the wire; Broadcast and ReUse labels contribute nothing.
func EncodeLabel(label gsetype.Label) []byte {
	n := label.Len()
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, label.Slice())
	return out
}

// DecodeLabel reads a label of the given kind from buf.
func DecodeLabel(buf []byte, kind gsetype.LabelKind) (gsetype.Label, int, error) {
	n := kind.Len()
	if n == 0 {
		switch kind {
		case gsetype.LabelBroadcast:
			return gsetype.BroadcastLabel(), 0, nil
		case gsetype.LabelReUse:
			return gsetype.Label{Kind: gsetype.LabelReUse}, 0, nil
		default:
			return gsetype.Label{}, 0, gsetype.ErrInvalidLabel
		}
	}
	if len(buf) < n {
		return gsetype.Label{}, 0, fmt.Errorf("wire: decode label: %w", gsetype.ErrSizeBuffer)
	}
	var l gsetype.Label
	l.Kind = kind
	copy(l.Bytes[:n], buf[:n])
	return l, n, nil
}

// EncodeProtocolType writes the two-byte protocol type / extension-id
// field in big-endian order, as used for both the leading protocol_type
// of a header-extension-free packet and each link in an extension chain.
func EncodeProtocolType(pt uint16) []byte {
	buf := make([]byte, gsetype.ProtocolLen)
	binary.BigEndian.PutUint16(buf, pt)
	return buf
}

// DecodeProtocolType reads a two-byte protocol type / extension-id field.
func DecodeProtocolType(buf []byte) (uint16, error) {
	if len(buf) < gsetype.ProtocolLen {
		return 0, fmt.Errorf("wire: decode protocol type: %w", gsetype.ErrSizeBuffer)
	}
	return binary.BigEndian.Uint16(buf), nil
}

// EncodeTotalLength writes the first-fragment total_length field.
func EncodeTotalLength(n uint16) []byte {
	buf := make([]byte, gsetype.TotalLengthLen)
	binary.BigEndian.PutUint16(buf, n)
	return buf
}

// DecodeTotalLength reads the first-fragment total_length field.
func DecodeTotalLength(buf []byte) (uint16, error) {
	if len(buf) < gsetype.TotalLengthLen {
		return 0, fmt.Errorf("wire: decode total length: %w", gsetype.ErrSizeBuffer)
	}
	return binary.BigEndian.Uint16(buf), nil
}

// EncodeFragID writes the one-byte fragment id.
func EncodeFragID(id uint8) []byte { return []byte{id} }

// DecodeFragID reads the one-byte fragment id.
func DecodeFragID(buf []byte) (uint8, error) {
	if len(buf) < gsetype.FragIDLen {
		return 0, fmt.Errorf("wire: decode frag id: %w", gsetype.ErrSizeBuffer)
	}
	return buf[0], nil
}

// EncodeCRC writes the four-byte trailing CRC-32 field of an End fragment.
func EncodeCRC(crc uint32) []byte {
	buf := make([]byte, gsetype.CRCLen)
	binary.BigEndian.PutUint32(buf, crc)
	return buf
}

// DecodeCRC reads the four-byte trailing CRC-32 field.
func DecodeCRC(buf []byte) (uint32, error) {
	if len(buf) < gsetype.CRCLen {
		return 0, fmt.Errorf("wire: decode crc: %w", gsetype.ErrSizeBuffer)
	}
	return binary.BigEndian.Uint32(buf), nil
}
