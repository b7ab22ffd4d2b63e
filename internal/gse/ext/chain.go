package ext

import (
	"bytes"
	"fmt"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/wire"
)

// WriteChain appends the encoded header-extension chain to buf, followed
// by the trailing protocol_type/id field. It decides whether that
// trailing field carries the real protocolType or another extension id
// the same way the original's encap path does: only a terminal mandatory
// extension recognized as Final by registry, whose id equals protocolType,
// lets the field double as the real protocol type; a Final extension whose
// id differs from protocolType is rejected. After optional and non-final
// mandatory extensions the real protocolType goes in its own two-byte slot
// after the chain. An unknown mandatory id is rejected.
func WriteChain(buf *bytes.Buffer, extensions []gsetype.Extension, protocolType uint16, registry Registry) error {
	for i, e := range extensions {
		buf.Write(wire.EncodeProtocolType(e.ID))
		if e.IsMandatory() {
			lookup := registry.Lookup(e.ID)
			switch lookup.Class {
			case Final:
				if len(e.Data) != lookup.DataLen {
					return fmt.Errorf("ext: write chain: extension %#x: %w", e.ID, gsetype.ErrFinalMandatoryExtensionHeader)
				}
				buf.Write(e.Data)
				if i != len(extensions)-1 {
					return fmt.Errorf("ext: write chain: extension %#x terminates chain but is not last: %w", e.ID, gsetype.ErrFinalMandatoryExtensionHeader)
				}
				// Final mandatory extension's own id stands in for the
				// trailing protocol_type field and terminates the chain; a
				// reader stops here, so the declared protocol type must
				// agree or the packet is unreadable.
				if e.ID != protocolType {
					return fmt.Errorf("ext: write chain: extension %#x terminates chain but protocol type %#x disagrees: %w", e.ID, protocolType, gsetype.ErrFinalMandatoryExtensionHeader)
				}
				return nil
			case NonFinal:
				if len(e.Data) != lookup.DataLen {
					return fmt.Errorf("ext: write chain: extension %#x: %w", e.ID, gsetype.ErrUnknownMandatoryHeader)
				}
				buf.Write(e.Data)
			default:
				return fmt.Errorf("ext: write chain: extension %#x: %w", e.ID, gsetype.ErrUnknownMandatoryHeader)
			}
		} else {
			wantLen := optionalDataLen(e.HLen())
			if wantLen < 0 || len(e.Data) != wantLen {
				return fmt.Errorf("ext: write chain: extension %#x: %w", e.ID, gsetype.ErrSizeBuffer)
			}
			buf.Write(e.Data)
		}
	}
	if protocolType >= gsetype.MandatoryPTypeMax && protocolType < gsetype.SecondRangePType {
		return fmt.Errorf("ext: write chain: %w", gsetype.ErrProtocolType)
	}
	buf.Write(wire.EncodeProtocolType(protocolType))
	return nil
}

// ReadChain reads a header-extension chain from buf, following H-LEN
// links until either an optional extension's declared length is consumed
// and the next two bytes resolve to a non-extension protocol type
// (>= SecondRangePType), or a mandatory extension resolves to Final and
// supplies the effective protocol type itself.
func ReadChain(buf []byte, registry Registry) (extensions []gsetype.Extension, effectiveProtocolType uint16, consumed int, err error) {
	off := 0
	for {
		id, derr := wire.DecodeProtocolType(buf[off:])
		if derr != nil {
			return nil, 0, 0, fmt.Errorf("ext: read chain: %w", derr)
		}
		off += gsetype.ProtocolLen

		hlen := id >> 8
		if hlen == 0 {
			// Mandatory extension: H-LEN class 0.
			lookup := registry.Lookup(id)
			switch lookup.Class {
			case Final:
				if len(buf[off:]) < lookup.DataLen {
					return nil, 0, 0, fmt.Errorf("ext: read chain: %w", gsetype.ErrSizeBuffer)
				}
				data := append([]byte(nil), buf[off:off+lookup.DataLen]...)
				off += lookup.DataLen
				extensions = append(extensions, gsetype.Extension{ID: id, Data: data})
				return extensions, id, off, nil
			case NonFinal:
				if len(buf[off:]) < lookup.DataLen {
					return nil, 0, 0, fmt.Errorf("ext: read chain: %w", gsetype.ErrSizeBuffer)
				}
				data := append([]byte(nil), buf[off:off+lookup.DataLen]...)
				off += lookup.DataLen
				extensions = append(extensions, gsetype.Extension{ID: id, Data: data})
				continue
			default:
				return nil, 0, 0, fmt.Errorf("ext: read chain: %w", gsetype.ErrUnknownMandatoryHeader)
			}
		}

		if id >= gsetype.SecondRangePType {
			// This field was the real protocol type, not an extension id:
			// the chain (possibly empty) has ended.
			return extensions, id, off, nil
		}

		// Optional extension: H-LEN class 1..5.
		dlen := optionalDataLen(hlen)
		if dlen < 0 {
			return nil, 0, 0, fmt.Errorf("ext: read chain: extension %#x: %w", id, gsetype.ErrNoExtensionFound)
		}
		if len(buf[off:]) < dlen {
			return nil, 0, 0, fmt.Errorf("ext: read chain: %w", gsetype.ErrSizeBuffer)
		}
		data := append([]byte(nil), buf[off:off+dlen]...)
		off += dlen
		extensions = append(extensions, gsetype.Extension{ID: id, Data: data})
	}
}
