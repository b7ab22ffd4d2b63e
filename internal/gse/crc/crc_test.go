package crc_test

import (
	"testing"

	"github.com/dvbgse/gogse/internal/gse/crc"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCRC32_Deterministic(t *testing.T) {
	label := gsetype.SixByteLabel([6]byte{'0', '1', '2', '3', '4', '5'})
	pdu := []byte("hello, gse")

	c := crc.DefaultCRC32{}
	a := c.Calculate(pdu, 0xFFFF, uint16(gsetype.ProtocolLen+label.Len()+len(pdu)), label)
	b := c.Calculate(pdu, 0xFFFF, uint16(gsetype.ProtocolLen+label.Len()+len(pdu)), label)
	assert.Equal(t, a, b)
}

func TestDefaultCRC32_SensitiveToEveryField(t *testing.T) {
	label := gsetype.SixByteLabel([6]byte{1, 2, 3, 4, 5, 6})
	otherLabel := gsetype.SixByteLabel([6]byte{1, 2, 3, 4, 5, 7})
	pdu := []byte{0xAA, 0xBB, 0xCC}

	c := crc.DefaultCRC32{}
	base := c.Calculate(pdu, 0x0800, 11, label)

	assert.NotEqual(t, base, c.Calculate(pdu, 0x0801, 11, label), "protocol type must affect the checksum")
	assert.NotEqual(t, base, c.Calculate(pdu, 0x0800, 12, label), "total length must affect the checksum")
	assert.NotEqual(t, base, c.Calculate(pdu, 0x0800, 11, otherLabel), "label bytes must affect the checksum")
	assert.NotEqual(t, base, c.Calculate([]byte{0xAA, 0xBB, 0xCD}, 0x0800, 11, label), "pdu bytes must affect the checksum")
}

func TestDefaultCRC32_BroadcastLabelContributesNoBytes(t *testing.T) {
	pdu := []byte{1, 2, 3, 4}
	c := crc.DefaultCRC32{}

	withBroadcast := c.Calculate(pdu, 0x9999, uint16(gsetype.ProtocolLen+len(pdu)), gsetype.BroadcastLabel())
	withReUse := c.Calculate(pdu, 0x9999, uint16(gsetype.ProtocolLen+len(pdu)), gsetype.Label{Kind: gsetype.LabelReUse})
	assert.Equal(t, withBroadcast, withReUse, "both contribute zero label bytes to the checksum")
}
