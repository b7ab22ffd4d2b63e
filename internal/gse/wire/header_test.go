package wire_test

import (
	"testing"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedHeader_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		pktType gsetype.PktType
		lblKind gsetype.LabelKind
		gseLen  int
	}{
		{"complete/six-bytes", gsetype.PktCompletePkt, gsetype.LabelSixBytes, 42},
		{"first/three-bytes", gsetype.PktFirstFrag, gsetype.LabelThreeBytes, 4095},
		{"intermediate/reuse", gsetype.PktIntermediateFrag, gsetype.LabelReUse, 0},
		{"end/broadcast", gsetype.PktEndFrag, gsetype.LabelBroadcast, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hdr, err := wire.EncodeFixedHeader(tc.pktType, tc.lblKind, tc.gseLen)
			require.NoError(t, err)
			require.Len(t, hdr, gsetype.FixedHeaderLen)

			gl, pt, lk, padding, err := wire.DecodeFixedHeader(hdr)
			require.NoError(t, err)
			assert.False(t, padding)
			assert.Equal(t, tc.gseLen, gl)
			assert.Equal(t, tc.pktType, pt)
			assert.Equal(t, tc.lblKind, lk)
		})
	}
}

func TestFixedHeader_PaddingSentinel(t *testing.T) {
	_, _, _, padding, err := wire.DecodeFixedHeader([]byte{0x00, 0x00})
	require.NoError(t, err)
	assert.True(t, padding)
}

func TestFixedHeader_RejectsOverlongLength(t *testing.T) {
	_, err := wire.EncodeFixedHeader(gsetype.PktCompletePkt, gsetype.LabelSixBytes, gsetype.GSELenMax+1)
	assert.ErrorIs(t, err, gsetype.ErrGseLength)
}

func TestFixedHeader_TooShortBuffer(t *testing.T) {
	_, _, _, _, err := wire.DecodeFixedHeader([]byte{0x00})
	assert.ErrorIs(t, err, gsetype.ErrSizeBuffer)
}

func TestLabel_RoundTrip(t *testing.T) {
	six := gsetype.SixByteLabel([6]byte{1, 2, 3, 4, 5, 6})
	buf := wire.EncodeLabel(six)
	require.Len(t, buf, 6)
	decoded, n, err := wire.DecodeLabel(buf, gsetype.LabelSixBytes)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.True(t, six.Equal(decoded))

	three := gsetype.ThreeByteLabel([3]byte{9, 8, 7})
	buf = wire.EncodeLabel(three)
	require.Len(t, buf, 3)
	decoded, n, err = wire.DecodeLabel(buf, gsetype.LabelThreeBytes)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, three.Equal(decoded))
}

func TestLabel_BroadcastAndReUseHaveNoWireBytes(t *testing.T) {
	assert.Empty(t, wire.EncodeLabel(gsetype.BroadcastLabel()))

	decoded, n, err := wire.DecodeLabel(nil, gsetype.LabelBroadcast)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, decoded.IsBroadcast())

	decoded, n, err = wire.DecodeLabel(nil, gsetype.LabelReUse)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, decoded.IsReUse())
}

func TestProtocolType_RoundTrip(t *testing.T) {
	buf := wire.EncodeProtocolType(0xFFFF)
	got, err := wire.DecodeProtocolType(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), got)
}

func TestTotalLength_RoundTrip(t *testing.T) {
	buf := wire.EncodeTotalLength(12345)
	got, err := wire.DecodeTotalLength(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(12345), got)
}

func TestFragID_RoundTrip(t *testing.T) {
	buf := wire.EncodeFragID(0x7F)
	got, err := wire.DecodeFragID(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7F), got)
}

func TestCRC_RoundTrip(t *testing.T) {
	buf := wire.EncodeCRC(0xDEADBEEF)
	got, err := wire.DecodeCRC(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), got)
}
