package reassembly_test

import (
	"testing"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/reassembly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemory_ProvisionsMinMarginHeadroom(t *testing.T) {
	m := reassembly.NewMemory(4, 64)
	assert.Equal(t, 4+gsetype.MinMargin, m.Capacity())
}

func TestNewPDU_PopsFromFreePoolWithNoSlot(t *testing.T) {
	m := reassembly.NewMemory(2, 16)
	before := m.Capacity()
	buf, err := m.NewPDU()
	require.NoError(t, err)
	assert.Len(t, buf, 16)
	assert.Equal(t, before-1, m.Capacity())
}

func TestNewPDU_UnderflowWhenPoolExhausted(t *testing.T) {
	m := reassembly.NewMemory(0, 16)
	for m.Capacity() > 0 {
		_, err := m.NewPDU()
		require.NoError(t, err)
	}
	_, err := m.NewPDU()
	assert.ErrorIs(t, err, reassembly.ErrStorageUnderflow)
}

func TestStartPDU_AppendFrag_TakeFrag_RoundTrip(t *testing.T) {
	m := reassembly.NewMemory(4, 32)
	ctx := gsetype.DecapContext{FragID: 3, ProtocolType: 0x0800, TotalLen: 10}

	require.NoError(t, m.StartPDU(3, ctx, []byte{1, 2, 3}))
	gotCtx, err := m.AppendFrag(3, []byte{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, uint16(6), gotCtx.PDULenSoFar)

	finalCtx, pdu, err := m.TakeFrag(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, pdu)
	assert.Equal(t, uint16(0x0800), finalCtx.ProtocolType)
}

func TestAppendFrag_UndefinedSlot(t *testing.T) {
	m := reassembly.NewMemory(4, 32)
	_, err := m.AppendFrag(1, []byte{1})
	assert.ErrorIs(t, err, reassembly.ErrUndefinedID)
}

func TestTakeFrag_UndefinedSlot(t *testing.T) {
	m := reassembly.NewMemory(4, 32)
	_, _, err := m.TakeFrag(1)
	assert.ErrorIs(t, err, reassembly.ErrUndefinedID)
}

func TestStartPDU_SilentlyEvictsStaleOccupant(t *testing.T) {
	m := reassembly.NewMemory(1, 32)
	ctxA := gsetype.DecapContext{FragID: 0}
	require.NoError(t, m.StartPDU(0, ctxA, []byte{1, 2}))

	ctxB := gsetype.DecapContext{FragID: 0}
	require.NoError(t, m.StartPDU(0, ctxB, []byte{9}))

	finalCtx, pdu, err := m.TakeFrag(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, pdu, "the newer sequence silently evicted the older one")
	assert.Equal(t, uint8(0), finalCtx.FragID)
}

func TestLastOperationEvicted(t *testing.T) {
	m := reassembly.NewMemory(1, 32)
	require.NoError(t, m.StartPDU(0, gsetype.DecapContext{FragID: 0}, []byte{1, 2}))
	assert.False(t, m.LastOperationEvicted(), "the first StartPDU into an empty slot is not an eviction")

	require.NoError(t, m.StartPDU(0, gsetype.DecapContext{FragID: 0}, []byte{9}))
	assert.True(t, m.LastOperationEvicted(), "StartPDU reclaiming a still-occupied slot is an eviction")
}

func TestOccupiedSlots(t *testing.T) {
	m := reassembly.NewMemory(4, 32)
	assert.Equal(t, 0, m.OccupiedSlots())

	require.NoError(t, m.StartPDU(0, gsetype.DecapContext{FragID: 0}, []byte{1}))
	require.NoError(t, m.StartPDU(1, gsetype.DecapContext{FragID: 1}, []byte{2}))
	assert.Equal(t, 2, m.OccupiedSlots())

	_, _, err := m.TakeFrag(0)
	require.NoError(t, err)
	assert.Equal(t, 1, m.OccupiedSlots(), "TakeFrag releases the slot once the PDU completes")
}

func TestAppendFrag_UndefinedIDWhenAliasedAway(t *testing.T) {
	// maxFragID 1 means frag ids 0 and 1 collide in the same slot.
	m := reassembly.NewMemory(1, 32)
	require.NoError(t, m.StartPDU(0, gsetype.DecapContext{FragID: 0}, []byte{1}))
	require.NoError(t, m.StartPDU(1, gsetype.DecapContext{FragID: 1}, []byte{2}))

	// AppendFrag(0, ...) addresses the same slot, now owned by frag id 1.
	_, err := m.AppendFrag(0, []byte{3})
	assert.ErrorIs(t, err, reassembly.ErrUndefinedID)
}

func TestReleaseBuffer_ReturnsBufferToFreePool(t *testing.T) {
	m := reassembly.NewMemory(2, 16)
	before := m.Capacity()
	buf, err := m.NewPDU()
	require.NoError(t, err)
	m.ReleaseBuffer(buf)
	assert.Equal(t, before, m.Capacity())
}

func TestProvisionBuffer_AddsToFreePool(t *testing.T) {
	m := reassembly.NewMemory(2, 16)
	before := m.Capacity()
	require.NoError(t, m.ProvisionBuffer(make([]byte, 16)))
	assert.Equal(t, before+1, m.Capacity())
}

func TestProvisionBuffer_RejectsUndersizedBuffer(t *testing.T) {
	m := reassembly.NewMemory(2, 16)
	err := m.ProvisionBuffer(make([]byte, 4))
	var tooSmall *reassembly.ErrBufferTooSmall
	require.ErrorAs(t, err, &tooSmall)
	assert.Len(t, tooSmall.Buf, 4)
}

func TestProvisionBuffer_RejectsPastCapacity(t *testing.T) {
	m := reassembly.NewMemory(1, 16)
	var lastErr error
	for i := 0; i < 10; i++ {
		lastErr = m.ProvisionBuffer(make([]byte, 16))
		if lastErr != nil {
			break
		}
	}
	var overflow *reassembly.ErrStorageOverflow
	require.ErrorAs(t, lastErr, &overflow)
}

func TestPeek_DoesNotMutateState(t *testing.T) {
	m := reassembly.NewMemory(4, 32)
	ctx := gsetype.DecapContext{FragID: 2, ProtocolType: 0x0800}
	require.NoError(t, m.StartPDU(2, ctx, []byte{1, 2}))

	peeked, ok := m.Peek(2)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0800), peeked.ProtocolType)

	// Still live after Peek.
	_, _, err := m.TakeFrag(2)
	require.NoError(t, err)
}
