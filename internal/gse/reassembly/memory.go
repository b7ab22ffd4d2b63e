// Package reassembly implements ReassemblyMemory: the fixed-size pool of
// PDU buffers a Decapsulator uses to track in-flight
// fragmented PDUs, addressed by frag_id modulo the pool's slot count.
// Per spec.md §9, the lossy alias-on-overflow scheme is an explicit,
// accepted tradeoff, not a bug: a fixed array stays O(1) and bounded
// instead of growing a map per frag_id ever seen.
package reassembly

import (
	"fmt"
	"time"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
)

// ErrStorageOverflow is returned by ProvisionBuffer when the free pool
// already holds its maximum number of buffers; the rejected buffer is
// returned so it is not lost.
type ErrStorageOverflow struct{ Buf []byte }

func (e *ErrStorageOverflow) Error() string { return "reassembly: storage overflow" }

// ErrBufferTooSmall is returned when a supplied buffer cannot hold the
// declared PDU size; the buffer is returned unconsumed.
type ErrBufferTooSmall struct{ Buf []byte }

func (e *ErrBufferTooSmall) Error() string { return "reassembly: buffer too small" }

var (
	ErrStorageUnderflow = fmt.Errorf("reassembly: no buffer available in free pool")
	ErrUndefinedID      = fmt.Errorf("reassembly: frag id has no live entry")
	ErrMemoryCorrupted  = fmt.Errorf("reassembly: slot state inconsistent with request")
)

type slot struct {
	ctx gsetype.DecapContext
	buf []byte
	set bool
}

// Option configures optional, currently-advisory Memory parameters.
type Option func(*Memory)

// WithMaxDelay records an upper bound on how long a fragment sequence may
// remain incomplete before the caller should consider it abandoned.
//
// TODO: not yet enforced — acting on this requires the caller's per-frame
// loop to pass elapsed wall-clock time into NewFrag, and spec.md §5
// explicitly keeps timers and scheduling out of the core's scope.
func WithMaxDelay(d time.Duration) Option {
	return func(m *Memory) { m.maxDelay = d }
}

// WithMaxPDUFrag records an upper bound on fragment count per PDU.
//
// TODO: not yet enforced for the same reason as WithMaxDelay — see above.
func WithMaxPDUFrag(n int) Option {
	return func(m *Memory) { m.maxPDUFrag = n }
}

// Memory is the fixed-size reassembly pool. Slots are addressed by
// frag_id modulo maxFragID; a new sequence started on a frag_id whose
// slot is occupied by a different, still-incomplete sequence silently
// evicts the old one (spec.md §9 testable property: "both the
// silent-eviction and explicit-take paths" must be covered by tests).
type Memory struct {
	maxFragID  int
	maxPDUSize int
	maxDelay   time.Duration
	maxPDUFrag int

	free  [][]byte
	slots []slot

	lastEvicted bool
}

// NewMemory builds a pool sized for maxFragID concurrent fragment
// sequences, each up to maxPDUSize bytes, backed by maxFragID+MinMargin
// free buffers (spec.md §3's headroom allowance).
func NewMemory(maxFragID, maxPDUSize int, opts ...Option) *Memory {
	m := &Memory{
		maxFragID:  maxFragID,
		maxPDUSize: maxPDUSize,
		slots:      make([]slot, maxFragID),
	}
	for _, o := range opts {
		o(m)
	}
	m.ProvisionStorage(maxFragID + gsetype.MinMargin)
	return m
}

// Capacity reports how many free buffers are currently available for
// new PDU sequences.
func (m *Memory) Capacity() int { return len(m.free) }

// provisionCap is the hard ceiling on live free-pool buffers (spec.md §3):
// maxFragID reassembly slots plus MinMargin headroom for in-flight Complete
// packets that never touch a slot.
func (m *Memory) provisionCap() int { return m.maxFragID + gsetype.MinMargin }

// ProvisionStorage adds n fresh maxPDUSize buffers to the free pool, used
// internally by NewMemory to build the initial pool.
func (m *Memory) ProvisionStorage(n int) {
	for i := 0; i < n; i++ {
		m.free = append(m.free, make([]byte, m.maxPDUSize))
	}
}

// ProvisionBuffer hands a single caller-owned buffer back to the free pool
// — spec.md §4.3's provision_storage(buf). Rejects buffers smaller than
// maxPDUSize and refuses to grow the pool past its capacity cap, returning
// buf inside the error either way so the caller can re-queue it elsewhere.
func (m *Memory) ProvisionBuffer(buf []byte) error {
	if len(buf) < m.maxPDUSize {
		return &ErrBufferTooSmall{Buf: buf}
	}
	if len(m.free) >= m.provisionCap() {
		return &ErrStorageOverflow{Buf: buf}
	}
	m.free = append(m.free, buf)
	return nil
}

func (m *Memory) index(fragID uint8) int {
	return int(fragID) % m.maxFragID
}

// NewPDU pops one buffer from the free pool for a non-fragmented Complete
// packet, with no association to any reassembly slot. Returns
// ErrStorageUnderflow if the pool is empty.
func (m *Memory) NewPDU() ([]byte, error) {
	if len(m.free) == 0 {
		return nil, ErrStorageUnderflow
	}
	buf := m.free[len(m.free)-1]
	m.free = m.free[:len(m.free)-1]
	return buf, nil
}

// NewFrag starts a new fragment sequence at fragID, taking a buffer from
// the free pool (or evicting the slot's current occupant's buffer back
// to free, if the slot is in use by a different sequence) — spec.md
// §4.3's new_frag.
func (m *Memory) NewFrag(fragID uint8, ctx gsetype.DecapContext) error {
	idx := m.index(fragID)
	m.lastEvicted = false
	if m.slots[idx].set {
		m.free = append(m.free, m.slots[idx].buf)
		m.slots[idx] = slot{}
		m.lastEvicted = true
	}
	if len(m.free) == 0 {
		return ErrStorageUnderflow
	}
	buf := m.free[len(m.free)-1]
	m.free = m.free[:len(m.free)-1]
	m.slots[idx] = slot{ctx: ctx, buf: buf, set: true}
	return nil
}

// LastOperationEvicted reports whether the most recent NewFrag/StartPDU
// call reclaimed a slot that still held a different, incomplete
// reassembly (spec.md §4.3's silent-eviction path). Callers that want to
// observe evictions (e.g. for metrics) should check this immediately
// after the call it describes.
func (m *Memory) LastOperationEvicted() bool { return m.lastEvicted }

// OccupiedSlots reports how many reassembly slots currently hold a live,
// incomplete fragment sequence.
func (m *Memory) OccupiedSlots() int {
	n := 0
	for _, s := range m.slots {
		if s.set {
			n++
		}
	}
	return n
}

// StartPDU begins a new fragment sequence at fragID with the First
// fragment's chunk already in hand, unconditionally claiming the slot
// (evicting whatever occupied it before, per spec.md §9's accepted
// lossy-eviction scheme).
func (m *Memory) StartPDU(fragID uint8, ctx gsetype.DecapContext, data []byte) error {
	if err := m.NewFrag(fragID, ctx); err != nil {
		return err
	}
	idx := m.index(fragID)
	s := &m.slots[idx]
	if len(data) > len(s.buf) {
		return &ErrBufferTooSmall{Buf: data}
	}
	copy(s.buf, data)
	s.ctx.PDULenSoFar = uint16(len(data))
	return nil
}

// AppendFrag appends data to the PDU buffer already started at fragID.
// Returns ErrUndefinedID if no sequence is live there, or if the live
// sequence's frag id no longer matches fragID (it was silently evicted by
// an intervening aliasing collision) — spec.md §4.3's take_frag contract
// treats both cases as "no such id" to the caller.
func (m *Memory) AppendFrag(fragID uint8, data []byte) (gsetype.DecapContext, error) {
	idx := m.index(fragID)
	s := &m.slots[idx]
	if !s.set || s.ctx.FragID != fragID {
		return gsetype.DecapContext{}, ErrUndefinedID
	}
	if int(s.ctx.PDULenSoFar)+len(data) > len(s.buf) {
		return gsetype.DecapContext{}, &ErrBufferTooSmall{Buf: data}
	}
	copy(s.buf[s.ctx.PDULenSoFar:], data)
	s.ctx.PDULenSoFar += uint16(len(data))
	return s.ctx, nil
}

// TakeFrag removes and returns the buffer and context for fragID, freeing
// the slot. Returns ErrUndefinedID if the slot is empty, or if the slot's
// frag id no longer matches (it was silently evicted by an intervening,
// aliased NewFrag/StartPDU) — spec.md §4.3's take_frag contract treats both
// cases as "no such id" to the caller.
func (m *Memory) TakeFrag(fragID uint8) (gsetype.DecapContext, []byte, error) {
	idx := m.index(fragID)
	s := &m.slots[idx]
	if !s.set || s.ctx.FragID != fragID {
		return gsetype.DecapContext{}, nil, ErrUndefinedID
	}
	ctx, buf := s.ctx, s.buf[:s.ctx.PDULenSoFar]
	m.slots[idx] = slot{}
	return ctx, buf, nil
}

// ReleaseBuffer returns a buffer taken via TakeFrag to the free pool
// without committing any further data — used when a fragment sequence
// is abandoned (e.g. explicit caller cancellation, or an End-handler
// validation failure per spec.md §7) rather than completed.
func (m *Memory) ReleaseBuffer(buf []byte) {
	m.free = append(m.free, buf[:cap(buf)])
}

// Peek reports the context currently stored at fragID without removing
// it, for callers that need to inspect in-flight state (e.g.
// get_label_or_frag_id).
func (m *Memory) Peek(fragID uint8) (gsetype.DecapContext, bool) {
	idx := m.index(fragID)
	s := &m.slots[idx]
	if !s.set || s.ctx.FragID != fragID {
		return gsetype.DecapContext{}, false
	}
	return s.ctx, true
}
