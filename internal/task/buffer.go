package task

import "time"

// BufferKind distinguishes the single project buffer from per-feeding-chain
// buffers.
type BufferKind int

const (
	BufferProject BufferKind = iota
	BufferFeeding
)

func (k BufferKind) String() string {
	if k == BufferProject {
		return "project"
	}
	return "feeding"
}

// ConsumptionRecord is one self-contained entry in a buffer's append-only
// consumption history.
type ConsumptionRecord struct {
	Date           time.Time
	Remaining      float64
	ConsumptionPct float64
}

// Buffer is a schedule element, not a Task: a time reserve that absorbs
// variance from the chain it protects.
type Buffer struct {
	ID                 string
	Kind               BufferKind
	SizeDays           float64
	OriginalSize       float64
	Remaining          float64
	StartDate          time.Time
	EndDate            time.Time
	AttachesTo         string // task id the buffer attaches to
	SourceChain        string // chain id the buffer sizes from
	ConsumptionHistory []ConsumptionRecord
}

// NewBuffer constructs a Buffer at full size with Remaining == OriginalSize.
func NewBuffer(id string, kind BufferKind, sizeDays float64, attachesTo, sourceChain string) *Buffer {
	return &Buffer{
		ID:           id,
		Kind:         kind,
		SizeDays:     sizeDays,
		OriginalSize: sizeDays,
		Remaining:    sizeDays,
		AttachesTo:   attachesTo,
		SourceChain:  sourceChain,
	}
}

// ConsumptionPct returns (original_size - remaining) / original_size * 100,
// or 0 for a zero-size buffer.
func (b *Buffer) ConsumptionPct() float64 {
	if b.OriginalSize <= 0 {
		return 0
	}
	consumed := b.OriginalSize - b.Remaining
	if consumed < 0 {
		consumed = 0
	}
	return consumed / b.OriginalSize * 100
}

// SetRemaining records a new absolute remaining value as of date, clamped
// to [0, OriginalSize], and appends to ConsumptionHistory.
func (b *Buffer) SetRemaining(remaining float64, date time.Time) {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > b.OriginalSize {
		remaining = b.OriginalSize
	}
	b.Remaining = remaining

	b.ConsumptionHistory = append(b.ConsumptionHistory, ConsumptionRecord{
		Date:           date,
		Remaining:      remaining,
		ConsumptionPct: b.ConsumptionPct(),
	})
}
