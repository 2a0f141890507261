package answer

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/wordgate/internal/observe"
)

// Check statuses stored in [Record.Status].
const (
	StatusRecognized   = observe.CheckRecognized
	StatusUnrecognized = observe.CheckUnrecognized
	StatusFailed       = observe.CheckFailed
)

// DefaultJournalSize is the capacity of a [MemoryJournal] created with a
// non-positive size.
const DefaultJournalSize = 500

// Record is one journalled answer check.
type Record struct {
	ID            string        `json:"id"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	ContentType   string        `json:"content_type"`
	Bytes         int           `json:"bytes"`
	Provider      string        `json:"provider,omitempty"`
	Transcript    string        `json:"transcript"`
	Normalized    string        `json:"normalized,omitempty"`
	Status        string        `json:"status"`
	Message       string        `json:"message,omitempty"`
	Latency       time.Duration `json:"latency_ns"`
	At            time.Time     `json:"at"`
}

// Journal persists answer checks.
type Journal interface {
	// Write appends rec.
	Write(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

var _ Journal = (*MemoryJournal)(nil)

// MemoryJournal is a fixed-size ring of the most recent checks. It is safe
// for concurrent use.
type MemoryJournal struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool
}

// NewMemoryJournal returns a journal keeping the last size records.
func NewMemoryJournal(size int) *MemoryJournal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &MemoryJournal{buf: make([]Record, size)}
}

// Write implements [Journal].
func (j *MemoryJournal) Write(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buf[j.next] = rec
	j.next = (j.next + 1) % len(j.buf)
	if j.next == 0 {
		j.full = true
	}
	return nil
}

// Recent implements [Journal].
func (j *MemoryJournal) Recent(_ context.Context, limit int) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := j.next
	if j.full {
		n = len(j.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.buf)) % len(j.buf)
		out = append(out, j.buf[idx])
	}
	return out, nil
}

// Len returns the number of records held.
func (j *MemoryJournal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.full {
		return len(j.buf)
	}
	return j.next
}
