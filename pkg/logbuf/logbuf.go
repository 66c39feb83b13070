package logbuf

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// LineWidth is the exact size of every buffered record in bytes, terminator
// included. Fixed-width records give O(1) slot placement and let a flush be
// a single whole-multiple write.
const LineWidth = 64

// DefaultCapacity is the default number of record slots in a Buffer.
const DefaultCapacity = 16

var (
	// ErrRecordDropped is returned by Append when the buffer was full and
	// the forced flush failed, so the new record was discarded. Previously
	// buffered records are preserved for the next flush attempt.
	ErrRecordDropped = errors.New("buffer full and flush failed, record dropped")

	// ErrWriteFault is returned by Flush when the write and its single
	// reopen-and-retry both failed. The pending batch is discarded.
	ErrWriteFault = errors.New("storage write fault")
)

// Record is one fixed-width log line. Content is space-padded; the final
// byte is always '\n'.
type Record [LineWidth]byte

// NewRecord builds a Record from a line of content (without terminator).
// Short content is padded with spaces; over-length content is truncated.
// The trailing line terminator is forced either way.
func NewRecord(content string) Record {
	var r Record
	n := copy(r[:LineWidth-1], content)
	for i := n; i < LineWidth-1; i++ {
		r[i] = ' '
	}
	r[LineWidth-1] = '\n'
	return r
}

// Sink supplies the writable file handle a flush writes to. The handle is
// owned by the caller; Reopen is the single recovery step after a short
// write.
type Sink interface {
	// Writer returns the current write handle, opening it if needed.
	Writer() (io.Writer, error)
	// Reopen closes the current handle and opens a fresh one.
	Reopen() (io.Writer, error)
}

// Buffer is a fixed-capacity array of Records awaiting write. It is owned
// by a single goroutine and is not safe for concurrent use.
type Buffer struct {
	slots []Record
	count int
}

// NewBuffer creates a Buffer holding up to capacity records.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{slots: make([]Record, capacity)}
}

// Count returns the number of filled slots.
func (b *Buffer) Count() int { return b.count }

// Cap returns the total number of slots.
func (b *Buffer) Cap() int { return len(b.slots) }

// Full reports whether every slot is filled.
func (b *Buffer) Full() bool { return b.count == len(b.slots) }

// Empty reports whether no slot is filled.
func (b *Buffer) Empty() bool { return b.count == 0 }

// Bytes returns the filled region as one contiguous byte slice of exactly
// Count()*LineWidth bytes.
func (b *Buffer) Bytes() []byte {
	if b.count == 0 {
		return nil
	}
	out := make([]byte, 0, b.count*LineWidth)
	for i := 0; i < b.count; i++ {
		out = append(out, b.slots[i][:]...)
	}
	return out
}

// Append places a record into the next free slot. If the buffer is full it
// first flushes synchronously through the sink; if that flush fails the new
// record is dropped (ErrRecordDropped) and the already-buffered records are
// kept for the next attempt.
func (b *Buffer) Append(rec Record, sink Sink) error {
	if b.Full() {
		if err := b.Flush(sink); err != nil {
			if errors.Is(err, ErrWriteFault) {
				// The fatal path already discarded the batch; the slot
				// freed up, so the new record can still be placed.
				b.slots[b.count] = rec
				b.count++
				return err
			}
			return fmt.Errorf("%w: %s", ErrRecordDropped, err)
		}
	}
	b.slots[b.count] = rec
	b.count++
	return nil
}

// Flush writes all buffered records through the sink. It is a no-op on an
// empty buffer. Exactly Count()*LineWidth bytes are written; on full success
// the buffer resets to empty.
//
// A short write signals a storage fault: the handle is reopened once and the
// whole batch retried. If the retry also fails, the batch is discarded and
// ErrWriteFault returned. That data loss is an explicit policy, not masked.
func (b *Buffer) Flush(sink Sink) error {
	if b.count == 0 {
		return nil
	}

	data := b.Bytes()

	w, err := sink.Writer()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if writeFull(w, data) {
		b.count = 0
		return nil
	}

	// One reopen-and-retry, then give up.
	w, err = sink.Reopen()
	if err != nil {
		b.count = 0
		return fmt.Errorf("%w: reopen failed: %s", ErrWriteFault, err)
	}
	if writeFull(w, data) {
		b.count = 0
		return nil
	}

	b.count = 0
	return ErrWriteFault
}

// Reset discards all buffered records without writing them.
func (b *Buffer) Reset() { b.count = 0 }

// writeFull writes data and reports whether every byte was accepted.
func writeFull(w io.Writer, data []byte) bool {
	n, err := w.Write(data)
	return err == nil && n == len(data)
}

// Scheduler decides when a time-based flush is due, independent of buffer
// fullness. It bounds worst-case data loss on power removal to one interval.
type Scheduler struct {
	interval time.Duration
	last     time.Time
}

// NewScheduler creates a Scheduler with the given flush interval.
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{interval: interval}
}

// Start arms the scheduler at the given instant (typically session start).
func (s *Scheduler) Start(now time.Time) { s.last = now }

// Due reports whether the flush interval has elapsed since the last flush.
func (s *Scheduler) Due(now time.Time) bool {
	if s.last.IsZero() {
		return false
	}
	return now.Sub(s.last) >= s.interval
}

// Flushed records that a flush happened (by any trigger) at the given instant.
func (s *Scheduler) Flushed(now time.Time) { s.last = now }
