// ring is the fixed capacity trace buffer that log words are written into
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/omaskery/tracelog/pkg/guard"
	"github.com/omaskery/tracelog/pkg/word"
)

var (
	ErrNotPowerOfTwo = errors.New("buffer length must be a non-zero power of two")
)

// Buffer is an always-full FIFO of words: once every slot has been written, each write
// overwrites the oldest entry. Slots and cursor are read and written one whole word at a
// time, so a concurrent reader may see a snapshot mid-update but never a torn word.
//
// Write is not atomic as a whole, wrap it in a Writer to protect it from preemption.
type Buffer struct {
	storage []word.Word
	mask    uint32
	cursor  uint32
}

// New allocates a zeroed buffer of n words, n must be a power of two
func New(n int) (*Buffer, error) {
	if n <= 0 || n&(n-1) != 0 || uint64(n) > 1<<32 {
		return nil, fmt.Errorf("%d: %w", n, ErrNotPowerOfTwo)
	}
	return &Buffer{
		storage: make([]word.Word, n),
		mask:    uint32(n - 1),
	}, nil
}

// MustNew is New for statically configured lengths, it panics on a bad length
func MustNew(n int) *Buffer {
	b, err := New(n)
	if err != nil {
		panic(err)
	}
	return b
}

// Write stores w at the cursor and advances the cursor, wrapping at the capacity
func (b *Buffer) Write(w word.Word) {
	b.commit(b.reserve(), w)
}

// reserve reads the slot the next write lands in
func (b *Buffer) reserve() uint32 {
	return atomic.LoadUint32(&b.cursor)
}

// commit stores w at ptr and moves the cursor past it
func (b *Buffer) commit(ptr uint32, w word.Word) {
	atomic.StoreUint32((*uint32)(&b.storage[ptr]), uint32(w))
	atomic.StoreUint32(&b.cursor, (ptr+1)&b.mask)
}

// Capacity is the number of words the buffer holds
func (b *Buffer) Capacity() int {
	return len(b.storage)
}

// Cursor is the index of the slot the next write will land in
func (b *Buffer) Cursor() uint32 {
	return atomic.LoadUint32(&b.cursor)
}

// At reads the slot at index i modulo the capacity
func (b *Buffer) At(i uint32) word.Word {
	return word.Word(atomic.LoadUint32((*uint32)(&b.storage[i&b.mask])))
}

// Recent returns up to k of the most recently written slots, newest first. Slots are read
// backward from the cursor, so on a buffer with fewer than k writes the tail holds whatever
// the slots contained before (zero after reset).
func (b *Buffer) Recent(k int) []word.Word {
	if k > len(b.storage) {
		k = len(b.storage)
	}
	out := make([]word.Word, 0, k)
	cursor := b.Cursor()
	for i := 1; i <= k; i++ {
		out = append(out, b.At(cursor-uint32(i)))
	}
	return out
}

// Image is a copy of the buffer memory as an external reader would see it
type Image struct {
	Words  []word.Word
	Cursor uint32
}

// Snapshot copies the buffer. The copy is best effort: writes racing with it may or may not
// be included, and the cursor is read before the slots.
func (b *Buffer) Snapshot() Image {
	img := Image{
		Words:  make([]word.Word, len(b.storage)),
		Cursor: b.Cursor(),
	}
	for i := range b.storage {
		img.Words[i] = b.At(uint32(i))
	}
	return img
}

// Chronological returns the image's words oldest first, ending with the word just before the cursor
func (img Image) Chronological() []word.Word {
	return Unwrap(img.Words, img.Cursor)
}

// Unwrap orders the slots of a buffer image oldest first given its cursor. The cursor is
// taken modulo the number of words.
func Unwrap(words []word.Word, cursor uint32) []word.Word {
	n := len(words)
	out := make([]word.Word, 0, n)
	if n == 0 {
		return out
	}
	start := int(cursor % uint32(n))
	out = append(out, words[start:]...)
	return append(out, words[:start]...)
}

// Writer performs buffer writes inside a critical section of type S. With guard.None the
// section compiles away entirely.
type Writer[S guard.Section] struct {
	buf     *Buffer
	section S
}

// NewWriter pairs a buffer with the section protecting its writes
func NewWriter[S guard.Section](buf *Buffer, section S) *Writer[S] {
	return &Writer[S]{buf: buf, section: section}
}

// Write records w with the section held
func (w *Writer[S]) Write(x word.Word) {
	st := w.section.Enter()
	defer w.section.Exit(st)
	w.buf.Write(x)
}

// Capacity is the capacity of the underlying buffer
func (w *Writer[S]) Capacity() int {
	return w.buf.Capacity()
}

// Buffer exposes the underlying buffer to readers
func (w *Writer[S]) Buffer() *Buffer {
	return w.buf
}
