package ring

import "github.com/omaskery/tracelog/pkg/word"

// writeInterrupted is Writer.Write with interrupted run between the cursor load and the
// stores that complete the write
func (w *Writer[S]) writeInterrupted(x word.Word, interrupted func()) {
	st := w.section.Enter()
	defer w.section.Exit(st)
	ptr := w.buf.reserve()
	interrupted()
	w.buf.commit(ptr, x)
}
