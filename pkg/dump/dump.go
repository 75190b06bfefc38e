// dump reads trace buffer memory images captured by a debugger
package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/omaskery/tracelog/pkg/ring"
	"github.com/omaskery/tracelog/pkg/word"
)

var (
	ErrTruncatedImage   = errors.New("image length is not a whole number of words")
	ErrCursorOutOfRange = errors.New("cursor does not index the buffer")
)

// Layout describes how the buffer was laid out in the captured memory
type Layout struct {
	// Order is the byte order of the target, little-endian when nil
	Order binary.ByteOrder
	// TrailingCursor means the word after the buffer is the cursor, as when the buffer and
	// cursor variables are dumped as one region
	TrailingCursor bool
	// Cursor is used when the image has no trailing cursor
	Cursor uint32
}

// Read parses a memory image
func Read(r io.Reader, layout Layout) (ring.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ring.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if len(raw)%4 != 0 {
		return ring.Image{}, fmt.Errorf("%d bytes: %w", len(raw), ErrTruncatedImage)
	}

	order := layout.Order
	if order == nil {
		order = binary.LittleEndian
	}

	words := make([]word.Word, len(raw)/4)
	if err := binary.Read(bytes.NewReader(raw), order, words); err != nil {
		return ring.Image{}, fmt.Errorf("failed to decode words: %w", err)
	}

	cursor := layout.Cursor
	if layout.TrailingCursor {
		if len(words) == 0 {
			return ring.Image{}, fmt.Errorf("no room for a trailing cursor: %w", ErrTruncatedImage)
		}
		cursor = uint32(words[len(words)-1])
		words = words[:len(words)-1]
	}

	n := len(words)
	if n == 0 || n&(n-1) != 0 {
		return ring.Image{}, fmt.Errorf("%d words: %w", n, ring.ErrNotPowerOfTwo)
	}
	if cursor >= uint32(n) {
		return ring.Image{}, fmt.Errorf("cursor %d with %d words: %w", cursor, n, ErrCursorOutOfRange)
	}

	return ring.Image{Words: words, Cursor: cursor}, nil
}

// ReadFile parses the memory image at path
func ReadFile(path string, layout Layout) (ring.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return ring.Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Read(f, layout)
	if err != nil {
		return ring.Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Write produces an image Read can parse back with the same layout
func Write(w io.Writer, img ring.Image, layout Layout) error {
	order := layout.Order
	if order == nil {
		order = binary.LittleEndian
	}
	if err := binary.Write(w, order, img.Words); err != nil {
		return fmt.Errorf("failed to write words: %w", err)
	}
	if layout.TrailingCursor {
		if err := binary.Write(w, order, img.Cursor); err != nil {
			return fmt.Errorf("failed to write cursor: %w", err)
		}
	}
	return nil
}

// Words returns the image's words oldest first. Zero words are slots never written since
// reset, they are dropped unless keepZero is set.
func Words(img ring.Image, keepZero bool) []word.Word {
	ordered := img.Chronological()
	if keepZero {
		return ordered
	}
	out := ordered[:0]
	for _, w := range ordered {
		if w != 0 {
			out = append(out, w)
		}
	}
	return out
}
