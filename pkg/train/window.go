package train

import (
	"errors"
	"fmt"

	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
)

// ErrWindowOverrun is returned when the corpus has no room for another window
var ErrWindowOverrun = errors.New("window extends past end of corpus")

// Window is the rolling sequence of one-hot vectors fed to the stack.
//
// Slot 0 is a zero placeholder and never changes. Slots 1..size-1 hold
// consecutive corpus symbols.
type Window struct {
	size      int
	vocabSize int
	slots     tmath.Matrix
}

// NewWindow creates an empty window of size slots over a vocabulary
func NewWindow(size, vocabSize int) (*Window, error) {
	if size < 3 {
		return nil, fmt.Errorf("window size must be at least 3, got %d", size)
	}
	if vocabSize < 2 {
		return nil, fmt.Errorf("vocabulary size must be at least 2, got %d", vocabSize)
	}
	return &Window{
		size:      size,
		vocabSize: vocabSize,
		slots:     tmath.NewMatrix(size, vocabSize),
	}, nil
}

// Fill loads corpus[cursor : cursor+size-1] into slots 1..size-1
func (w *Window) Fill(corpus []int, cursor int) error {
	if cursor < 0 || cursor+w.size-1 > len(corpus) {
		return fmt.Errorf("%w: cursor %d, window %d, corpus %d", ErrWindowOverrun, cursor, w.size, len(corpus))
	}
	for p := 1; p < w.size; p++ {
		id := corpus[cursor+p-1]
		if id < 0 || id >= w.vocabSize {
			return fmt.Errorf("symbol %d at position %d outside vocabulary of %d", id, cursor+p-1, w.vocabSize)
		}
		w.slots[p] = tmath.OneHot(w.vocabSize, id)
	}
	return nil
}

// Advance drops slot 1, shifts the rest left and appends next at the end
func (w *Window) Advance(next tmath.Vector) {
	copy(w.slots[1:w.size-1], w.slots[2:])
	w.slots[w.size-1] = next
}

// Slots returns the current sequence. It stays valid until the next Fill or Advance.
func (w *Window) Slots() tmath.Matrix {
	return w.slots
}

// Size returns the number of slots
func (w *Window) Size() int {
	return w.size
}
