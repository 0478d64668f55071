package monitor

// WindowAssembler accumulates samples into fixed, non-overlapping analysis
// windows. It stores incoming samples in a circular buffer of capacity
// WindowSize and emits a completed window exactly once every WindowSize
// pushes; nothing is emitted before the buffer has filled.
//
// The assembler is not safe for concurrent use; the pipeline owns it and
// serializes pushes.
type WindowAssembler struct {
	buf   []float64
	out   []float64
	head  int
	count int
}

// NewWindowAssembler returns an assembler for windows of the given size.
// A size <= 0 selects DefaultWindowSize.
func NewWindowAssembler(size int) *WindowAssembler {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &WindowAssembler{
		buf: make([]float64, size),
		out: make([]float64, size),
	}
}

// Size returns the window capacity in samples.
func (w *WindowAssembler) Size() int {
	return len(w.buf)
}

// Pending returns how many samples have accumulated toward the next window.
func (w *WindowAssembler) Pending() int {
	return w.count
}

// Push stores one sample. When the push completes a window it returns the
// window in arrival order and true. The returned slice is owned by the
// assembler and remains valid only until the next completed window; callers
// that need to retain it must copy.
func (w *WindowAssembler) Push(sample float64) ([]float64, bool) {
	w.buf[w.head] = sample
	w.head++
	if w.head == len(w.buf) {
		w.head = 0
	}
	w.count++
	if w.count < len(w.buf) {
		return nil, false
	}

	// head now points at the oldest sample of the completed window, so a
	// single wrap-around copy restores arrival order.
	n := copy(w.out, w.buf[w.head:])
	copy(w.out[n:], w.buf[:w.head])
	w.count = 0
	return w.out, true
}

// Reset discards any partially accumulated window.
func (w *WindowAssembler) Reset() {
	w.head = 0
	w.count = 0
}
