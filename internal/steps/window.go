package steps

// window is a fixed-size ring of magnitudes; the oldest value is
// overwritten when full.
type window struct {
	buf   []float64
	head  int // next write position
	count int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

func (w *window) push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

func (w *window) len() int { return w.count }

// at returns the value i positions back from the newest (0 = newest).
func (w *window) at(i int) float64 {
	idx := (w.head - 1 - i + 2*len(w.buf)) % len(w.buf)
	return w.buf[idx]
}

// values returns the contents oldest first.
func (w *window) values() []float64 {
	out := make([]float64, 0, w.count)
	for i := w.count - 1; i >= 0; i-- {
		out = append(out, w.at(i))
	}
	return out
}

func (w *window) clear() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.head = 0
	w.count = 0
}
