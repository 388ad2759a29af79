package chat

const (
	// MaxContextEntries bounds the rolling context window.
	MaxContextEntries = 100
	// MaxRecentResponses bounds the recent-response cache.
	MaxRecentResponses = 5
)

// Window is a bounded FIFO of strings. Once full, each push drops the oldest entry.
type Window struct {
	capacity int
	entries  []string
}

// NewWindow creates a window holding at most capacity entries.
func NewWindow(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Push appends entries in order, dropping the oldest beyond capacity.
func (w *Window) Push(entries ...string) {
	w.entries = append(w.entries, entries...)
	if over := len(w.entries) - w.capacity; over > 0 {
		w.entries = append([]string(nil), w.entries[over:]...)
	}
}

// Entries returns a copy of the window contents, oldest first.
func (w *Window) Entries() []string {
	return append([]string{}, w.entries...)
}

// Reset empties the window.
func (w *Window) Reset() {
	w.entries = nil
}
