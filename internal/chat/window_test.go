package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_KeepsMostRecentInOrder(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 99, 100, 101, 250} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			w := NewWindow(MaxContextEntries)
			for i := 0; i < n; i++ {
				w.Push(fmt.Sprintf("e%d", i))
			}

			want := min(n, MaxContextEntries)
			entries := w.Entries()
			assert.Len(t, entries, want)
			for i, e := range entries {
				assert.Equal(t, fmt.Sprintf("e%d", n-want+i), e)
			}
		})
	}
}

func TestWindow_PushManyAtOnce(t *testing.T) {
	w := NewWindow(MaxRecentResponses)
	w.Push("a", "b", "c")
	w.Push("d", "e", "f", "g")
	assert.Equal(t, []string{"c", "d", "e", "f", "g"}, w.Entries())
}

func TestWindow_EntriesIsACopy(t *testing.T) {
	w := NewWindow(3)
	w.Push("a")
	entries := w.Entries()
	entries[0] = "changed"
	assert.Equal(t, []string{"a"}, w.Entries())
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(3)
	w.Push("a", "b")
	w.Reset()
	assert.Empty(t, w.Entries())
}
