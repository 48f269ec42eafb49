// Package selection holds the single file a user picked for upload.
package selection

import "sync"

// Holder keeps at most one selected file.
type Holder struct {
	mu        sync.RWMutex
	current   *File
	listeners []func(*File)
}

func NewHolder() *Holder {
	return &Holder{}
}

// OnSelect registers fn to run after every Select and Clear, with the new
// current file (nil after Clear).
func (h *Holder) OnSelect(fn func(*File)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Select replaces the held file and returns it.
func (h *Holder) Select(f *File) *File {
	h.set(f)
	return f
}

// Clear drops the held file.
func (h *Holder) Clear() {
	h.set(nil)
}

func (h *Holder) Current() *File {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Holder) set(f *File) {
	h.mu.Lock()
	h.current = f
	listeners := make([]func(*File), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(f)
	}
}
