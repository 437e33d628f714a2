package wasmhost

import (
	"sync"

	"github.com/cshum/wandkit/magick"
)

// Handles carry the slot in their low bits and the slot generation above,
// so a released handle stays invalid after its slot is reused.
// Bit 31 stays clear to keep handles positive as i32.
const (
	slotBits = 20
	slotMask = 1<<slotBits - 1
	genMask  = 1<<(31-slotBits) - 1
)

type slot struct {
	wand *magick.Wand
	gen  uint32
}

// table maps guest handles to wands, each handle owning one wand reference.
// Handle 0 is never issued.
type table struct {
	entries  []slot
	freeList []uint32
	mu       sync.RWMutex
	closed   bool
}

func newTable() *table {
	return &table{
		entries:  make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func encodeHandle(idx int, gen uint32) uint32 {
	return gen<<slotBits | uint32(idx+1)
}

// insert stores w and returns its handle, 0 once closed or full
func (t *table) insert(w *magick.Wand) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || w == nil {
		return 0
	}
	if n := len(t.freeList); n > 0 {
		idx := int(t.freeList[n-1])
		t.freeList = t.freeList[:n-1]
		t.entries[idx].wand = w
		return encodeHandle(idx, t.entries[idx].gen)
	}
	if len(t.entries) >= slotMask {
		return 0
	}
	t.entries = append(t.entries, slot{wand: w})
	return encodeHandle(len(t.entries)-1, 0)
}

// lookup returns the slot index of a live handle, -1 otherwise
func (t *table) lookup(handle uint32) int {
	idx := int(handle&slotMask) - 1
	if idx < 0 || idx >= len(t.entries) {
		return -1
	}
	s := t.entries[idx]
	if s.wand == nil || s.gen != handle>>slotBits {
		return -1
	}
	return idx
}

func (t *table) get(handle uint32) (*magick.Wand, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx := t.lookup(handle)
	if idx < 0 {
		return nil, false
	}
	return t.entries[idx].wand, true
}

// remove drops the handle, returning the wand it owned
func (t *table) remove(handle uint32) (*magick.Wand, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.lookup(handle)
	if idx < 0 {
		return nil, false
	}
	s := &t.entries[idx]
	w := s.wand
	s.wand = nil
	s.gen = (s.gen + 1) & genMask
	t.freeList = append(t.freeList, uint32(idx))
	return w, true
}

func (t *table) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// close releases every wand and stops issuing handles
func (t *table) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, s := range t.entries {
		if s.wand != nil {
			s.wand.Release()
		}
	}
	t.entries = nil
	t.freeList = nil
}
