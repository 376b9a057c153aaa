package containers

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
)

// ErrStaleHandle is returned for handles that were never issued by a table
// or whose object has since been removed.
var ErrStaleHandle = errors.New("stale or unknown handle")

// Handle identifies an object stored in an ObjectTable independently of
// the slot it currently occupies. Index is reused after removal; the
// Generation tells a reused index apart from the handle it replaced.
type Handle struct {
	Index      uint32
	Generation uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.Index, h.Generation)
}

// ObjectTable stores values in a packed, order-preserving array and hands
// out stable handles for them. Removing an object shifts every object
// after it down by one slot, so callers must go through handles rather
// than keep slots around.
type ObjectTable[T any] struct {
	name        string
	items       []T
	ids         []uint32
	indices     []int32
	generations []uint32
	available   *Stack[uint32]
}

// NewObjectTable creates a table with room for capacity objects before the
// first growth. name is only used for logging.
func NewObjectTable[T any](name string, capacity int) *ObjectTable[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ObjectTable[T]{
		name:        name,
		items:       make([]T, 0, capacity),
		ids:         make([]uint32, 0, capacity),
		indices:     make([]int32, 0, capacity),
		generations: make([]uint32, 0, capacity),
		available:   NewStack[uint32](capacity),
	}
}

// Add appends value and returns its handle. A previously released index is
// reused when one is available, with a newer generation.
func (t *ObjectTable[T]) Add(value T) Handle {
	if len(t.items) == cap(t.items) {
		t.grow()
	}
	slot := len(t.items)
	t.items = append(t.items, value)

	id, ok := t.available.Pop()
	if !ok {
		id = uint32(len(t.indices))
		t.indices = append(t.indices, -1)
		t.generations = append(t.generations, 0)
	}
	t.ids = append(t.ids, id)
	t.indices[id] = int32(slot)
	return Handle{Index: id, Generation: t.generations[id]}
}

// grow doubles the capacity of the packed arrays.
func (t *ObjectTable[T]) grow() {
	newCap := cap(t.items) * 2
	if newCap == 0 {
		newCap = 1
	}
	items := make([]T, len(t.items), newCap)
	copy(items, t.items)
	ids := make([]uint32, len(t.ids), newCap)
	copy(ids, t.ids)
	t.items = items
	t.ids = ids
	core.LogDebug("%s table grown to %d slots", t.name, newCap)
}

// Remove deletes the object identified by h. The handle, and every copy of
// it, becomes stale.
func (t *ObjectTable[T]) Remove(h Handle) error {
	slot, err := t.Slot(h)
	if err != nil {
		return err
	}
	copy(t.items[slot:], t.items[slot+1:])
	copy(t.ids[slot:], t.ids[slot+1:])
	last := len(t.items) - 1
	var zero T
	t.items[last] = zero
	t.items = t.items[:last]
	t.ids = t.ids[:last]
	for i := slot; i < last; i++ {
		t.indices[t.ids[i]] = int32(i)
	}

	t.indices[h.Index] = -1
	t.generations[h.Index]++
	t.available.Push(h.Index)
	return nil
}

// Slot returns the array slot h currently resolves to.
func (t *ObjectTable[T]) Slot(h Handle) (int, error) {
	if int(h.Index) >= len(t.indices) {
		return -1, errors.Wrapf(ErrStaleHandle, "%s handle %s out of range", t.name, h)
	}
	slot := t.indices[h.Index]
	if slot < 0 || t.generations[h.Index] != h.Generation {
		return -1, errors.Wrapf(ErrStaleHandle, "%s handle %s", t.name, h)
	}
	return int(slot), nil
}

// Contains reports whether h refers to a live object.
func (t *ObjectTable[T]) Contains(h Handle) bool {
	_, err := t.Slot(h)
	return err == nil
}

// Get returns a pointer to the object identified by h. The pointer is only
// valid until the next Add or Remove.
func (t *ObjectTable[T]) Get(h Handle) (*T, error) {
	slot, err := t.Slot(h)
	if err != nil {
		return nil, err
	}
	return &t.items[slot], nil
}

// At returns the object stored at slot.
func (t *ObjectTable[T]) At(slot int) *T {
	return &t.items[slot]
}

// HandleAt returns the handle of the object stored at slot.
func (t *ObjectTable[T]) HandleAt(slot int) Handle {
	id := t.ids[slot]
	return Handle{Index: id, Generation: t.generations[id]}
}

// Items returns the packed objects in slot order. The slice aliases the
// table storage.
func (t *ObjectTable[T]) Items() []T {
	return t.items
}

// Handles returns the handles of all live objects in slot order.
func (t *ObjectTable[T]) Handles() []Handle {
	out := make([]Handle, len(t.ids))
	for i := range t.ids {
		out[i] = t.HandleAt(i)
	}
	return out
}

// Each calls fn for every live object in slot order until fn returns false.
// fn must not add or remove objects.
func (t *ObjectTable[T]) Each(fn func(h Handle, value *T) bool) {
	for i := range t.items {
		if !fn(t.HandleAt(i), &t.items[i]) {
			return
		}
	}
}

func (t *ObjectTable[T]) Len() int {
	return len(t.items)
}

func (t *ObjectTable[T]) Cap() int {
	return cap(t.items)
}
