package containers

// DedupSet is an insertion-ordered set. Every value appears at most once
// and Values returns them in the order they were first added.
type DedupSet[T comparable] struct {
	values []T
	index  map[T]struct{}
}

func NewDedupSet[T comparable](capacity int) *DedupSet[T] {
	return &DedupSet[T]{
		values: make([]T, 0, capacity),
		index:  make(map[T]struct{}, capacity),
	}
}

// Add inserts value and reports whether it was not already present.
func (d *DedupSet[T]) Add(value T) bool {
	if _, ok := d.index[value]; ok {
		return false
	}
	d.index[value] = struct{}{}
	d.values = append(d.values, value)
	return true
}

func (d *DedupSet[T]) Contains(value T) bool {
	_, ok := d.index[value]
	return ok
}

// Values aliases the internal slice; callers must not modify it and must
// not keep it past the next mutation.
func (d *DedupSet[T]) Values() []T {
	return d.values
}

func (d *DedupSet[T]) Len() int {
	return len(d.values)
}

func (d *DedupSet[T]) Clear() {
	clear(d.index)
	d.values = d.values[:0]
}
