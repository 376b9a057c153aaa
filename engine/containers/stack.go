package containers

// Stack is a LIFO of values backed by a slice.
type Stack[T any] struct {
	data []T
}

func NewStack[T any](capacity int) *Stack[T] {
	return &Stack[T]{data: make([]T, 0, capacity)}
}

// Push adds value on top of the stack.
func (s *Stack[T]) Push(value T) {
	s.data = append(s.data, value)
}

// Pop removes and returns the top element. ok is false when the stack is
// empty.
func (s *Stack[T]) Pop() (value T, ok bool) {
	if len(s.data) == 0 {
		return value, false
	}
	last := len(s.data) - 1
	value = s.data[last]
	var zero T
	s.data[last] = zero
	s.data = s.data[:last]
	return value, true
}

// Peek returns the top element without removing it.
func (s *Stack[T]) Peek() (value T, ok bool) {
	if len(s.data) == 0 {
		return value, false
	}
	return s.data[len(s.data)-1], true
}

func (s *Stack[T]) Len() int {
	return len(s.data)
}

func (s *Stack[T]) IsEmpty() bool {
	return len(s.data) == 0
}

// Clear drops every element but keeps the allocated capacity.
func (s *Stack[T]) Clear() {
	clear(s.data)
	s.data = s.data[:0]
}
