package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack(t *testing.T) {
	s := NewStack[int](2)
	_, ok := s.Pop()
	assert.False(t, ok)

	s.Push(1)
	s.Push(2)
	s.Push(3)
	top, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, 3, top)
	assert.Equal(t, 3, s.Len())

	for _, want := range []int{3, 2, 1} {
		v, ok := s.Pop()
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}
	assert.True(t, s.IsEmpty())
}

func TestDedupSet(t *testing.T) {
	d := NewDedupSet[int](4)
	assert.True(t, d.Add(3))
	assert.True(t, d.Add(1))
	assert.False(t, d.Add(3))
	assert.True(t, d.Add(2))

	assert.Equal(t, []int{3, 1, 2}, d.Values())
	assert.True(t, d.Contains(1))

	d.Clear()
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.Contains(1))
	assert.True(t, d.Add(1))
}
