package lp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_LastInFirstOut(t *testing.T) {
	s := NewStack[int]()
	for i := range 3 {
		s.Push(i)
	}
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 2, s.Pop())
	assert.Equal(t, 1, s.Pop())
	s.Push(7)
	assert.Equal(t, 7, s.Pop())
	assert.Equal(t, 0, s.Pop())
	assert.Equal(t, 0, s.Size())
}
