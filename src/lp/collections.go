package lp

type linkedListNode[T any] struct {
	value T
	next  *linkedListNode[T]
}

// Stack is a LIFO list used for depth-first node selection.
type Stack[T any] struct {
	head *linkedListNode[T]
	size int
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

func (s *Stack[T]) Push(e T) {
	s.head = &linkedListNode[T]{value: e, next: s.head}
	s.size++
}

func (s *Stack[T]) Pop() T {
	if s.size == 0 {
		var zero T
		return zero
	}
	node := s.head
	s.head = node.next
	s.size--
	return node.value
}

func (s *Stack[T]) Size() int {
	return s.size
}
