package datastructures

import "slices"

type HashSet[T comparable] map[T]struct{}

func NewHashSetFromArr[T comparable](arr []T) HashSet[T] {
	hashSet := NewHashSet[T]()

	for _, t := range arr {
		hashSet.AddValue(t)
	}

	return hashSet
}

func NewHashSet[T comparable]() HashSet[T] {
	hashSet := make(HashSet[T])
	return hashSet
}

func (h HashSet[T]) AddValue(val T) {
	h[val] = struct{}{}
}

func (h HashSet[T]) Contains(key T) bool {
	_, ok := h[key]
	return ok
}

func (h HashSet[T]) Len() int {
	return len(h)
}

// Sorted returns the members ordered by cmp.
func Sorted[T comparable](h HashSet[T], cmp func(a, b T) int) []T {
	values := make([]T, 0, len(h))
	for v := range h {
		values = append(values, v)
	}

	slices.SortFunc(values, cmp)

	return values
}
