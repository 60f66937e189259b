package core

import "fmt"

// Shape represents the dimensions of a dense array, outermost first.
type Shape []int

// NumElements returns the total number of elements in the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // scalar
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Check returns an error unless the shape has ndim dimensions and holds n
// elements.
func (s Shape) Check(ndim, n int) error {
	if len(s) != ndim {
		return fmt.Errorf("shape %v: want %d dims", s, ndim)
	}
	if s.NumElements() != n {
		return fmt.Errorf("shape %v has %d elements, data has %d", s, s.NumElements(), n)
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%v", []int(s))
}
