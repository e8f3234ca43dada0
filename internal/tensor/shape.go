package tensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Shape lists tensor dimensions, outermost first. Image batches are
// [batch, height, width, channels].
type Shape []int

// NumElements is the product of the dimensions; 1 for a rank-0 shape.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Validate rejects zero and negative dimensions.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d < 1 }); i >= 0 {
		return fmt.Errorf("dimension %d of %v is %d, want >= 1", i, []int(s), s[i])
	}
	return nil
}

// Equal reports whether both shapes have the same rank and dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns an independent copy.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

// Strides returns the row-major element step for each dimension.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	step := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = step
		step *= s[i]
	}
	return strides
}

func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// ParseShape parses a comma-separated list of dimensions such as "1,28,28,1".
func ParseShape(text string) (Shape, error) {
	parts := strings.Split(text, ",")
	shape := make(Shape, 0, len(parts))
	for _, p := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid dimension %q: %w", p, err)
		}
		shape = append(shape, dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}
