package tensor

import "fmt"

// Tensor is a dense row-major float64 array.
//
// Image tensors flowing through the layer pipeline use NHWC layout:
// [batch, height, width, channels].
//
// Example:
//
//	t := tensor.New(tensor.Shape{2, 3})
//	t.Set(1.5, 0, 2)
//	v := t.At(0, 2) // 1.5
type Tensor struct {
	shape   Shape
	strides []int
	data    []float64
}

// New creates a zero-filled tensor of the given shape.
//
// Panics if the shape has a non-positive dimension.
func New(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.New: %v", err))
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: shape.Strides(),
		data:    make([]float64, shape.NumElements()),
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := New(shape)
	copy(t.data, data)
	return t, nil
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying storage (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset("At", indices)]
}

// Set stores value at the given indices.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.offset("Set", indices)] = value
}

func (t *Tensor) offset(op string, indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("%s: expected %d indices, got %d", op, len(t.shape), len(indices)))
	}
	idx := 0
	for i, v := range indices {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("%s: index %d out of bounds for dimension %d (shape: %v)", op, v, i, t.shape))
		}
		idx += v * t.strides[i]
	}
	return idx
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.shape)
	copy(c.data, t.data)
	return c
}

// Reshape returns a copy of the tensor with a new shape.
// The number of elements must be unchanged.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.data) {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, shape.NumElements())
	}
	out := New(shape)
	copy(out.data, t.data)
	return out, nil
}

// Slice copies rows [start, end) along the first dimension.
func (t *Tensor) Slice(start, end int) (*Tensor, error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("cannot slice a scalar")
	}
	if start < 0 || end > t.shape[0] || start >= end {
		return nil, fmt.Errorf("invalid slice [%d:%d] for dimension of size %d", start, end, t.shape[0])
	}
	shape := t.shape.Clone()
	shape[0] = end - start
	out := New(shape)
	row := t.strides[0]
	copy(out.data, t.data[start*row:end*row])
	return out, nil
}

// Equal reports whether both tensors have the same shape and elements.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v)", t.shape)
}
