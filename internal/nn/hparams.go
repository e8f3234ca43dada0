package nn

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HParams is a layer's hyperparameter set: string keys mapped to string values.
//
// HParams is immutable. Constructors copy their input, so two layers
// configured from the same source map never share storage, and no method
// modifies the receiver. Keys iterate in sorted order.
//
// Example:
//
//	hp := nn.NewHParams(map[string]string{
//	    "kernel_h": "5",
//	    "weights":  "model/0_conv1_weights",
//	})
//	kh, err := hp.Int("kernel_h")
type HParams struct {
	values map[string]string
	keys   []string
}

// NewHParams copies m into a new HParams.
func NewHParams(m map[string]string) HParams {
	values := make(map[string]string, len(m))
	keys := make([]string, 0, len(m))
	for k, v := range m {
		values[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return HParams{values: values, keys: keys}
}

// HParamsOf builds an HParams from alternating key/value arguments.
//
// Panics on an odd number of arguments.
func HParamsOf(kv ...string) HParams {
	if len(kv)%2 != 0 {
		panic("HParamsOf: odd number of arguments")
	}
	m := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return NewHParams(m)
}

// Len returns the number of keys.
func (h HParams) Len() int {
	return len(h.keys)
}

// Lookup returns the value for key and whether it is present.
func (h HParams) Lookup(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Get returns the value for key, or "" when absent.
func (h HParams) Get(key string) string {
	return h.values[key]
}

// Has reports whether key is present.
func (h HParams) Has(key string) bool {
	_, ok := h.values[key]
	return ok
}

// Keys returns the keys in sorted order.
func (h HParams) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Map returns a copy of the underlying mapping.
func (h HParams) Map() map[string]string {
	m := make(map[string]string, len(h.values))
	for k, v := range h.values {
		m[k] = v
	}
	return m
}

// Int parses a required integer value.
func (h HParams) Int(key string) (int, error) {
	v, ok := h.values[key]
	if !ok {
		return 0, &HParamError{Key: key, Err: ErrMissingHParam}
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, invalidHParam(key, v, err)
	}
	return n, nil
}

// IntOr parses an optional integer value, returning def when absent.
func (h HParams) IntOr(key string, def int) (int, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Int(key)
}

// Float parses a required floating-point value.
func (h HParams) Float(key string) (float64, error) {
	v, ok := h.values[key]
	if !ok {
		return 0, &HParamError{Key: key, Err: ErrMissingHParam}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, invalidHParam(key, v, err)
	}
	return f, nil
}

// String returns "{k1=v1, k2=v2}" in key order.
func (h HParams) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%s", k, h.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// positiveInt reads key (or def when absent and def > 0) and requires a value > 0.
func positiveInt(h HParams, key string, def int) (int, error) {
	var (
		n   int
		err error
	)
	if def > 0 {
		n, err = h.IntOr(key, def)
	} else {
		n, err = h.Int(key)
	}
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, invalidHParam(key, h.Get(key), fmt.Errorf("must be > 0"))
	}
	return n, nil
}
