// Package lazy holds process-wide resources that are expensive to create,
// such as loaded models, and initializes them on first use.
package lazy

import "sync"

// Value initializes its content on the first successful Get. A failed
// initialization is not cached, so the next Get retries.
type Value[T any] struct {
	mu    sync.Mutex
	newFn func() (T, error)
	val   T
	ok    bool
}

func New[T any](newFn func() (T, error)) *Value[T] {
	return &Value[T]{newFn: newFn}
}

func (v *Value[T]) Get() (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ok {
		return v.val, nil
	}
	val, err := v.newFn()
	if err != nil {
		var zero T
		return zero, err
	}
	v.val = val
	v.ok = true
	return v.val, nil
}

// Loaded reports whether the value has been initialized.
func (v *Value[T]) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ok
}

// Reset drops the cached value and returns it, if any, so the caller can
// release it.
func (v *Value[T]) Reset() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.val, v.ok
	var zero T
	v.val = zero
	v.ok = false
	return val, ok
}
